package services

import (
	"context"
	"regexp"
	"strings"
	"time"

	"tubedeck/types"
)

// DefaultPollInterval is the pause between the end of one status request and the next
const DefaultPollInterval = 700 * time.Millisecond

const artifactExtension = ".mp4"

var pathHostile = regexp.MustCompile(`[\\/:*?"<>|]+`)

// tracker polls one remote job until it reaches a terminal state or is cancelled.
// A non-nil *tracker stored on a catalog entry is the job's poll handle.
type tracker struct {
	jobID    string
	interval time.Duration
	poll     func(ctx context.Context, jobID string) (types.JobUpdate, error)
	// apply merges an update and reports whether polling should continue
	apply  func(t *tracker, update types.JobUpdate) bool
	cancel context.CancelFunc
	done   chan struct{}
}

func newTracker(parent context.Context, jobID string, interval time.Duration,
	poll func(context.Context, string) (types.JobUpdate, error),
	apply func(*tracker, types.JobUpdate) bool) (*tracker, context.Context) {
	ctx, cancel := context.WithCancel(parent)
	return &tracker{
		jobID:    jobID,
		interval: interval,
		poll:     poll,
		apply:    apply,
		cancel:   cancel,
		done:     make(chan struct{}),
	}, ctx
}

// run issues one poll per interval, never more than one at a time.
// A failed poll is a transient miss: nothing changes and the next tick retries.
func (t *tracker) run(ctx context.Context) {
	defer close(t.done)
	defer t.cancel()

	timer := time.NewTimer(t.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		update, err := t.poll(ctx, t.jobID)
		if ctx.Err() != nil {
			return
		}
		if err == nil && update != nil && !t.apply(t, update) {
			return
		}
		timer.Reset(t.interval)
	}
}

// stop revokes the poll handle. It does not wait for the goroutine.
func (t *tracker) stop() {
	t.cancel()
}

func (t *tracker) wait() {
	<-t.done
}

// applyUpdate moves job through the state machine and reports whether anything changed.
// Terminal states never transition, and a job that started downloading is not sent back to queued.
func applyUpdate(job *types.JobState, update types.JobUpdate) bool {
	if job.Status.IsTerminal() {
		return false
	}
	before := job.Clone()

	switch u := update.(type) {
	case types.Queued:
		if job.Status != types.JobStatusQueued {
			return false
		}
	case types.Downloading:
		progress := u.DownloadProgress
		job.Status = types.JobStatusDownloading
		job.Progress = &progress
	case types.Finished:
		job.Status = types.JobStatusFinished
		job.Progress = nil
		job.Title = u.Title
		job.FileName = u.FileName
	case types.Failed:
		job.Status = types.JobStatusError
		job.Progress = nil
		job.Error = u.Message
	default:
		return false
	}

	if job.Status.IsTerminal() {
		job.Polling = false
	}
	job.Percent = job.ComputePercent()
	return !jobsEqual(before, *job)
}

func jobsEqual(a, b types.JobState) bool {
	if a.Status != b.Status || a.Error != b.Error || a.Title != b.Title ||
		a.FileName != b.FileName || a.Polling != b.Polling || a.Percent != b.Percent {
		return false
	}
	if (a.Progress == nil) != (b.Progress == nil) {
		return false
	}
	if a.Progress == nil {
		return true
	}
	pa, pb := a.Progress, b.Progress
	return pa.Fraction == pb.Fraction &&
		pa.DownloadedBytes == pb.DownloadedBytes &&
		equalPtr(pa.SpeedBytesPerSec, pb.SpeedBytesPerSec) &&
		equalPtr(pa.ETASeconds, pb.ETASeconds) &&
		equalPtr(pa.TotalBytes, pb.TotalBytes)
}

func equalPtr[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// SuggestedFileName turns a title into a file name safe on common filesystems
func SuggestedFileName(titles ...string) string {
	base := "video"
	for _, title := range titles {
		if strings.TrimSpace(title) != "" {
			base = title
			break
		}
	}
	return pathHostile.ReplaceAllString(base, "_") + artifactExtension
}
