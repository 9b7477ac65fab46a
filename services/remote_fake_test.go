package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"tubedeck/types"
)

var errUnreachable = errors.New("connection refused")

type pollStep struct {
	update types.JobUpdate
	err    error
}

// fakeRemote is a scripted collaborator. Poll steps are consumed in order per
// job; the last step repeats forever. It fails the test if two polls for the
// same job overlap.
type fakeRemote struct {
	t *testing.T

	mu         sync.Mutex
	infos      map[string]types.VideoInfo
	infoErr    error
	startErr   error
	startGate  chan struct{}
	pollDelay  time.Duration
	pollGate   chan struct{}
	pollGated  chan string
	scripts    map[string][]pollStep
	nextJob    int
	startCalls int
	fetchCalls int
	pollCalls  map[string]int
	inFlight   map[string]int
}

func newFakeRemote(t *testing.T) *fakeRemote {
	return &fakeRemote{
		t:         t,
		infos:     make(map[string]types.VideoInfo),
		scripts:   make(map[string][]pollStep),
		pollCalls: make(map[string]int),
		inFlight:  make(map[string]int),
	}
}

func (f *fakeRemote) addVideo(url string, info types.VideoInfo) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.infos[url] = info
}

func (f *fakeRemote) script(jobID string, steps ...pollStep) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scripts[jobID] = steps
}

func (f *fakeRemote) polls(jobID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pollCalls[jobID]
}

func (f *fakeRemote) starts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.startCalls
}

func (f *fakeRemote) fetches() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetchCalls
}

func (f *fakeRemote) ResolveInfo(ctx context.Context, videoURL string) (types.VideoInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.infoErr != nil {
		return types.VideoInfo{}, f.infoErr
	}
	info, ok := f.infos[videoURL]
	if !ok {
		return types.VideoInfo{}, fmt.Errorf("unsupported URL: %s", videoURL)
	}
	return info, nil
}

func (f *fakeRemote) Start(ctx context.Context, videoURL, variantID string) (string, error) {
	f.mu.Lock()
	gate := f.startGate
	f.startCalls++
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return "", f.startErr
	}
	f.nextJob++
	return fmt.Sprintf("j%d", f.nextJob), nil
}

func (f *fakeRemote) Poll(ctx context.Context, jobID string) (types.JobUpdate, error) {
	f.mu.Lock()
	f.inFlight[jobID]++
	if f.inFlight[jobID] > 1 {
		f.t.Errorf("poll for %s issued while a previous poll was in flight", jobID)
	}
	n := f.pollCalls[jobID]
	f.pollCalls[jobID]++
	steps := f.scripts[jobID]
	delay, gate, gated := f.pollDelay, f.pollGate, f.pollGated
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inFlight[jobID]--
		f.mu.Unlock()
	}()

	if delay > 0 {
		time.Sleep(delay)
	}
	if gate != nil {
		if gated != nil {
			gated <- jobID
		}
		// deliberately ignores ctx so the result arrives after cancellation
		<-gate
	}

	if len(steps) == 0 {
		return types.Queued{}, nil
	}
	step := steps[min(n, len(steps)-1)]
	return step.update, step.err
}

func (f *fakeRemote) FetchArtifact(ctx context.Context, jobID string) (*types.Artifact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetchCalls++
	return &types.Artifact{
		FileName:    "remote-name.mp4",
		ContentType: "application/octet-stream",
		Size:        int64(len("payload-" + jobID)),
		Body:        io.NopCloser(strings.NewReader("payload-" + jobID)),
	}, nil
}

func sampleInfo(id string) types.VideoInfo {
	size := int64(50 * 1024 * 1024)
	return types.VideoInfo{
		ID:       id,
		Title:    "Video " + id,
		Uploader: "uploader",
		Variants: []types.Variant{
			{ID: "f1", Container: "mp4", ResolutionLabel: "1080p", SizeBytes: &size, HasVideo: true, HasAudio: true},
			{ID: "f2", Container: "webm", ResolutionLabel: "720p", HasVideo: true, HasAudio: true},
		},
	}
}

func downloading(fraction float64) pollStep {
	return pollStep{update: types.Downloading{DownloadProgress: types.DownloadProgress{Fraction: fraction}}}
}

func finished(title string) pollStep {
	return pollStep{update: types.Finished{Title: title, FileName: title + ".mp4"}}
}

func failed(msg string) pollStep {
	return pollStep{update: types.Failed{Message: msg}}
}

func miss() pollStep {
	return pollStep{err: errUnreachable}
}

func queued() pollStep {
	return pollStep{update: types.Queued{}}
}
