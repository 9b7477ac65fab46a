package types

import (
	"io"
	"math"
)

// JobStatus represents the current status of a remote download job
type JobStatus string

const (
	JobStatusQueued      JobStatus = "queued"
	JobStatusDownloading JobStatus = "downloading"
	JobStatusFinished    JobStatus = "finished"
	JobStatusError       JobStatus = "error"
)

// IsTerminal reports whether no further transitions are possible
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusFinished || s == JobStatusError
}

// DownloadProgress only exists while a job is downloading
type DownloadProgress struct {
	Fraction         float64  `json:"fraction"`
	SpeedBytesPerSec *float64 `json:"speedBytesPerSec,omitempty"`
	ETASeconds       *int64   `json:"etaSeconds,omitempty"`
	DownloadedBytes  int64    `json:"downloadedBytes,omitempty"`
	TotalBytes       *int64   `json:"totalBytes,omitempty"`
}

// JobState is the tracked lifecycle of one remote job
type JobState struct {
	JobID    string            `json:"jobId"`
	Status   JobStatus         `json:"status"`
	Progress *DownloadProgress `json:"progress,omitempty"`
	Error    string            `json:"error,omitempty"`
	Title    string            `json:"title,omitempty"`
	FileName string            `json:"fileName,omitempty"`
	// Polling mirrors whether a poll handle is currently held for the job.
	Polling bool `json:"polling"`
	Percent int  `json:"percent"`
}

// Clone returns a deep copy of the job state
func (j JobState) Clone() JobState {
	out := j
	if j.Progress != nil {
		p := *j.Progress
		if p.SpeedBytesPerSec != nil {
			v := *p.SpeedBytesPerSec
			p.SpeedBytesPerSec = &v
		}
		if p.ETASeconds != nil {
			v := *p.ETASeconds
			p.ETASeconds = &v
		}
		if p.TotalBytes != nil {
			v := *p.TotalBytes
			p.TotalBytes = &v
		}
		out.Progress = &p
	}
	return out
}

// ComputePercent derives the 0-100 value shown on the progress bar
func (j JobState) ComputePercent() int {
	switch j.Status {
	case JobStatusFinished:
		return 100
	case JobStatusDownloading:
		if j.Progress == nil {
			return 0
		}
		pct := int(math.Round(j.Progress.Fraction * 100))
		return max(0, min(100, pct))
	default:
		return 0
	}
}

// JobUpdate is one status report from the collaborator service.
// Exactly one of Queued, Downloading, Finished or Failed.
type JobUpdate interface {
	Status() JobStatus
}

// Queued reports that the job has not started transferring yet
type Queued struct{}

// Downloading reports transfer progress
type Downloading struct {
	DownloadProgress
}

// Finished reports that the artifact is ready
type Finished struct {
	Title    string
	FileName string
}

// Failed reports that the remote service gave up on the job
type Failed struct {
	Message string
}

func (Queued) Status() JobStatus      { return JobStatusQueued }
func (Downloading) Status() JobStatus { return JobStatusDownloading }
func (Finished) Status() JobStatus    { return JobStatusFinished }
func (Failed) Status() JobStatus      { return JobStatusError }

// Artifact is a finished file streamed from the collaborator service.
// Callers must close Body.
type Artifact struct {
	FileName    string
	ContentType string
	Size        int64 // -1 when unknown
	Body        io.ReadCloser
}
