package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputePercent(t *testing.T) {
	tests := []struct {
		name string
		job  JobState
		want int
	}{
		{"queued", JobState{Status: JobStatusQueued}, 0},
		{"downloading without progress", JobState{Status: JobStatusDownloading}, 0},
		{"downloading", JobState{Status: JobStatusDownloading, Progress: &DownloadProgress{Fraction: 0.4}}, 40},
		{"rounds", JobState{Status: JobStatusDownloading, Progress: &DownloadProgress{Fraction: 0.126}}, 13},
		{"clamps high", JobState{Status: JobStatusDownloading, Progress: &DownloadProgress{Fraction: 1.7}}, 100},
		{"clamps low", JobState{Status: JobStatusDownloading, Progress: &DownloadProgress{Fraction: -0.2}}, 0},
		{"finished", JobState{Status: JobStatusFinished}, 100},
		{"error", JobState{Status: JobStatusError, Progress: &DownloadProgress{Fraction: 0.8}}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.job.ComputePercent())
		})
	}
}

func TestJobStatusIsTerminal(t *testing.T) {
	assert.False(t, JobStatusQueued.IsTerminal())
	assert.False(t, JobStatusDownloading.IsTerminal())
	assert.True(t, JobStatusFinished.IsTerminal())
	assert.True(t, JobStatusError.IsTerminal())
}

func TestJobUpdateStatus(t *testing.T) {
	updates := map[JobStatus]JobUpdate{
		JobStatusQueued:      Queued{},
		JobStatusDownloading: Downloading{},
		JobStatusFinished:    Finished{},
		JobStatusError:       Failed{Message: "boom"},
	}
	for want, update := range updates {
		assert.Equal(t, want, update.Status())
	}
}
