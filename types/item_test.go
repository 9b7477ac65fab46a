package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVariantLabel(t *testing.T) {
	size := int64(52428800)
	zero := int64(0)

	assert.Equal(t, "1080p • mp4 • 50.0 MB", Variant{ResolutionLabel: "1080p", Container: "mp4", SizeBytes: &size}.Label())
	assert.Equal(t, "N/A • m4a", Variant{Container: "m4a"}.Label())
	assert.Equal(t, "720p • webm", Variant{ResolutionLabel: "720p", Container: "webm", SizeBytes: &zero}.Label())
}

func TestItemDurationString(t *testing.T) {
	d := 125.7
	neg := -1.0
	assert.Equal(t, "2m 5s", Item{VideoInfo: VideoInfo{DurationSeconds: &d}}.DurationString())
	assert.Equal(t, "N/A", Item{}.DurationString())
	assert.Equal(t, "N/A", Item{VideoInfo: VideoInfo{DurationSeconds: &neg}}.DurationString())
}

func TestItemClone(t *testing.T) {
	d := 60.0
	speed := 10.0
	orig := Item{
		VideoInfo: VideoInfo{
			ID:              "abc123",
			DurationSeconds: &d,
			Variants:        []Variant{{ID: "f1"}, {ID: "f2"}},
		},
		Job: &JobState{
			JobID:    "j1",
			Status:   JobStatusDownloading,
			Progress: &DownloadProgress{Fraction: 0.5, SpeedBytesPerSec: &speed},
		},
	}

	clone := orig.Clone()
	require.Equal(t, orig, clone)

	clone.Variants[0].ID = "changed"
	*clone.DurationSeconds = 1
	clone.Job.Status = JobStatusError
	clone.Job.Progress.Fraction = 0.9
	*clone.Job.Progress.SpeedBytesPerSec = 99

	assert.Equal(t, "f1", orig.Variants[0].ID)
	assert.Equal(t, 60.0, *orig.DurationSeconds)
	assert.Equal(t, JobStatusDownloading, orig.Job.Status)
	assert.Equal(t, 0.5, orig.Job.Progress.Fraction)
	assert.Equal(t, 10.0, *orig.Job.Progress.SpeedBytesPerSec)
}

func TestItemHasVariant(t *testing.T) {
	it := Item{VideoInfo: VideoInfo{Variants: []Variant{{ID: "f1"}, {ID: "f2"}}}}
	assert.True(t, it.HasVariant("f2"))
	assert.False(t, it.HasVariant("f3"))
	assert.False(t, it.HasVariant(""))
}

func TestItemJSONFlattensVideoInfo(t *testing.T) {
	it := Item{
		VideoInfo: VideoInfo{ID: "abc123", Title: "Clip", Variants: []Variant{{ID: "f1", Container: "mp4"}}},
		SourceURL: "https://youtu.be/abc123",
	}
	data, err := json.Marshal(it)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "abc123", raw["id"])
	assert.Equal(t, "https://youtu.be/abc123", raw["sourceUrl"])
	assert.NotContains(t, raw, "job")
	assert.NotContains(t, raw, "VideoInfo")
}
