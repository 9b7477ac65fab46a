package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tubedeck/remote"
	"tubedeck/services"
	"tubedeck/testutil"
	"tubedeck/types"
)

func newGetOrchestrator(t *testing.T, collaborator *testutil.Collaborator) services.Orchestrator {
	client, err := remote.NewClient(remote.ClientConfig{BaseURL: collaborator.URL(), Timeout: 5 * time.Second})
	require.NoError(t, err)
	o := services.NewOrchestrator(client, 5*time.Millisecond)
	t.Cleanup(o.Close)
	return o
}

// finishWhenPolled completes jobID once the tracker has polled it
func finishWhenPolled(collaborator *testutil.Collaborator, jobID string) {
	go func() {
		deadline := time.Now().Add(5 * time.Second)
		for collaborator.Polls(jobID) == 0 && time.Now().Before(deadline) {
			time.Sleep(2 * time.Millisecond)
		}
		collaborator.Finish(jobID, "A video")
	}()
}

func TestRunGetSavesArtifact(t *testing.T) {
	collaborator := testutil.NewCollaborator(t)
	dir := filepath.Join(t.TempDir(), "out")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	finishWhenPolled(collaborator, "j1")
	var out bytes.Buffer
	path, err := runGet(ctx, newGetOrchestrator(t, collaborator), testutil.VideoURL, "", dir, &out)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "A video.mp4"), path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "video-bytes-j1", string(data))
	assert.Equal(t, "f1", collaborator.Variant("j1"), "top-ranked variant is the default")
	assert.NoFileExists(t, path+".part")
	assert.Contains(t, out.String(), "A video")

	finishWhenPolled(collaborator, "j2")
	path, err = runGet(ctx, newGetOrchestrator(t, collaborator), testutil.VideoURL, "f2", dir, &out)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "A video-(1).mp4"), path)
	assert.Equal(t, "f2", collaborator.Variant("j2"))
}

func TestRunGetReportsFailure(t *testing.T) {
	collaborator := testutil.NewCollaborator(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	go func() {
		for collaborator.Polls("j1") == 0 {
			time.Sleep(2 * time.Millisecond)
		}
		collaborator.Fail("j1", "ERROR: format not available")
	}()
	_, err := runGet(ctx, newGetOrchestrator(t, collaborator), testutil.VideoURL, "", t.TempDir(), &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "format not available")
	assert.Zero(t, collaborator.Fetches())
}

func TestRunGetUnknownVariant(t *testing.T) {
	collaborator := testutil.NewCollaborator(t)
	_, err := runGet(context.Background(), newGetOrchestrator(t, collaborator), testutil.VideoURL, "f9", t.TempDir(), &bytes.Buffer{})
	require.ErrorIs(t, err, services.ErrValidation)
	assert.Contains(t, err.Error(), "tubedeck formats")
}

func TestPickVariant(t *testing.T) {
	item := types.Item{VideoInfo: types.VideoInfo{ID: "abc", Variants: []types.Variant{{ID: "a"}, {ID: "b"}}}}

	v, err := pickVariant(item, "")
	require.NoError(t, err)
	assert.Equal(t, "a", v.ID)

	v, err = pickVariant(item, "b")
	require.NoError(t, err)
	assert.Equal(t, "b", v.ID)

	_, err = pickVariant(types.Item{}, "")
	assert.ErrorIs(t, err, services.ErrValidation)
}

func TestUniquePath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clip.mp4")
	assert.Equal(t, path, uniquePath(path))

	require.NoError(t, os.WriteFile(path, nil, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "clip-(1).mp4"), nil, 0644))
	assert.Equal(t, filepath.Join(dir, "clip-(2).mp4"), uniquePath(path))
}
