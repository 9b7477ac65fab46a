package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tubedeck/types"
)

func variant(id, resolution string) types.Variant {
	return types.Variant{ID: id, Container: "mp4", ResolutionLabel: resolution, HasVideo: true, HasAudio: true}
}

func variantIDs(vs []types.Variant) []string {
	ids := make([]string, len(vs))
	for i, v := range vs {
		ids[i] = v.ID
	}
	return ids
}

func TestRankVariantsOrdersByResolution(t *testing.T) {
	input := []types.Variant{
		variant("a", "720p"),
		variant("b", "1080p"),
		variant("c", "480p"),
		variant("d", ""),
	}

	ranked := RankVariants(input)
	assert.Equal(t, []string{"b", "a", "c", "d"}, variantIDs(ranked))
}

func TestRankVariantsIsStable(t *testing.T) {
	input := []types.Variant{
		variant("x1", "audio only"),
		variant("h1", "720p"),
		variant("x2", ""),
		variant("h2", "1280x720 (720p60)"),
		variant("x3", "tiny"),
		variant("h3", "720p"),
	}

	ranked := RankVariants(input)
	assert.Equal(t, []string{"h1", "h2", "h3", "x1", "x2", "x3"}, variantIDs(ranked))
}

func TestRankVariantsFilters(t *testing.T) {
	noStreams := variant("none", "2160p")
	noStreams.HasVideo = false
	noStreams.HasAudio = false

	noContainer := variant("noext", "1080p")
	noContainer.Container = ""

	audioOnly := variant("audio", "")
	audioOnly.HasVideo = false

	videoOnly := variant("video", "720p")
	videoOnly.HasAudio = false

	ranked := RankVariants([]types.Variant{noStreams, noContainer, audioOnly, videoOnly})
	assert.Equal(t, []string{"video", "audio"}, variantIDs(ranked))
}

func TestRankVariantsDoesNotMutateInput(t *testing.T) {
	input := []types.Variant{variant("a", "360p"), variant("b", "1080p")}
	original := append([]types.Variant(nil), input...)

	ranked := RankVariants(input)
	require.Len(t, ranked, 2)
	assert.Equal(t, original, input)

	ranked[0].ID = "changed"
	assert.Equal(t, "a", input[0].ID)
	assert.Equal(t, "b", input[1].ID)
}

func TestRankVariantsEmpty(t *testing.T) {
	assert.Empty(t, RankVariants(nil))
	assert.NotNil(t, RankVariants(nil))
	assert.Empty(t, RankVariants([]types.Variant{}))
}
