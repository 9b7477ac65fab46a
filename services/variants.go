package services

import (
	"regexp"
	"slices"
	"strconv"

	"tubedeck/types"
)

var resolutionPattern = regexp.MustCompile(`(\d+)p`)

// RankVariants returns the presentable variants, highest resolution first.
// Variants without a container, or with neither video nor audio, are dropped.
// Equal resolutions keep their original relative order. The input is not modified.
func RankVariants(variants []types.Variant) []types.Variant {
	ranked := make([]types.Variant, 0, len(variants))
	for _, v := range variants {
		if v.Container == "" || !(v.HasVideo || v.HasAudio) {
			continue
		}
		ranked = append(ranked, v)
	}

	slices.SortStableFunc(ranked, func(a, b types.Variant) int {
		return resolutionOf(b) - resolutionOf(a)
	})
	return ranked
}

// resolutionOf parses "1080p" style labels; anything else ranks as 0
func resolutionOf(v types.Variant) int {
	m := resolutionPattern.FindStringSubmatch(v.ResolutionLabel)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return n
}
