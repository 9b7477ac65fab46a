package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"tubedeck/services"
	"tubedeck/types"
	"tubedeck/validator"
)

// InfoResolver resolves video metadata without adding anything to the list
type InfoResolver interface {
	ResolveInfo(ctx context.Context, videoURL string) (types.VideoInfo, error)
}

// LookupHandler previews the variants of a video URL
type LookupHandler struct {
	resolver InfoResolver
}

// NewLookupHandler creates a new lookup handler
func NewLookupHandler(r InfoResolver) *LookupHandler {
	return &LookupHandler{resolver: r}
}

type labeledVariant struct {
	types.Variant
	Label string `json:"label"`
}

// Lookup resolves ?url= and returns its ranked variants
func (h *LookupHandler) Lookup(c *gin.Context) {
	videoURL := strings.TrimSpace(c.Query("url"))
	if videoURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "query parameter 'url' is required",
		})
		return
	}
	if !validator.IsSupportedVideoURL(videoURL) {
		respondError(c, "lookup failed", fmt.Errorf("%w: unsupported video URL %q", services.ErrValidation, videoURL))
		return
	}

	info, err := h.resolver.ResolveInfo(c.Request.Context(), videoURL)
	if err != nil {
		respondError(c, "lookup failed", fmt.Errorf("%w: %w", services.ErrRemoteRequest, err))
		return
	}

	ranked := services.RankVariants(info.Variants)
	variants := make([]labeledVariant, len(ranked))
	for i, v := range ranked {
		variants[i] = labeledVariant{Variant: v, Label: v.Label()}
	}
	info.Variants = ranked

	c.JSON(http.StatusOK, gin.H{
		"url":      videoURL,
		"video":    info,
		"variants": variants,
	})
}
