package handlers

import (
	"io"
	"mime"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"tubedeck/services"
)

// ArtifactHandler relays finished files from the collaborator to the browser
type ArtifactHandler struct {
	orchestrator services.Orchestrator
}

// NewArtifactHandler creates a new artifact handler
func NewArtifactHandler(o services.Orchestrator) *ArtifactHandler {
	return &ArtifactHandler{
		orchestrator: o,
	}
}

// StreamArtifact streams the finished file as an attachment named after the video
func (h *ArtifactHandler) StreamArtifact(c *gin.Context) {
	id := c.Param("id")
	artifact, err := h.orchestrator.FetchArtifact(c.Request.Context(), id)
	if err != nil {
		respondError(c, "artifact unavailable", err)
		return
	}
	defer artifact.Body.Close()

	contentType := artifact.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": artifact.FileName})

	c.Header("Cache-Control", "no-store")
	if artifact.Size < 0 {
		c.Header("Content-Type", contentType)
		c.Header("Content-Disposition", disposition)
		c.Status(http.StatusOK)
		if _, err := io.Copy(c.Writer, artifact.Body); err != nil {
			log.Warn().Str("component", "handlers").Str("item", id).Err(err).Msg("artifact stream interrupted")
		}
		return
	}

	c.DataFromReader(http.StatusOK, artifact.Size, contentType, artifact.Body, map[string]string{
		"Content-Disposition": disposition,
	})
}
