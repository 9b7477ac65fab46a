package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"tubedeck/services"
)

// StatusFor maps an orchestrator error to an HTTP status code
func StatusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrItemNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, services.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrDuplicate), errors.Is(err, services.ErrArtifactNotReady):
		return http.StatusConflict
	case errors.Is(err, services.ErrRemoteRequest):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes the standard error body and logs server-side failures
func respondError(c *gin.Context, summary string, err error) {
	status := StatusFor(err)
	event := log.Debug()
	if status >= http.StatusInternalServerError {
		event = log.Warn()
	}
	event.Str("component", "handlers").Str("path", c.FullPath()).Int("status", status).Err(err).Msg(summary)

	c.JSON(status, gin.H{
		"error":   summary,
		"details": err.Error(),
	})
}
