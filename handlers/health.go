package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"tubedeck/services"
	"tubedeck/websocket"
)

// Version is reported by the health endpoints; set at build time
var Version = "dev"

// HealthHandler handles health check endpoints
type HealthHandler struct {
	serviceURL   string
	orchestrator services.Orchestrator
	hub          websocket.Hub
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(serviceURL string, o services.Orchestrator, hub websocket.Hub) *HealthHandler {
	return &HealthHandler{
		serviceURL:   serviceURL,
		orchestrator: o,
		hub:          hub,
	}
}

// HealthCheck returns the health status of the service
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   "tubedeck",
		"version":   Version,
		"timestamp": time.Now().Unix(),
	})
}

// APIStatus returns the status of the API
func (h *HealthHandler) APIStatus(c *gin.Context) {
	snap := h.orchestrator.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"message":     "tubedeck API is running",
		"version":     Version,
		"serviceUrl":  h.serviceURL,
		"items":       len(snap.Items),
		"activePolls": h.orchestrator.ActivePolls(),
		"clients":     h.hub.ClientCount(),
	})
}
