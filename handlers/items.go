package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	gorilla "github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"tubedeck/services"
	"tubedeck/websocket"
)

// ItemHandler exposes the orchestrator commands over HTTP
type ItemHandler struct {
	orchestrator services.Orchestrator
	hub          websocket.Hub
	upgrader     gorilla.Upgrader
}

// NewItemHandler creates a new item handler
func NewItemHandler(o services.Orchestrator, hub websocket.Hub, allowedOrigins []string) *ItemHandler {
	return &ItemHandler{
		orchestrator: o,
		hub:          hub,
		upgrader:     websocket.NewUpgrader(allowedOrigins),
	}
}

type addItemRequest struct {
	URL string `json:"url" binding:"required"`
}

type selectVariantRequest struct {
	VariantID string `json:"variantId"`
}

// ListItems returns the current snapshot
func (h *ItemHandler) ListItems(c *gin.Context) {
	c.JSON(http.StatusOK, h.orchestrator.Snapshot())
}

// AddItem resolves a URL and adds it to the list
func (h *ItemHandler) AddItem(c *gin.Context) {
	var req addItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "url is required",
			"details": err.Error(),
		})
		return
	}

	item, err := h.orchestrator.AddItem(c.Request.Context(), req.URL)
	if err != nil {
		respondError(c, "failed to add video", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Video added",
		"item":    item,
	})
}

// RemoveItem drops an item and stops tracking its job
func (h *ItemHandler) RemoveItem(c *gin.Context) {
	if err := h.orchestrator.RemoveItem(c.Param("id")); err != nil {
		respondError(c, "failed to remove video", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Video removed",
	})
}

// SelectVariant records which variant to download. The variant must be one
// the collaborator reported; an empty id clears the selection.
func (h *ItemHandler) SelectVariant(c *gin.Context) {
	id := c.Param("id")
	var req selectVariantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid request body",
			"details": err.Error(),
		})
		return
	}
	variantID := strings.TrimSpace(req.VariantID)

	item, ok := h.orchestrator.Snapshot().Find(id)
	if !ok {
		respondError(c, "failed to select variant", fmt.Errorf("%w: %s", services.ErrItemNotFound, id))
		return
	}
	if variantID != "" && !item.HasVariant(variantID) {
		respondError(c, "failed to select variant",
			fmt.Errorf("%w: unknown variant %q for %s", services.ErrValidation, variantID, id))
		return
	}

	if err := h.orchestrator.SelectVariant(id, variantID); err != nil {
		respondError(c, "failed to select variant", err)
		return
	}

	item, _ = h.orchestrator.Snapshot().Find(id)
	c.JSON(http.StatusOK, gin.H{
		"message": "Variant selected",
		"item":    item,
	})
}

// StartDownload submits the selected variant to the collaborator
func (h *ItemHandler) StartDownload(c *gin.Context) {
	job, err := h.orchestrator.StartDownload(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, "failed to start download", err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"message": "Download started",
		"job":     job,
	})
}

// HandleWebSocketConnection streams snapshots to a browser, starting with the current one
func (h *ItemHandler) HandleWebSocketConnection(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Debug().Str("component", "handlers").Err(err).Msg("websocket upgrade failed")
		return
	}

	client := websocket.NewClient(h.hub, conn, h.orchestrator.Snapshot())
	client.StartPumps()
	// covers a change published between the snapshot above and registration;
	// clients that already have this version skip it
	h.hub.Broadcast(h.orchestrator.Snapshot())
}
