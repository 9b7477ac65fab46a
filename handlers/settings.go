package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"tubedeck/config"
)

// SettingsHandler handles settings-related endpoints
type SettingsHandler struct {
	path string

	mu      sync.Mutex
	current config.Config
}

// NewSettingsHandler creates a settings handler that persists to path
func NewSettingsHandler(path string, current config.Config) *SettingsHandler {
	return &SettingsHandler{
		path:    path,
		current: current,
	}
}

// validatePath checks that the path is a writable directory, creating it if needed
func validatePath(path string) error {
	if path == "" {
		return errors.New("path is empty")
	}
	info, err := os.Stat(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return err
		}
		if err := os.MkdirAll(path, 0755); err != nil {
			return err
		}
	} else if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", path)
	}

	// Test write permissions by creating a temporary file
	testFile := filepath.Join(path, ".tubedeck-write-test")
	file, err := os.Create(testFile)
	if err != nil {
		return err
	}
	file.Close()
	os.Remove(testFile)

	return nil
}

// GetSettings returns the current settings
func (h *SettingsHandler) GetSettings(c *gin.Context) {
	h.mu.Lock()
	settings := h.current
	h.mu.Unlock()

	c.JSON(http.StatusOK, settings)
}

// UpdateSettings merges the posted fields into the settings and saves them.
// Changes take effect on the next start.
func (h *SettingsHandler) UpdateSettings(c *gin.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()

	updated := h.current
	updated.CORSOrigins = slices.Clone(h.current.CORSOrigins)
	if err := c.ShouldBindJSON(&updated); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid settings format",
			"details": err.Error(),
		})
		return
	}

	if err := updated.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid settings",
			"details": err.Error(),
		})
		return
	}

	if updated.DownloadLocation != h.current.DownloadLocation {
		if err := validatePath(updated.DownloadLocation); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Invalid download location",
				"details": err.Error(),
			})
			return
		}
	}

	if err := config.Save(h.path, updated); err != nil {
		log.Error().Str("component", "handlers").Str("path", h.path).Err(err).Msg("saving settings failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to save settings",
			"details": err.Error(),
		})
		return
	}
	h.current = updated

	c.JSON(http.StatusOK, gin.H{
		"message":  "Settings saved; restart to apply",
		"settings": updated,
	})
}
