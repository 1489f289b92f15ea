package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Readiness reports whether the bot is processing updates
type Readiness interface {
	IsRunning() bool
}

// HealthHandler handles health check requests
type HealthHandler struct {
	readiness Readiness
	version   string
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(readiness Readiness, version string) *HealthHandler {
	return &HealthHandler{
		readiness: readiness,
		version:   version,
	}
}

// HealthResponse represents a health check response
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Bot     struct {
		Running bool `json:"running"`
	} `json:"bot"`
}

// Health handles GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	response := HealthResponse{
		Status:  "ok",
		Version: h.version,
	}
	response.Bot.Running = h.readiness.IsRunning()

	c.JSON(http.StatusOK, response)
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(c *gin.Context) {
	if !h.readiness.IsRunning() {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"reason": "bot not running",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
