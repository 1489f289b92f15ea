package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/mediabot-go/internal/domain"
	"go.uber.org/zap"
)

// RequestHandler serves the download request audit trail
type RequestHandler struct {
	repo   domain.RequestRepository
	logger *zap.Logger
}

// NewRequestHandler creates a new request handler
func NewRequestHandler(repo domain.RequestRepository, logger *zap.Logger) *RequestHandler {
	return &RequestHandler{
		repo:   repo,
		logger: logger,
	}
}

// GetRequest handles GET /api/v1/requests/:id
func (h *RequestHandler) GetRequest(c *gin.Context) {
	id := c.Param("id")

	req, err := h.repo.FindByID(id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "request not found"})
			return
		}
		h.logger.Error("Failed to get request", zap.String("id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, req)
}

// ListRequests handles GET /api/v1/requests
func (h *RequestHandler) ListRequests(c *gin.Context) {
	filters := make(map[string]interface{})

	for _, key := range []string{"state", "kind", "platform"} {
		if v := c.Query(key); v != "" {
			filters[key] = v
		}
	}
	for _, key := range []string{"chat_id", "user_id"} {
		v := c.Query(key)
		if v == "" {
			continue
		}
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + key})
			return
		}
		filters[key] = id
	}
	if v := c.Query("fallback"); v != "" {
		fallback, err := strconv.ParseBool(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid fallback"})
			return
		}
		filters["fallback"] = fallback
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if err != nil || limit <= 0 {
		limit = 100
	}
	if limit > 1000 {
		limit = 1000
	}
	filters["limit"] = limit

	reqs, err := h.repo.FindAll(filters)
	if err != nil {
		h.logger.Error("Failed to list requests", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, reqs)
}

// GetStats handles GET /api/v1/requests/stats
func (h *RequestHandler) GetStats(c *gin.Context) {
	stats, err := h.repo.GetStats()
	if err != nil {
		h.logger.Error("Failed to get stats", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, stats)
}
