// Package handler implements the HTTP surface: health, search, ask, and
// rag/query. One small struct per resource, with its service/node
// dependency injected through its constructor.
package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/faqrag/engine/internal/logger"
)

// DatabasePinger is the subset of the document store's contract the
// health check needs.
type DatabasePinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves GET /health (spec §6: "{status, database,
// langfuse}").
type HealthHandler struct {
	db DatabasePinger
}

// NewHealthHandler builds the handler over db.
func NewHealthHandler(db DatabasePinger) *HealthHandler {
	return &HealthHandler{db: db}
}

// GetHealth godoc
// @Summary      Health check
// @Description  Reports process status and the document store's reachability
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /health [get]
func (h *HealthHandler) GetHealth(c *gin.Context) {
	ctx := c.Request.Context()

	status := "ok"
	database := "ok"
	if h.db == nil {
		database = "unconfigured"
	} else if err := h.db.Ping(ctx); err != nil {
		logger.Warnf(ctx, "health check: document store unreachable: %v", err)
		database = "unreachable"
		status = "degraded"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   status,
		"database": database,
		// Tracing/score-logging exporters are an out-of-scope external
		// collaborator (spec §1); this surface always reports disabled
		// rather than pretending to check a backend it doesn't own.
		"langfuse": "disabled",
	})
}
