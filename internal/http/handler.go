// Package http exposes a small monitoring endpoint for long validation
// runs: a health check and the current pipeline stage with its progress
// counters, so batch users can watch a run from a browser or curl loop.
package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"go.climsuite.io/gridval/internal/usecase"
)

// Handler serves run-monitoring requests.
type Handler struct {
	ec *usecase.ExecContext
}

// NewHandler creates a new HTTP handler.
func NewHandler(ec *usecase.ExecContext) *Handler {
	return &Handler{ec: ec}
}

// GetProgress handles GET /v1/progress.
func (h *Handler) GetProgress(c *gin.Context) {
	p := h.ec.Progress()
	c.JSON(http.StatusOK, gin.H{
		"stage": p.Stage,
		"done":  p.Done,
		"total": p.Total,
		"time":  time.Now().UTC().Format(time.RFC3339),
	})
}

// HealthCheck handles GET /health.
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}
