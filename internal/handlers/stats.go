package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ternarybob/transcribe-service/internal/models"
)

// Stats returns an operator-facing snapshot of current load: the Registry's
// own state counts rather than raw Prometheus text, for quick polling
// by scripts and dashboards (spec's additional HTTP surface).
// GET /stats
func (h *Handler) Stats(c *gin.Context) {
	ctx := c.Request.Context()

	queued, err := h.Registry.CountByState(ctx, models.Queued)
	if err != nil {
		writeError(c, err)
		return
	}
	processing, err := h.Registry.CountByState(ctx, models.Processing)
	if err != nil {
		writeError(c, err)
		return
	}
	workers, err := h.Registry.CountActiveWorkers(ctx, h.HeartbeatFreshness)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.StatsResponse{
		QueueDepth: queued,
		InProgress: processing,
		Workers:    workers,
	})
}
