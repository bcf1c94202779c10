package handlers

import "github.com/gin-gonic/gin"

// Metrics exposes the Prometheus measurements named in spec §4.10.
// GET /metrics
func (h *Handler) Metrics(c *gin.Context) {
	h.Telemetry.Handler().ServeHTTP(c.Writer, c.Request)
}
