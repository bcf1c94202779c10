// Package handlers contains HTTP handler functions for the API.
//
// Go Pattern: Handlers in Gin receive a *gin.Context which provides:
// - Request data (params, query, body, headers)
// - Response methods (JSON, String, Status)
// - Middleware data (c.Get/c.Set)
//
// Unlike Ruby controllers, Go handlers are plain functions — no class
// inheritance. We group related handlers into a struct (Handler) that holds
// shared dependencies.
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ternarybob/transcribe-service/internal/registry"
	"github.com/ternarybob/transcribe-service/internal/services/polling"
	"github.com/ternarybob/transcribe-service/internal/services/submission"
	"github.com/ternarybob/transcribe-service/internal/telemetry"
)

// Handler holds shared dependencies for all HTTP handlers.
// Go Pattern: Dependency injection via struct fields. Instead of global
// variables or service locators, we pass dependencies explicitly. This
// makes testing easy — just create a Handler with mock dependencies.
type Handler struct {
	Registry           *registry.Registry
	Submission         *submission.Service
	Polling            *polling.Service
	Telemetry          *telemetry.Telemetry
	MaxFileSize        int64
	HeartbeatFreshness time.Duration
	AdminAPIKey        string
}

// NewHandler creates a new handler with all dependencies.
func NewHandler(reg *registry.Registry, sub *submission.Service, poll *polling.Service, telem *telemetry.Telemetry, maxFileSize int64, heartbeatFreshness time.Duration, adminAPIKey string) *Handler {
	return &Handler{
		Registry:           reg,
		Submission:         sub,
		Polling:            poll,
		Telemetry:          telem,
		MaxFileSize:        maxFileSize,
		HeartbeatFreshness: heartbeatFreshness,
		AdminAPIKey:        adminAPIKey,
	}
}

// HealthCheck reports aggregate service health (spec §4.10).
// GET /health
func (h *Handler) HealthCheck(c *gin.Context) {
	resp := h.Telemetry.Health(c.Request.Context(), h.HeartbeatFreshness)

	status := http.StatusOK
	switch resp.Status {
	case "down":
		status = http.StatusServiceUnavailable
	case "degraded":
		status = http.StatusOK // still serving traffic, just flagged
	}
	c.JSON(status, resp)
}
