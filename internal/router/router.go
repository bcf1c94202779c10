// Package router sets up all HTTP routes for the API.
//
// Go Pattern: We separate route configuration from handlers. This keeps
// main.go clean and makes it easy to see all routes at a glance.
//
// Framework choice: Gin — large community, Express.js-like middleware
// model, good performance, and the teacher's own choice for this service.
package router

import (
	"github.com/gin-gonic/gin"

	"github.com/ternarybob/transcribe-service/internal/handlers"
	"github.com/ternarybob/transcribe-service/internal/middleware"
	"github.com/ternarybob/transcribe-service/internal/registry"
)

// Setup creates and configures the Gin router with all routes.
func Setup(h *handlers.Handler, reg *registry.Registry, rateLimiter *middleware.RateLimiter, ownerCfg middleware.OwnerConfig, jwtSecret string, allowedOrigins []string) *gin.Engine {
	// Go Pattern: gin.Default() wires in Logger (logs every request) and
	// Recovery (catches panics, returns 500 instead of crashing).
	r := gin.Default()

	r.Use(middleware.CORS(allowedOrigins))
	r.Use(middleware.APIKeyAuth(reg))
	r.Use(middleware.JWTIdentity(jwtSecret))
	r.Use(middleware.InjectOwnerConfig(ownerCfg))

	// --- Public routes: monitoring surfaces, no auth or rate limit ---
	r.GET("/health", h.HealthCheck)
	r.GET("/metrics", h.Metrics)
	r.GET("/stats", h.Stats)

	// --- Submission: consumes the submission rate-limit bucket ---
	r.POST("/transcribe", rateLimiter.SubmitLimit(), h.Transcribe)

	// --- Polling: consumes the (cheaper) polling rate-limit bucket ---
	poll := r.Group("/")
	poll.Use(rateLimiter.PollLimit())
	{
		poll.GET("/status/:job_id", h.Status)
		poll.GET("/result/:job_id", h.Result)
		poll.DELETE("/job/:job_id", h.Cancel)
	}

	// --- Admin: key bootstrap, gated by X-Admin-Key inside the handler ---
	admin := r.Group("/admin")
	{
		admin.POST("/keys", h.CreateAPIKey)
		admin.DELETE("/keys/:id", h.RevokeAPIKey)
	}

	return r
}
