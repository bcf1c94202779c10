// Package main is the entry point for the transcription service's HTTP API
// process — submission intake, status/result/cancel polling, telemetry, and
// the Scheduler/Janitor all run here. The Worker Runtime is a separate
// process (cmd/worker) so execution capacity scales independently of the
// API surface (spec §5).
//
// Go Pattern: The main package is special — it's the only package that
// produces an executable binary. This file wires together all the
// components (dependency injection): Config → Registry/Cache/Queue/Blobs →
// Services → Janitor → HTTP Router → Server.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ternarybob/transcribe-service/internal/blobstore"
	"github.com/ternarybob/transcribe-service/internal/cache"
	"github.com/ternarybob/transcribe-service/internal/config"
	"github.com/ternarybob/transcribe-service/internal/handlers"
	"github.com/ternarybob/transcribe-service/internal/middleware"
	"github.com/ternarybob/transcribe-service/internal/queue"
	"github.com/ternarybob/transcribe-service/internal/registry"
	"github.com/ternarybob/transcribe-service/internal/router"
	"github.com/ternarybob/transcribe-service/internal/services/janitor"
	"github.com/ternarybob/transcribe-service/internal/services/polling"
	"github.com/ternarybob/transcribe-service/internal/services/submission"
	"github.com/ternarybob/transcribe-service/internal/telemetry"
)

// Version is set at build time via -ldflags.
var Version = "dev"

const heartbeatFreshness = 90 * time.Second

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Printf("🚀 Transcription API %s starting...", Version)

	// ────────────────────────────────────────────
	// Step 1: Load Configuration
	// ────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}
	log.Printf("📋 Config loaded: port=%s, gin_mode=%s", cfg.Port, cfg.GinMode)
	os.Setenv("GIN_MODE", cfg.GinMode)

	// ────────────────────────────────────────────
	// Step 2: Connect to the Job Registry (Postgres)
	// ────────────────────────────────────────────
	reg, err := registry.New(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("❌ Failed to connect to registry: %v", err)
	}
	defer reg.Close()
	log.Println("✅ Job Registry connected")

	if err := reg.RunMigrations("migrations"); err != nil {
		log.Fatalf("❌ Migration failed: %v", err)
	}

	// ────────────────────────────────────────────
	// Step 3: Connect to the Result Cache and Work Queue (shared Redis)
	// ────────────────────────────────────────────
	resultCache, err := cache.New(cfg.QueueBackendURL, time.Duration(cfg.CacheTTLSeconds)*time.Second)
	if err != nil {
		log.Fatalf("❌ Failed to connect to result cache: %v", err)
	}
	defer resultCache.Close()

	workQueue, err := queue.New(cfg.QueueBackendURL)
	if err != nil {
		log.Fatalf("❌ Failed to connect to work queue: %v", err)
	}
	defer workQueue.Close()
	log.Println("✅ Result Cache and Work Queue connected")

	// ────────────────────────────────────────────
	// Step 4: Open the Blob Store
	// ────────────────────────────────────────────
	blobs, err := blobstore.New(cfg.UploadDir, int64(cfg.MaxFileSizeMB)*1024*1024)
	if err != nil {
		log.Fatalf("❌ Failed to open blob store: %v", err)
	}

	// ────────────────────────────────────────────
	// Step 5: Create Telemetry and the Submission/Polling Services
	// ────────────────────────────────────────────
	telem := telemetry.New(telemetry.HealthSources{Registry: reg, Queue: workQueue})

	submissionSvc := submission.New(blobs, reg, resultCache, workQueue, telem)
	pollingSvc := polling.New(reg, resultCache)

	// ────────────────────────────────────────────
	// Step 6: Start the Scheduler/Janitor
	// ────────────────────────────────────────────
	j := janitor.New(janitor.Config{
		BlobSweepInterval:   10 * time.Minute,
		BlobHardCapAge:      24 * time.Hour,
		JobReapInterval:     15 * time.Minute,
		JobRetention:        time.Duration(cfg.JobRetentionSeconds) * time.Second,
		DepthSampleInterval: 30 * time.Second,
		LeaseRecoveryMaxAge: 10 * time.Minute,
	}, blobs, reg, workQueue, telem)
	j.Start()
	defer j.Stop()

	// ────────────────────────────────────────────
	// Step 7: Setup HTTP Router
	// ────────────────────────────────────────────
	h := handlers.NewHandler(reg, submissionSvc, pollingSvc, telem, int64(cfg.MaxFileSizeMB)*1024*1024, heartbeatFreshness, cfg.AdminAPIKey)
	rateLimiter := middleware.NewRateLimiter(cfg.SubmitRatePerMin, cfg.PollRatePerMin)
	ownerCfg := middleware.OwnerConfig{KeyID: cfg.OwnerAPIKeyID, KeyPrefix: cfg.OwnerAPIKeyPrefix}

	r := router.Setup(h, reg, rateLimiter, ownerCfg, cfg.JWTSecret, cfg.AllowedOrigins)

	// ────────────────────────────────────────────
	// Step 8: Start the HTTP Server
	// ────────────────────────────────────────────
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("🌐 Server listening on http://localhost:%s", cfg.Port)
		log.Printf("📖 Health check: http://localhost:%s/health", cfg.Port)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ Server failed: %v", err)
		}
	}()

	// ────────────────────────────────────────────
	// Step 9: Graceful Shutdown
	// ────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	log.Printf("🛑 Received signal %v, shutting down gracefully...", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("⚠️  Server forced to shutdown: %v", err)
	}

	log.Println("👋 Server stopped. Goodbye!")
}
