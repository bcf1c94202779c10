// Package main is the entry point for the Worker Runtime process (spec
// §4.8, §5): a pool of execution slots that reserve jobs from the Work
// Queue, invoke the configured Transcription Engine, and publish results
// back through the Job Registry and Result Cache.
//
// This runs as a separate binary from cmd/server so execution capacity
// scales independently of the HTTP API — operators can run any number of
// worker processes against the same Registry/Queue/Cache.
package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ternarybob/transcribe-service/internal/blobstore"
	"github.com/ternarybob/transcribe-service/internal/cache"
	"github.com/ternarybob/transcribe-service/internal/config"
	"github.com/ternarybob/transcribe-service/internal/engine"
	"github.com/ternarybob/transcribe-service/internal/engine/cliengine"
	"github.com/ternarybob/transcribe-service/internal/engine/httpengine"
	"github.com/ternarybob/transcribe-service/internal/queue"
	"github.com/ternarybob/transcribe-service/internal/registry"
	"github.com/ternarybob/transcribe-service/internal/services/worker"
	"github.com/ternarybob/transcribe-service/internal/telemetry"
)

var Version = "dev"

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Printf("🚀 Transcription Worker %s starting...", Version)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}

	reg, err := registry.New(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("❌ Failed to connect to registry: %v", err)
	}
	defer reg.Close()

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

	blobs, err := blobstore.New(cfg.UploadDir, int64(cfg.MaxFileSizeMB)*1024*1024)
	if err != nil {
		log.Fatalf("❌ Failed to open blob store: %v", err)
	}

	eng, err := buildEngine(cfg)
	if err != nil {
		log.Fatalf("❌ Failed to configure transcription engine: %v", err)
	}
	log.Printf("🔧 Engine: %s", cfg.EngineKind)

	telem := telemetry.New(telemetry.HealthSources{Registry: reg, Queue: workQueue})

	pool := worker.New(worker.Config{
		Concurrency:       cfg.WorkerConcurrency,
		JobsBeforeRestart: cfg.WorkerJobsBeforeRestart,
		RetryCap:          3,
		ReserveTimeout:    5 * time.Second,
		CancelPollEvery:   2 * time.Second,
		TranscribeTimeout: time.Duration(cfg.TranscribeTimeoutSeconds) * time.Second,
	}, workQueue, reg, blobs, resultCache, eng, telem)

	pool.Start()
	defer pool.Stop()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Printf("🛑 Received signal %v, shutting down gracefully...", sig)

	log.Println("👋 Worker stopped. Goodbye!")
}

// buildEngine constructs the configured Transcription Engine adapter
// (spec §4.8, C5): a remote HTTP-based Whisper API, or a local CLI
// subprocess, selected by ENGINE_KIND.
func buildEngine(cfg *config.Config) (engine.Engine, error) {
	timeout := time.Duration(cfg.TranscribeTimeoutSeconds) * time.Second
	switch cfg.EngineKind {
	case "http":
		return httpengine.New(cfg.EngineHTTPURL, cfg.EngineHTTPAPIKey, timeout), nil
	default:
		return cliengine.New(cfg.EngineCLIPath, timeout), nil
	}
}
