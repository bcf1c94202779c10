// Package janitor is the Scheduler/Janitor (spec §4.9): three independently
// intervaled periodic tasks, structurally the same time.Ticker + for range
// ticker.C shape as the teacher's middleware.RateLimiter.cleanup(),
// generalized to three goroutines sharing one context for shutdown.
package janitor

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/ternarybob/transcribe-service/internal/blobstore"
	"github.com/ternarybob/transcribe-service/internal/models"
	"github.com/ternarybob/transcribe-service/internal/queue"
	"github.com/ternarybob/transcribe-service/internal/registry"
	"github.com/ternarybob/transcribe-service/internal/telemetry"
)

// Config names the three intervals from spec §4.9, each with its stated
// default.
type Config struct {
	BlobSweepInterval    time.Duration // default 10 min
	BlobHardCapAge       time.Duration // default 24h, forced cleanup for lost jobs
	JobReapInterval      time.Duration // default 15 min
	JobRetention         time.Duration
	DepthSampleInterval  time.Duration // default 30s
	LeaseRecoveryMaxAge  time.Duration // worker-crash backstop for stale queue leases
}

// Janitor runs the three periodic tasks as independent goroutines.
type Janitor struct {
	cfg      Config
	blobs    *blobstore.Store
	registry *registry.Registry
	queue    *queue.Queue
	telem    *telemetry.Telemetry

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// New builds a Janitor wired to its backing components.
func New(cfg Config, blobs *blobstore.Store, reg *registry.Registry, q *queue.Queue, telem *telemetry.Telemetry) *Janitor {
	ctx, cancel := context.WithCancel(context.Background())
	return &Janitor{cfg: cfg, blobs: blobs, registry: reg, queue: q, telem: telem, ctx: ctx, cancel: cancel}
}

// Start launches the three periodic tasks.
func (j *Janitor) Start() {
	j.wg.Add(3)
	go j.runBlobSweep()
	go j.runJobReap()
	go j.runDepthSample()
	log.Println("🧹 Janitor started")
}

// Stop signals all three tasks to exit and waits for them.
func (j *Janitor) Stop() {
	j.cancel()
	j.wg.Wait()
	log.Println("🧹 Janitor stopped")
}

// runBlobSweep deletes blobs whose backing job is terminal, plus a hard-cap
// forced cleanup for blobs older than BlobHardCapAge regardless of state
// (spec §4.9, lost-job backstop).
func (j *Janitor) runBlobSweep() {
	defer j.wg.Done()
	ticker := time.NewTicker(j.cfg.BlobSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-j.ctx.Done():
			return
		case <-ticker.C:
			jobs, err := j.registry.ListTerminalOlderThan(j.ctx, time.Now(), 500)
			if err != nil {
				log.Printf("⚠️  Janitor: failed to list terminal jobs for blob sweep: %v", err)
			} else {
				for _, job := range jobs {
					_ = j.blobs.Delete(job.JobID)
				}
			}

			n, err := j.blobs.Sweep(j.ctx, j.cfg.BlobHardCapAge)
			if err != nil {
				log.Printf("⚠️  Janitor: hard-cap blob sweep failed: %v", err)
			} else if n > 0 {
				log.Printf("🧹 Janitor: force-cleaned %d blobs past the hard cap", n)
			}

			j.recoverStaleLeases()
		}
	}
}

// recoverStaleLeases pushes jobs whose reservation lease expired back onto
// pending, after confirming via the Registry that they're still genuinely
// stuck in Processing (spec end-to-end scenario 6: worker crash mid-job).
func (j *Janitor) recoverStaleLeases() {
	stale, err := j.queue.StaleLeases(j.ctx, j.cfg.LeaseRecoveryMaxAge)
	if err != nil {
		log.Printf("⚠️  Janitor: failed to list stale leases: %v", err)
		return
	}
	for _, jobID := range stale {
		job, err := j.registry.GetJob(j.ctx, jobID)
		if err != nil || job.State != models.Processing {
			continue // already resolved by the time we got here
		}
		if _, err := j.registry.RequeueForRetry(j.ctx, jobID); err != nil {
			log.Printf("⚠️  Janitor: failed to requeue crashed job %s: %v", jobID, err)
			continue
		}
		if err := j.queue.Recover(j.ctx, jobID); err != nil {
			log.Printf("⚠️  Janitor: failed to recover queue lease for %s: %v", jobID, err)
			continue
		}
		log.Printf("🧹 Janitor: recovered job %s from a stale worker lease", jobID)
	}
}

// runJobReap purges job records whose finished_at predates the retention
// interval, bounding the Registry's footprint.
func (j *Janitor) runJobReap() {
	defer j.wg.Done()
	ticker := time.NewTicker(j.cfg.JobReapInterval)
	defer ticker.Stop()

	for {
		select {
		case <-j.ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-j.cfg.JobRetention)
			jobs, err := j.registry.ListTerminalOlderThan(j.ctx, cutoff, 1000)
			if err != nil {
				log.Printf("⚠️  Janitor: failed to list retained jobs: %v", err)
				continue
			}
			for _, job := range jobs {
				if err := j.registry.DeleteJob(j.ctx, job.JobID); err != nil {
					log.Printf("⚠️  Janitor: failed to delete job %s: %v", job.JobID, err)
				}
			}
			if len(jobs) > 0 {
				log.Printf("🧹 Janitor: reaped %d jobs past retention", len(jobs))
			}
		}
	}
}

// runDepthSample reads the Work Queue's depth and exports it as the
// queue_depth gauge (spec §4.9, §4.10).
func (j *Janitor) runDepthSample() {
	defer j.wg.Done()
	ticker := time.NewTicker(j.cfg.DepthSampleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-j.ctx.Done():
			return
		case <-ticker.C:
			depth, err := j.queue.Depth(j.ctx)
			if err != nil {
				log.Printf("⚠️  Janitor: failed to sample queue depth: %v", err)
				continue
			}
			j.telem.QueueDepth.Set(float64(depth))
		}
	}
}
