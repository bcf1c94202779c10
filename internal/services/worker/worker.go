// Package worker is the Worker Runtime (spec §4.8), adapted from the
// teacher's worker.Pool: same Start/Stop lifecycle with context.CancelFunc
// + sync.WaitGroup, same per-slot loop shape — but each slot pulls from the
// Redis Work Queue instead of an in-memory channel, and the unit of work is
// the seven-step claim/execute/publish protocol instead of a switch over
// job types.
//
// Go Pattern: Goroutines and channels are Go's concurrency primitives.
// Think of it like a restaurant: the Work Queue is the order window,
// workers are the cooks pulling tickets, and the Submission Service is the
// waiter taking orders.
package worker

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ternarybob/transcribe-service/internal/apierr"
	"github.com/ternarybob/transcribe-service/internal/blobstore"
	"github.com/ternarybob/transcribe-service/internal/cache"
	"github.com/ternarybob/transcribe-service/internal/engine"
	"github.com/ternarybob/transcribe-service/internal/models"
	"github.com/ternarybob/transcribe-service/internal/queue"
	"github.com/ternarybob/transcribe-service/internal/registry"
	"github.com/ternarybob/transcribe-service/internal/telemetry"
)

// Config bounds the Worker Runtime's behavior — retry cap, self-recycle
// threshold, and per-transcription timeout, all with the defaults named in
// spec §4.8.
type Config struct {
	Concurrency       int           // execution slots in this process
	JobsBeforeRestart int           // spec §4.8 step 7, default 50
	RetryCap          int           // spec §4.8 step 6, default 3
	ReserveTimeout    time.Duration // how long Reserve blocks per poll
	CancelPollEvery   time.Duration // spec §4.8 step 4, default ~2s
	TranscribeTimeout time.Duration
}

// Pool manages a pool of worker goroutines, each an independent execution
// slot (spec §5: "a pool of N execution slots; each slot is a
// single-threaded cooperative loop").
type Pool struct {
	cfg      Config
	queue    *queue.Queue
	registry *registry.Registry
	blobs    *blobstore.Store
	cache    *cache.Cache
	engine   engine.Engine
	telem    *telemetry.Telemetry

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a worker Pool wired to its five backing dependencies.
func New(cfg Config, q *queue.Queue, reg *registry.Registry, blobs *blobstore.Store, c *cache.Cache, eng engine.Engine, telem *telemetry.Telemetry) *Pool {
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{cfg: cfg, queue: q, registry: reg, blobs: blobs, cache: c, engine: eng, telem: telem, ctx: ctx, cancel: cancel}
}

// Start launches the worker goroutines.
// Go Pattern: The `go` keyword starts a new goroutine (lightweight thread).
// Each worker runs in its own goroutine, reserving from the shared Work
// Queue.
func (p *Pool) Start() {
	log.Printf("🚀 Starting %d worker execution slots", p.cfg.Concurrency)
	for i := 0; i < p.cfg.Concurrency; i++ {
		p.wg.Add(1)
		go p.runSlot(i)
	}
}

// Stop gracefully shuts down all workers.
// Go Pattern: cancel the context + wait for completion.
func (p *Pool) Stop() {
	log.Println("⏹️  Stopping worker slots...")
	p.cancel()
	p.wg.Wait()
	log.Println("✅ All worker slots stopped")
}

// runSlot is the main loop for one execution slot: reserve, dispatch,
// repeat, until the slot has handled JobsBeforeRestart jobs or the pool is
// stopped.
func (p *Pool) runSlot(slot int) {
	defer p.wg.Done()

	workerID := fmt.Sprintf("worker-%s-%d", uuid.NewString()[:8], slot)
	log.Printf("👷 Slot %d started (%s)", slot, workerID)

	processed := 0
	for {
		select {
		case <-p.ctx.Done():
			log.Printf("👷 Slot %d shutting down", slot)
			return
		default:
		}

		if err := p.registry.RecordHeartbeat(p.ctx, workerID); err != nil {
			log.Printf("⚠️  Slot %d failed to record heartbeat: %v", slot, err)
		}

		jobID, err := p.queue.Reserve(p.ctx, p.cfg.ReserveTimeout)
		if err != nil {
			if p.ctx.Err() != nil {
				return
			}
			log.Printf("❌ Slot %d failed to reserve: %v", slot, err)
			continue
		}
		if jobID == "" {
			continue // reserve timed out with nothing pending
		}

		p.dispatch(slot, jobID)
		processed++

		if p.cfg.JobsBeforeRestart > 0 && processed >= p.cfg.JobsBeforeRestart {
			log.Printf("👷 Slot %d recycling after %d jobs", slot, processed)
			return
		}
	}
}

// dispatch implements spec §4.8's seven-step claim/execute/publish protocol
// for a single reserved job_id.
func (p *Pool) dispatch(slot int, jobID string) {
	ctx := p.ctx

	// Step 2: CAS Queued -> Processing.
	claimed, err := p.registry.MarkProcessing(ctx, jobID)
	if err != nil {
		log.Printf("❌ Slot %d: failed to claim job %s: %v", slot, jobID, err)
		return
	}
	if !claimed {
		// Already Processing (another worker won the race) or Cancelled
		// while Queued. Either way, this worker has no work to do.
		_ = p.queue.Ack(ctx, jobID)
		return
	}

	job, err := p.registry.GetJob(ctx, jobID)
	if err != nil {
		log.Printf("❌ Slot %d: failed to load claimed job %s: %v", slot, jobID, err)
		_ = p.queue.Ack(ctx, jobID)
		return
	}

	p.telem.InProgress.Inc()
	defer p.telem.InProgress.Dec()

	// Step 3: open the blob.
	blob, err := p.blobs.Open(jobID)
	if err != nil {
		apiErr := apierr.As(err)
		_, _ = p.registry.MarkFailed(ctx, jobID, string(apierr.BlobMissing), apiErr.Message)
		_ = p.queue.Ack(ctx, jobID)
		return
	}
	defer blob.Close()

	// Step 4: invoke the engine, keeping a cancellation channel fresh by
	// polling the registry every CancelPollEvery for an out-of-band Cancel.
	transcribeCtx, stop := context.WithTimeout(ctx, p.cfg.TranscribeTimeout)
	defer stop()

	cancelCh := make(chan struct{})
	pollDone := make(chan struct{})
	go func() {
		defer close(pollDone)
		ticker := time.NewTicker(p.cfg.CancelPollEvery)
		defer ticker.Stop()
		for {
			select {
			case <-transcribeCtx.Done():
				return
			case <-ticker.C:
				current, err := p.registry.GetJob(ctx, jobID)
				if err == nil && current.State == models.Cancelled {
					close(cancelCh)
					return
				}
			}
		}
	}()

	start := time.Now()
	transcript, engineErr := p.engine.Transcribe(transcribeCtx, blob, job.Options, cancelCh)
	stop()
	<-pollDone

	if engineErr != nil {
		p.handleFailure(ctx, slot, job, engineErr)
		return
	}

	// Step 5: success — write the Result Cache, CAS to Completed, delete
	// the blob, ack.
	if err := p.cache.Put(ctx, job.Fingerprint, transcript); err != nil {
		p.handleFailure(ctx, slot, job, err)
		return
	}
	if ok, err := p.registry.MarkCompleted(ctx, jobID, job.Fingerprint); err != nil || !ok {
		log.Printf("⚠️  Slot %d: job %s completed but CAS to Completed failed (ok=%v err=%v)", slot, jobID, ok, err)
	}
	_ = p.blobs.Delete(jobID)
	_ = p.queue.Ack(ctx, jobID)

	p.telem.DurationSeconds.Observe(time.Since(start).Seconds())
	log.Printf("✅ Slot %d: job %s completed", slot, jobID)
}

// handleFailure implements spec §4.8 step 6: retry transient failures up to
// RetryCap, otherwise transition to Failed.
func (p *Pool) handleFailure(ctx context.Context, slot int, job *models.Job, cause error) {
	apiErr := apierr.As(cause)

	if apiErr.Kind == apierr.Cancelled {
		// The registry already reflects Cancelled; just release the queue
		// entry, no retry, no Failed transition.
		_ = p.queue.Ack(ctx, job.JobID)
		log.Printf("🛑 Slot %d: job %s cancelled mid-execution", slot, job.JobID)
		return
	}

	retryable := apiErr.Kind == apierr.IOError || apiErr.Kind == apierr.DecodeError || apiErr.Kind == apierr.Timeout
	if retryable && job.Attempt < p.cfg.RetryCap {
		if _, err := p.registry.RequeueForRetry(ctx, job.JobID); err != nil {
			log.Printf("❌ Slot %d: failed to requeue job %s: %v", slot, job.JobID, err)
		}
		if err := p.queue.Nack(ctx, job.JobID); err != nil {
			log.Printf("❌ Slot %d: failed to nack job %s: %v", slot, job.JobID, err)
		}
		log.Printf("🔁 Slot %d: job %s requeued for retry (attempt %d)", slot, job.JobID, job.Attempt)
		return
	}

	if _, err := p.registry.MarkFailed(ctx, job.JobID, string(apiErr.Kind), apiErr.Message); err != nil {
		log.Printf("❌ Slot %d: failed to mark job %s failed: %v", slot, job.JobID, err)
	}
	_ = p.blobs.Delete(job.JobID)
	_ = p.queue.Ack(ctx, job.JobID)
	log.Printf("❌ Slot %d: job %s failed: %v", slot, job.JobID, cause)
}
