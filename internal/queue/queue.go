// Package queue is the durable Work Queue (spec §4.4): it hands each queued
// job to exactly one worker at a time, survives process restarts, and
// recovers jobs whose worker died mid-processing.
//
// Go Pattern: Redis lists give us the primitives for a reliable queue for
// free. BRPOPLPUSH atomically moves an item from the pending list to the
// shared processing list in one round trip — nothing else can observe
// the item in between, so "reserve" is inherently at-most-one-in-flight.
// A companion lease hash records when each reservation happened, so the
// Janitor can detect a worker that reserved a job and never acked or
// nacked it (crash mid-job) and push it back onto pending.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ternarybob/transcribe-service/internal/apierr"
)

const (
	pendingKey    = "transcribe:queue:pending"
	processingKey = "transcribe:queue:processing"
	leaseKey      = "transcribe:queue:leases" // job_id -> reserved-at unix nano, a hash
)

// Item is the payload pushed through the queue — intentionally thin, since
// the Job Registry (not the queue) is the source of truth for job state.
// The queue only needs enough to let a worker find and claim the blob.
type Item struct {
	JobID string `json:"job_id"`
}

// Queue wraps a Redis client scoped to the Work Queue's key namespace.
type Queue struct {
	rdb *redis.Client
}

// New parses redisURL and returns a Queue. The Work Queue and Result Cache
// share one Redis instance per spec §9 — callers typically construct both
// from the same QUEUE_BACKEND_URL.
func New(redisURL string) (*Queue, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse queue backend url: %w", err)
	}
	return &Queue{rdb: redis.NewClient(opts)}, nil
}

// HealthCheck verifies the underlying Redis connection is reachable.
func (q *Queue) HealthCheck(ctx context.Context) error {
	return q.rdb.Ping(ctx).Err()
}

// Push appends a job to the pending list (spec §4.6 step 6).
func (q *Queue) Push(ctx context.Context, jobID string) error {
	raw, err := json.Marshal(Item{JobID: jobID})
	if err != nil {
		return apierr.Wrap(apierr.Internal, "failed to encode queue item", err)
	}
	if err := q.rdb.LPush(ctx, pendingKey, raw).Err(); err != nil {
		return apierr.Wrap(apierr.QueueUnavailable, "failed to enqueue job", err)
	}
	return nil
}

// Reserve blocks up to timeout for a job, atomically moving it from pending
// to processing and stamping a lease. Returns ("", nil) on timeout with no
// job available — callers loop on that, matching the teacher's ticker-driven
// polling shape elsewhere in the codebase.
func (q *Queue) Reserve(ctx context.Context, timeout time.Duration) (string, error) {
	raw, err := q.rdb.BRPopLPush(ctx, pendingKey, processingKey, timeout).Result()
	if err != nil {
		if err == redis.Nil {
			return "", nil
		}
		return "", apierr.Wrap(apierr.QueueUnavailable, "failed to reserve job", err)
	}

	var item Item
	if err := json.Unmarshal([]byte(raw), &item); err != nil {
		// Malformed item: drop it from processing so it doesn't jam the
		// queue forever, and report it as a decode failure.
		q.rdb.LRem(ctx, processingKey, 1, raw)
		return "", apierr.Wrap(apierr.DecodeError, "corrupt queue item", err)
	}

	if err := q.rdb.HSet(ctx, leaseKey, item.JobID, time.Now().UnixNano()).Err(); err != nil {
		return "", apierr.Wrap(apierr.QueueUnavailable, "failed to record lease", err)
	}
	return item.JobID, nil
}

// Ack removes jobID from the processing list and its lease, once the
// worker has durably recorded the outcome in the Job Registry (spec §4.8
// step 5/6 — ack only after the state transition commits).
func (q *Queue) Ack(ctx context.Context, jobID string) error {
	raw, err := json.Marshal(Item{JobID: jobID})
	if err != nil {
		return apierr.Wrap(apierr.Internal, "failed to encode queue item", err)
	}
	pipe := q.rdb.TxPipeline()
	pipe.LRem(ctx, processingKey, 1, raw)
	pipe.HDel(ctx, leaseKey, jobID)
	if _, err := pipe.Exec(ctx); err != nil {
		return apierr.Wrap(apierr.QueueUnavailable, "failed to ack job", err)
	}
	return nil
}

// Nack removes jobID from processing and pushes it back onto pending for a
// retry (spec §4.8 step 6 — transient failure with attempts remaining).
func (q *Queue) Nack(ctx context.Context, jobID string) error {
	raw, err := json.Marshal(Item{JobID: jobID})
	if err != nil {
		return apierr.Wrap(apierr.Internal, "failed to encode queue item", err)
	}
	pipe := q.rdb.TxPipeline()
	pipe.LRem(ctx, processingKey, 1, raw)
	pipe.HDel(ctx, leaseKey, jobID)
	pipe.LPush(ctx, pendingKey, raw)
	if _, err := pipe.Exec(ctx); err != nil {
		return apierr.Wrap(apierr.QueueUnavailable, "failed to nack job", err)
	}
	return nil
}

// Depth returns the number of jobs waiting to be reserved, sampled by the
// Telemetry Surface's queue_depth gauge.
func (q *Queue) Depth(ctx context.Context) (int64, error) {
	n, err := q.rdb.LLen(ctx, pendingKey).Result()
	if err != nil {
		return 0, apierr.Wrap(apierr.QueueUnavailable, "failed to read queue depth", err)
	}
	return n, nil
}

// StaleLeases returns job ids whose reservation lease is older than
// olderThan — jobs whose worker likely died before acking or nacking them.
// The Janitor uses this to recover them back onto pending (spec §4.9,
// end-to-end scenario 6: worker crash mid-job).
func (q *Queue) StaleLeases(ctx context.Context, olderThan time.Duration) ([]string, error) {
	all, err := q.rdb.HGetAll(ctx, leaseKey).Result()
	if err != nil {
		return nil, apierr.Wrap(apierr.QueueUnavailable, "failed to read leases", err)
	}

	cutoff := time.Now().Add(-olderThan).UnixNano()
	var stale []string
	for jobID, raw := range all {
		var ts int64
		if _, err := fmt.Sscanf(raw, "%d", &ts); err != nil {
			continue
		}
		if ts < cutoff {
			stale = append(stale, jobID)
		}
	}
	return stale, nil
}

// Recover moves jobID from processing back onto pending and clears its
// stale lease, used by the Janitor once it has independently confirmed
// (via the Job Registry) that the job is still Processing and therefore
// genuinely abandoned.
func (q *Queue) Recover(ctx context.Context, jobID string) error {
	return q.Nack(ctx, jobID)
}

// Close releases the underlying Redis connection pool.
func (q *Queue) Close() error {
	return q.rdb.Close()
}
