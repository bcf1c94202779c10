package registry

import (
	"context"
	"fmt"
	"time"
)

// RecordHeartbeat upserts workerID's last-seen timestamp. Each worker calls
// this once per dispatch cycle (spec §4.10's worker_heartbeat_fresh input).
func (r *Registry) RecordHeartbeat(ctx context.Context, workerID string) error {
	_, err := r.ExecContext(ctx, `
		INSERT INTO worker_heartbeats (worker_id, last_seen)
		VALUES ($1, now())
		ON CONFLICT (worker_id) DO UPDATE SET last_seen = now()`, workerID)
	if err != nil {
		return fmt.Errorf("failed to record worker heartbeat: %w", err)
	}
	return nil
}

// CountActiveWorkers returns how many distinct workers have recorded a
// heartbeat within the last `within` duration — used by GET /stats.
func (r *Registry) CountActiveWorkers(ctx context.Context, within time.Duration) (int, error) {
	var n int
	err := r.GetContext(ctx, &n, `SELECT count(*) FROM worker_heartbeats WHERE last_seen > $1`, time.Now().Add(-within))
	if err != nil {
		return 0, fmt.Errorf("failed to count active workers: %w", err)
	}
	return n, nil
}

// LastWorkerHeartbeat returns the most recent heartbeat across all workers.
func (r *Registry) LastWorkerHeartbeat(ctx context.Context) (time.Time, error) {
	var t time.Time
	err := r.GetContext(ctx, &t, `SELECT max(last_seen) FROM worker_heartbeats`)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to read worker heartbeat: %w", err)
	}
	return t, nil
}

// RegistryHealthCheck, together with LastWorkerHeartbeat, lets a Registry
// serve as the Registry source of telemetry.HealthSources.
func (r *Registry) RegistryHealthCheck(ctx context.Context) error {
	return r.HealthCheck(ctx)
}
