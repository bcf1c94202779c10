package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ternarybob/transcribe-service/internal/models"
)

// CreateJob inserts a new job row in j.State: Queued for a cache miss, or
// Completed (with result_handle, started_at and finished_at) for a cache hit
// (spec §4.6 steps 5-6).
func (r *Registry) CreateJob(ctx context.Context, j *models.Job) error {
	optsJSON, err := json.Marshal(j.Options)
	if err != nil {
		return fmt.Errorf("failed to encode job options: %w", err)
	}

	query := `
		INSERT INTO jobs (job_id, state, fingerprint, filename, submitted_at, started_at, finished_at, options, attempt, result_handle, caller_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err = r.ExecContext(ctx, query,
		j.JobID, j.State, j.Fingerprint, j.Filename, j.SubmittedAt, j.StartedAt, j.FinishedAt, optsJSON, j.Attempt, j.ResultHandle, j.CallerID,
	)
	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}
	return nil
}

// GetJob retrieves a job by id. Returns ErrNoRows if it doesn't exist.
func (r *Registry) GetJob(ctx context.Context, jobID string) (*models.Job, error) {
	var j models.Job
	err := r.GetContext(ctx, &j, `SELECT * FROM jobs WHERE job_id = $1`, jobID)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(j.OptionsJSON, &j.Options); err != nil {
		return nil, fmt.Errorf("failed to decode job options: %w", err)
	}
	return &j, nil
}

// FindLiveByFingerprint looks for a live (non-terminal) job that already
// covers this fingerprint, supporting in-flight submission dedup (spec §4.6
// step 3, second half — a job that is still Queued/Processing for the same
// fingerprint is joined instead of re-queued).
func (r *Registry) FindLiveByFingerprint(ctx context.Context, fingerprint string) (*models.Job, error) {
	var j models.Job
	err := r.GetContext(ctx, &j, `
		SELECT * FROM jobs
		WHERE fingerprint = $1 AND state IN ('Queued', 'Processing')
		ORDER BY submitted_at ASC
		LIMIT 1`, fingerprint)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(j.OptionsJSON, &j.Options); err != nil {
		return nil, fmt.Errorf("failed to decode job options: %w", err)
	}
	return &j, nil
}

// CompareAndSetState transitions job_id from expected to next, atomically,
// using Postgres's row-level locking as the CAS primitive. It reports
// whether the transition happened — false means another writer already
// moved the job out of `expected` (spec invariant: at-most-one dispatch).
func (r *Registry) CompareAndSetState(ctx context.Context, jobID string, expected, next models.State) (bool, error) {
	res, err := r.ExecContext(ctx, `
		UPDATE jobs SET state = $1 WHERE job_id = $2 AND state = $3`,
		next, jobID, expected)
	if err != nil {
		return false, fmt.Errorf("failed to transition job state: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read transition result: %w", err)
	}
	return n == 1, nil
}

// MarkProcessing transitions Queued -> Processing and stamps started_at,
// bumping attempt. Used when a worker claims a job off the Work Queue.
func (r *Registry) MarkProcessing(ctx context.Context, jobID string) (bool, error) {
	res, err := r.ExecContext(ctx, `
		UPDATE jobs
		SET state = 'Processing', started_at = now(), attempt = attempt + 1
		WHERE job_id = $1 AND state = 'Queued'`, jobID)
	if err != nil {
		return false, fmt.Errorf("failed to mark job processing: %w", err)
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// MarkCompleted transitions Processing -> Completed and records the result
// handle (spec §4.8 step 5).
func (r *Registry) MarkCompleted(ctx context.Context, jobID, resultHandle string) (bool, error) {
	res, err := r.ExecContext(ctx, `
		UPDATE jobs
		SET state = 'Completed', finished_at = now(), result_handle = $2
		WHERE job_id = $1 AND state = 'Processing'`, jobID, resultHandle)
	if err != nil {
		return false, fmt.Errorf("failed to mark job completed: %w", err)
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// MarkFailed transitions Processing -> Failed and records the error.
func (r *Registry) MarkFailed(ctx context.Context, jobID string, errKind, errMessage string) (bool, error) {
	res, err := r.ExecContext(ctx, `
		UPDATE jobs
		SET state = 'Failed', finished_at = now(), error_kind = $2, error_message = $3
		WHERE job_id = $1 AND state = 'Processing'`, jobID, errKind, errMessage)
	if err != nil {
		return false, fmt.Errorf("failed to mark job failed: %w", err)
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// RequeueForRetry transitions Processing -> Queued, used when a transient
// engine error (spec §4.8 step 6) leaves attempts remaining.
func (r *Registry) RequeueForRetry(ctx context.Context, jobID string) (bool, error) {
	res, err := r.ExecContext(ctx, `
		UPDATE jobs SET state = 'Queued', started_at = NULL
		WHERE job_id = $1 AND state = 'Processing'`, jobID)
	if err != nil {
		return false, fmt.Errorf("failed to requeue job: %w", err)
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// CancelJob transitions a non-terminal job to Cancelled (spec §4.7). Returns
// false if the job was already terminal — callers surface that as
// apierr.NotCancellable.
func (r *Registry) CancelJob(ctx context.Context, jobID string) (bool, error) {
	res, err := r.ExecContext(ctx, `
		UPDATE jobs SET state = 'Cancelled', finished_at = now()
		WHERE job_id = $1 AND state IN ('Queued', 'Processing')`, jobID)
	if err != nil {
		return false, fmt.Errorf("failed to cancel job: %w", err)
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// ListByState returns up to limit jobs in the given state, oldest first.
func (r *Registry) ListByState(ctx context.Context, state models.State, limit int) ([]models.Job, error) {
	var rows []models.Job
	err := r.SelectContext(ctx, &rows, `
		SELECT * FROM jobs WHERE state = $1 ORDER BY submitted_at ASC LIMIT $2`, state, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs by state: %w", err)
	}
	for i := range rows {
		if err := json.Unmarshal(rows[i].OptionsJSON, &rows[i].Options); err != nil {
			return nil, fmt.Errorf("failed to decode job options: %w", err)
		}
	}
	return rows, nil
}

// ListStaleProcessing returns jobs stuck in Processing since before cutoff.
// The Janitor's crash recovery does not use it; it works from the Work
// Queue's stale leases (queue.StaleLeases) instead.
func (r *Registry) ListStaleProcessing(ctx context.Context, cutoff time.Time) ([]models.Job, error) {
	var rows []models.Job
	err := r.SelectContext(ctx, &rows, `
		SELECT * FROM jobs WHERE state = 'Processing' AND started_at < $1`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to list stale jobs: %w", err)
	}
	for i := range rows {
		if err := json.Unmarshal(rows[i].OptionsJSON, &rows[i].Options); err != nil {
			return nil, fmt.Errorf("failed to decode job options: %w", err)
		}
	}
	return rows, nil
}

// ListTerminalOlderThan returns terminal jobs whose finished_at predates
// cutoff, used by the Janitor's retention sweep (spec §4.9).
func (r *Registry) ListTerminalOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]models.Job, error) {
	var rows []models.Job
	err := r.SelectContext(ctx, &rows, `
		SELECT * FROM jobs
		WHERE state IN ('Completed', 'Failed', 'Cancelled') AND finished_at < $1
		LIMIT $2`, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list retained jobs: %w", err)
	}
	for i := range rows {
		if err := json.Unmarshal(rows[i].OptionsJSON, &rows[i].Options); err != nil {
			return nil, fmt.Errorf("failed to decode job options: %w", err)
		}
	}
	return rows, nil
}

// DeleteJob permanently removes a job row — used by the Janitor after its
// retention window and blob have both been cleaned up.
func (r *Registry) DeleteJob(ctx context.Context, jobID string) error {
	_, err := r.ExecContext(ctx, `DELETE FROM jobs WHERE job_id = $1`, jobID)
	if err != nil {
		return fmt.Errorf("failed to delete job: %w", err)
	}
	return nil
}

// CountByState returns the number of jobs currently in state, used by
// GET /stats for its queue_depth (Queued) and in_progress (Processing)
// fields.
func (r *Registry) CountByState(ctx context.Context, state models.State) (int, error) {
	var n int
	err := r.GetContext(ctx, &n, `SELECT count(*) FROM jobs WHERE state = $1`, state)
	if err != nil {
		return 0, fmt.Errorf("failed to count jobs by state: %w", err)
	}
	return n, nil
}
