// Package polling is the Polling Service (spec §4.7): GetStatus, GetResult,
// and Cancel, reading/mutating the Job Registry directly; GetResult also
// reads the transcript from the Result Cache.
package polling

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ternarybob/transcribe-service/internal/apierr"
	"github.com/ternarybob/transcribe-service/internal/cache"
	"github.com/ternarybob/transcribe-service/internal/models"
	"github.com/ternarybob/transcribe-service/internal/registry"
)

// Service implements the three polling operations.
type Service struct {
	Registry *registry.Registry
	Cache    *cache.Cache
}

// New builds a Polling Service.
func New(reg *registry.Registry, c *cache.Cache) *Service {
	return &Service{Registry: reg, Cache: c}
}

// GetStatus returns the job's current lifecycle snapshot.
func (s *Service) GetStatus(ctx context.Context, jobID string) (*models.StatusResponse, error) {
	job, err := s.Registry.GetJob(ctx, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apierr.New(apierr.NotFound, "job not found")
		}
		return nil, apierr.Wrap(apierr.RegistryUnavailable, "failed to read job", err)
	}

	return &models.StatusResponse{
		JobID:       job.JobID,
		State:       job.State,
		Filename:    job.Filename,
		SubmittedAt: job.SubmittedAt,
		StartedAt:   job.StartedAt,
		FinishedAt:  job.FinishedAt,
		Attempt:     job.Attempt,
	}, nil
}

// GetResult returns the transcript body only when the job is Completed.
// Any other state is reported as apierr.NotReady (spec §6: 409 with the
// current state echoed) rather than a 200 — callers must not have to
// inspect a success body to find out the job isn't done yet.
type ResultResponse struct {
	State      models.State       `json:"state"`
	Transcript *models.Transcript `json:"transcript,omitempty"`
}

func (s *Service) GetResult(ctx context.Context, jobID string) (*ResultResponse, error) {
	job, err := s.Registry.GetJob(ctx, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apierr.New(apierr.NotFound, "job not found")
		}
		return nil, apierr.Wrap(apierr.RegistryUnavailable, "failed to read job", err)
	}

	if job.State != models.Completed {
		return nil, apierr.New(apierr.NotReady, fmt.Sprintf("job has not completed: state is %s", job.State))
	}

	transcript, err := s.Cache.Lookup(ctx, job.ResultHandle)
	if err != nil {
		return nil, err
	}
	if transcript == nil {
		return nil, apierr.New(apierr.Gone, "result has expired from the cache")
	}

	return &ResultResponse{State: job.State, Transcript: transcript}, nil
}

// Cancel performs the Registry CAS described in spec §4.7.
func (s *Service) Cancel(ctx context.Context, jobID string) (*models.CancelResponse, error) {
	job, err := s.Registry.GetJob(ctx, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apierr.New(apierr.NotFound, "job not found")
		}
		return nil, apierr.Wrap(apierr.RegistryUnavailable, "failed to read job", err)
	}

	if job.State == models.Cancelled {
		// Idempotence (spec §8): cancelling an already-Cancelled job is a
		// no-op that replays success, not an error.
		return &models.CancelResponse{State: models.Cancelled}, nil
	}

	if job.State.Terminal() {
		return nil, apierr.New(apierr.NotCancellable, "job is already in a terminal state")
	}

	ok, err := s.Registry.CancelJob(ctx, jobID)
	if err != nil {
		return nil, apierr.Wrap(apierr.RegistryUnavailable, "failed to cancel job", err)
	}
	if !ok {
		// Lost the race against a concurrent terminal transition.
		return nil, apierr.New(apierr.NotCancellable, "job is already in a terminal state")
	}

	return &models.CancelResponse{State: models.Cancelled}, nil
}
