// Package mockengine is a deterministic Engine test double — no network
// calls, no subprocesses. Only its own tests exercise it; no other
// package's tests import it.
package mockengine

import (
	"context"
	"io"
	"sync/atomic"

	"github.com/ternarybob/transcribe-service/internal/apierr"
	"github.com/ternarybob/transcribe-service/internal/models"
)

// Engine is a configurable mock: Result and Err are returned as-is, and
// every call is counted. If WaitFor is set, Transcribe blocks until WaitFor
// closes, the cancel channel closes, or ctx is done, letting tests exercise
// cancellation/timeout paths deterministically.
type Engine struct {
	Result   *models.Transcript
	Err      error
	WaitFor  <-chan struct{} // if non-nil, Transcribe blocks on this before returning
	calls    int64
}

// New returns a mock Engine that always succeeds with result.
func New(result *models.Transcript) *Engine {
	return &Engine{Result: result}
}

// NewFailing returns a mock Engine that always fails with err.
func NewFailing(err error) *Engine {
	return &Engine{Err: err}
}

// Calls reports how many times Transcribe has been invoked.
func (e *Engine) Calls() int64 {
	return atomic.LoadInt64(&e.calls)
}

func (e *Engine) Transcribe(ctx context.Context, audio io.Reader, opts models.Options, cancel <-chan struct{}) (*models.Transcript, error) {
	atomic.AddInt64(&e.calls, 1)

	// Drain the reader so callers that stream real bytes in tests behave
	// the same as they would against a real engine.
	_, _ = io.Copy(io.Discard, audio)

	if e.WaitFor != nil {
		select {
		case <-e.WaitFor:
		case <-cancel:
			return nil, apierr.New(apierr.Cancelled, "transcription cancelled")
		case <-ctx.Done():
			return nil, apierr.New(apierr.Timeout, "transcription engine timed out")
		}
	}

	select {
	case <-cancel:
		return nil, apierr.New(apierr.Cancelled, "transcription cancelled")
	default:
	}
	if ctx.Err() != nil {
		return nil, apierr.New(apierr.Timeout, "transcription engine timed out")
	}

	if e.Err != nil {
		return nil, e.Err
	}
	return e.Result, nil
}
