// Package engine defines the Transcription Engine abstraction (spec §4.8,
// C5): the single seam between the Worker Runtime and whatever actually
// turns audio into text. Three adapters implement it — httpengine (a
// remote Whisper-compatible HTTP API), cliengine (a local CLI subprocess),
// and mockengine (deterministic, for tests).
//
// Go Pattern: Define interfaces where they're USED, not where they're
// implemented — the worker package only needs to know about Engine, never
// about any concrete adapter.
package engine

import (
	"context"
	"io"

	"github.com/ternarybob/transcribe-service/internal/models"
)

// Engine transcribes one audio stream into a Transcript. Implementations
// must respect ctx cancellation/deadline (spec §4.8 step 4 — worker-side
// timeout) and the cancel channel, which is closed when the Worker Runtime's
// cooperative cancellation poll (spec §4.7) observes the job moved to
// Cancelled out from under it.
type Engine interface {
	Transcribe(ctx context.Context, audio io.Reader, opts models.Options, cancel <-chan struct{}) (*models.Transcript, error)
}
