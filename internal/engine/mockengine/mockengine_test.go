package mockengine

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/ternarybob/transcribe-service/internal/apierr"
	"github.com/ternarybob/transcribe-service/internal/models"
)

// TestEngine_ReturnsConfiguredResult verifies a successful mock returns its
// configured Transcript unmodified.
func TestEngine_ReturnsConfiguredResult(t *testing.T) {
	want := &models.Transcript{Text: "hello world"}
	e := New(want)

	got, err := e.Transcribe(context.Background(), strings.NewReader("audio"), models.Options{}, nil)
	if err != nil {
		t.Fatalf("Transcribe() unexpected error: %v", err)
	}
	if got != want {
		t.Errorf("Transcribe() result = %+v, want the configured transcript", got)
	}
	if e.Calls() != 1 {
		t.Errorf("Calls() = %d, want 1", e.Calls())
	}
}

// TestEngine_ReturnsConfiguredError verifies a failing mock propagates its
// configured error untouched.
func TestEngine_ReturnsConfiguredError(t *testing.T) {
	wantErr := apierr.New(apierr.IOError, "disk full")
	e := NewFailing(wantErr)

	_, err := e.Transcribe(context.Background(), strings.NewReader("audio"), models.Options{}, nil)
	if err != wantErr {
		t.Errorf("Transcribe() error = %v, want %v", err, wantErr)
	}
}

// TestEngine_CancelChannelShortCircuits verifies a closed cancel channel
// aborts a blocked Transcribe with apierr.Cancelled.
func TestEngine_CancelChannelShortCircuits(t *testing.T) {
	wait := make(chan struct{}) // never closed — forces the select to pick cancel
	e := &Engine{WaitFor: wait}

	cancel := make(chan struct{})
	close(cancel)

	_, err := e.Transcribe(context.Background(), strings.NewReader("audio"), models.Options{}, cancel)
	if apierr.As(err).Kind != apierr.Cancelled {
		t.Errorf("Transcribe() error kind = %v, want %v", apierr.As(err).Kind, apierr.Cancelled)
	}
}

// TestEngine_ContextDeadlineReportsTimeout verifies an already-expired
// context surfaces as apierr.Timeout rather than a raw context error.
func TestEngine_ContextDeadlineReportsTimeout(t *testing.T) {
	ctx, cancelCtx := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancelCtx()
	<-ctx.Done()

	wait := make(chan struct{})
	e := &Engine{WaitFor: wait}

	_, err := e.Transcribe(ctx, strings.NewReader("audio"), models.Options{}, make(chan struct{}))
	if apierr.As(err).Kind != apierr.Timeout {
		t.Errorf("Transcribe() error kind = %v, want %v", apierr.As(err).Kind, apierr.Timeout)
	}
}

// TestEngine_CallsIsConcurrencySafe verifies the call counter can be read
// and incremented from multiple goroutines without a race.
func TestEngine_CallsIsConcurrencySafe(t *testing.T) {
	e := New(&models.Transcript{})
	done := make(chan struct{})

	for i := 0; i < 10; i++ {
		go func() {
			_, _ = e.Transcribe(context.Background(), strings.NewReader("x"), models.Options{}, nil)
			done <- struct{}{}
		}()
	}
	for i := 0; i < 10; i++ {
		<-done
	}

	if e.Calls() != 10 {
		t.Errorf("Calls() = %d, want 10", e.Calls())
	}
}
