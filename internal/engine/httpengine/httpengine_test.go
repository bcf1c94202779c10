package httpengine

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ternarybob/transcribe-service/internal/apierr"
	"github.com/ternarybob/transcribe-service/internal/models"
)

// TestConfidenceFromLogprob verifies the avg_logprob -> 0..1 confidence
// mapping, including its clamping at both ends.
func TestConfidenceFromLogprob(t *testing.T) {
	tests := []struct {
		name       string
		avgLogprob float64
		want       float64
	}{
		{"perfect confidence", 0, 1},
		{"mid-range", -0.5, 0.5},
		{"clamped at zero", -2, 0},
		{"clamped at one", 0.5, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := confidenceFromLogprob(tt.avgLogprob)
			if got != tt.want {
				t.Errorf("confidenceFromLogprob(%v) = %v, want %v", tt.avgLogprob, got, tt.want)
			}
		})
	}
}

// TestEngine_TranscribeParsesVerboseJSON verifies a successful response is
// parsed into a Transcript with segments and confidences.
func TestEngine_TranscribeParsesVerboseJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization header = %q, want %q", got, "Bearer test-key")
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"text":     "hello world",
			"language": "en",
			"duration": 4.2,
			"segments": []map[string]any{
				{"start": 0.0, "end": 2.0, "text": "hello", "avg_logprob": -0.1},
				{"start": 2.0, "end": 4.2, "text": "world", "avg_logprob": -0.2},
			},
		})
	}))
	defer srv.Close()

	e := New(srv.URL, "test-key", 5*time.Second)
	got, err := e.Transcribe(context.Background(), strings.NewReader("audio bytes"), models.Options{Language: "en"}, nil)
	if err != nil {
		t.Fatalf("Transcribe() unexpected error: %v", err)
	}
	if got.Text != "hello world" {
		t.Errorf("Text = %q, want %q", got.Text, "hello world")
	}
	if len(got.Segments) != 2 {
		t.Fatalf("len(Segments) = %d, want 2", len(got.Segments))
	}
	if got.Segments[0].Confidence == nil || *got.Segments[0].Confidence != 0.9 {
		t.Errorf("Segments[0].Confidence = %v, want 0.9", got.Segments[0].Confidence)
	}
}

// TestEngine_TranscribeMapsNon200ToEngineError verifies a non-200 response
// surfaces as apierr.EngineError rather than a decode failure.
func TestEngine_TranscribeMapsNon200ToEngineError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("upstream exploded"))
	}))
	defer srv.Close()

	e := New(srv.URL, "test-key", 5*time.Second)
	_, err := e.Transcribe(context.Background(), strings.NewReader("audio"), models.Options{}, nil)
	if apierr.As(err).Kind != apierr.EngineError {
		t.Errorf("error kind = %v, want %v", apierr.As(err).Kind, apierr.EngineError)
	}
}

// TestEngine_TranscribeCancelChannelAbortsRequest verifies closing the
// cancel channel mid-request aborts it and reports apierr.Cancelled.
func TestEngine_TranscribeCancelChannelAbortsRequest(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block // hang until the test closes this, simulating a slow upstream
	}))
	defer srv.Close()
	defer close(block)

	e := New(srv.URL, "test-key", 10*time.Second)
	cancel := make(chan struct{})
	go func() {
		time.Sleep(50 * time.Millisecond)
		close(cancel)
	}()

	_, err := e.Transcribe(context.Background(), strings.NewReader("audio"), models.Options{}, cancel)
	if apierr.As(err).Kind != apierr.Cancelled {
		t.Errorf("error kind = %v, want %v", apierr.As(err).Kind, apierr.Cancelled)
	}
}
