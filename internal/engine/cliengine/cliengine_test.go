package cliengine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ternarybob/transcribe-service/internal/apierr"
	"github.com/ternarybob/transcribe-service/internal/models"
)

// fakeCLI writes a shell script standing in for the real whisper.cpp-style
// binary: it reads its --output-file flag and writes a JSON sidecar there,
// the same contract the real Engine.Transcribe expects.
func fakeCLI(t *testing.T, script string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "fake-whisper.sh")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755); err != nil {
		t.Fatalf("failed to write fake CLI script: %v", err)
	}
	return path
}

// parseOutputFileScript extracts the --output-file path, matching what the
// real CLI invocation would receive, and writes the given JSON to
// "<path>.json".
const parseOutputFileScript = `
out=""
while [ "$#" -gt 0 ]; do
  if [ "$1" = "--output-file" ]; then
    out="$2"
  fi
  shift
done
cat > "$out.json" <<'EOF'
%s
EOF
`

// TestEngine_TranscribeParsesCLIOutput verifies a successful subprocess run
// is parsed into a Transcript.
func TestEngine_TranscribeParsesCLIOutput(t *testing.T) {
	payload := `{"text":"hello from the cli","language":"en","duration":3.5,"segments":[{"start":0,"end":3.5,"text":"hello from the cli","confidence":0.92}]}`
	cli := fakeCLI(t, fmt.Sprintf(parseOutputFileScript, payload))

	e := New(cli, 5*time.Second)
	got, err := e.Transcribe(context.Background(), strings.NewReader("audio bytes"), models.Options{}, nil)
	if err != nil {
		t.Fatalf("Transcribe() unexpected error: %v", err)
	}
	if got.Text != "hello from the cli" {
		t.Errorf("Text = %q, want %q", got.Text, "hello from the cli")
	}
	if len(got.Segments) != 1 || got.Segments[0].Confidence == nil || *got.Segments[0].Confidence != 0.92 {
		t.Errorf("Segments = %+v, want one segment with confidence 0.92", got.Segments)
	}
}

// TestEngine_TranscribeNonZeroExitMapsToEngineError verifies a failing
// subprocess surfaces as apierr.EngineError with the CLI's own output as
// the message.
func TestEngine_TranscribeNonZeroExitMapsToEngineError(t *testing.T) {
	cli := fakeCLI(t, "echo 'model file not found' >&2\nexit 1\n")

	e := New(cli, 5*time.Second)
	_, err := e.Transcribe(context.Background(), strings.NewReader("audio"), models.Options{}, nil)
	if apierr.As(err).Kind != apierr.EngineError {
		t.Errorf("error kind = %v, want %v", apierr.As(err).Kind, apierr.EngineError)
	}
	if !strings.Contains(apierr.As(err).Message, "model file not found") {
		t.Errorf("error message = %q, want it to contain the CLI output %q", apierr.As(err).Message, "model file not found")
	}
}

// TestEngine_TranscribeTimeoutMapsToTimeout verifies a subprocess that
// outlives the configured timeout is killed and reported as apierr.Timeout.
func TestEngine_TranscribeTimeoutMapsToTimeout(t *testing.T) {
	cli := fakeCLI(t, "sleep 5\n")

	e := New(cli, 50*time.Millisecond)
	_, err := e.Transcribe(context.Background(), strings.NewReader("audio"), models.Options{}, nil)
	if apierr.As(err).Kind != apierr.Timeout {
		t.Errorf("error kind = %v, want %v", apierr.As(err).Kind, apierr.Timeout)
	}
}

// TestEngine_TranscribeCancelChannelKillsSubprocess verifies closing the
// cancel channel kills an in-flight subprocess and reports apierr.Cancelled.
func TestEngine_TranscribeCancelChannelKillsSubprocess(t *testing.T) {
	cli := fakeCLI(t, "sleep 5\n")

	e := New(cli, 10*time.Second)
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
