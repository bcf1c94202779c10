// Package cliengine transcribes audio via a local CLI subprocess (a
// whisper.cpp-compatible binary), adapted from the teacher's
// internal/services/transcript package, which drives yt-dlp the same way:
// temp working directory, exec.CommandContext, then read the output file
// (here at the fixed path "<--output-file>.json").
package cliengine

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/ternarybob/transcribe-service/internal/apierr"
	"github.com/ternarybob/transcribe-service/internal/models"
)

// Engine transcribes audio by invoking a local whisper.cpp-compatible CLI
// binary against a temp file, then parsing its JSON output.
type Engine struct {
	cliPath string
	timeout time.Duration
}

// New creates an Engine that invokes the binary at cliPath, bounding each
// call to timeout (spec §4.8 step 4).
func New(cliPath string, timeout time.Duration) *Engine {
	return &Engine{cliPath: cliPath, timeout: timeout}
}

// cliOutput is the JSON shape we expect the CLI to emit via --output-json.
type cliOutput struct {
	Text     string  `json:"text"`
	Language string  `json:"language"`
	Duration float64 `json:"duration"`
	Segments []struct {
		Start      float64 `json:"start"`
		End        float64 `json:"end"`
		Text       string  `json:"text"`
		Confidence float64 `json:"confidence"`
	} `json:"segments"`
}

// Transcribe writes audio to a temp file, runs the CLI against it, and
// parses the resulting JSON sidecar file. Go Pattern: exec.CommandContext
// cancels the subprocess if ctx is cancelled — it prevents runaway
// processes, important for a long-running server.
func (e *Engine) Transcribe(ctx context.Context, audio io.Reader, opts models.Options, cancel <-chan struct{}) (*models.Transcript, error) {
	ctx, stop := context.WithTimeout(ctx, e.timeout)
	defer stop()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-cancel:
			stop()
		case <-done:
		}
	}()

	tmpDir, err := os.MkdirTemp("", "transcribe-*")
	if err != nil {
		return nil, apierr.Wrap(apierr.IOError, "failed to create working directory", err)
	}
	defer os.RemoveAll(tmpDir)

	audioPath := filepath.Join(tmpDir, "input.audio")
	outBase := filepath.Join(tmpDir, "output")

	f, err := os.Create(audioPath)
	if err != nil {
		return nil, apierr.Wrap(apierr.IOError, "failed to stage audio for engine", err)
	}
	if _, err := io.Copy(f, audio); err != nil {
		f.Close()
		return nil, apierr.Wrap(apierr.IOError, "failed to write staged audio", err)
	}
	if err := f.Close(); err != nil {
		return nil, apierr.Wrap(apierr.IOError, "failed to finalize staged audio", err)
	}

	args := []string{
		"--file", audioPath,
		"--output-json",
		"--output-file", outBase,
	}
	if opts.Language != "" {
		args = append(args, "--language", opts.Language)
	}
	if opts.VADFilter {
		args = append(args, "--vad-filter")
	}
	if opts.InitialPrompt != "" {
		args = append(args, "--initial-prompt", opts.InitialPrompt)
	}

	cmd := exec.CommandContext(ctx, e.cliPath, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		select {
		case <-cancel:
			return nil, apierr.New(apierr.Cancelled, "transcription cancelled")
		default:
		}
		if ctx.Err() != nil {
			return nil, apierr.New(apierr.Timeout, "transcription engine timed out")
		}
		msg := strings.TrimSpace(string(output))
		if msg == "" {
			msg = err.Error()
		}
		return nil, apierr.Wrap(apierr.EngineError, fmt.Sprintf("transcription engine failed: %s", msg), err)
	}

	jsonPath := outBase + ".json"
	raw, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil, apierr.Wrap(apierr.EngineError, "engine did not produce output", err)
	}

	var parsed cliOutput
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, apierr.Wrap(apierr.DecodeError, "failed to parse engine output", err)
	}

	segments := make([]models.Segment, 0, len(parsed.Segments))
	for _, s := range parsed.Segments {
		confidence := s.Confidence
		segments = append(segments, models.Segment{
			Start:      s.Start,
			End:        s.End,
			Text:       s.Text,
			Confidence: &confidence,
		})
	}

	return &models.Transcript{
		Language: parsed.Language,
		AudioDuration: parsed.Duration,
		Text:     parsed.Text,
		Segments: segments,
	}, nil
}
