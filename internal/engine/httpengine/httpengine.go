// Package httpengine transcribes audio via a remote Whisper-compatible HTTP
// API (OpenAI's /v1/audio/transcriptions shape, or a self-hosted
// equivalent), adapted from the teacher's internal/services/audio package.
//
// Go Pattern: We build a multipart form body manually. In Go, multipart.Writer
// handles the boundary generation and MIME encoding — similar to FormData in JS.
package httpengine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/ternarybob/transcribe-service/internal/apierr"
	"github.com/ternarybob/transcribe-service/internal/models"
)

// Engine transcribes audio via a remote Whisper-compatible HTTP endpoint.
type Engine struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// New creates an Engine pointed at baseURL (e.g.
// "https://api.openai.com/v1/audio/transcriptions"), authenticating with
// apiKey as a bearer token. timeout bounds each individual transcription
// call (spec §4.8 step 4).
func New(baseURL, apiKey string, timeout time.Duration) *Engine {
	return &Engine{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// verboseJSONResponse is the JSON shape returned when response_format is
// "verbose_json" — it includes per-segment timing, which the flat "json"
// format doesn't.
type verboseJSONResponse struct {
	Text     string  `json:"text"`
	Language string  `json:"language"`
	Duration float64 `json:"duration"`
	Segments []struct {
		Start            float64 `json:"start"`
		End              float64 `json:"end"`
		Text             string  `json:"text"`
		AvgLogprob       float64 `json:"avg_logprob"`
		NoSpeechProb     float64 `json:"no_speech_prob"`
	} `json:"segments"`
}

// Transcribe sends audio to the configured endpoint and returns the parsed
// transcript. It honors both ctx and the cancel channel — whichever fires
// first aborts the in-flight HTTP request.
func (e *Engine) Transcribe(ctx context.Context, audio io.Reader, opts models.Options, cancel <-chan struct{}) (*models.Transcript, error) {
	reqCtx, abort := context.WithCancel(ctx)
	defer abort()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-cancel:
			abort()
		case <-done:
		}
	}()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", "audio")
	if err != nil {
		return nil, apierr.Wrap(apierr.Internal, "failed to build upload form", err)
	}
	if _, err := io.Copy(part, audio); err != nil {
		return nil, apierr.Wrap(apierr.IOError, "failed to stream audio to engine", err)
	}

	_ = writer.WriteField("model", "whisper-1")
	_ = writer.WriteField("response_format", "verbose_json")
	if opts.Language != "" {
		_ = writer.WriteField("language", opts.Language)
	}
	if opts.InitialPrompt != "" {
		_ = writer.WriteField("prompt", opts.InitialPrompt)
	}
	if opts.VADFilter {
		_ = writer.WriteField("vad_filter", "true")
	}

	if err := writer.Close(); err != nil {
		return nil, apierr.Wrap(apierr.Internal, "failed to finalize upload form", err)
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, e.baseURL, &body)
	if err != nil {
		return nil, apierr.Wrap(apierr.Internal, "failed to build engine request", err)
	}
	req.Header.Set("Authorization", "Bearer "+e.apiKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	start := time.Now()
	resp, err := e.httpClient.Do(req)
	if err != nil {
		select {
		case <-cancel:
			return nil, apierr.New(apierr.Cancelled, "transcription cancelled")
		default:
		}
		if reqCtx.Err() != nil {
			return nil, apierr.New(apierr.Timeout, "transcription engine timed out")
		}
		return nil, apierr.Wrap(apierr.EngineError, "transcription engine request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apierr.Wrap(apierr.EngineError, "failed to read engine response", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, apierr.New(apierr.EngineError, fmt.Sprintf("transcription engine returned status %d", resp.StatusCode))
	}

	var parsed verboseJSONResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, apierr.Wrap(apierr.DecodeError, "failed to parse engine response", err)
	}

	segments := make([]models.Segment, 0, len(parsed.Segments))
	for _, s := range parsed.Segments {
		confidence := confidenceFromLogprob(s.AvgLogprob)
		segments = append(segments, models.Segment{
			Start:      s.Start,
			End:        s.End,
			Text:       s.Text,
			Confidence: &confidence,
		})
	}

	return &models.Transcript{
		Language:       parsed.Language,
		AudioDuration:  parsed.Duration,
		ProcessingTime: time.Since(start).Seconds(),
		Text:           parsed.Text,
		Segments:       segments,
	}, nil
}

// confidenceFromLogprob maps Whisper's average log-probability (roughly
// -1..0, higher is better) onto a 0..1 confidence score for the wire shape.
func confidenceFromLogprob(avgLogprob float64) float64 {
	c := 1 + avgLogprob
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}
