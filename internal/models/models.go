// Package models defines the data structures shared across the
// transcription service: job records, transcripts, and their DTOs.
//
// Go Pattern: Models are plain structs with JSON tags for serialization.
// Go models are just data containers — no ORM magic. The registry package
// handles persistence.
package models

import "time"

// State is the lifecycle state of a job.
//
// Go Pattern: We use string constants instead of enums (Go doesn't have
// enums). Transitions are monotonic along a DAG: Queued -> Processing ->
// {Completed, Failed}; any of {Queued, Processing} -> Cancelled is allowed;
// {Completed, Failed, Cancelled} are sinks.
type State string

const (
	Queued     State = "Queued"
	Processing State = "Processing"
	Completed  State = "Completed"
	Failed     State = "Failed"
	Cancelled  State = "Cancelled"
)

// Terminal reports whether a state is a sink of the lifecycle DAG.
func (s State) Terminal() bool {
	return s == Completed || s == Failed || s == Cancelled
}

// Options holds the recognized submission options that materially affect
// transcription output and therefore participate in the fingerprint.
type Options struct {
	Language      string `json:"language,omitempty"`
	VADFilter     bool   `json:"vad_filter,omitempty"`
	InitialPrompt string `json:"initial_prompt,omitempty"`
}

// Job is the durable record tracked by the Job Registry for one submission.
type Job struct {
	JobID        string     `json:"job_id" db:"job_id"`
	State        State      `json:"state" db:"state"`
	Fingerprint  string     `json:"fingerprint,omitempty" db:"fingerprint"`
	Filename     string     `json:"filename" db:"filename"`
	SubmittedAt  time.Time  `json:"submitted_at" db:"submitted_at"`
	StartedAt    *time.Time `json:"started_at,omitempty" db:"started_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty" db:"finished_at"`
	Options      Options    `json:"options" db:"-"`
	OptionsJSON  []byte     `json:"-" db:"options"`
	Attempt      int        `json:"attempt" db:"attempt"`
	ResultHandle string     `json:"result_handle,omitempty" db:"result_handle"`
	ErrorKind    string     `json:"error_kind,omitempty" db:"error_kind"`
	ErrorMessage string     `json:"error_message,omitempty" db:"error_message"`
	CallerID     string     `json:"-" db:"caller_id"`
}

// Segment is one timed span of a Transcript.
type Segment struct {
	Start      float64  `json:"start"`
	End        float64  `json:"end"`
	Text       string   `json:"text"`
	Confidence *float64 `json:"confidence,omitempty"`
}

// Transcript is the immutable payload stored in the Result Cache.
type Transcript struct {
	Language           string    `json:"language"`
	LanguageConfidence float64   `json:"language_confidence"`
	AudioDuration      float64   `json:"audio_duration"`
	ProcessingTime     float64   `json:"processing_time"`
	Text               string    `json:"text"`
	Segments           []Segment `json:"segments"`
}

// APIKey is a caller-identity credential. Only the hash is persisted.
type APIKey struct {
	ID         string     `json:"id" db:"id"`
	KeyHash    string     `json:"-" db:"key_hash"`
	KeyPrefix  string     `json:"key_prefix" db:"key_prefix"`
	Name       string     `json:"name" db:"name"`
	Active     bool       `json:"active" db:"active"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty" db:"last_used_at"`
}

// --- Request/Response DTOs ---

// StatusResponse is returned by GET /status/{job_id}.
type StatusResponse struct {
	JobID       string     `json:"job_id"`
	State       State      `json:"state"`
	Filename    string     `json:"filename"`
	SubmittedAt time.Time  `json:"submitted_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
	Attempt     int        `json:"attempt"`
}

// SubmitResponse is returned by POST /transcribe.
type SubmitResponse struct {
	JobID string `json:"job_id"`
	State State  `json:"state"`
}

// CancelResponse is returned by DELETE /job/{job_id}.
type CancelResponse struct {
	State State `json:"state"`
}

// CreateAPIKeyRequest is the JSON body for POST /admin/keys.
type CreateAPIKeyRequest struct {
	Name string `json:"name" binding:"required"`
}

// CreateAPIKeyResponse includes the raw key — shown only once at creation time.
type CreateAPIKeyResponse struct {
	APIKey
	RawKey string `json:"raw_key"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status                string `json:"status"`
	QueueBackendReachable bool   `json:"queue_backend_reachable"`
	WorkerHeartbeatFresh  bool   `json:"worker_heartbeat_fresh"`
}

// StatsResponse is returned by GET /stats.
type StatsResponse struct {
	QueueDepth int `json:"queue_depth"`
	InProgress int `json:"in_progress"`
	Workers    int `json:"workers"`
}
