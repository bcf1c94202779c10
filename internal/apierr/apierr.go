// Package apierr defines the stable error taxonomy surfaced to clients and
// operators (spec §7). Every failure response is {error_kind, message,
// retry_after?} — never a leaked filesystem path or stack trace.
//
// Go Pattern: We use a typed error (like database/sql.ErrNoRows) instead of
// sentinel strings, so callers can `errors.As` it and handlers can map it
// to the right HTTP status in one place.
package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is one of the stable error kinds named in spec §7.
type Kind string

const (
	RateLimited     Kind = "RateLimited"
	PayloadTooLarge Kind = "PayloadTooLarge"
	UnsupportedMedia Kind = "UnsupportedMedia"
	BadRequest      Kind = "BadRequest"
	NotFound        Kind = "NotFound"
	Gone            Kind = "Gone"
	NotCancellable  Kind = "NotCancellable"
	NotReady        Kind = "NotReady"
	StateMismatch   Kind = "StateMismatch"
	BlobMissing     Kind = "BlobMissing"
	DecodeError     Kind = "DecodeError"
	EngineError     Kind = "EngineError"
	Timeout         Kind = "Timeout"
	Cancelled       Kind = "Cancelled"
	IOError         Kind = "IOError"
	QueueUnavailable    Kind = "QueueUnavailable"
	RegistryUnavailable Kind = "RegistryUnavailable"
	Internal        Kind = "Internal"
)

// statusByKind maps each kind to the HTTP status the handlers should return.
var statusByKind = map[Kind]int{
	RateLimited:         http.StatusTooManyRequests,
	PayloadTooLarge:     http.StatusRequestEntityTooLarge,
	UnsupportedMedia:    http.StatusUnsupportedMediaType,
	BadRequest:          http.StatusBadRequest,
	NotFound:            http.StatusNotFound,
	Gone:                http.StatusGone,
	NotCancellable:      http.StatusConflict,
	NotReady:            http.StatusConflict,
	StateMismatch:       http.StatusConflict,
	BlobMissing:         http.StatusInternalServerError,
	DecodeError:         http.StatusUnprocessableEntity,
	EngineError:         http.StatusInternalServerError,
	Timeout:             http.StatusGatewayTimeout,
	Cancelled:           http.StatusConflict,
	IOError:             http.StatusInternalServerError,
	QueueUnavailable:    http.StatusServiceUnavailable,
	RegistryUnavailable: http.StatusServiceUnavailable,
	Internal:            http.StatusInternalServerError,
}

// Error is a taxonomy-tagged error, surfaced to HTTP clients as
// {error_kind, message, retry_after?} and to job records as
// {error_kind, error_message}.
type Error struct {
	Kind       Kind
	Message    string
	RetryAfter float64 // seconds; zero means "not applicable"
	cause      error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// Status returns the HTTP status code for this error's kind.
func (e *Error) Status() int {
	if s, ok := statusByKind[e.Kind]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// New builds an Error with a message but no wrapped cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds an Error that wraps an underlying cause. The cause's text is
// never exposed to clients — only Message is — so internal details (paths,
// driver errors) don't leak per spec §7.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

// WithRetryAfter attaches a suggested retry delay, used for RateLimited.
func (e *Error) WithRetryAfter(seconds float64) *Error {
	e.RetryAfter = seconds
	return e
}

// Body is the wire shape of every failure response.
type Body struct {
	ErrorKind  Kind    `json:"error_kind"`
	Message    string  `json:"message"`
	RetryAfter float64 `json:"retry_after,omitempty"`
}

// ToBody converts an Error to its wire representation.
func (e *Error) ToBody() Body {
	return Body{ErrorKind: e.Kind, Message: e.Message, RetryAfter: e.RetryAfter}
}

// As extracts an *Error from err if it is (or wraps) one, otherwise reports
// it as an opaque Internal error — the same comma-ok pattern the teacher
// uses for type assertions, applied to error unwrapping.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return Wrap(Internal, "an internal error occurred", err)
}
