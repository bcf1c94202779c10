package apierr

import (
	"errors"
	"net/http"
	"testing"
)

// TestError_StatusMapsEveryKnownKind verifies each declared Kind maps to a
// non-zero HTTP status, so a new Kind added without a status entry fails
// loudly in CI rather than silently 500ing.
func TestError_StatusMapsEveryKnownKind(t *testing.T) {
	kinds := []Kind{
		RateLimited, PayloadTooLarge, UnsupportedMedia, BadRequest, NotFound,
		Gone, NotCancellable, NotReady, StateMismatch, BlobMissing, DecodeError,
		EngineError, Timeout, Cancelled, IOError, QueueUnavailable,
		RegistryUnavailable, Internal,
	}

	for _, k := range kinds {
		t.Run(string(k), func(t *testing.T) {
			e := New(k, "test")
			if e.Status() == 0 {
				t.Errorf("Status() for kind %q returned 0", k)
			}
		})
	}
}

// TestError_UnmappedKindDefaultsTo500 verifies an unrecognized kind falls
// back to 500 rather than panicking.
func TestError_UnmappedKindDefaultsTo500(t *testing.T) {
	e := New(Kind("SomethingMadeUp"), "test")
	if e.Status() != http.StatusInternalServerError {
		t.Errorf("Status() = %d, want %d", e.Status(), http.StatusInternalServerError)
	}
}

// TestError_WrapPreservesCauseForUnwrapButNotMessage verifies Wrap keeps
// the cause reachable via errors.Is/errors.Unwrap, while ToBody never
// surfaces it (spec §7: no leaked internals).
func TestError_WrapPreservesCauseForUnwrapButNotMessage(t *testing.T) {
	cause := errors.New("connection refused on 10.0.0.5:5432")
	e := Wrap(RegistryUnavailable, "failed to read job", cause)

	if !errors.Is(e, cause) {
		t.Error("expected errors.Is to find the wrapped cause")
	}

	body := e.ToBody()
	if body.Message != "failed to read job" {
		t.Errorf("ToBody().Message = %q, want %q", body.Message, "failed to read job")
	}
	if body.Message == cause.Error() {
		t.Error("ToBody().Message leaked the wrapped cause's text")
	}
}

// TestAs_PassesThroughExistingError verifies As returns the same *Error
// when given one.
func TestAs_PassesThroughExistingError(t *testing.T) {
	original := New(NotFound, "job not found")
	got := As(original)
	if got != original {
		t.Error("As() should return the same *Error instance when given one")
	}
}

// TestAs_WrapsOpaqueErrorsAsInternal verifies a plain error (e.g. one
// surfacing from a library we don't control) is reported as Internal
// rather than panicking a type assertion.
func TestAs_WrapsOpaqueErrorsAsInternal(t *testing.T) {
	got := As(errors.New("boom"))
	if got.Kind != Internal {
		t.Errorf("As() kind = %v, want %v", got.Kind, Internal)
	}
}

// TestAs_NilIsNil verifies As(nil) returns nil, so callers can check errors
// the normal way before calling As.
func TestAs_NilIsNil(t *testing.T) {
	if As(nil) != nil {
		t.Error("As(nil) should return nil")
	}
}

// TestError_WithRetryAfterRoundtripsThroughBody verifies the retry hint
// reaches the wire body for RateLimited responses.
func TestError_WithRetryAfterRoundtripsThroughBody(t *testing.T) {
	e := New(RateLimited, "slow down").WithRetryAfter(2.5)
	body := e.ToBody()
	if body.RetryAfter != 2.5 {
		t.Errorf("ToBody().RetryAfter = %v, want 2.5", body.RetryAfter)
	}
}
