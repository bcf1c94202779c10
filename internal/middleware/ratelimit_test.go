// ratelimit_test.go — unit tests for the per-caller token-bucket limiter,
// exercised directly against the gin.Engine rather than mocking gin.Context.
package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func newTestRouter(rl *RateLimiter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(InjectOwnerConfig(OwnerConfig{}))
	r.GET("/submit", rl.SubmitLimit(), func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/poll", rl.PollLimit(), func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func doRequest(r *gin.Engine, path, callerIP string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = callerIP + ":12345"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// TestRateLimiter_AllowsWithinBurst verifies requests up to the configured
// burst succeed.
func TestRateLimiter_AllowsWithinBurst(t *testing.T) {
	rl := NewRateLimiter(2, 60)
	r := newTestRouter(rl)

	for i := 0; i < 2; i++ {
		w := doRequest(r, "/submit", "10.0.0.1")
		if w.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want %d", i, w.Code, http.StatusOK)
		}
	}
}

// TestRateLimiter_RejectsOverBurst verifies the (burst+1)th request within
// the same window is rejected with 429 and a Retry-After header.
func TestRateLimiter_RejectsOverBurst(t *testing.T) {
	rl := NewRateLimiter(1, 60)
	r := newTestRouter(rl)

	first := doRequest(r, "/submit", "10.0.0.2")
	if first.Code != http.StatusOK {
		t.Fatalf("first request: status = %d, want %d", first.Code, http.StatusOK)
	}

	second := doRequest(r, "/submit", "10.0.0.2")
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: status = %d, want %d", second.Code, http.StatusTooManyRequests)
	}
	if second.Header().Get("Retry-After") == "" {
		t.Error("expected a Retry-After header on a 429 response")
	}
}

// TestRateLimiter_BucketsAreIndependentPerCaller verifies one caller
// exhausting its bucket doesn't affect another caller.
func TestRateLimiter_BucketsAreIndependentPerCaller(t *testing.T) {
	rl := NewRateLimiter(1, 60)
	r := newTestRouter(rl)

	doRequest(r, "/submit", "10.0.0.3")
	blocked := doRequest(r, "/submit", "10.0.0.3")
	if blocked.Code != http.StatusTooManyRequests {
		t.Fatalf("caller A's second request: status = %d, want %d", blocked.Code, http.StatusTooManyRequests)
	}

	other := doRequest(r, "/submit", "10.0.0.4")
	if other.Code != http.StatusOK {
		t.Fatalf("caller B's first request: status = %d, want %d", other.Code, http.StatusOK)
	}
}

// TestRateLimiter_SubmitAndPollBucketsAreIndependent verifies exhausting
// the submission bucket doesn't consume the polling bucket for the same
// caller, since polling is cheap and submission is expensive.
func TestRateLimiter_SubmitAndPollBucketsAreIndependent(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	r := newTestRouter(rl)

	doRequest(r, "/submit", "10.0.0.5")
	blockedSubmit := doRequest(r, "/submit", "10.0.0.5")
	if blockedSubmit.Code != http.StatusTooManyRequests {
		t.Fatalf("second submit: status = %d, want %d", blockedSubmit.Code, http.StatusTooManyRequests)
	}

	poll := doRequest(r, "/poll", "10.0.0.5")
	if poll.Code != http.StatusOK {
		t.Fatalf("poll after submit exhausted: status = %d, want %d", poll.Code, http.StatusOK)
	}
}
