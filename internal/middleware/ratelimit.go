// ratelimit.go implements per-caller rate limiting using token buckets —
// separate buckets for submission and polling traffic (spec §4.5), since a
// caller polling status in a tight loop shouldn't burn its submission quota.
//
// How token bucket works:
// - Each caller gets a bucket with N tokens, refilled at a steady rate.
// - Each request consumes 1 token.
// - If the bucket is empty, the request is rejected with 429 Too Many Requests.
//
// This is more sophisticated than a simple counter because it smooths out
// burst traffic naturally.
package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/ternarybob/transcribe-service/internal/apierr"
)

// RateLimiter tracks request rates per caller, across two independent
// classes of traffic: submission (expensive — queues work) and polling
// (cheap — reads state).
type RateLimiter struct {
	// Go Pattern: sync.RWMutex allows multiple concurrent readers but
	// exclusive writers. This is more efficient than sync.Mutex when
	// reads vastly outnumber writes (which is true for rate limiting).
	mu          sync.RWMutex
	submitters  map[string]*callerLimiter
	pollers     map[string]*callerLimiter
	submitRate  rate.Limit
	submitBurst int
	pollRate    rate.Limit
	pollBurst   int
}

type callerLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a rate limiter allowing submitPerMin submissions
// and pollPerMin polls per minute, per caller.
func NewRateLimiter(submitPerMin, pollPerMin int) *RateLimiter {
	rl := &RateLimiter{
		submitters:  make(map[string]*callerLimiter),
		pollers:     make(map[string]*callerLimiter),
		submitRate:  rate.Limit(float64(submitPerMin) / 60.0),
		submitBurst: max(1, submitPerMin),
		pollRate:    rate.Limit(float64(pollPerMin) / 60.0),
		pollBurst:   max(1, pollPerMin),
	}

	go rl.cleanup()

	return rl
}

// SubmitLimit returns Gin middleware enforcing the submission rate limit.
func (rl *RateLimiter) SubmitLimit() gin.HandlerFunc {
	return rl.limitMiddleware(rl.submitters, rl.submitRate, rl.submitBurst)
}

// PollLimit returns Gin middleware enforcing the polling rate limit.
func (rl *RateLimiter) PollLimit() gin.HandlerFunc {
	return rl.limitMiddleware(rl.pollers, rl.pollRate, rl.pollBurst)
}

func (rl *RateLimiter) limitMiddleware(bucket map[string]*callerLimiter, r rate.Limit, burst int) gin.HandlerFunc {
	return func(c *gin.Context) {
		callerID := CallerID(c)

		if IsOwner(c) {
			// Owner override: bypass rate limits entirely.
			c.Next()
			return
		}

		lim := rl.getOrCreate(bucket, callerID, r, burst)
		if !lim.Allow() {
			reservation := lim.Reserve()
			retryAfter := reservation.Delay().Seconds()
			reservation.Cancel()
			c.Header("Retry-After", strconv.Itoa(int(retryAfter)+1))
			c.JSON(http.StatusTooManyRequests, apierr.Body{
				ErrorKind:  apierr.RateLimited,
				Message:    "rate limit exceeded, try again later",
				RetryAfter: retryAfter,
			})
			c.Abort()
			return
		}

		c.Header("X-RateLimit-Burst", strconv.Itoa(burst))
		c.Next()
	}
}

func (rl *RateLimiter) getOrCreate(bucket map[string]*callerLimiter, callerID string, r rate.Limit, burst int) *rate.Limiter {
	rl.mu.RLock()
	cl, exists := bucket[callerID]
	rl.mu.RUnlock()
	if exists {
		rl.mu.Lock()
		cl.lastSeen = time.Now()
		rl.mu.Unlock()
		return cl.limiter
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if cl, exists := bucket[callerID]; exists {
		cl.lastSeen = time.Now()
		return cl.limiter
	}
	cl = &callerLimiter{limiter: rate.NewLimiter(r, burst), lastSeen: time.Now()}
	bucket[callerID] = cl
	return cl.limiter
}

// cleanup periodically removes stale buckets to prevent memory leaks.
func (rl *RateLimiter) cleanup() {
	// Go Pattern: time.Ticker sends values at regular intervals.
	// Always defer ticker.Stop() to release resources.
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		rl.mu.Lock()
		now := time.Now()
		for id, cl := range rl.submitters {
			if now.Sub(cl.lastSeen) > time.Hour {
				delete(rl.submitters, id)
			}
		}
		for id, cl := range rl.pollers {
			if now.Sub(cl.lastSeen) > time.Hour {
				delete(rl.pollers, id)
			}
		}
		rl.mu.Unlock()
	}
}
