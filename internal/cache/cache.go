// Package cache is the Result Cache (spec §4.3): a content-addressed,
// TTL-bounded store of completed Transcripts, keyed by fingerprint so
// repeat submissions of the same audio+options short-circuit the pipeline
// (spec §4.6 step 3).
//
// Go Pattern: go-redis's Client satisfies the same "one client, shared
// across goroutines" model as *sqlx.DB — create it once at startup, pass
// the pointer around. We lean on Redis's native key TTL (SET ... EX)
// instead of hand-rolling expiry bookkeeping.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ternarybob/transcribe-service/internal/apierr"
	"github.com/ternarybob/transcribe-service/internal/models"
)

const keyPrefix = "transcribe:result:"

// Cache wraps a Redis client scoped to the Result Cache's key namespace.
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
}

// New parses redisURL (e.g. "redis://host:6379/0") and returns a Cache
// whose entries expire after ttl.
func New(redisURL string, ttl time.Duration) (*Cache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse queue backend url: %w", err)
	}
	return &Cache{rdb: redis.NewClient(opts), ttl: ttl}, nil
}

func resultKey(fingerprint string) string {
	return keyPrefix + fingerprint
}

// HealthCheck verifies the underlying Redis connection is reachable.
func (c *Cache) HealthCheck(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Lookup returns the cached Transcript for fingerprint, or (nil, nil) on a
// cache miss. Lookup does not renew the TTL on read — a hit is evidence the
// entry is fresh, not a reason to extend it (spec Open Question: TTL is
// absolute from write time).
func (c *Cache) Lookup(ctx context.Context, fingerprint string) (*models.Transcript, error) {
	raw, err := c.rdb.Get(ctx, resultKey(fingerprint)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, apierr.Wrap(apierr.Internal, "result cache lookup failed", err)
	}

	var t models.Transcript
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, apierr.Wrap(apierr.DecodeError, "corrupt cache entry", err)
	}
	return &t, nil
}

// Put stores transcript under fingerprint with the configured TTL
// (spec §4.8 step 5).
func (c *Cache) Put(ctx context.Context, fingerprint string, transcript *models.Transcript) error {
	raw, err := json.Marshal(transcript)
	if err != nil {
		return apierr.Wrap(apierr.Internal, "failed to encode transcript", err)
	}
	if err := c.rdb.Set(ctx, resultKey(fingerprint), raw, c.ttl).Err(); err != nil {
		return apierr.Wrap(apierr.Internal, "result cache write failed", err)
	}
	return nil
}

// Close releases the underlying Redis connection pool.
func (c *Cache) Close() error {
	return c.rdb.Close()
}
