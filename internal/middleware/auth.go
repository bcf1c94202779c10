// Package middleware provides HTTP middleware for the API.
//
// Go Pattern: Middleware in Go is a function that wraps an HTTP handler.
// In Gin, middleware is a gin.HandlerFunc that calls c.Next() to continue
// the chain, or c.Abort() to stop processing. This is similar to Express.js
// middleware, but with explicit control flow.
package middleware

import (
	"crypto/sha256"
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/ternarybob/transcribe-service/internal/models"
	"github.com/ternarybob/transcribe-service/internal/registry"
)

// contextKey is a custom type for context keys to avoid collisions.
// Go Pattern: Use unexported types for context keys so other packages
// can't accidentally overwrite your values.
type contextKey string

const apiKeyContextKey contextKey = "api_key"

// APIKeyAuth returns middleware that looks up the X-API-Key header, if
// present, and stores the resolved key in the request context. Unlike the
// teacher's version this never aborts the chain on a missing or invalid
// key — caller identity is optional (spec §4.5/§9); callers with no valid
// key fall back to IP-based identity via CallerID.
func APIKeyAuth(reg *registry.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		rawKey := c.GetHeader("X-API-Key")
		if rawKey == "" {
			c.Next()
			return
		}

		keyHash := HashAPIKey(rawKey)
		apiKey, err := reg.GetAPIKeyByHash(c.Request.Context(), keyHash)
		if err != nil {
			c.Next()
			return
		}

		c.Set(string(apiKeyContextKey), apiKey)

		// Update last_used_at (fire and forget — don't block the request)
		// Go Pattern: Using a goroutine for non-critical background work.
		go reg.UpdateAPIKeyLastUsed(c.Request.Context(), apiKey.ID)

		c.Next()
	}
}

// GetAPIKey retrieves the authenticated API key from the request context.
// Call this in your handlers after the auth middleware has run.
func GetAPIKey(c *gin.Context) *models.APIKey {
	val, exists := c.Get(string(apiKeyContextKey))
	if !exists {
		return nil
	}
	// Go Pattern: Type assertion — converting interface{} to a concrete type.
	// The comma-ok idiom (val, ok := ...) is safe — it won't panic if wrong type.
	key, ok := val.(*models.APIKey)
	if !ok {
		return nil
	}
	return key
}

// CallerID resolves the identity used to key rate-limit buckets and
// attribute jobs: API key id, then JWT subject, then client IP (spec §4.5).
func CallerID(c *gin.Context) string {
	if key := GetAPIKey(c); key != nil {
		return "key:" + key.ID
	}
	if claims := GetJWTClaims(c); claims != nil {
		return "sub:" + claims.Subject
	}
	return "ip:" + c.ClientIP()
}

// HashAPIKey creates a SHA-256 hash of an API key.
// We store hashes, not raw keys — same principle as password hashing.
func HashAPIKey(key string) string {
	hash := sha256.Sum256([]byte(key))
	return fmt.Sprintf("%x", hash)
}
