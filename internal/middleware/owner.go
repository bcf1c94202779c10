package middleware

import "github.com/gin-gonic/gin"

// OwnerConfig holds the owner API key override configured at startup.
type OwnerConfig struct {
	KeyID     string
	KeyPrefix string
}

const ownerContextKey contextKey = "owner_config"

// InjectOwnerConfig stores owner config in the request context so IsOwner
// can check it without threading config through every middleware.
func InjectOwnerConfig(cfg OwnerConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(string(ownerContextKey), cfg)
		c.Next()
	}
}

// IsOwner reports whether the authenticated caller's API key matches the
// configured owner override, letting operators poll/submit without
// consuming rate-limit quota.
func IsOwner(c *gin.Context) bool {
	val, exists := c.Get(string(ownerContextKey))
	if !exists {
		return false
	}
	cfg, ok := val.(OwnerConfig)
	if !ok {
		return false
	}

	apiKey := GetAPIKey(c)
	if apiKey == nil {
		return false
	}
	if cfg.KeyID != "" && apiKey.ID == cfg.KeyID {
		return true
	}
	if cfg.KeyPrefix != "" && apiKey.KeyPrefix == cfg.KeyPrefix {
		return true
	}
	return false
}
