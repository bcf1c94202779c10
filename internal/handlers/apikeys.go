// apikeys.go handles API key management endpoints.
package handlers

import (
	"crypto/rand"
	"encoding/hex"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ternarybob/transcribe-service/internal/apierr"
	"github.com/ternarybob/transcribe-service/internal/middleware"
	"github.com/ternarybob/transcribe-service/internal/models"
)

// CreateAPIKey generates a new caller-identity credential (spec §4.5).
// POST /admin/keys
//
// Security: this endpoint requires the X-Admin-Key header whenever
// AdminAPIKey is configured. When it is left blank the endpoint is open,
// for local bootstrapping only.
//
// Response includes the raw key — SAVE IT! It's only shown once.
func (h *Handler) CreateAPIKey(c *gin.Context) {
	if h.AdminAPIKey != "" {
		provided := c.GetHeader("X-Admin-Key")
		if provided == "" || provided != h.AdminAPIKey {
			c.JSON(http.StatusForbidden, apierr.Body{ErrorKind: apierr.BadRequest, Message: "a valid X-Admin-Key header is required"})
			return
		}
	}

	var req models.CreateAPIKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apierr.Body{ErrorKind: apierr.BadRequest, Message: "name is required"})
		return
	}

	rawKey, err := generateAPIKey()
	if err != nil {
		log.Printf("❌ Failed to generate API key: %v", err)
		c.JSON(http.StatusInternalServerError, apierr.Body{ErrorKind: apierr.Internal, Message: "failed to generate API key"})
		return
	}

	key := &models.APIKey{
		ID:        uuid.New().String(),
		KeyHash:   middleware.HashAPIKey(rawKey),
		KeyPrefix: rawKey[:8] + "...",
		Name:      req.Name,
		Active:    true,
		CreatedAt: time.Now(),
	}

	if err := h.Registry.CreateAPIKey(c.Request.Context(), key); err != nil {
		log.Printf("❌ Failed to create API key: %v", err)
		c.JSON(http.StatusInternalServerError, apierr.Body{ErrorKind: apierr.RegistryUnavailable, Message: "failed to create API key"})
		return
	}

	c.JSON(http.StatusCreated, models.CreateAPIKeyResponse{APIKey: *key, RawKey: rawKey})
}

// RevokeAPIKey deactivates an API key.
// DELETE /admin/keys/:id
func (h *Handler) RevokeAPIKey(c *gin.Context) {
	id := c.Param("id")

	if err := h.Registry.RevokeAPIKey(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusNotFound, apierr.Body{ErrorKind: apierr.NotFound, Message: "API key not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "API key revoked"})
}

// generateAPIKey creates a cryptographically secure random API key.
// Format: "trsc_" prefix + 32 random hex characters.
func generateAPIKey() (string, error) {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return "trsc_" + hex.EncodeToString(bytes), nil
}
