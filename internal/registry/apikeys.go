package registry

import (
	"context"
	"fmt"

	"github.com/ternarybob/transcribe-service/internal/models"
)

// CreateAPIKey inserts a new API key record. Only the hash is persisted —
// the raw key is handed to the caller once, at creation time, by the
// handler that calls this.
func (r *Registry) CreateAPIKey(ctx context.Context, k *models.APIKey) error {
	query := `
		INSERT INTO api_keys (id, key_hash, key_prefix, name, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.ExecContext(ctx, query, k.ID, k.KeyHash, k.KeyPrefix, k.Name, k.Active, k.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create api key: %w", err)
	}
	return nil
}

// GetAPIKeyByHash looks up an active API key by its SHA-256 hash.
func (r *Registry) GetAPIKeyByHash(ctx context.Context, hash string) (*models.APIKey, error) {
	var k models.APIKey
	err := r.GetContext(ctx, &k, `SELECT * FROM api_keys WHERE key_hash = $1 AND active = true`, hash)
	if err != nil {
		return nil, fmt.Errorf("api key not found: %w", err)
	}
	return &k, nil
}

// UpdateAPIKeyLastUsed stamps last_used_at. Callers fire this in a goroutine
// so it never blocks the request it's authenticating, matching the
// teacher's middleware.APIKeyAuth pattern.
func (r *Registry) UpdateAPIKeyLastUsed(ctx context.Context, id string) {
	_, _ = r.ExecContext(ctx, `UPDATE api_keys SET last_used_at = now() WHERE id = $1`, id)
}

// RevokeAPIKey deactivates a key without deleting its audit trail.
func (r *Registry) RevokeAPIKey(ctx context.Context, id string) error {
	_, err := r.ExecContext(ctx, `UPDATE api_keys SET active = false WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to revoke api key: %w", err)
	}
	return nil
}
