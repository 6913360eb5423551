package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrAPIKeyNotFound indicates a revoke for an unknown or already revoked key.
var ErrAPIKeyNotFound = errors.New("api key not found")

// InsertAPIKey stores the HMAC hash of a new key and returns its id.
// The plaintext key is never stored.
func InsertAPIKey(ctx context.Context, q *Queries, clientName string, keyHash []byte, secretID string) (string, error) {
	id := uuid.Must(uuid.NewV7()).String()
	if _, err := q.Exec(ctx, "insert-api-key", id, clientName, keyHash, secretID, time.Now().UTC()); err != nil {
		return "", fmt.Errorf("failed to insert api key: %w", err)
	}
	return id, nil
}

// RevokeAPIKey marks a key revoked. Revoking twice returns ErrAPIKeyNotFound.
func RevokeAPIKey(ctx context.Context, q *Queries, apiKeyID string) error {
	res, err := q.Exec(ctx, "revoke-api-key", time.Now().UTC(), apiKeyID)
	if err != nil {
		return fmt.Errorf("failed to revoke api key: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to revoke api key: %w", err)
	}
	if n == 0 {
		return ErrAPIKeyNotFound
	}
	return nil
}
