package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// APIKeyStore defines persistence operations for API keys.
type APIKeyStore interface {
	Create(ctx context.Context, key APIKey) (APIKey, error)
	GetByPrefix(ctx context.Context, prefix string) (APIKey, error)
	GetByUserID(ctx context.Context, userID string) ([]APIKey, error)
	Delete(ctx context.Context, userID string, id uuid.UUID) error
}

// APIKey is a stored key scoped to exactly one record.
type APIKey struct {
	ID         uuid.UUID
	UserID     string
	RecordID   string
	Prefix     string
	SecretHash string
	Name       string
	LastUsed   *time.Time
	CreatedAt  time.Time
	// RecordName is filled by listings only.
	RecordName string
}

// IssuedAPIKey is returned once, at issuance. Key cannot be recovered later.
type IssuedAPIKey struct {
	APIKey
	Key string
}
