package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// CredentialStore defines persistence operations for provider credentials.
type CredentialStore interface {
	Create(ctx context.Context, credential ProviderCredential) (ProviderCredential, error)
	GetByID(ctx context.Context, userID string, id uuid.UUID) (ProviderCredential, error)
	GetLatest(ctx context.Context, userID string) (ProviderCredential, error)
	GetByUserID(ctx context.Context, userID string) ([]ProviderCredential, error)
	Delete(ctx context.Context, userID string, id uuid.UUID) error
}

// ProviderCredential is an encrypted provider API token. The plaintext is
// never stored.
type ProviderCredential struct {
	ID         uuid.UUID
	UserID     string
	Name       string
	Nonce      []byte
	Ciphertext []byte
	Tag        []byte
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
