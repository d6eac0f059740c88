package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/dtroode/dnskeeper/internal/logger"
	"github.com/dtroode/dnskeeper/internal/model"
	"github.com/dtroode/dnskeeper/internal/vault"
)

type Credential struct {
	store  model.CredentialStore
	vault  *vault.Vault
	logger *logger.Logger
}

func NewCredential(store model.CredentialStore, vault *vault.Vault, logger *logger.Logger) *Credential {
	return &Credential{
		store:  store,
		vault:  vault,
		logger: logger,
	}
}

// Create seals token and stores it under name.
func (s *Credential) Create(ctx context.Context, userID, name, token string) (model.ProviderCredential, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return model.ProviderCredential{}, fmt.Errorf("%w: token is required", model.ErrInvalidInput)
	}

	sealed, err := s.vault.Encrypt([]byte(token))
	if err != nil {
		return model.ProviderCredential{}, fmt.Errorf("failed to encrypt credential: %w", err)
	}

	credential, err := s.store.Create(ctx, model.ProviderCredential{
		ID:         uuid.New(),
		UserID:     userID,
		Name:       name,
		Nonce:      sealed.Nonce,
		Ciphertext: sealed.Ciphertext,
		Tag:        sealed.Tag,
	})
	if err != nil {
		return model.ProviderCredential{}, fmt.Errorf("failed to save credential: %w", err)
	}

	s.logger.Info("Credential service: credential stored", "user_id", userID, "credential_id", credential.ID)

	return credential, nil
}

func (s *Credential) List(ctx context.Context, userID string) ([]model.ProviderCredential, error) {
	credentials, err := s.store.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get credentials by user id: %w", err)
	}
	return credentials, nil
}

func (s *Credential) Delete(ctx context.Context, userID string, id uuid.UUID) error {
	if err := s.store.Delete(ctx, userID, id); err != nil {
		return fmt.Errorf("failed to delete credential: %w", err)
	}
	s.logger.Info("Credential service: credential deleted", "user_id", userID, "credential_id", id)
	return nil
}

// Unseal resolves the credential to use for a user and decrypts it. A nil id
// selects the user's newest credential. The caller must Wipe the secret.
func (s *Credential) Unseal(ctx context.Context, userID string, id *uuid.UUID) (model.ProviderCredential, vault.Secret, error) {
	var (
		credential model.ProviderCredential
		err        error
	)
	if id != nil {
		credential, err = s.store.GetByID(ctx, userID, *id)
	} else {
		credential, err = s.store.GetLatest(ctx, userID)
	}
	if errors.Is(err, model.ErrNotFound) {
		return model.ProviderCredential{}, vault.Secret{}, model.ErrNoCredential
	}
	if err != nil {
		return model.ProviderCredential{}, vault.Secret{}, fmt.Errorf("failed to get credential: %w", err)
	}

	secret, err := s.vault.Decrypt(vault.Sealed{
		Nonce:      credential.Nonce,
		Ciphertext: credential.Ciphertext,
		Tag:        credential.Tag,
	})
	if err != nil {
		s.logger.Error("Credential service: failed to decrypt credential", "credential_id", credential.ID, "error", err)
		return model.ProviderCredential{}, vault.Secret{}, fmt.Errorf("failed to decrypt credential: %w", err)
	}

	return credential, secret, nil
}
