package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/dtroode/dnskeeper/internal/apikey"
	"github.com/dtroode/dnskeeper/internal/logger"
	"github.com/dtroode/dnskeeper/internal/model"
)

// maxIssueAttempts bounds retries on prefix collisions.
const maxIssueAttempts = 3

type APIKey struct {
	keys    model.APIKeyStore
	records model.RecordStore
	hasher  *apikey.Hasher
	logger  *logger.Logger
}

func NewAPIKey(keys model.APIKeyStore, records model.RecordStore, hasher *apikey.Hasher, logger *logger.Logger) *APIKey {
	return &APIKey{
		keys:    keys,
		records: records,
		hasher:  hasher,
		logger:  logger,
	}
}

// Issue creates a key scoped to one of the user's records. The full key is
// only available in the result.
func (s *APIKey) Issue(ctx context.Context, userID, name, recordID string) (model.IssuedAPIKey, error) {
	if strings.TrimSpace(recordID) == "" {
		return model.IssuedAPIKey{}, fmt.Errorf("%w: record_id is required", model.ErrInvalidInput)
	}

	record, err := s.records.GetByID(ctx, userID, recordID)
	if err != nil {
		return model.IssuedAPIKey{}, fmt.Errorf("failed to get record by id: %w", err)
	}

	for attempt := 1; ; attempt++ {
		key, err := apikey.Generate()
		if err != nil {
			return model.IssuedAPIKey{}, fmt.Errorf("failed to generate api key: %w", err)
		}

		hash, err := s.hasher.Hash(key.Full)
		if err != nil {
			return model.IssuedAPIKey{}, fmt.Errorf("failed to hash api key: %w", err)
		}

		stored, err := s.keys.Create(ctx, model.APIKey{
			ID:         uuid.New(),
			UserID:     userID,
			RecordID:   record.ID,
			Prefix:     key.Prefix,
			SecretHash: hash,
			Name:       name,
		})
		if errors.Is(err, model.ErrConflict) && attempt < maxIssueAttempts {
			s.logger.Warn("API key service: prefix collision, regenerating", "attempt", attempt)
			continue
		}
		if err != nil {
			return model.IssuedAPIKey{}, fmt.Errorf("failed to save api key: %w", err)
		}

		s.logger.Info("API key service: key issued", "user_id", userID, "key_id", stored.ID, "record_id", record.ID)

		stored.RecordName = record.Name
		return model.IssuedAPIKey{APIKey: stored, Key: key.Full}, nil
	}
}

func (s *APIKey) List(ctx context.Context, userID string) ([]model.APIKey, error) {
	keys, err := s.keys.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get api keys by user id: %w", err)
	}
	return keys, nil
}

func (s *APIKey) Delete(ctx context.Context, userID string, id uuid.UUID) error {
	if err := s.keys.Delete(ctx, userID, id); err != nil {
		return fmt.Errorf("failed to delete api key: %w", err)
	}
	s.logger.Info("API key service: key deleted", "user_id", userID, "key_id", id)
	return nil
}

// Verify authenticates a presented key. Malformed keys, unknown prefixes and
// wrong secrets all return model.ErrUnauthorized.
func (s *APIKey) Verify(ctx context.Context, presented string) (model.APIKey, error) {
	prefix, err := apikey.Parse(presented)
	if err != nil {
		return model.APIKey{}, model.ErrUnauthorized
	}

	key, err := s.keys.GetByPrefix(ctx, prefix)
	if errors.Is(err, model.ErrNotFound) {
		s.hasher.Burn(presented)
		return model.APIKey{}, model.ErrUnauthorized
	}
	if err != nil {
		return model.APIKey{}, fmt.Errorf("failed to get api key by prefix: %w", err)
	}

	ok, err := s.hasher.Compare(presented, key.SecretHash)
	if err != nil {
		s.logger.Error("API key service: stored hash is unreadable", "key_id", key.ID, "error", err)
		return model.APIKey{}, model.ErrUnauthorized
	}
	if !ok {
		return model.APIKey{}, model.ErrUnauthorized
	}

	return key, nil
}
