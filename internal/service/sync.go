package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dtroode/dnskeeper/internal/clock"
	"github.com/dtroode/dnskeeper/internal/logger"
	"github.com/dtroode/dnskeeper/internal/model"
)

// KeyVerifier authenticates a presented API key.
type KeyVerifier interface {
	Verify(ctx context.Context, presented string) (model.APIKey, error)
}

// Sync reconciles a record with the address an agent reports.
type Sync struct {
	keys        KeyVerifier
	records     model.RecordStore
	credentials *Credential
	provider    model.DNSProvider
	clock       clock.Clock
	logger      *logger.Logger
}

func NewSync(
	keys KeyVerifier,
	records model.RecordStore,
	credentials *Credential,
	provider model.DNSProvider,
	clk clock.Clock,
	logger *logger.Logger,
) *Sync {
	return &Sync{
		keys:        keys,
		records:     records,
		credentials: credentials,
		provider:    provider,
		clock:       clk,
		logger:      logger,
	}
}

// Sync points the key's record at req.ClaimedIP. When the stored content
// already matches nothing is called or written. Local state only changes
// after the provider confirmed the update.
func (s *Sync) Sync(ctx context.Context, req model.SyncRequest) (model.SyncOutcome, error) {
	key, err := s.keys.Verify(ctx, req.APIKey)
	if err != nil {
		return model.SyncOutcome{}, err
	}

	record, err := s.records.GetByID(ctx, key.UserID, key.RecordID)
	if errors.Is(err, model.ErrNotFound) {
		s.logger.Warn("Sync service: key bound to missing record", "key_id", key.ID, "record_id", key.RecordID)
		return model.SyncOutcome{}, model.ErrNoBoundRecord
	}
	if err != nil {
		return model.SyncOutcome{}, fmt.Errorf("failed to get record by id: %w", err)
	}

	claimed, err := canonicalAddress(record.Type, strings.TrimSpace(req.ClaimedIP))
	if err != nil {
		return model.SyncOutcome{}, err
	}

	if sameAddress(record.Content, claimed) {
		s.logger.Debug("Sync service: address unchanged", "record_id", record.ID, "ip", claimed)
		return model.SyncOutcome{Success: true, Updated: false, Message: "IP address unchanged"}, nil
	}

	_, token, err := s.credentials.Unseal(ctx, key.UserID, record.CredentialID)
	if err != nil {
		return model.SyncOutcome{}, err
	}
	defer token.Wipe()

	err = s.provider.UpdateRecord(ctx, token, record.ZoneID, record.ID, model.ProviderRecord{
		Type:    record.Type,
		Name:    record.Name,
		Content: claimed,
		TTL:     record.TTL,
		Proxied: record.Proxied,
	})
	if err != nil {
		s.logger.Error("Sync service: provider update failed", "record_id", record.ID, "error", err)
		if errors.Is(err, model.ErrProviderUnreachable) {
			return model.SyncOutcome{}, err
		}
		if !errors.Is(err, model.ErrProviderRejected) {
			err = fmt.Errorf("%w: %v", model.ErrProviderRejected, err)
		}
		return model.SyncOutcome{}, err
	}

	commit := model.SyncCommit{
		UserID:   key.UserID,
		RecordID: record.ID,
		KeyID:    key.ID,
		Content:  claimed,
		SyncedAt: s.clock.Now().UTC(),
	}
	if err := s.records.ApplySync(ctx, commit); err != nil {
		s.logger.Error("Sync service: provider updated but local write failed", "record_id", record.ID, "error", err)
		return model.SyncOutcome{}, fmt.Errorf("%w: %v", model.ErrPersistFailure, err)
	}

	s.logger.Info("Sync service: record updated",
		"record_id", record.ID, "from", record.Content, "to", claimed, "observed_at", req.ObservedAt)

	return model.SyncOutcome{
		Success: true,
		Updated: true,
		Message: fmt.Sprintf("IP address updated from %s to %s", record.Content, claimed),
	}, nil
}
