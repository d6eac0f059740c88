package service

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"strings"

	"github.com/dtroode/dnskeeper/internal/logger"
	"github.com/dtroode/dnskeeper/internal/model"
)

// Record types an agent can keep in sync.
const (
	RecordTypeA    = "A"
	RecordTypeAAAA = "AAAA"
)

// autoTTL is the provider's "automatic" TTL.
const autoTTL = 1

type Record struct {
	store       model.RecordStore
	credentials *Credential
	provider    model.DNSProvider
	logger      *logger.Logger
}

func NewRecord(
	store model.RecordStore,
	credentials *Credential,
	provider model.DNSProvider,
	logger *logger.Logger,
) *Record {
	return &Record{
		store:       store,
		credentials: credentials,
		provider:    provider,
		logger:      logger,
	}
}

// Create registers the record with the provider and stores the provider's id.
func (s *Record) Create(ctx context.Context, params model.CreateRecordParams) (model.DNSRecord, error) {
	if err := validateRecordParams(&params); err != nil {
		return model.DNSRecord{}, err
	}

	credential, token, err := s.credentials.Unseal(ctx, params.UserID, params.CredentialID)
	if err != nil {
		return model.DNSRecord{}, err
	}
	defer token.Wipe()

	body := model.ProviderRecord{
		Type:    params.Type,
		Name:    params.Name,
		Content: params.Content,
		TTL:     params.TTL,
		Proxied: params.Proxied,
	}
	providerID, err := s.provider.CreateRecord(ctx, token, params.ZoneID, body)
	if err != nil {
		return model.DNSRecord{}, fmt.Errorf("failed to create provider record: %w", err)
	}

	record, err := s.store.Create(ctx, model.DNSRecord{
		ID:           providerID,
		UserID:       params.UserID,
		CredentialID: &credential.ID,
		ZoneID:       params.ZoneID,
		Name:         params.Name,
		Content:      params.Content,
		TTL:          params.TTL,
		Type:         params.Type,
		Proxied:      params.Proxied,
	})
	if err != nil {
		if delErr := s.provider.DeleteRecord(ctx, token, params.ZoneID, providerID); delErr != nil {
			s.logger.Error("Record service: failed to remove orphaned provider record",
				"record_id", providerID, "error", delErr)
		}
		return model.DNSRecord{}, fmt.Errorf("failed to save record: %w", err)
	}

	s.logger.Info("Record service: record created", "user_id", params.UserID, "record_id", record.ID, "name", record.Name)

	return record, nil
}

func (s *Record) List(ctx context.Context, userID string) ([]model.DNSRecord, error) {
	records, err := s.store.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get records by user id: %w", err)
	}
	return records, nil
}

// Delete removes the record at the provider, then locally. A record already
// gone at the provider is still removed locally.
func (s *Record) Delete(ctx context.Context, userID, id string) error {
	record, err := s.store.GetByID(ctx, userID, id)
	if err != nil {
		return fmt.Errorf("failed to get record by id: %w", err)
	}

	_, token, err := s.credentials.Unseal(ctx, userID, record.CredentialID)
	switch {
	case errors.Is(err, model.ErrNoCredential):
		s.logger.Warn("Record service: no credential, removing local record only", "record_id", id)
	case err != nil:
		return err
	default:
		err = s.provider.DeleteRecord(ctx, token, record.ZoneID, record.ID)
		token.Wipe()
		if err != nil && !errors.Is(err, model.ErrNotFound) {
			return fmt.Errorf("failed to delete provider record: %w", err)
		}
	}

	if err := s.store.Delete(ctx, userID, id); err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}

	s.logger.Info("Record service: record deleted", "user_id", userID, "record_id", id)

	return nil
}

func validateRecordParams(p *model.CreateRecordParams) error {
	p.Name = strings.TrimSpace(p.Name)
	p.ZoneID = strings.TrimSpace(p.ZoneID)
	if p.Name == "" || p.ZoneID == "" {
		return fmt.Errorf("%w: zone_id and name are required", model.ErrInvalidInput)
	}
	if p.Type == "" {
		p.Type = RecordTypeA
	}
	if p.TTL == 0 {
		p.TTL = autoTTL
	}
	if p.TTL < 0 {
		return fmt.Errorf("%w: ttl must be positive", model.ErrInvalidInput)
	}
	content, err := canonicalAddress(p.Type, strings.TrimSpace(p.Content))
	if err != nil {
		return err
	}
	p.Content = content
	return nil
}

// canonicalAddress checks that content is an IP address of the family the
// record type holds and returns its canonical text form.
func canonicalAddress(recordType, content string) (string, error) {
	addr, err := netip.ParseAddr(content)
	if err != nil || addr.Zone() != "" {
		return "", fmt.Errorf("%w: %q is not an IP address", model.ErrInvalidInput, content)
	}
	switch recordType {
	case RecordTypeA:
		if !addr.Is4() {
			return "", fmt.Errorf("%w: A record requires an IPv4 address", model.ErrInvalidInput)
		}
	case RecordTypeAAAA:
		if !addr.Is6() || addr.Is4In6() {
			return "", fmt.Errorf("%w: AAAA record requires an IPv6 address", model.ErrInvalidInput)
		}
	default:
		return "", fmt.Errorf("%w: unsupported record type %q", model.ErrInvalidInput, recordType)
	}
	return addr.String(), nil
}

// sameAddress compares a stored record content with a canonical address.
// Content written before canonicalization is parsed first.
func sameAddress(stored, canonical string) bool {
	if addr, err := netip.ParseAddr(stored); err == nil {
		return addr.String() == canonical
	}
	return stored == canonical
}
