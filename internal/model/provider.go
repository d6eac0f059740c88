package model

import (
	"context"

	"github.com/dtroode/dnskeeper/internal/vault"
)

// DNSProvider manages records at the upstream DNS host.
type DNSProvider interface {
	CreateRecord(ctx context.Context, token vault.Secret, zoneID string, record ProviderRecord) (string, error)
	UpdateRecord(ctx context.Context, token vault.Secret, zoneID, recordID string, record ProviderRecord) error
	DeleteRecord(ctx context.Context, token vault.Secret, zoneID, recordID string) error
}

// ProviderRecord is the record body sent to the provider.
type ProviderRecord struct {
	Type    string
	Name    string
	Content string
	TTL     int
	Proxied bool
}
