package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// RecordStore defines persistence operations for DNS records.
type RecordStore interface {
	Create(ctx context.Context, record DNSRecord) (DNSRecord, error)
	GetByID(ctx context.Context, userID string, id string) (DNSRecord, error)
	GetByUserID(ctx context.Context, userID string) ([]DNSRecord, error)
	Delete(ctx context.Context, userID string, id string) error
	// ApplySync stores a provider-confirmed content change and touches the
	// key that requested it, atomically.
	ApplySync(ctx context.Context, commit SyncCommit) error
}

// DNSRecord is the local copy of a provider record kept in sync by an agent.
// ID is the provider's record identifier.
type DNSRecord struct {
	ID           string
	UserID       string
	CredentialID *uuid.UUID
	ZoneID       string
	Name         string
	Content      string
	TTL          int
	Type         string
	Proxied      bool
	LastSyncedAt time.Time
	CreatedAt    time.Time
}

// CreateRecordParams contains parameters to create a record.
type CreateRecordParams struct {
	UserID       string
	CredentialID *uuid.UUID
	ZoneID       string
	Name         string
	Content      string
	TTL          int
	Type         string
	Proxied      bool
}

// SyncCommit is the write performed after the provider confirmed an update.
type SyncCommit struct {
	UserID   string
	RecordID string
	KeyID    uuid.UUID
	Content  string
	SyncedAt time.Time
}
