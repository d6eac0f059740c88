package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dtroode/dnskeeper/internal/model"
)

const maxBodyBytes = 1 << 16

type recordResponse struct {
	ID           string     `json:"id"`
	CredentialID *uuid.UUID `json:"credential_id,omitempty"`
	ZoneID       string     `json:"zone_id"`
	Name         string     `json:"name"`
	Content      string     `json:"content"`
	TTL          int        `json:"ttl"`
	Type         string     `json:"type"`
	Proxied      bool       `json:"proxied"`
	LastSyncedAt time.Time  `json:"last_synced_at"`
	CreatedAt    time.Time  `json:"created_at"`
}

func toRecordResponse(r model.DNSRecord) recordResponse {
	return recordResponse{
		ID:           r.ID,
		CredentialID: r.CredentialID,
		ZoneID:       r.ZoneID,
		Name:         r.Name,
		Content:      r.Content,
		TTL:          r.TTL,
		Type:         r.Type,
		Proxied:      r.Proxied,
		LastSyncedAt: r.LastSyncedAt,
		CreatedAt:    r.CreatedAt,
	}
}

type createRecordRequest struct {
	CredentialID *uuid.UUID `json:"credential_id"`
	ZoneID       string     `json:"zone_id"`
	Name         string     `json:"name"`
	Content      string     `json:"content"`
	TTL          int        `json:"ttl"`
	Type         string     `json:"type"`
	Proxied      bool       `json:"proxied"`
}

type credentialResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toCredentialResponse(c model.ProviderCredential) credentialResponse {
	return credentialResponse{
		ID:        c.ID,
		Name:      c.Name,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

type createCredentialRequest struct {
	Name  string `json:"name"`
	Token string `json:"token"`
}

type apiKeyResponse struct {
	ID         uuid.UUID  `json:"id"`
	RecordID   string     `json:"record_id"`
	RecordName string     `json:"record_name,omitempty"`
	Prefix     string     `json:"prefix"`
	Name       string     `json:"name"`
	LastUsed   *time.Time `json:"last_used"`
	CreatedAt  time.Time  `json:"created_at"`
}

func toAPIKeyResponse(k model.APIKey) apiKeyResponse {
	return apiKeyResponse{
		ID:         k.ID,
		RecordID:   k.RecordID,
		RecordName: k.RecordName,
		Prefix:     k.Prefix,
		Name:       k.Name,
		LastUsed:   k.LastUsed,
		CreatedAt:  k.CreatedAt,
	}
}

type issuedAPIKeyResponse struct {
	apiKeyResponse
	Key string `json:"key"`
}

type createAPIKeyRequest struct {
	Name     string `json:"name"`
	RecordID string `json:"record_id"`
}

type syncRequest struct {
	IPAddress  string     `json:"ip_address"`
	TimeSynced syncedTime `json:"time_synced"`
}

type syncResponse struct {
	Success bool   `json:"success"`
	Updated bool   `json:"updated"`
	Message string `json:"message"`
}

// syncedTime accepts RFC 3339 timestamps and zone-less ones, read as UTC.
type syncedTime struct {
	time.Time
}

var syncedTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

func (t *syncedTime) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	for _, layout := range syncedTimeLayouts {
		if parsed, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("unrecognized time %q", s)
}

// decode reads a JSON body into v. Unknown fields are rejected.
func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %s", model.ErrInvalidInput, strings.TrimPrefix(err.Error(), "json: "))
	}
	return nil
}
