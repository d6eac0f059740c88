// Package client talks to the dnskeeper backend and the public IP echo
// service on behalf of the agent.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

const maxBodyBytes = 1 << 16

// APIError is a non-success backend response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend returned %d", e.Status)
	}
	return fmt.Sprintf("backend returned %d: %s", e.Status, e.Message)
}

// IsUnauthorized reports whether err is a 401 from the backend.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}

type SyncResult struct {
	Success bool   `json:"success"`
	Updated bool   `json:"updated"`
	Message string `json:"message"`
}

type Credential struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Backend is an HTTP client for the dnskeeper API.
type Backend struct {
	baseURL string
	http    *http.Client
}

func NewBackend(baseURL string, timeout time.Duration) *Backend {
	return &Backend{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// Sync reports ip as the current address of the record bound to apiKey.
func (b *Backend) Sync(ctx context.Context, apiKey, ip string, observedAt time.Time) (SyncResult, error) {
	body := struct {
		IPAddress  string `json:"ip_address"`
		TimeSynced string `json:"time_synced"`
	}{
		IPAddress:  ip,
		TimeSynced: observedAt.UTC().Format(time.RFC3339),
	}

	var out SyncResult
	if err := b.do(ctx, http.MethodPut, "/sync", apiKey, body, &out); err != nil {
		return SyncResult{}, fmt.Errorf("failed to sync: %w", err)
	}
	return out, nil
}

// ListCredentials returns the user's stored provider credentials.
func (b *Backend) ListCredentials(ctx context.Context, token string) ([]Credential, error) {
	var out []Credential
	if err := b.do(ctx, http.MethodGet, "/credentials", token, nil, &out); err != nil {
		return nil, fmt.Errorf("failed to list credentials: %w", err)
	}
	return out, nil
}

// CreateCredential stores a provider API token for the user.
func (b *Backend) CreateCredential(ctx context.Context, token, name, secret string) (Credential, error) {
	body := map[string]string{"name": name, "token": secret}

	var out Credential
	if err := b.do(ctx, http.MethodPost, "/credentials", token, body, &out); err != nil {
		return Credential{}, fmt.Errorf("failed to create credential: %w", err)
	}
	return out, nil
}

func (b *Backend) do(ctx context.Context, method, path, bearer string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, b.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+bearer)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := b.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(data, &e)
		return &APIError{Status: resp.StatusCode, Message: e.Error}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("unexpected response body: %w", err)
	}
	return nil
}
