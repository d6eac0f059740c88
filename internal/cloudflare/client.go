// Package cloudflare is a minimal client for the Cloudflare v4 DNS records API.
package cloudflare

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-logr/logr"

	"github.com/dtroode/dnskeeper/internal/model"
	"github.com/dtroode/dnskeeper/internal/vault"
)

// DefaultBaseURL is the public Cloudflare API endpoint.
const DefaultBaseURL = "https://api.cloudflare.com/client/v4"

const maxResponseBytes = 1 << 20

var _ model.DNSProvider = (*Client)(nil)

// Client implements model.DNSProvider against the Cloudflare API.
type Client struct {
	baseURL string
	client  *http.Client
	log     logr.Logger
}

// New creates a Client. A zero timeout leaves the http.Client without one,
// so callers should always pass a positive value.
func New(log logr.Logger, baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		log:     log,
	}
}

type recordPayload struct {
	Type    string `json:"type"`
	Name    string `json:"name"`
	Content string `json:"content"`
	TTL     int    `json:"ttl"`
	Proxied bool   `json:"proxied"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type envelope struct {
	Success bool       `json:"success"`
	Errors  []apiError `json:"errors"`
	Result  struct {
		ID string `json:"id"`
	} `json:"result"`
}

// CreateRecord creates a record in zoneID and returns its provider ID.
func (c *Client) CreateRecord(ctx context.Context, token vault.Secret, zoneID string, record model.ProviderRecord) (string, error) {
	path := "zones/" + url.PathEscape(zoneID) + "/dns_records"

	env, err := c.do(ctx, token, http.MethodPost, path, toPayload(record))
	if err != nil {
		return "", err
	}
	if env.Result.ID == "" {
		return "", fmt.Errorf("%w: cloudflare: create returned no record id", model.ErrProviderRejected)
	}

	c.log.Info("record created", "zone", zoneID, "record", env.Result.ID, "name", record.Name)
	return env.Result.ID, nil
}

// UpdateRecord overwrites recordID with record.
func (c *Client) UpdateRecord(ctx context.Context, token vault.Secret, zoneID, recordID string, record model.ProviderRecord) error {
	path := "zones/" + url.PathEscape(zoneID) + "/dns_records/" + url.PathEscape(recordID)

	env, err := c.do(ctx, token, http.MethodPut, path, toPayload(record))
	if err != nil {
		return err
	}
	if env.Result.ID != "" && env.Result.ID != recordID {
		return fmt.Errorf("%w: cloudflare: update confirmed record %q, want %q", model.ErrProviderRejected, env.Result.ID, recordID)
	}

	c.log.Info("record updated", "zone", zoneID, "record", recordID, "content", record.Content)
	return nil
}

// DeleteRecord removes recordID. A record that is already gone yields
// model.ErrNotFound.
func (c *Client) DeleteRecord(ctx context.Context, token vault.Secret, zoneID, recordID string) error {
	path := "zones/" + url.PathEscape(zoneID) + "/dns_records/" + url.PathEscape(recordID)

	if _, err := c.do(ctx, token, http.MethodDelete, path, nil); err != nil {
		return err
	}

	c.log.Info("record deleted", "zone", zoneID, "record", recordID)
	return nil
}

func toPayload(r model.ProviderRecord) recordPayload {
	return recordPayload{Type: r.Type, Name: r.Name, Content: r.Content, TTL: r.TTL, Proxied: r.Proxied}
}

// do executes one API call and validates the response envelope.
func (c *Client) do(ctx context.Context, token vault.Secret, method, path string, body any) (envelope, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return envelope{}, fmt.Errorf("cloudflare: marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+"/"+path, bodyReader)
	if err != nil {
		return envelope{}, fmt.Errorf("cloudflare: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token.Reveal())
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.log.V(1).Info("calling provider", "method", method, "path", path)

	resp, err := c.client.Do(req)
	if err != nil {
		return envelope{}, fmt.Errorf("%w: cloudflare: %s %s: %v", model.ErrProviderUnreachable, method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return envelope{}, fmt.Errorf("%w: cloudflare: read response: %v", model.ErrProviderUnreachable, err)
	}

	if method == http.MethodDelete && resp.StatusCode == http.StatusNotFound {
		return envelope{}, fmt.Errorf("cloudflare: %s %s: %w", method, path, model.ErrNotFound)
	}

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.log.Error(errors.New(describe(env.Errors)), "provider returned error status", "status", resp.StatusCode, "path", path)
		return envelope{}, fmt.Errorf("%w: cloudflare: status %d: %s", model.ErrProviderRejected, resp.StatusCode, describe(env.Errors))
	}
	if decodeErr != nil {
		return envelope{}, fmt.Errorf("%w: cloudflare: decode response: %v", model.ErrProviderRejected, decodeErr)
	}
	if !env.Success {
		return envelope{}, fmt.Errorf("%w: cloudflare: %s", model.ErrProviderRejected, describe(env.Errors))
	}

	return env, nil
}

func describe(errs []apiError) string {
	if len(errs) == 0 {
		return "no error details"
	}
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		msgs = append(msgs, fmt.Sprintf("%d: %s", e.Code, e.Message))
	}
	return strings.Join(msgs, "; ")
}
