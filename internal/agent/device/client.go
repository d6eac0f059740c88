// Package device implements the agent side of the OAuth 2.0 device
// authorization grant (RFC 8628).
package device

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

	"github.com/dtroode/dnskeeper/internal/clock"
	"github.com/dtroode/dnskeeper/internal/logger"
)

const (
	grantType       = "urn:ietf:params:oauth:grant-type:device_code"
	defaultInterval = 5 * time.Second
	slowDownStep    = 5 * time.Second
	maxBodyBytes    = 1 << 16
)

// State is a step of the authorization flow.
type State int

const (
	StateRequested State = iota
	StateDisplayed
	StatePolling
	StateGranted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateRequested:
		return "requested"
	case StateDisplayed:
		return "displayed"
	case StatePolling:
		return "polling"
	case StateGranted:
		return "granted"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Authorization is the issuer's answer to a device code request.
type Authorization struct {
	DeviceCode              string `json:"device_code"`
	UserCode                string `json:"user_code"`
	VerificationURI         string `json:"verification_uri"`
	VerificationURIComplete string `json:"verification_uri_complete,omitempty"`
	ExpiresIn               int    `json:"expires_in"`
	Interval                int    `json:"interval"`
}

// Session is the short-lived grant returned once the user approves.
type Session struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

type Client struct {
	issuerURL string
	clientID  string
	scope     string
	http      *http.Client
	clock     clock.Clock
	logger    *logger.Logger
}

func NewClient(issuerURL, clientID, scope string, timeout time.Duration, clk clock.Clock, logger *logger.Logger) *Client {
	return &Client{
		issuerURL: strings.TrimRight(issuerURL, "/"),
		clientID:  clientID,
		scope:     scope,
		http:      &http.Client{Timeout: timeout},
		clock:     clk,
		logger:    logger,
	}
}

// Authorize runs the whole flow and returns the long-lived signed token.
// display is called once with the code the user has to enter.
func (c *Client) Authorize(ctx context.Context, display func(Authorization)) (string, error) {
	auth, err := c.Request(ctx)
	if err != nil {
		c.transition(StateFailed, "error", err)
		return "", err
	}
	c.transition(StateRequested, "expires_in", auth.ExpiresIn, "interval", auth.Interval)

	display(auth)
	c.transition(StateDisplayed, "user_code", auth.UserCode)

	c.transition(StatePolling)
	session, err := c.Poll(ctx, auth)
	if err != nil {
		c.transition(StateFailed, "error", err)
		return "", err
	}

	signed, err := c.Exchange(ctx, session)
	if err != nil {
		c.transition(StateFailed, "error", err)
		return "", err
	}
	c.transition(StateGranted)
	return signed, nil
}

// Request asks the issuer for a device and user code pair.
func (c *Client) Request(ctx context.Context) (Authorization, error) {
	body := map[string]string{"client_id": c.clientID, "scope": c.scope}

	resp, err := c.post(ctx, "/device/code", body)
	if err != nil {
		return Authorization{}, fmt.Errorf("failed to request device code: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Authorization{}, fmt.Errorf("failed to request device code: %w", readError(resp))
	}

	var auth Authorization
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&auth); err != nil {
		return Authorization{}, fmt.Errorf("failed to decode device code response: %w", err)
	}
	if auth.DeviceCode == "" || auth.UserCode == "" || auth.VerificationURI == "" {
		return Authorization{}, errors.New("device code response is missing required fields")
	}
	return auth, nil
}

// Poll waits for the user to approve auth. Polling stops with ErrTimeout
// once the next wait would end past the device code's expiry; the first
// attempt is always made.
func (c *Client) Poll(ctx context.Context, auth Authorization) (Session, error) {
	interval := time.Duration(auth.Interval) * time.Second
	if interval <= 0 {
		interval = defaultInterval
	}
	deadline := c.clock.Now().Add(time.Duration(auth.ExpiresIn) * time.Second)

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return Session{}, err
		}
		if attempt > 1 && c.clock.Now().Add(interval).After(deadline) {
			return Session{}, ErrTimeout
		}
		select {
		case <-ctx.Done():
			return Session{}, ctx.Err()
		case <-c.clock.After(interval):
		}

		session, err := c.requestToken(ctx, auth.DeviceCode)
		switch {
		case err == nil:
			return session, nil
		case errors.Is(err, errAuthorizationPending):
			c.logger.Debug("Device flow: authorization pending", "attempt", attempt)
		case errors.Is(err, errSlowDown):
			interval += slowDownStep
			c.logger.Debug("Device flow: slowing down", "attempt", attempt, "interval", interval)
		case errors.Is(err, errTransient):
			c.logger.Warn("Device flow: token poll failed, retrying", "attempt", attempt, "error", err)
		default:
			return Session{}, err
		}
	}
}

// Exchange trades the device session for the long-lived signed token.
func (c *Client) Exchange(ctx context.Context, session Session) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.issuerURL+"/token", nil)
	if err != nil {
		return "", fmt.Errorf("failed to build token exchange request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+session.AccessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to exchange session: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to exchange session: %w", readError(resp))
	}

	var out struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode token exchange response: %w", err)
	}
	if out.Token == "" {
		return "", errors.New("token exchange returned no token")
	}
	return out.Token, nil
}

func (c *Client) requestToken(ctx context.Context, deviceCode string) (Session, error) {
	body := map[string]string{
		"grant_type":  grantType,
		"device_code": deviceCode,
		"client_id":   c.clientID,
	}

	resp, err := c.post(ctx, "/device/token", body)
	if err != nil {
		return Session{}, fmt.Errorf("%w: %w", errTransient, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return Session{}, fmt.Errorf("%w: %w", errTransient, err)
	}

	if resp.StatusCode == http.StatusOK {
		var session Session
		if err := json.Unmarshal(data, &session); err != nil || session.AccessToken == "" {
			return Session{}, fmt.Errorf("%w: malformed token response", errTransient)
		}
		return session, nil
	}

	var oauthErr struct {
		Error       string `json:"error"`
		Description string `json:"error_description"`
	}
	if err := json.Unmarshal(data, &oauthErr); err != nil || oauthErr.Error == "" {
		return Session{}, fmt.Errorf("%w: status %d", errTransient, resp.StatusCode)
	}
	return Session{}, classify(oauthErr.Error, oauthErr.Description)
}

func (c *Client) post(ctx context.Context, path string, body any) (*http.Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.issuerURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return c.http.Do(req)
}

func (c *Client) transition(s State, args ...any) {
	c.logger.Info("Device flow: "+s.String(), args...)
}

// readError turns a non-success issuer response into an error, preferring
// the OAuth error object when the body carries one.
func readError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	var oauthErr struct {
		Error       string `json:"error"`
		Description string `json:"error_description"`
	}
	if json.Unmarshal(data, &oauthErr) == nil && oauthErr.Error != "" {
		return &IssuerError{Code: oauthErr.Error, Description: oauthErr.Description}
	}
	return fmt.Errorf("unexpected status %d", resp.StatusCode)
}
