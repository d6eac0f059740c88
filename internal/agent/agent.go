// Package agent implements the unattended dynamic DNS agent: one-time login
// through the device flow, API key setup and the periodic sync loop.
package agent

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/netip"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/term"

	"github.com/dtroode/dnskeeper/internal/agent/client"
	"github.com/dtroode/dnskeeper/internal/agent/device"
	"github.com/dtroode/dnskeeper/internal/agent/state"
	"github.com/dtroode/dnskeeper/internal/apikey"
	"github.com/dtroode/dnskeeper/internal/clock"
	"github.com/dtroode/dnskeeper/internal/logger"
)

const defaultCredentialName = "cloudflare"

// ErrNoAPIKey is returned by Sync before set-key has been run.
var ErrNoAPIKey = errors.New("no API key configured, run set-key first")

type DeviceAuthorizer interface {
	Authorize(ctx context.Context, display func(device.Authorization)) (string, error)
}

type Backend interface {
	Sync(ctx context.Context, apiKey, ip string, observedAt time.Time) (client.SyncResult, error)
	ListCredentials(ctx context.Context, token string) ([]client.Credential, error)
	CreateCredential(ctx context.Context, token, name, secret string) (client.Credential, error)
}

type IPResolver interface {
	PublicIP(ctx context.Context) (netip.Addr, error)
}

type Agent struct {
	device  DeviceAuthorizer
	backend Backend
	ip      IPResolver
	store   *state.Store
	clock   clock.Clock
	in      *bufio.Reader
	out     io.Writer
	logger  *logger.Logger

	readSecret func() ([]byte, error)
}

func New(
	device DeviceAuthorizer,
	backend Backend,
	ip IPResolver,
	store *state.Store,
	clk clock.Clock,
	in io.Reader,
	out io.Writer,
	logger *logger.Logger,
) *Agent {
	return &Agent{
		device:  device,
		backend: backend,
		ip:      ip,
		store:   store,
		clock:   clk,
		in:      bufio.NewReader(in),
		out:     out,
		logger:  logger,
		readSecret: func() ([]byte, error) {
			return term.ReadPassword(int(os.Stdin.Fd()))
		},
	}
}

// Login runs the device flow, stores the resulting token and makes sure the
// backend holds a provider credential for the user.
func (a *Agent) Login(ctx context.Context) error {
	signed, err := a.device.Authorize(ctx, func(auth device.Authorization) {
		fmt.Fprintf(a.out, "To authorize this agent, open %s and enter code %s\n", auth.VerificationURI, auth.UserCode)
		if auth.VerificationURIComplete != "" {
			fmt.Fprintf(a.out, "Or open %s\n", auth.VerificationURIComplete)
		}
	})
	if err != nil {
		return fmt.Errorf("device authorization failed: %w", err)
	}

	expiresAt := tokenExpiry(signed)
	if err := a.store.Update(func(s *state.State) {
		s.AccessToken = signed
		s.TokenType = "Bearer"
		s.ExpiresAt = expiresAt
	}); err != nil {
		return err
	}
	a.logger.Info("Agent: session saved", "path", a.store.Path())

	creds, err := a.backend.ListCredentials(ctx, signed)
	if err != nil {
		a.logger.Warn("Agent: could not check existing credentials", "error", err)
	}
	if err == nil && len(creds) > 0 {
		fmt.Fprintf(a.out, "Using existing provider credential %q\n", creds[0].Name)
		return nil
	}

	return a.promptCredential(ctx, signed)
}

func (a *Agent) promptCredential(ctx context.Context, token string) error {
	fmt.Fprintf(a.out, "Credential name [%s]: ", defaultCredentialName)
	name, err := a.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to read credential name: %w", err)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = defaultCredentialName
	}

	fmt.Fprint(a.out, "Cloudflare API token: ")
	secret, err := a.readSecret()
	fmt.Fprintln(a.out)
	if err != nil {
		return fmt.Errorf("failed to read provider token: %w", err)
	}
	if len(strings.TrimSpace(string(secret))) == 0 {
		return errors.New("provider token must not be empty")
	}

	cred, err := a.backend.CreateCredential(ctx, token, name, strings.TrimSpace(string(secret)))
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Provider credential %q stored\n", cred.Name)
	return nil
}

// SetKey validates and stores the API key used by Sync.
func (a *Agent) SetKey(key string) error {
	key = strings.TrimSpace(key)
	if _, err := apikey.Parse(key); err != nil {
		return fmt.Errorf("invalid API key: %w", err)
	}
	if err := a.store.Update(func(s *state.State) { s.APIKey = key }); err != nil {
		return err
	}
	a.logger.Info("Agent: API key saved", "path", a.store.Path())
	return nil
}

// Sync reports the host's current public IP once.
func (a *Agent) Sync(ctx context.Context) (client.SyncResult, error) {
	st, err := a.store.Load()
	if err != nil && !errors.Is(err, state.ErrNotFound) {
		return client.SyncResult{}, err
	}
	if st.APIKey == "" {
		return client.SyncResult{}, ErrNoAPIKey
	}

	addr, err := a.ip.PublicIP(ctx)
	if err != nil {
		return client.SyncResult{}, err
	}

	res, err := a.backend.Sync(ctx, st.APIKey, addr.String(), a.clock.Now())
	if err != nil {
		return client.SyncResult{}, err
	}
	if !res.Success {
		return res, fmt.Errorf("sync rejected: %s", res.Message)
	}

	a.logger.Info("Agent: sync completed", "ip", addr.String(), "updated", res.Updated, "message", res.Message)
	return res, nil
}

// Run syncs immediately and then every interval until ctx is done. Failed
// syncs are logged and retried on the next tick.
func (a *Agent) Run(ctx context.Context, interval time.Duration) error {
	a.logger.Info("Agent: starting sync loop", "interval", interval)
	for {
		if _, err := a.Sync(ctx); err != nil {
			if errors.Is(err, ErrNoAPIKey) {
				return err
			}
			a.logger.Error("Agent: sync failed", "error", err)
		}

		if ctx.Err() != nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		case <-a.clock.After(interval):
		}
	}
}

// tokenExpiry reads exp from the signed token without verifying it. The
// backend verifies; the agent only needs a hint for when to log in again.
func tokenExpiry(signed string) *time.Time {
	tok, _, err := jwt.NewParser().ParseUnverified(signed, jwt.MapClaims{})
	if err != nil {
		return nil
	}
	exp, err := tok.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil
	}
	t := exp.UTC()
	return &t
}
