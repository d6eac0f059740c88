package token

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/dtroode/dnskeeper/internal/logger"
)

const maxKeySetBytes = 1 << 20

// jwk is a single entry of a published key set.
type jwk struct {
	Kty string `json:"kty"`
	Crv string `json:"crv"`
	X   string `json:"x"`
	Kid string `json:"kid"`
}

type jwks struct {
	Keys []jwk `json:"keys"`
}

// KeySet caches the issuer's Ed25519 verifying keys by kid. Entries are
// fetched lazily on the first unknown kid and are never removed or replaced.
type KeySet struct {
	url    string
	client *http.Client
	logger *logger.Logger

	mu   sync.RWMutex
	keys map[string]ed25519.PublicKey

	fetches singleflight.Group
}

// NewKeySet creates an empty cache backed by the key set published at url.
// The client must carry a timeout.
func NewKeySet(url string, client *http.Client, logger *logger.Logger) *KeySet {
	return &KeySet{
		url:    url,
		client: client,
		logger: logger,
		keys:   make(map[string]ed25519.PublicKey),
	}
}

// Lookup returns the key for kid, fetching the key set once on a miss.
func (ks *KeySet) Lookup(ctx context.Context, kid string) (ed25519.PublicKey, error) {
	if key, ok := ks.cached(kid); ok {
		return key, nil
	}

	// Concurrent misses share one fetch. It is detached from the leader's
	// cancellation; the http.Client timeout bounds it.
	fetch := ks.fetches.DoChan("jwks", func() (any, error) {
		return nil, ks.refresh(context.WithoutCancel(ctx))
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-fetch:
		if res.Err != nil {
			return nil, res.Err
		}
	}

	if key, ok := ks.cached(kid); ok {
		return key, nil
	}
	return nil, ErrUnknownKeyID
}

// Insert adds key under kid unless kid is already present. It reports
// whether the key was stored.
func (ks *KeySet) Insert(kid string, key ed25519.PublicKey) bool {
	ks.mu.Lock()
	defer ks.mu.Unlock()

	if _, ok := ks.keys[kid]; ok {
		return false
	}
	ks.keys[kid] = key
	return true
}

// Len returns the number of cached keys.
func (ks *KeySet) Len() int {
	ks.mu.RLock()
	defer ks.mu.RUnlock()
	return len(ks.keys)
}

func (ks *KeySet) cached(kid string) (ed25519.PublicKey, bool) {
	ks.mu.RLock()
	defer ks.mu.RUnlock()
	key, ok := ks.keys[kid]
	return key, ok
}

func (ks *KeySet) refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ks.url, nil)
	if err != nil {
		return fmt.Errorf("%w: build request: %v", ErrIssuerUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := ks.client.Do(req)
	if err != nil {
		ks.logger.Error("Key set: fetch failed", "url", ks.url, "error", err)
		return fmt.Errorf("%w: %v", ErrIssuerUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		ks.logger.Error("Key set: unexpected status", "url", ks.url, "status", resp.StatusCode)
		return fmt.Errorf("%w: status %d", ErrIssuerUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxKeySetBytes))
	if err != nil {
		return fmt.Errorf("%w: read body: %v", ErrIssuerUnavailable, err)
	}

	var set jwks
	if err := json.NewDecoder(bytes.NewReader(body)).Decode(&set); err != nil {
		return fmt.Errorf("%w: decode key set: %v", ErrIssuerUnavailable, err)
	}

	added := 0
	for _, k := range set.Keys {
		key, ok := ks.parseKey(k)
		if !ok {
			continue
		}
		if ks.Insert(k.Kid, key) {
			added++
		}
	}

	ks.logger.Info("Key set: refreshed", "published", len(set.Keys), "added", added, "cached", ks.Len())
	return nil
}

func (ks *KeySet) parseKey(k jwk) (ed25519.PublicKey, bool) {
	if k.Kty != "OKP" || k.Crv != "Ed25519" || k.Kid == "" {
		ks.logger.Debug("Key set: skipping unsupported key", "kid", k.Kid, "kty", k.Kty, "crv", k.Crv)
		return nil, false
	}

	raw, err := base64.RawURLEncoding.DecodeString(k.X)
	if err != nil || len(raw) != ed25519.PublicKeySize {
		ks.logger.Warn("Key set: skipping key with invalid x coordinate", "kid", k.Kid)
		return nil, false
	}
	if hasSmallOrder(raw) {
		ks.logger.Warn("Key set: skipping small-order key", "kid", k.Kid)
		return nil, false
	}

	return ed25519.PublicKey(raw), true
}
