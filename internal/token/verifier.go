// Package token verifies EdDSA bearer tokens issued by the external identity
// provider against its published key set.
package token

import (
	"context"
	"crypto/ed25519"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dtroode/dnskeeper/internal/clock"
)

type header struct {
	Alg string `json:"alg"`
	Kid string `json:"kid"`
}

// Verifier checks signature, shape and expiry of bearer tokens.
type Verifier struct {
	keys   *KeySet
	clock  clock.Clock
	parser *jwt.Parser
}

// NewVerifier creates a Verifier that resolves keys through keys.
func NewVerifier(keys *KeySet, clk clock.Clock) *Verifier {
	return &Verifier{
		keys:   keys,
		clock:  clk,
		parser: jwt.NewParser(),
	}
}

// Verify validates raw and returns its claims.
func (v *Verifier) Verify(ctx context.Context, raw string) (Claims, error) {
	parts := strings.Split(raw, ".")
	if len(parts) != 3 {
		return Claims{}, ErrMalformedHeader
	}

	headerJSON, err := v.parser.DecodeSegment(parts[0])
	if err != nil {
		return Claims{}, fmt.Errorf("%w: decode header: %v", ErrMalformedHeader, err)
	}
	var h header
	if err := json.Unmarshal(headerJSON, &h); err != nil {
		return Claims{}, fmt.Errorf("%w: parse header: %v", ErrMalformedHeader, err)
	}

	if jwt.GetSigningMethod(h.Alg) != jwt.SigningMethodEdDSA {
		return Claims{}, fmt.Errorf("%w: %q", ErrAlgorithmMismatch, h.Alg)
	}
	if h.Kid == "" {
		return Claims{}, fmt.Errorf("%w: missing kid", ErrMalformedHeader)
	}

	key, err := v.keys.Lookup(ctx, h.Kid)
	if err != nil {
		return Claims{}, err
	}

	sig, err := v.parser.DecodeSegment(parts[2])
	if err != nil || len(sig) != ed25519.SignatureSize {
		return Claims{}, ErrInvalidSignature
	}
	if hasSmallOrder(sig[:32]) {
		return Claims{}, ErrInvalidSignature
	}
	if err := jwt.SigningMethodEdDSA.Verify(parts[0]+"."+parts[1], sig, key); err != nil {
		return Claims{}, ErrInvalidSignature
	}

	payload, err := v.parser.DecodeSegment(parts[1])
	if err != nil {
		return Claims{}, fmt.Errorf("%w: decode payload: %v", ErrMalformedClaims, err)
	}
	claims, err := parseClaims(payload)
	if err != nil {
		return Claims{}, err
	}

	if !v.clock.Now().Before(claims.ExpiresAt) {
		return Claims{}, ErrTokenExpired
	}

	return claims, nil
}
