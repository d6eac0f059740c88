// Package apikey generates record-scoped API keys and hashes them for storage.
//
// A key has the form dgo_<prefix>_<secret>, where prefix is 12 and secret is
// 32 alphanumeric characters. The prefix is stored in clear text as a lookup
// index and carries no authentication weight.
package apikey

import (
	"crypto/rand"
	"errors"
	"fmt"
	"regexp"
)

const (
	// Scheme is the literal every key starts with.
	Scheme = "dgo_"

	PrefixLength = 12
	SecretLength = 32
)

const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

var ErrMalformedKey = errors.New("apikey: malformed key")

var keyPattern = regexp.MustCompile(`^dgo_([A-Za-z0-9]{12})_([A-Za-z0-9]{32})$`)

// Key is a freshly generated API key.
type Key struct {
	Full   string
	Prefix string
	Secret string
}

// Generate creates a new random key.
func Generate() (Key, error) {
	prefix, err := randomString(PrefixLength)
	if err != nil {
		return Key{}, fmt.Errorf("failed to generate prefix: %w", err)
	}
	secret, err := randomString(SecretLength)
	if err != nil {
		return Key{}, fmt.Errorf("failed to generate secret: %w", err)
	}

	return Key{
		Full:   Scheme + prefix + "_" + secret,
		Prefix: prefix,
		Secret: secret,
	}, nil
}

// Parse validates the shape of a presented key and returns its prefix.
func Parse(presented string) (string, error) {
	m := keyPattern.FindStringSubmatch(presented)
	if m == nil {
		return "", ErrMalformedKey
	}
	return m[1], nil
}

// randomString draws n characters uniformly from alphabet.
func randomString(n int) (string, error) {
	// largest multiple of len(alphabet) that fits in a byte
	const limit = 256 - 256%len(alphabet)

	out := make([]byte, 0, n)
	buf := make([]byte, n*2)
	for len(out) < n {
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			if int(b) >= limit {
				continue
			}
			out = append(out, alphabet[int(b)%len(alphabet)])
			if len(out) == n {
				break
			}
		}
	}
	return string(out), nil
}
