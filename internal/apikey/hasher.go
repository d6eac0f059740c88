package apikey

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	saltLength = 16
	hashLength = 32
)

var ErrInvalidHash = errors.New("apikey: invalid encoded hash")

// Params are argon2id cost parameters.
type Params struct {
	Time    uint32
	MemKiB  uint32
	Threads uint8
}

// DefaultParams match the OWASP argon2id baseline.
var DefaultParams = Params{Time: 2, MemKiB: 19 * 1024, Threads: 1}

// Hasher produces and checks argon2id hashes in PHC string format.
type Hasher struct {
	params Params
}

// NewHasher creates a Hasher. Zero fields fall back to DefaultParams.
func NewHasher(params Params) *Hasher {
	if params.Time == 0 {
		params.Time = DefaultParams.Time
	}
	if params.MemKiB == 0 {
		params.MemKiB = DefaultParams.MemKiB
	}
	if params.Threads == 0 {
		params.Threads = DefaultParams.Threads
	}
	return &Hasher{params: params}
}

// Hash returns the PHC-encoded argon2id hash of key under a random salt.
func (h *Hasher) Hash(key string) (string, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	sum := argon2.IDKey([]byte(key), salt, h.params.Time, h.params.MemKiB, h.params.Threads, hashLength)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, h.params.MemKiB, h.params.Time, h.params.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(sum),
	), nil
}

// Compare recomputes the hash of key with the parameters and salt stored in
// encoded and compares the digests in constant time.
func (h *Hasher) Compare(key, encoded string) (bool, error) {
	params, salt, want, err := decodeHash(encoded)
	if err != nil {
		return false, err
	}

	got := argon2.IDKey([]byte(key), salt, params.Time, params.MemKiB, params.Threads, uint32(len(want)))
	return subtle.ConstantTimeCompare(got, want) == 1, nil
}

// Burn spends one hash computation with the configured parameters. It keeps
// lookups of unknown keys as slow as lookups of known ones.
func (h *Hasher) Burn(key string) {
	_ = argon2.IDKey([]byte(key), make([]byte, saltLength), h.params.Time, h.params.MemKiB, h.params.Threads, hashLength)
}

func decodeHash(encoded string) (Params, []byte, []byte, error) {
	// "", "argon2id", "v=19", "m=..,t=..,p=..", salt, hash
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return Params{}, nil, nil, ErrInvalidHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return Params{}, nil, nil, ErrInvalidHash
	}

	var p Params
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.MemKiB, &p.Time, &p.Threads); err != nil {
		return Params{}, nil, nil, ErrInvalidHash
	}
	if p.MemKiB == 0 || p.Time == 0 || p.Threads == 0 {
		return Params{}, nil, nil, ErrInvalidHash
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(salt) == 0 {
		return Params{}, nil, nil, ErrInvalidHash
	}
	sum, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(sum) == 0 {
		return Params{}, nil, nil, ErrInvalidHash
	}

	return p, salt, sum, nil
}
