// Package vault encrypts provider credentials at rest with AES-256-GCM.
package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	// KeySize is the master key length in bytes.
	KeySize = 32
	// NonceSize is the per-encryption nonce length in bytes.
	NonceSize = 12
	// TagSize is the GCM authentication tag length in bytes.
	TagSize = 16
)

var (
	ErrKeyMisconfigured  = errors.New("vault: encryption key is misconfigured")
	ErrEncryptionFailure = errors.New("vault: encryption failed")
	ErrDecryptionFailure = errors.New("vault: decryption failed")
)

// Sealed is an encrypted secret split into the three fields it is persisted as.
type Sealed struct {
	Nonce      []byte
	Ciphertext []byte
	Tag        []byte
}

// Vault seals and opens secrets under a single master key.
type Vault struct {
	aead cipher.AEAD
	rand io.Reader
}

// New creates a Vault from a raw 256-bit key.
func New(key []byte) (*Vault, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: want %d bytes, got %d", ErrKeyMisconfigured, KeySize, len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyMisconfigured, err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyMisconfigured, err)
	}

	return &Vault{aead: aead, rand: rand.Reader}, nil
}

// NewFromHex creates a Vault from a hex-encoded key (64 characters).
func NewFromHex(encoded string) (*Vault, error) {
	key, err := hex.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return nil, fmt.Errorf("%w: key is not valid hex", ErrKeyMisconfigured)
	}
	return New(key)
}

// Encrypt seals plaintext under a fresh random nonce.
func (v *Vault) Encrypt(plaintext []byte) (Sealed, error) {
	nonce := make([]byte, NonceSize)
	if _, err := io.ReadFull(v.rand, nonce); err != nil {
		return Sealed{}, fmt.Errorf("%w: read nonce: %v", ErrEncryptionFailure, err)
	}

	out := v.aead.Seal(nil, nonce, plaintext, nil)
	split := len(out) - TagSize

	return Sealed{
		Nonce:      nonce,
		Ciphertext: out[:split:split],
		Tag:        out[split:],
	}, nil
}

// Decrypt opens a sealed secret. Any corruption of nonce, ciphertext or tag
// yields ErrDecryptionFailure and no plaintext.
func (v *Vault) Decrypt(s Sealed) (Secret, error) {
	if len(s.Nonce) != NonceSize || len(s.Tag) != TagSize {
		return Secret{}, ErrDecryptionFailure
	}

	joined := make([]byte, 0, len(s.Ciphertext)+TagSize)
	joined = append(joined, s.Ciphertext...)
	joined = append(joined, s.Tag...)

	plaintext, err := v.aead.Open(nil, s.Nonce, joined, nil)
	if err != nil {
		return Secret{}, ErrDecryptionFailure
	}

	return NewSecret(plaintext), nil
}
