package vault

import (
	"bytes"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKeyHex = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func newTestVault(t *testing.T) *Vault {
	t.Helper()
	v, err := NewFromHex(testKeyHex)
	require.NoError(t, err)
	return v
}

func TestNew_KeyValidation(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantErr bool
	}{
		{name: "valid key", key: testKeyHex},
		{name: "valid key with whitespace", key: " " + testKeyHex + "\n"},
		{name: "short key", key: testKeyHex[:62], wantErr: true},
		{name: "long key", key: testKeyHex + "00", wantErr: true},
		{name: "not hex", key: strings.Repeat("zz", 32), wantErr: true},
		{name: "empty", key: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewFromHex(tt.key)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrKeyMisconfigured)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestVault_RoundTrip(t *testing.T) {
	v := newTestVault(t)

	random := make([]byte, 1024)
	_, err := rand.Read(random)
	require.NoError(t, err)

	for _, plaintext := range [][]byte{
		{},
		[]byte("a"),
		[]byte("cf-token-0123456789abcdef"),
		random,
	} {
		t.Run(fmt.Sprintf("len_%d", len(plaintext)), func(t *testing.T) {
			sealed, err := v.Encrypt(plaintext)
			require.NoError(t, err)
			assert.Len(t, sealed.Nonce, NonceSize)
			assert.Len(t, sealed.Tag, TagSize)
			assert.Len(t, sealed.Ciphertext, len(plaintext))

			secret, err := v.Decrypt(sealed)
			require.NoError(t, err)
			assert.Equal(t, string(plaintext), secret.Reveal())
		})
	}
}

func TestVault_FreshNoncePerCall(t *testing.T) {
	v := newTestVault(t)
	seen := make(map[string]struct{})

	for i := 0; i < 256; i++ {
		sealed, err := v.Encrypt([]byte("same plaintext"))
		require.NoError(t, err)
		_, dup := seen[string(sealed.Nonce)]
		require.False(t, dup, "nonce reused")
		seen[string(sealed.Nonce)] = struct{}{}
	}
}

func TestVault_TamperDetection(t *testing.T) {
	v := newTestVault(t)
	sealed, err := v.Encrypt([]byte("provider-secret"))
	require.NoError(t, err)

	flip := func(b []byte, bit int) []byte {
		out := bytes.Clone(b)
		out[bit/8] ^= 1 << (bit % 8)
		return out
	}

	for bit := 0; bit < len(sealed.Ciphertext)*8; bit++ {
		tampered := sealed
		tampered.Ciphertext = flip(sealed.Ciphertext, bit)
		secret, err := v.Decrypt(tampered)
		require.ErrorIs(t, err, ErrDecryptionFailure, "ciphertext bit %d", bit)
		require.True(t, secret.IsZero())
	}

	for bit := 0; bit < TagSize*8; bit++ {
		tampered := sealed
		tampered.Tag = flip(sealed.Tag, bit)
		_, err := v.Decrypt(tampered)
		require.ErrorIs(t, err, ErrDecryptionFailure, "tag bit %d", bit)
	}

	for bit := 0; bit < NonceSize*8; bit++ {
		tampered := sealed
		tampered.Nonce = flip(sealed.Nonce, bit)
		_, err := v.Decrypt(tampered)
		require.ErrorIs(t, err, ErrDecryptionFailure, "nonce bit %d", bit)
	}
}

func TestVault_DecryptRejectsBadSizes(t *testing.T) {
	v := newTestVault(t)
	sealed, err := v.Encrypt([]byte("x"))
	require.NoError(t, err)

	_, err = v.Decrypt(Sealed{Nonce: sealed.Nonce[:8], Ciphertext: sealed.Ciphertext, Tag: sealed.Tag})
	assert.ErrorIs(t, err, ErrDecryptionFailure)

	_, err = v.Decrypt(Sealed{Nonce: sealed.Nonce, Ciphertext: sealed.Ciphertext, Tag: sealed.Tag[:15]})
	assert.ErrorIs(t, err, ErrDecryptionFailure)
}

func TestVault_WrongKey(t *testing.T) {
	v := newTestVault(t)
	other, err := New(bytes.Repeat([]byte{7}, KeySize))
	require.NoError(t, err)

	sealed, err := v.Encrypt([]byte("provider-secret"))
	require.NoError(t, err)

	_, err = other.Decrypt(sealed)
	assert.ErrorIs(t, err, ErrDecryptionFailure)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("entropy exhausted") }

func TestVault_EncryptFailure(t *testing.T) {
	v := newTestVault(t)
	v.rand = failingReader{}

	_, err := v.Encrypt([]byte("x"))
	assert.ErrorIs(t, err, ErrEncryptionFailure)
}

func TestSecret_Redaction(t *testing.T) {
	s := NewSecret([]byte("super-secret-token"))

	assert.Equal(t, "super-secret-token", s.Reveal())
	assert.NotContains(t, fmt.Sprint(s), "super")
	assert.NotContains(t, fmt.Sprintf("%v %+v %#v %s", s, s, s, s), "super")

	var buf bytes.Buffer
	slog.New(slog.NewTextHandler(&buf, nil)).Info("using credential", "token", s)
	assert.NotContains(t, buf.String(), "super")
	assert.Contains(t, buf.String(), redacted)

	s.Wipe()
	assert.Equal(t, strings.Repeat("\x00", len("super-secret-token")), s.Reveal())
}
