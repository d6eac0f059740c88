package vault

import "log/slog"

const redacted = "[REDACTED]"

// Secret holds decrypted credential material. Its formatting and slog
// representations are redacted; Reveal is the only way to read it.
type Secret struct {
	value []byte
}

// NewSecret wraps plaintext. The slice is not copied.
func NewSecret(plaintext []byte) Secret {
	return Secret{value: plaintext}
}

// Reveal returns the plaintext.
func (s Secret) Reveal() string {
	return string(s.value)
}

// IsZero reports whether the secret is empty.
func (s Secret) IsZero() bool {
	return len(s.value) == 0
}

func (s Secret) String() string {
	return redacted
}

func (s Secret) GoString() string {
	return redacted
}

func (s Secret) LogValue() slog.Value {
	return slog.StringValue(redacted)
}

// Wipe zeroes the underlying buffer.
func (s Secret) Wipe() {
	for i := range s.value {
		s.value[i] = 0
	}
}
