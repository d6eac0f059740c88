package token

import "errors"

var (
	ErrMissingHeader     = errors.New("token: missing authorization header")
	ErrMalformedHeader   = errors.New("token: malformed token")
	ErrUnknownKeyID      = errors.New("token: unknown key id")
	ErrAlgorithmMismatch = errors.New("token: unexpected signing algorithm")
	ErrInvalidSignature  = errors.New("token: invalid signature")
	ErrMalformedClaims   = errors.New("token: malformed claims")
	ErrTokenExpired      = errors.New("token: token expired")

	// ErrIssuerUnavailable is a dependency failure, not a credential failure.
	ErrIssuerUnavailable = errors.New("token: issuer key set unavailable")
)

// IsCredentialError reports whether err means the presented token is bad,
// as opposed to the issuer being unreachable.
func IsCredentialError(err error) bool {
	return err != nil && !errors.Is(err, ErrIssuerUnavailable)
}
