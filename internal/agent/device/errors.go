package device

import (
	"errors"
	"fmt"
)

var (
	// ErrAccessDenied means the user rejected the request.
	ErrAccessDenied = errors.New("device authorization denied")
	// ErrExpiredToken means the device code expired before approval.
	ErrExpiredToken = errors.New("device code expired")
	// ErrTimeout means the polling budget ran out without a decision.
	ErrTimeout = errors.New("device authorization timed out")

	errAuthorizationPending = errors.New("authorization pending")
	errSlowDown             = errors.New("slow down")
	errTransient            = errors.New("transient issuer failure")
)

// IssuerError is an error code the issuer returned that the flow does not handle.
type IssuerError struct {
	Code        string
	Description string
}

func (e *IssuerError) Error() string {
	if e.Description == "" {
		return fmt.Sprintf("issuer error: %s", e.Code)
	}
	return fmt.Sprintf("issuer error: %s: %s", e.Code, e.Description)
}

func classify(code, description string) error {
	switch code {
	case "authorization_pending":
		return errAuthorizationPending
	case "slow_down":
		return errSlowDown
	case "access_denied":
		return ErrAccessDenied
	case "expired_token":
		return ErrExpiredToken
	default:
		return &IssuerError{Code: code, Description: description}
	}
}
