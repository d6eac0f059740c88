package model

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrInvalidInput = errors.New("invalid input")
	ErrConflict     = errors.New("already exists")
)

// Sync failures.
var (
	ErrNoBoundRecord       = errors.New("api key is bound to a record that no longer exists")
	ErrNoCredential        = errors.New("no provider credential configured")
	ErrProviderRejected    = errors.New("provider rejected the change")
	ErrProviderUnreachable = errors.New("provider unreachable")
	ErrPersistFailure      = errors.New("failed to persist sync result")
)
