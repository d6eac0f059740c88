package handler

import (
	"errors"
	"net/http"

	"github.com/dtroode/dnskeeper/internal/api/http/response"
	"github.com/dtroode/dnskeeper/internal/logger"
	"github.com/dtroode/dnskeeper/internal/model"
	"github.com/dtroode/dnskeeper/internal/ratelimit"
	"github.com/dtroode/dnskeeper/internal/token"
)

// statusOf maps a service error to an HTTP status and a client-safe message.
// Authentication failures share one message.
func statusOf(err error) (int, string) {
	switch {
	case errors.Is(err, token.ErrIssuerUnavailable):
		return http.StatusServiceUnavailable, "identity issuer unavailable"
	case errors.Is(err, model.ErrUnauthorized), isTokenError(err):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, model.ErrNoBoundRecord):
		return http.StatusNotFound, "record not found"
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, model.ErrConflict):
		return http.StatusConflict, "already exists"
	case errors.Is(err, model.ErrInvalidInput):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, model.ErrNoCredential):
		return http.StatusBadRequest, "no provider credential configured"
	case errors.Is(err, ratelimit.ErrLimitExceeded):
		return http.StatusTooManyRequests, "rate limit exceeded"
	case errors.Is(err, model.ErrProviderRejected):
		return http.StatusBadGateway, "provider rejected the change"
	case errors.Is(err, model.ErrProviderUnreachable):
		return http.StatusBadGateway, "provider unreachable"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

func isTokenError(err error) bool {
	for _, target := range []error{
		token.ErrMissingHeader,
		token.ErrMalformedHeader,
		token.ErrUnknownKeyID,
		token.ErrAlgorithmMismatch,
		token.ErrInvalidSignature,
		token.ErrMalformedClaims,
		token.ErrTokenExpired,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// WriteError writes the response for err and logs server-side failures.
func WriteError(w http.ResponseWriter, log *logger.Logger, err error) {
	status, message := statusOf(err)
	if status >= http.StatusInternalServerError {
		log.Error("request failed", "status", status, "error", err)
	}
	response.Fail(w, status, message)
}
