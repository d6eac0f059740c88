package middleware

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/dtroode/dnskeeper/internal/api/http/handler"
	"github.com/dtroode/dnskeeper/internal/api/http/response"
	"github.com/dtroode/dnskeeper/internal/apikey"
	"github.com/dtroode/dnskeeper/internal/logger"
	"github.com/dtroode/dnskeeper/internal/ratelimit"
)

// Limiter takes one token from a key's budget and reports the tokens left.
type Limiter interface {
	Allow(ctx context.Context, key string) (float64, error)
}

// RateLimit throttles requests per API key prefix. Requests without a
// well-formed key pass through and fail authentication downstream. When the
// limiter backend is unavailable requests are let through.
type RateLimit struct {
	limiter Limiter
	logger  *logger.Logger
}

func NewRateLimit(limiter Limiter, logger *logger.Logger) *RateLimit {
	return &RateLimit{limiter: limiter, logger: logger}
}

func (m *RateLimit) Handle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := response.BearerToken(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}
		prefix, err := apikey.Parse(raw)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		remaining, err := m.limiter.Allow(r.Context(), prefix)
		switch {
		case errors.Is(err, ratelimit.ErrLimitExceeded):
			w.Header().Set("RateLimit-Remaining", "0")
			w.Header().Set("Retry-After", "1")
			handler.WriteError(w, m.logger, err)
			return
		case err != nil:
			m.logger.Warn("rate limiter unavailable, allowing request", "error", err)
		default:
			w.Header().Set("RateLimit-Remaining", strconv.Itoa(int(math.Floor(remaining))))
		}

		next.ServeHTTP(w, r)
	})
}
