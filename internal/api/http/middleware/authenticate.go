package middleware

import (
	"context"
	"net/http"

	"github.com/dtroode/dnskeeper/internal/api/http/handler"
	"github.com/dtroode/dnskeeper/internal/api/http/response"
	"github.com/dtroode/dnskeeper/internal/logger"
	"github.com/dtroode/dnskeeper/internal/model"
	"github.com/dtroode/dnskeeper/internal/token"
)

// TokenVerifier validates bearer tokens.
type TokenVerifier interface {
	Verify(ctx context.Context, raw string) (token.Claims, error)
}

// Authenticate validates bearer tokens and injects the subject into context.
type Authenticate struct {
	verifier       TokenVerifier
	contextManager model.ContextManager
	logger         *logger.Logger
}

func NewAuthenticate(verifier TokenVerifier, contextManager model.ContextManager, logger *logger.Logger) *Authenticate {
	return &Authenticate{verifier: verifier, contextManager: contextManager, logger: logger}
}

// Handle rejects requests without a valid token. Issuer outages are 503.
func (m *Authenticate) Handle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := response.BearerToken(r)
		if !ok {
			handler.WriteError(w, m.logger, token.ErrMissingHeader)
			return
		}

		claims, err := m.verifier.Verify(r.Context(), raw)
		if err != nil {
			if token.IsCredentialError(err) {
				m.logger.Debug("token rejected", "error", err)
			}
			handler.WriteError(w, m.logger, err)
			return
		}

		ctx := m.contextManager.SetUserIDToContext(r.Context(), claims.Subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
