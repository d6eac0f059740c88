package router

import (
	"net/http"

	"github.com/dtroode/dnskeeper/internal/api/http/handler"
	"github.com/dtroode/dnskeeper/internal/api/http/middleware"
	"github.com/dtroode/dnskeeper/internal/logger"
	"github.com/dtroode/dnskeeper/internal/model"
)

// Services groups the application services exposed over HTTP.
type Services struct {
	Records     handler.RecordService
	Credentials handler.CredentialService
	APIKeys     handler.APIKeyService
	Sync        handler.SyncService
}

// Router wires handlers and middleware onto a ServeMux.
type Router struct {
	services       Services
	verifier       middleware.TokenVerifier
	limiter        middleware.Limiter
	db             handler.Pinger
	contextManager model.ContextManager
	logger         *logger.Logger
}

// New creates a Router. A nil limiter disables sync rate limiting.
func New(
	services Services,
	verifier middleware.TokenVerifier,
	limiter middleware.Limiter,
	db handler.Pinger,
	contextManager model.ContextManager,
	logger *logger.Logger,
) *Router {
	return &Router{
		services:       services,
		verifier:       verifier,
		limiter:        limiter,
		db:             db,
		contextManager: contextManager,
		logger:         logger,
	}
}

// Register builds the request handler for the whole API.
func (r *Router) Register() http.Handler {
	records := handler.NewRecord(r.services.Records, r.contextManager, r.logger)
	credentials := handler.NewCredential(r.services.Credentials, r.contextManager, r.logger)
	apiKeys := handler.NewAPIKey(r.services.APIKeys, r.contextManager, r.logger)
	sync := handler.NewSync(r.services.Sync, r.logger)
	health := handler.NewHealth(r.db, r.logger)

	authenticate := middleware.NewAuthenticate(r.verifier, r.contextManager, r.logger)
	authed := func(h http.HandlerFunc) http.Handler {
		return authenticate.Handle(h)
	}

	mux := http.NewServeMux()

	mux.Handle("GET /records", authed(records.List))
	mux.Handle("POST /records", authed(records.Create))
	mux.Handle("DELETE /records/{id}", authed(records.Delete))

	mux.Handle("GET /credentials", authed(credentials.List))
	mux.Handle("POST /credentials", authed(credentials.Create))
	mux.Handle("DELETE /credentials/{id}", authed(credentials.Delete))

	mux.Handle("GET /api-keys", authed(apiKeys.List))
	mux.Handle("POST /api-keys", authed(apiKeys.Create))
	mux.Handle("DELETE /api-keys/{id}", authed(apiKeys.Delete))

	var syncHandler http.Handler = http.HandlerFunc(sync.Sync)
	if r.limiter != nil {
		syncHandler = middleware.NewRateLimit(r.limiter, r.logger).Handle(syncHandler)
	}
	mux.Handle("PUT /sync", syncHandler)

	mux.HandleFunc("GET /healthz", health.Check)

	return middleware.Chain(mux, middleware.NewLogging(r.logger).Handle)
}
