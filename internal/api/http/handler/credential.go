package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/dtroode/dnskeeper/internal/api/http/response"
	"github.com/dtroode/dnskeeper/internal/logger"
	"github.com/dtroode/dnskeeper/internal/model"
)

// CredentialService manages a user's provider credentials.
type CredentialService interface {
	Create(ctx context.Context, userID, name, token string) (model.ProviderCredential, error)
	List(ctx context.Context, userID string) ([]model.ProviderCredential, error)
	Delete(ctx context.Context, userID string, id uuid.UUID) error
}

type Credential struct {
	service        CredentialService
	contextManager model.ContextManager
	logger         *logger.Logger
}

func NewCredential(service CredentialService, contextManager model.ContextManager, logger *logger.Logger) *Credential {
	return &Credential{
		service:        service,
		contextManager: contextManager,
		logger:         logger,
	}
}

// List handles GET /credentials. Only metadata is returned.
func (h *Credential) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.contextManager.GetUserIDFromContext(r.Context())
	if !ok {
		WriteError(w, h.logger, model.ErrUnauthorized)
		return
	}

	credentials, err := h.service.List(r.Context(), userID)
	if err != nil {
		WriteError(w, h.logger, err)
		return
	}

	resp := make([]credentialResponse, 0, len(credentials))
	for _, c := range credentials {
		resp = append(resp, toCredentialResponse(c))
	}
	response.JSON(w, http.StatusOK, resp)
}

// Create handles POST /credentials.
func (h *Credential) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.contextManager.GetUserIDFromContext(r.Context())
	if !ok {
		WriteError(w, h.logger, model.ErrUnauthorized)
		return
	}

	var req createCredentialRequest
	if err := decode(w, r, &req); err != nil {
		WriteError(w, h.logger, err)
		return
	}
	if req.Name == "" {
		req.Name = "cloudflare"
	}

	credential, err := h.service.Create(r.Context(), userID, req.Name, req.Token)
	if err != nil {
		WriteError(w, h.logger, err)
		return
	}

	response.JSON(w, http.StatusCreated, toCredentialResponse(credential))
}

// Delete handles DELETE /credentials/{id}.
func (h *Credential) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.contextManager.GetUserIDFromContext(r.Context())
	if !ok {
		WriteError(w, h.logger, model.ErrUnauthorized)
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		WriteError(w, h.logger, fmt.Errorf("%w: invalid credential id", model.ErrInvalidInput))
		return
	}

	if err := h.service.Delete(r.Context(), userID, id); err != nil {
		WriteError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
