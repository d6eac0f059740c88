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

// APIKeyService manages a user's record-scoped API keys.
type APIKeyService interface {
	Issue(ctx context.Context, userID, name, recordID string) (model.IssuedAPIKey, error)
	List(ctx context.Context, userID string) ([]model.APIKey, error)
	Delete(ctx context.Context, userID string, id uuid.UUID) error
}

type APIKey struct {
	service        APIKeyService
	contextManager model.ContextManager
	logger         *logger.Logger
}

func NewAPIKey(service APIKeyService, contextManager model.ContextManager, logger *logger.Logger) *APIKey {
	return &APIKey{
		service:        service,
		contextManager: contextManager,
		logger:         logger,
	}
}

// List handles GET /api-keys.
func (h *APIKey) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.contextManager.GetUserIDFromContext(r.Context())
	if !ok {
		WriteError(w, h.logger, model.ErrUnauthorized)
		return
	}

	keys, err := h.service.List(r.Context(), userID)
	if err != nil {
		WriteError(w, h.logger, err)
		return
	}

	resp := make([]apiKeyResponse, 0, len(keys))
	for _, k := range keys {
		resp = append(resp, toAPIKeyResponse(k))
	}
	response.JSON(w, http.StatusOK, resp)
}

// Create handles POST /api-keys. The full key appears in this response only.
func (h *APIKey) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.contextManager.GetUserIDFromContext(r.Context())
	if !ok {
		WriteError(w, h.logger, model.ErrUnauthorized)
		return
	}

	var req createAPIKeyRequest
	if err := decode(w, r, &req); err != nil {
		WriteError(w, h.logger, err)
		return
	}

	issued, err := h.service.Issue(r.Context(), userID, req.Name, req.RecordID)
	if err != nil {
		WriteError(w, h.logger, err)
		return
	}

	response.JSON(w, http.StatusCreated, issuedAPIKeyResponse{
		apiKeyResponse: toAPIKeyResponse(issued.APIKey),
		Key:            issued.Key,
	})
}

// Delete handles DELETE /api-keys/{id}.
func (h *APIKey) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.contextManager.GetUserIDFromContext(r.Context())
	if !ok {
		WriteError(w, h.logger, model.ErrUnauthorized)
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		WriteError(w, h.logger, fmt.Errorf("%w: invalid api key id", model.ErrInvalidInput))
		return
	}

	if err := h.service.Delete(r.Context(), userID, id); err != nil {
		WriteError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
