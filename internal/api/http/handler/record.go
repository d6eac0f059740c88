package handler

import (
	"context"
	"net/http"

	"github.com/dtroode/dnskeeper/internal/api/http/response"
	"github.com/dtroode/dnskeeper/internal/logger"
	"github.com/dtroode/dnskeeper/internal/model"
)

// RecordService manages a user's DNS records.
type RecordService interface {
	Create(ctx context.Context, params model.CreateRecordParams) (model.DNSRecord, error)
	List(ctx context.Context, userID string) ([]model.DNSRecord, error)
	Delete(ctx context.Context, userID, id string) error
}

type Record struct {
	service        RecordService
	contextManager model.ContextManager
	logger         *logger.Logger
}

func NewRecord(service RecordService, contextManager model.ContextManager, logger *logger.Logger) *Record {
	return &Record{
		service:        service,
		contextManager: contextManager,
		logger:         logger,
	}
}

// List handles GET /records.
func (h *Record) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.contextManager.GetUserIDFromContext(r.Context())
	if !ok {
		WriteError(w, h.logger, model.ErrUnauthorized)
		return
	}

	records, err := h.service.List(r.Context(), userID)
	if err != nil {
		WriteError(w, h.logger, err)
		return
	}

	resp := make([]recordResponse, 0, len(records))
	for _, rec := range records {
		resp = append(resp, toRecordResponse(rec))
	}
	response.JSON(w, http.StatusOK, resp)
}

// Create handles POST /records.
func (h *Record) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.contextManager.GetUserIDFromContext(r.Context())
	if !ok {
		WriteError(w, h.logger, model.ErrUnauthorized)
		return
	}

	var req createRecordRequest
	if err := decode(w, r, &req); err != nil {
		WriteError(w, h.logger, err)
		return
	}

	record, err := h.service.Create(r.Context(), model.CreateRecordParams{
		UserID:       userID,
		CredentialID: req.CredentialID,
		ZoneID:       req.ZoneID,
		Name:         req.Name,
		Content:      req.Content,
		TTL:          req.TTL,
		Type:         req.Type,
		Proxied:      req.Proxied,
	})
	if err != nil {
		WriteError(w, h.logger, err)
		return
	}

	response.JSON(w, http.StatusCreated, toRecordResponse(record))
}

// Delete handles DELETE /records/{id}.
func (h *Record) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.contextManager.GetUserIDFromContext(r.Context())
	if !ok {
		WriteError(w, h.logger, model.ErrUnauthorized)
		return
	}

	if err := h.service.Delete(r.Context(), userID, r.PathValue("id")); err != nil {
		WriteError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
