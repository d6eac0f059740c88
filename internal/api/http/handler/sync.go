package handler

import (
	"context"
	"net/http"

	"github.com/dtroode/dnskeeper/internal/api/http/response"
	"github.com/dtroode/dnskeeper/internal/logger"
	"github.com/dtroode/dnskeeper/internal/model"
)

// SyncService reconciles a record with the address an agent reports.
type SyncService interface {
	Sync(ctx context.Context, req model.SyncRequest) (model.SyncOutcome, error)
}

type Sync struct {
	service SyncService
	logger  *logger.Logger
}

func NewSync(service SyncService, logger *logger.Logger) *Sync {
	return &Sync{
		service: service,
		logger:  logger,
	}
}

// Sync handles PUT /sync, authenticated by an API key bearer token.
func (h *Sync) Sync(w http.ResponseWriter, r *http.Request) {
	key, ok := response.BearerToken(r)
	if !ok {
		WriteError(w, h.logger, model.ErrUnauthorized)
		return
	}

	var req syncRequest
	if err := decode(w, r, &req); err != nil {
		WriteError(w, h.logger, err)
		return
	}

	outcome, err := h.service.Sync(r.Context(), model.SyncRequest{
		APIKey:     key,
		ClaimedIP:  req.IPAddress,
		ObservedAt: req.TimeSynced.Time,
	})
	if err != nil {
		WriteError(w, h.logger, err)
		return
	}

	response.JSON(w, http.StatusOK, syncResponse{
		Success: outcome.Success,
		Updated: outcome.Updated,
		Message: outcome.Message,
	})
}
