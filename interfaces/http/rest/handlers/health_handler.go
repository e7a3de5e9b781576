package handlers

import (
	"net/http"

	"github.com/TeleViaBox/mini-neo4j-agent-backend/application/services"
	pkgerrors "github.com/TeleViaBox/mini-neo4j-agent-backend/pkg/errors"

	"go.uber.org/zap"
)

// HealthHandler serves liveness and readiness probes
type HealthHandler struct {
	service    *services.MemoryService
	errHandler *pkgerrors.ErrorHandler
	logger     *zap.Logger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(service *services.MemoryService, errHandler *pkgerrors.ErrorHandler, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{service: service, errHandler: errHandler, logger: logger}
}

// Health handles GET /v1/health. It never touches the store.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, h.logger, http.StatusOK, map[string]bool{"ok": true})
}

// Ready handles GET /v1/ready: 200 when the store answers, 503 when it is
// unavailable and 500 when the probe itself fails.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ready, err := h.service.Ready(r.Context())
	if err != nil {
		h.logger.Error("Readiness probe failed", zap.Error(err))
		h.errHandler.HandleStatus(w, r, http.StatusInternalServerError, "readiness probe failed")
		return
	}
	if !ready {
		h.errHandler.Handle(w, r, pkgerrors.NewUnavailableError("memory store").WithCode(pkgerrors.CodeStoreNotReady))
		return
	}
	respondJSON(w, h.logger, http.StatusOK, map[string]bool{"ready": true})
}
