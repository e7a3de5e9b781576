package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/TeleViaBox/mini-neo4j-agent-backend/application/services"
	"github.com/TeleViaBox/mini-neo4j-agent-backend/domain/core/entities"
	pkgerrors "github.com/TeleViaBox/mini-neo4j-agent-backend/pkg/errors"

	"go.uber.org/zap"
)

// MemoryHandler handles memory-related HTTP requests
type MemoryHandler struct {
	service    *services.MemoryService
	errHandler *pkgerrors.ErrorHandler
	logger     *zap.Logger
}

// NewMemoryHandler creates a new memory handler
func NewMemoryHandler(service *services.MemoryService, errHandler *pkgerrors.ErrorHandler, logger *zap.Logger) *MemoryHandler {
	return &MemoryHandler{
		service:    service,
		errHandler: errHandler,
		logger:     logger,
	}
}

// CreateMemoryRequest represents the request body for creating a memory
type CreateMemoryRequest struct {
	UserID string `json:"user_id"`
	Text   string `json:"text"`
}

// SearchResponse wraps search hits
type SearchResponse struct {
	Results []entities.SearchHit `json:"results"`
}

// CreateMemory handles POST /v1/memories
func (h *MemoryHandler) CreateMemory(w http.ResponseWriter, r *http.Request) {
	var req CreateMemoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.errHandler.Handle(w, r, pkgerrors.NewValidationError("invalid request body: "+err.Error()))
		return
	}

	memory, err := h.service.CreateMemory(r.Context(), services.CreateMemoryRequest{
		UserID: req.UserID,
		Text:   req.Text,
	})
	if err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, memory)
}

// SearchMemories handles GET /v1/memories/search?user_id=&q=&limit=
func (h *MemoryHandler) SearchMemories(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	limit := entities.DefaultSearchLimit
	if raw := query.Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			h.errHandler.Handle(w, r, services.NewInvalidLimitError())
			return
		}
		limit = parsed
	}

	hits, err := h.service.SearchMemories(r.Context(), services.SearchMemoriesRequest{
		UserID: query.Get("user_id"),
		Query:  query.Get("q"),
		Limit:  limit,
	})
	if err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, SearchResponse{Results: hits})
}
