package services

import (
	"context"
	"strings"
	"time"

	"github.com/TeleViaBox/mini-neo4j-agent-backend/application/ports"
	"github.com/TeleViaBox/mini-neo4j-agent-backend/domain/core/entities"
	"github.com/TeleViaBox/mini-neo4j-agent-backend/domain/core/valueobjects"
	"github.com/TeleViaBox/mini-neo4j-agent-backend/domain/events"
	pkgerrors "github.com/TeleViaBox/mini-neo4j-agent-backend/pkg/errors"
	"github.com/TeleViaBox/mini-neo4j-agent-backend/pkg/observability"
	"github.com/TeleViaBox/mini-neo4j-agent-backend/pkg/utils"

	"go.uber.org/zap"
)

// CreateMemoryRequest is the input to CreateMemory
type CreateMemoryRequest struct {
	UserID string `json:"user_id" validate:"required"`
	Text   string `json:"text" validate:"required,max=5000"`
}

// SearchMemoriesRequest is the input to SearchMemories. Limit has no
// implicit default here; adapters apply entities.DefaultSearchLimit.
type SearchMemoriesRequest struct {
	UserID string `json:"user_id" validate:"required"`
	Query  string `json:"q" validate:"required"`
	Limit  int    `json:"limit"`
}

// NewInvalidLimitError reports a search limit outside 1..MaxSearchLimit.
func NewInvalidLimitError() *pkgerrors.AppError {
	return pkgerrors.NewValidationError("limit must be 1..50").WithDetails(map[string]interface{}{
		"min": 1,
		"max": entities.MaxSearchLimit,
	})
}

// MemoryService is the entry point used by the HTTP, Lambda and CLI
// adapters. It validates input before touching the store and confirms
// readiness before every write or search.
type MemoryService struct {
	store     ports.MemoryStore
	publisher ports.EventPublisher
	metrics   *observability.Collector
	logger    *zap.Logger
	now       func() time.Time
}

// NewMemoryService creates a new memory service. metrics may be nil.
func NewMemoryService(
	store ports.MemoryStore,
	publisher ports.EventPublisher,
	metrics *observability.Collector,
	logger *zap.Logger,
) *MemoryService {
	return &MemoryService{
		store:     store,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger,
		now:       time.Now,
	}
}

// CreateMemory validates the request, assigns an id and a UTC timestamp,
// and writes the memory. The returned record is built here; the store
// returns nothing but an error.
func (s *MemoryService) CreateMemory(ctx context.Context, req CreateMemoryRequest) (entities.Memory, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return entities.Memory{}, pkgerrors.NewValidationError(err.Error())
	}

	if err := s.ensureReady(ctx); err != nil {
		return entities.Memory{}, err
	}

	createdAt := utils.FormatTimestamp(s.now())
	memory, err := entities.NewMemory(valueobjects.NewMemoryID().String(), req.UserID, req.Text, createdAt)
	if err != nil {
		return entities.Memory{}, err
	}

	if err := s.store.AddMemory(ctx, memory); err != nil {
		return entities.Memory{}, err
	}

	if s.metrics != nil {
		s.metrics.MemoriesCreated.Inc()
	}
	s.logger.Info("Memory created",
		zap.String("memoryID", memory.ID),
		zap.String("userID", memory.UserID),
		zap.Int("textLength", len(memory.Text)),
	)

	s.publishCreated(ctx, memory)
	return memory, nil
}

// SearchMemories returns the caller's memories ranked by relevance. An
// empty result is a non-nil empty slice.
func (s *MemoryService) SearchMemories(ctx context.Context, req SearchMemoriesRequest) ([]entities.SearchHit, error) {
	req.Query = strings.TrimSpace(req.Query)
	if err := utils.ValidateStruct(req); err != nil {
		return nil, pkgerrors.NewValidationError(err.Error())
	}
	if req.Limit < 1 || req.Limit > entities.MaxSearchLimit {
		return nil, NewInvalidLimitError()
	}

	if err := s.ensureReady(ctx); err != nil {
		return nil, err
	}

	hits, err := s.store.SearchMemories(ctx, req.UserID, req.Query, req.Limit)
	if err != nil {
		return nil, err
	}
	if hits == nil {
		hits = []entities.SearchHit{}
	}

	if s.metrics != nil {
		s.metrics.MemorySearchResults.Observe(float64(len(hits)))
	}
	s.logger.Debug("Memory search completed",
		zap.String("userID", req.UserID),
		zap.Int("limit", req.Limit),
		zap.Int("results", len(hits)),
	)
	return hits, nil
}

// Ready reports whether the store can currently serve requests. A probe
// failure that is not a plain "unavailable" is returned as an error.
func (s *MemoryService) Ready(ctx context.Context) (bool, error) {
	return s.store.Ping(ctx)
}

// InitSchema ensures the constraints and full-text index exist. It must
// complete before traffic is accepted.
func (s *MemoryService) InitSchema(ctx context.Context) error {
	if err := s.store.InitSchema(ctx); err != nil {
		s.logger.Error("Failed to initialize memory store schema", zap.Error(err))
		return err
	}
	s.logger.Info("Memory store schema initialized")
	return nil
}

// Close releases the store. Call it only after traffic has drained.
func (s *MemoryService) Close(ctx context.Context) error {
	return s.store.Close(ctx)
}

func (s *MemoryService) ensureReady(ctx context.Context) error {
	ready, err := s.store.Ping(ctx)
	if err != nil {
		return err
	}
	if !ready {
		return pkgerrors.NewUnavailableError("memory store").WithCode(pkgerrors.CodeStoreNotReady)
	}
	return nil
}

// publishCreated is best effort: the memory is already committed, so a
// publish failure is logged and never surfaced.
func (s *MemoryService) publishCreated(ctx context.Context, memory entities.Memory) {
	if s.publisher == nil {
		return
	}
	event := events.NewMemoryCreated(memory.ID, memory.UserID, len([]rune(memory.Text)), memory.CreatedAt, s.now().UTC())
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("Failed to publish memory event",
			zap.String("memoryID", memory.ID),
			zap.String("eventType", event.GetEventType()),
			zap.Error(err),
		)
	}
}
