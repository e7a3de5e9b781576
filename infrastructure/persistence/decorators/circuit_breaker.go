package decorators

import (
	"context"
	"errors"
	"time"

	"github.com/TeleViaBox/mini-neo4j-agent-backend/application/ports"
	"github.com/TeleViaBox/mini-neo4j-agent-backend/domain/core/entities"
	pkgerrors "github.com/TeleViaBox/mini-neo4j-agent-backend/pkg/errors"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// CircuitBreakerConfig holds configuration for the store circuit breaker
type CircuitBreakerConfig struct {
	Name        string
	MaxRequests uint32        // requests allowed through while half-open
	Interval    time.Duration // closed-state window after which counts reset
	Timeout     time.Duration // how long the breaker stays open
	// The breaker trips once at least MinRequests have been seen in the
	// window and the failure ratio reaches FailureThreshold.
	FailureThreshold float64
	MinRequests      uint32
}

// DefaultCircuitBreakerConfig returns the production defaults.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:             name,
		MaxRequests:      3,
		Interval:         30 * time.Second,
		Timeout:          15 * time.Second,
		FailureThreshold: 0.6,
		MinRequests:      5,
	}
}

// CircuitBreakerStore fails fast while the store is known to be
// unreachable. Only store-unavailable errors count as failures; ping,
// schema setup and close are never gated.
type CircuitBreakerStore struct {
	next   ports.MemoryStore
	cb     *gobreaker.CircuitBreaker
	logger *zap.Logger
}

var _ ports.MemoryStore = (*CircuitBreakerStore)(nil)

// NewCircuitBreakerStore wraps next with a breaker built from config.
func NewCircuitBreakerStore(next ports.MemoryStore, config CircuitBreakerConfig, logger *zap.Logger) *CircuitBreakerStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        config.Name,
		MaxRequests: config.MaxRequests,
		Interval:    config.Interval,
		Timeout:     config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < config.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= config.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !pkgerrors.IsUnavailable(err)
		},
	})
	return &CircuitBreakerStore{next: next, cb: cb, logger: logger}
}

// State reports the breaker state.
func (s *CircuitBreakerStore) State() gobreaker.State {
	return s.cb.State()
}

func (s *CircuitBreakerStore) execute(op string, fn func() (interface{}, error)) (interface{}, error) {
	result, err := s.cb.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		s.logger.Debug("Circuit breaker rejected store call",
			zap.String("breaker", s.cb.Name()),
			zap.String("operation", op),
		)
		return nil, pkgerrors.NewUnavailableError("memory store").
			WithCode(pkgerrors.CodeCircuitOpen).
			WithCause(err)
	}
	return result, err
}

func (s *CircuitBreakerStore) Ping(ctx context.Context) (bool, error) {
	return s.next.Ping(ctx)
}

func (s *CircuitBreakerStore) InitSchema(ctx context.Context) error {
	return s.next.InitSchema(ctx)
}

func (s *CircuitBreakerStore) AddMemory(ctx context.Context, memory entities.Memory) error {
	_, err := s.execute("add_memory", func() (interface{}, error) {
		return nil, s.next.AddMemory(ctx, memory)
	})
	return err
}

func (s *CircuitBreakerStore) SearchMemories(ctx context.Context, userID, query string, limit int) ([]entities.SearchHit, error) {
	result, err := s.execute("search_memories", func() (interface{}, error) {
		return s.next.SearchMemories(ctx, userID, query, limit)
	})
	if err != nil {
		return nil, err
	}
	return result.([]entities.SearchHit), nil
}

func (s *CircuitBreakerStore) Close(ctx context.Context) error {
	return s.next.Close(ctx)
}
