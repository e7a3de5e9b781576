package decorators

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/TeleViaBox/mini-neo4j-agent-backend/application/ports/mocks"
	"github.com/TeleViaBox/mini-neo4j-agent-backend/domain/core/entities"
	pkgerrors "github.com/TeleViaBox/mini-neo4j-agent-backend/pkg/errors"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:             "test",
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          time.Minute,
		FailureThreshold: 0.5,
		MinRequests:      2,
	}
}

func TestCircuitBreakerStore_OpensOnUnavailable(t *testing.T) {
	// Arrange
	ctx := context.Background()
	base := new(mocks.MockMemoryStore)
	unavailable := pkgerrors.NewUnavailableError("neo4j").WithCause(errors.New("connection refused"))
	base.On("SearchMemories", mock.Anything, "u1", "milk", 10).Return(nil, unavailable).Twice()
	store := NewCircuitBreakerStore(base, testBreakerConfig(), zap.NewNop())

	// Act
	for i := 0; i < 2; i++ {
		_, err := store.SearchMemories(ctx, "u1", "milk", 10)
		require.True(t, pkgerrors.IsUnavailable(err))
	}
	_, err := store.SearchMemories(ctx, "u1", "milk", 10)

	// Assert
	assert.Equal(t, gobreaker.StateOpen, store.State())
	assert.True(t, pkgerrors.IsUnavailable(err))
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeCircuitOpen))
	base.AssertNumberOfCalls(t, "SearchMemories", 2)
}

func TestCircuitBreakerStore_IgnoresNonAvailabilityErrors(t *testing.T) {
	ctx := context.Background()
	base := new(mocks.MockMemoryStore)
	dup := pkgerrors.NewDatabaseError("add_memory", errors.New("constraint")).WithCode(pkgerrors.CodeDuplicateMemoryID)
	base.On("AddMemory", mock.Anything, mock.Anything).Return(dup)
	base.On("SearchMemories", mock.Anything, "u1", "milk", 10).Return(nil, pkgerrors.NewIndexUnavailableError("memoryText"))
	store := NewCircuitBreakerStore(base, testBreakerConfig(), zap.NewNop())

	for i := 0; i < 5; i++ {
		err := store.AddMemory(ctx, entities.Memory{ID: "m1", UserID: "u1", Text: "t", CreatedAt: "now"})
		assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeDuplicateMemoryID))

		_, err = store.SearchMemories(ctx, "u1", "milk", 10)
		assert.True(t, pkgerrors.IsIndexUnavailable(err))
	}

	assert.Equal(t, gobreaker.StateClosed, store.State())
	base.AssertNumberOfCalls(t, "AddMemory", 5)
}

func TestCircuitBreakerStore_PassesResultsThrough(t *testing.T) {
	ctx := context.Background()
	base := new(mocks.MockMemoryStore)
	hits := []entities.SearchHit{{ID: "m1", Text: "buy milk", CreatedAt: "now", Score: 1.2}}
	base.On("SearchMemories", mock.Anything, "u1", "milk", 5).Return(hits, nil)
	store := NewCircuitBreakerStore(base, testBreakerConfig(), zap.NewNop())

	got, err := store.SearchMemories(ctx, "u1", "milk", 5)

	require.NoError(t, err)
	assert.Equal(t, hits, got)
}

func TestCircuitBreakerStore_LifecycleBypassesBreaker(t *testing.T) {
	ctx := context.Background()
	base := new(mocks.MockMemoryStore)
	unavailable := pkgerrors.NewUnavailableError("neo4j")
	base.On("AddMemory", mock.Anything, mock.Anything).Return(unavailable)
	base.On("Ping", mock.Anything).Return(false, nil)
	base.On("InitSchema", mock.Anything).Return(nil)
	base.On("Close", mock.Anything).Return(nil)
	store := NewCircuitBreakerStore(base, testBreakerConfig(), zap.NewNop())

	for i := 0; i < 3; i++ {
		_ = store.AddMemory(ctx, entities.Memory{ID: "m", UserID: "u", Text: "t", CreatedAt: "now"})
	}
	require.Equal(t, gobreaker.StateOpen, store.State())

	ready, err := store.Ping(ctx)
	assert.NoError(t, err)
	assert.False(t, ready)
	assert.NoError(t, store.InitSchema(ctx))
	assert.NoError(t, store.Close(ctx))
	base.AssertExpectations(t)
}
