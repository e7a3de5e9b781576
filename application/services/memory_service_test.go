package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/TeleViaBox/mini-neo4j-agent-backend/application/ports"
	"github.com/TeleViaBox/mini-neo4j-agent-backend/application/ports/mocks"
	"github.com/TeleViaBox/mini-neo4j-agent-backend/domain/core/entities"
	"github.com/TeleViaBox/mini-neo4j-agent-backend/domain/events"
	pkgerrors "github.com/TeleViaBox/mini-neo4j-agent-backend/pkg/errors"
	"github.com/TeleViaBox/mini-neo4j-agent-backend/pkg/observability"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var fixedNow = time.Date(2024, 5, 6, 7, 8, 9, 123456789, time.FixedZone("CEST", 2*60*60))

func newTestService(store *mocks.MockMemoryStore, publisher *mocks.MockEventPublisher) (*MemoryService, *observability.Collector) {
	metrics := observability.NewCollector("")
	var pub ports.EventPublisher
	if publisher != nil {
		pub = publisher
	}
	svc := NewMemoryService(store, pub, metrics, zap.NewNop())
	svc.now = func() time.Time { return fixedNow }
	return svc, metrics
}

func TestMemoryService_CreateMemory(t *testing.T) {
	// Arrange
	ctx := context.Background()
	store := new(mocks.MockMemoryStore)
	publisher := new(mocks.MockEventPublisher)
	store.On("Ping", ctx).Return(true, nil)
	store.On("AddMemory", ctx, mock.AnythingOfType("entities.Memory")).Return(nil)
	publisher.On("Publish", ctx, mock.MatchedBy(func(e events.DomainEvent) bool {
		return e.GetEventType() == events.EventTypeMemoryCreated
	})).Return(nil)
	svc, metrics := newTestService(store, publisher)

	// Act
	memory, err := svc.CreateMemory(ctx, CreateMemoryRequest{UserID: "u1", Text: "buy milk"})

	// Assert
	require.NoError(t, err)
	_, parseErr := uuid.Parse(memory.ID)
	assert.NoError(t, parseErr)
	assert.Equal(t, "u1", memory.UserID)
	assert.Equal(t, "buy milk", memory.Text)
	assert.Equal(t, "2024-05-06T05:08:09.123456789Z", memory.CreatedAt)

	written := store.Calls[1].Arguments.Get(1).(entities.Memory)
	assert.Equal(t, memory, written)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.MemoriesCreated))
	store.AssertExpectations(t)
	publisher.AssertExpectations(t)
}

func TestMemoryService_CreateMemory_ValidationBeforeStore(t *testing.T) {
	tests := []struct {
		name    string
		req     CreateMemoryRequest
		wantMsg string
	}{
		{"missing user", CreateMemoryRequest{Text: "buy milk"}, "user_id is required"},
		{"missing text", CreateMemoryRequest{UserID: "u1"}, "text is required"},
		{"text too long", CreateMemoryRequest{UserID: "u1", Text: strings.Repeat("x", entities.MaxTextLength+1)}, "text must be at most 5000 characters"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := new(mocks.MockMemoryStore)
			svc, _ := newTestService(store, new(mocks.MockEventPublisher))

			_, err := svc.CreateMemory(context.Background(), tt.req)

			require.Error(t, err)
			assert.True(t, pkgerrors.IsValidation(err))
			assert.Contains(t, err.Error(), tt.wantMsg)
			store.AssertNotCalled(t, "Ping", mock.Anything)
			store.AssertNotCalled(t, "AddMemory", mock.Anything, mock.Anything)
		})
	}
}

func TestMemoryService_CreateMemory_MaxLengthCountsCharacters(t *testing.T) {
	ctx := context.Background()
	store := new(mocks.MockMemoryStore)
	store.On("Ping", ctx).Return(true, nil)
	store.On("AddMemory", ctx, mock.Anything).Return(nil)
	svc, _ := newTestService(store, nil)

	_, err := svc.CreateMemory(ctx, CreateMemoryRequest{UserID: "u1", Text: strings.Repeat("é", entities.MaxTextLength)})

	assert.NoError(t, err)
}

func TestMemoryService_NotReady(t *testing.T) {
	ctx := context.Background()
	store := new(mocks.MockMemoryStore)
	store.On("Ping", ctx).Return(false, nil)
	svc, _ := newTestService(store, new(mocks.MockEventPublisher))

	_, createErr := svc.CreateMemory(ctx, CreateMemoryRequest{UserID: "u1", Text: "buy milk"})
	_, searchErr := svc.SearchMemories(ctx, SearchMemoriesRequest{UserID: "u1", Query: "milk", Limit: 10})

	for _, err := range []error{createErr, searchErr} {
		assert.True(t, pkgerrors.IsUnavailable(err))
		assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStoreNotReady))
	}
	store.AssertNotCalled(t, "AddMemory", mock.Anything, mock.Anything)
	store.AssertNotCalled(t, "SearchMemories", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestMemoryService_PingErrorIsPropagated(t *testing.T) {
	ctx := context.Background()
	pingErr := pkgerrors.NewDatabaseError("ping", errors.New("auth failure"))
	store := new(mocks.MockMemoryStore)
	store.On("Ping", ctx).Return(false, pingErr)
	svc, _ := newTestService(store, nil)

	_, err := svc.CreateMemory(ctx, CreateMemoryRequest{UserID: "u1", Text: "buy milk"})

	assert.Same(t, pingErr, err)
}

func TestMemoryService_StoreErrorIsAuthoritative(t *testing.T) {
	ctx := context.Background()
	dup := pkgerrors.NewDatabaseError("add_memory", errors.New("constraint")).WithCode(pkgerrors.CodeDuplicateMemoryID)
	store := new(mocks.MockMemoryStore)
	publisher := new(mocks.MockEventPublisher)
	store.On("Ping", ctx).Return(true, nil)
	store.On("AddMemory", ctx, mock.Anything).Return(dup)
	svc, metrics := newTestService(store, publisher)

	_, err := svc.CreateMemory(ctx, CreateMemoryRequest{UserID: "u1", Text: "buy milk"})

	assert.Same(t, dup, err)
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.MemoriesCreated))
	publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestMemoryService_PublishFailureDoesNotFailWrite(t *testing.T) {
	ctx := context.Background()
	store := new(mocks.MockMemoryStore)
	publisher := new(mocks.MockEventPublisher)
	store.On("Ping", ctx).Return(true, nil)
	store.On("AddMemory", ctx, mock.Anything).Return(nil)
	publisher.On("Publish", ctx, mock.Anything).Return(errors.New("throttled"))
	svc, _ := newTestService(store, publisher)

	memory, err := svc.CreateMemory(ctx, CreateMemoryRequest{UserID: "u1", Text: "buy milk"})

	require.NoError(t, err)
	assert.NotEmpty(t, memory.ID)
	publisher.AssertExpectations(t)
}

func TestMemoryService_SearchMemories(t *testing.T) {
	ctx := context.Background()
	hits := []entities.SearchHit{
		{ID: "m1", Text: "apple pie", CreatedAt: "t1", Score: 2.5},
		{ID: "m2", Text: "apple tree", CreatedAt: "t2", Score: 1.5},
	}
	store := new(mocks.MockMemoryStore)
	store.On("Ping", ctx).Return(true, nil)
	store.On("SearchMemories", ctx, "u1", "apple", 2).Return(hits, nil)
	svc, metrics := newTestService(store, nil)

	got, err := svc.SearchMemories(ctx, SearchMemoriesRequest{UserID: "u1", Query: "  apple ", Limit: 2})

	require.NoError(t, err)
	assert.Equal(t, hits, got)
	assert.Equal(t, 1, testutil.CollectAndCount(metrics.MemorySearchResults))
}

func TestMemoryService_SearchMemories_EmptyIsNonNil(t *testing.T) {
	ctx := context.Background()
	store := new(mocks.MockMemoryStore)
	store.On("Ping", ctx).Return(true, nil)
	store.On("SearchMemories", ctx, "u1", "zucchini", 10).Return(nil, nil)
	svc, _ := newTestService(store, nil)

	got, err := svc.SearchMemories(ctx, SearchMemoriesRequest{UserID: "u1", Query: "zucchini", Limit: 10})

	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestMemoryService_SearchMemories_Validation(t *testing.T) {
	tests := []struct {
		name    string
		req     SearchMemoriesRequest
		wantMsg string
	}{
		{"missing user", SearchMemoriesRequest{Query: "milk", Limit: 10}, "user_id is required"},
		{"missing query", SearchMemoriesRequest{UserID: "u1", Limit: 10}, "q is required"},
		{"blank query", SearchMemoriesRequest{UserID: "u1", Query: "   ", Limit: 10}, "q is required"},
		{"limit zero", SearchMemoriesRequest{UserID: "u1", Query: "milk", Limit: 0}, "limit must be 1..50"},
		{"limit too high", SearchMemoriesRequest{UserID: "u1", Query: "milk", Limit: 51}, "limit must be 1..50"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := new(mocks.MockMemoryStore)
			svc, _ := newTestService(store, nil)

			_, err := svc.SearchMemories(context.Background(), tt.req)

			require.Error(t, err)
			assert.True(t, pkgerrors.IsValidation(err))
			assert.Contains(t, err.Error(), tt.wantMsg)
			store.AssertNotCalled(t, "Ping", mock.Anything)
		})
	}
}

func TestMemoryService_SearchMemories_IndexUnavailable(t *testing.T) {
	ctx := context.Background()
	store := new(mocks.MockMemoryStore)
	store.On("Ping", ctx).Return(true, nil)
	store.On("SearchMemories", ctx, "u1", "milk", 10).Return(nil, pkgerrors.NewIndexUnavailableError("memoryText"))
	svc, _ := newTestService(store, nil)

	_, err := svc.SearchMemories(ctx, SearchMemoriesRequest{UserID: "u1", Query: "milk", Limit: 10})

	assert.True(t, pkgerrors.IsIndexUnavailable(err))
}

func TestMemoryService_Lifecycle(t *testing.T) {
	ctx := context.Background()
	store := new(mocks.MockMemoryStore)
	store.On("InitSchema", ctx).Return(nil)
	store.On("Ping", ctx).Return(true, nil)
	store.On("Close", ctx).Return(nil)
	svc, _ := newTestService(store, nil)

	require.NoError(t, svc.InitSchema(ctx))
	ready, err := svc.Ready(ctx)
	require.NoError(t, err)
	assert.True(t, ready)
	require.NoError(t, svc.Close(ctx))
	store.AssertExpectations(t)
}
