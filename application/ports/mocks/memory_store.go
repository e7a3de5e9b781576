// Package mocks provides testify mocks for the application ports.
package mocks

import (
	"context"

	"github.com/TeleViaBox/mini-neo4j-agent-backend/domain/core/entities"
	"github.com/TeleViaBox/mini-neo4j-agent-backend/domain/events"
	"github.com/stretchr/testify/mock"
)

// MockMemoryStore is a mock implementation of ports.MemoryStore
type MockMemoryStore struct {
	mock.Mock
}

func (m *MockMemoryStore) Ping(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

func (m *MockMemoryStore) InitSchema(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockMemoryStore) AddMemory(ctx context.Context, memory entities.Memory) error {
	args := m.Called(ctx, memory)
	return args.Error(0)
}

func (m *MockMemoryStore) SearchMemories(ctx context.Context, userID, query string, limit int) ([]entities.SearchHit, error) {
	args := m.Called(ctx, userID, query, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entities.SearchHit), args.Error(1)
}

func (m *MockMemoryStore) Close(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockEventPublisher is a mock implementation of ports.EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, event events.DomainEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}
