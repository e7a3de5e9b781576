package ports

import (
	"context"

	"github.com/TeleViaBox/mini-neo4j-agent-backend/domain/core/entities"
	"github.com/TeleViaBox/mini-neo4j-agent-backend/domain/events"
)

// MemoryStore is the persistence and search port for memories.
// Implementations own a single long-lived connection factory; every call
// acquires a session for the duration of the call and releases it on every
// exit path.
type MemoryStore interface {
	// Ping performs a trivial round trip. It returns (false, nil) only when
	// the store is classified as unavailable; any other failure is returned
	// as an error.
	Ping(ctx context.Context) (bool, error)

	// InitSchema idempotently creates the User and Memory uniqueness
	// constraints and the full-text index over memory text.
	InitSchema(ctx context.Context) error

	// AddMemory upserts the owning user, creates the memory and the
	// HAS_MEMORY relationship as one atomic unit of work.
	AddMemory(ctx context.Context, memory entities.Memory) error

	// SearchMemories runs a full-text query over all memories, keeps the
	// hits owned by userID, orders them by score descending and returns at
	// most limit of them.
	SearchMemories(ctx context.Context, userID, query string, limit int) ([]entities.SearchHit, error)

	// Close releases the connection factory. It is idempotent.
	Close(ctx context.Context) error
}

// EventPublisher publishes domain events to interested consumers
type EventPublisher interface {
	Publish(ctx context.Context, event events.DomainEvent) error
}
