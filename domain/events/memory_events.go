package events

import "time"

const (
	// SourceMemoryService is the event source used when publishing.
	SourceMemoryService = "mini-mem0.memory-service"

	EventTypeMemoryCreated = "memory.created"
)

// DomainEvent is the base interface for all domain events
type DomainEvent interface {
	GetAggregateID() string
	GetEventType() string
	GetTimestamp() time.Time
	GetVersion() int
}

// BaseEvent provides common event fields
type BaseEvent struct {
	AggregateID string    `json:"aggregate_id"`
	EventType   string    `json:"event_type"`
	Timestamp   time.Time `json:"timestamp"`
	Version     int       `json:"version"`
}

func (e BaseEvent) GetAggregateID() string  { return e.AggregateID }
func (e BaseEvent) GetEventType() string    { return e.EventType }
func (e BaseEvent) GetTimestamp() time.Time { return e.Timestamp }
func (e BaseEvent) GetVersion() int         { return e.Version }

// MemoryCreated is raised after a memory and its owning relationship have
// been committed. The text is not carried to keep payloads small.
type MemoryCreated struct {
	BaseEvent
	MemoryID   string `json:"memory_id"`
	UserID     string `json:"user_id"`
	TextLength int    `json:"text_length"`
	CreatedAt  string `json:"created_at"`
}

// NewMemoryCreated creates a MemoryCreated event
func NewMemoryCreated(memoryID, userID string, textLength int, createdAt string, timestamp time.Time) MemoryCreated {
	return MemoryCreated{
		BaseEvent: BaseEvent{
			AggregateID: memoryID,
			EventType:   EventTypeMemoryCreated,
			Timestamp:   timestamp,
			Version:     1,
		},
		MemoryID:   memoryID,
		UserID:     userID,
		TextLength: textLength,
		CreatedAt:  createdAt,
	}
}
