package valueobjects

import "github.com/google/uuid"

// MemoryID identifies a memory. It is generated by the service, never by
// the store, and is never reused.
type MemoryID struct {
	value string
}

// NewMemoryID creates a new random MemoryID
func NewMemoryID() MemoryID {
	return MemoryID{value: uuid.New().String()}
}

func (id MemoryID) String() string {
	return id.value
}
