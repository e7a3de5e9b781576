// Package entities holds the two persisted entities, User and Memory, and
// the shape of a search hit. Both entities are append-only: they are
// created once and never updated or deleted.
package entities

import (
	"strings"
	"unicode/utf8"

	pkgerrors "github.com/TeleViaBox/mini-neo4j-agent-backend/pkg/errors"
	"github.com/TeleViaBox/mini-neo4j-agent-backend/pkg/utils"
)

const (
	// MaxTextLength is the maximum memory text length in characters.
	MaxTextLength = 5000

	// DefaultSearchLimit applies when the caller does not pass a limit.
	DefaultSearchLimit = 10
	// MaxSearchLimit bounds the number of hits a single search may return.
	MaxSearchLimit = 50
)

// User owns memories. Users are created implicitly by the first memory
// written for their id.
type User struct {
	ID string `json:"id"`
}

// Memory is a single immutable text record owned by exactly one user.
// UserID is a denormalized copy of the owner's id and always equals the id
// of the user connected through the HAS_MEMORY relationship.
type Memory struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	Text      string `json:"text"`
	CreatedAt string `json:"created_at"`
}

// NewMemory builds a Memory after checking the write preconditions.
func NewMemory(id, userID, text, createdAt string) (Memory, error) {
	m := Memory{ID: id, UserID: userID, Text: text, CreatedAt: createdAt}
	if err := m.Validate(); err != nil {
		return Memory{}, err
	}
	return m, nil
}

// Validate checks the invariants a memory must satisfy before it is written.
func (m Memory) Validate() error {
	switch {
	case strings.TrimSpace(m.ID) == "":
		return pkgerrors.NewValidationError("memory id is required")
	case m.UserID == "":
		return pkgerrors.NewValidationError("user_id is required")
	case m.Text == "":
		return pkgerrors.NewValidationError("text is required")
	case utf8.RuneCountInString(m.Text) > MaxTextLength:
		return pkgerrors.NewValidationError("text must be at most 5000 characters")
	case m.CreatedAt == "":
		return pkgerrors.NewValidationError("created_at is required")
	}
	if _, err := utils.ParseTimestamp(m.CreatedAt); err != nil {
		return pkgerrors.NewValidationError("created_at must be an RFC 3339 timestamp")
	}
	return nil
}

// Owner returns the user the memory belongs to.
func (m Memory) Owner() User {
	return User{ID: m.UserID}
}

// SearchHit is one ranked search result. Higher scores are more relevant;
// the absolute value depends on the store's full-text engine.
type SearchHit struct {
	ID        string  `json:"id"`
	Text      string  `json:"text"`
	CreatedAt string  `json:"created_at"`
	Score     float64 `json:"score"`
}
