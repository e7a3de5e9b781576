package entities

import (
	"strings"
	"testing"

	pkgerrors "github.com/TeleViaBox/mini-neo4j-agent-backend/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMemory(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		userID  string
		text    string
		wantErr bool
	}{
		{"valid", "m1", "u1", "buy milk", false},
		{"text at limit", "m1", "u1", strings.Repeat("a", MaxTextLength), false},
		{"text over limit", "m1", "u1", strings.Repeat("a", MaxTextLength+1), true},
		{"empty text", "m1", "u1", "", true},
		{"empty user", "m1", "", "buy milk", true},
		{"empty id", "", "u1", "buy milk", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewMemory(tt.id, tt.userID, tt.text, "2026-01-01T00:00:00Z")
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, pkgerrors.IsValidation(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.userID, m.Owner().ID)
		})
	}
}

func TestMemory_ValidateCountsRunes(t *testing.T) {
	m := Memory{ID: "m1", UserID: "u1", Text: strings.Repeat("ß", MaxTextLength), CreatedAt: "2026-01-01T00:00:00Z"}
	assert.NoError(t, m.Validate())
}

func TestMemory_ValidateCreatedAt(t *testing.T) {
	m := Memory{ID: "m1", UserID: "u1", Text: "buy milk", CreatedAt: "last tuesday"}

	err := m.Validate()

	assert.True(t, pkgerrors.IsValidation(err))
}
