//go:build integration

package neo4j

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/TeleViaBox/mini-neo4j-agent-backend/application/ports"
	"github.com/TeleViaBox/mini-neo4j-agent-backend/infrastructure/persistence/storetest"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func integrationConfig() Config {
	cfg := Config{
		URI:      "neo4j://localhost:7687",
		Username: "neo4j",
		Password: "test12345",
		Database: os.Getenv("NEO4J_DATABASE"),
	}
	if v := os.Getenv("NEO4J_URI"); v != "" {
		cfg.URI = v
	}
	if v := os.Getenv("NEO4J_USER"); v != "" {
		cfg.Username = v
	}
	if v := os.Getenv("NEO4J_PASSWORD"); v != "" {
		cfg.Password = v
	}
	return cfg
}

// Run with: go test -tags integration ./infrastructure/persistence/neo4j/...
func TestStoreConformance_Integration(t *testing.T) {
	conn, err := NewStore(integrationConfig(), zap.NewNop())
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	ready, err := conn.Ping(ctx)
	cancel()
	_ = conn.Close(context.Background())
	if err != nil || !ready {
		t.Skipf("neo4j not reachable at %s: %v", integrationConfig().URI, err)
	}

	storetest.Run(t, storetest.Harness{
		New: func(t *testing.T) ports.MemoryStore {
			store, err := NewStore(integrationConfig(), zap.NewNop())
			require.NoError(t, err)
			return store
		},
		SchemaObjects: func(t *testing.T, store ports.MemoryStore) (int, int) {
			constraints, indexes, err := store.(*Store).SchemaObjects(context.Background())
			require.NoError(t, err)
			return constraints, indexes
		},
		SharedSchema: true,
		QuerySyntax:  true,
	})
}
