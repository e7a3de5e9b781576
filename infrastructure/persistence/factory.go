// Package persistence selects and builds the MemoryStore backend.
package persistence

import (
	"fmt"

	"github.com/TeleViaBox/mini-neo4j-agent-backend/application/ports"
	"github.com/TeleViaBox/mini-neo4j-agent-backend/infrastructure/persistence/memory"
	neo4jstore "github.com/TeleViaBox/mini-neo4j-agent-backend/infrastructure/persistence/neo4j"
	"github.com/TeleViaBox/mini-neo4j-agent-backend/infrastructure/persistence/sqlite"

	"go.uber.org/zap"
)

// StoreType represents the type of store implementation.
type StoreType string

const (
	StoreTypeNeo4j  StoreType = "neo4j"
	StoreTypeSQLite StoreType = "sqlite"
	StoreTypeMemory StoreType = "memory"
)

// StoreConfig carries the settings of every backend; only the ones for
// Type are read.
type StoreConfig struct {
	Type       StoreType
	Neo4j      neo4jstore.Config
	SQLitePath string
}

// NewStore creates a store instance based on the provided configuration.
// No backend contacts its server here.
func NewStore(config StoreConfig, logger *zap.Logger) (ports.MemoryStore, error) {
	switch config.Type {
	case StoreTypeNeo4j, "":
		store, err := neo4jstore.NewStore(config.Neo4j, logger.Named("neo4j"))
		if err != nil {
			return nil, err
		}
		return store, nil
	case StoreTypeSQLite:
		store, err := sqlite.NewStore(config.SQLitePath, logger.Named("sqlite"))
		if err != nil {
			return nil, err
		}
		return store, nil
	case StoreTypeMemory:
		return memory.NewStore(logger.Named("memory")), nil
	default:
		return nil, fmt.Errorf("unsupported store type: %s", config.Type)
	}
}

// SupportedTypes returns the list of supported store types.
func SupportedTypes() []StoreType {
	return []StoreType{StoreTypeNeo4j, StoreTypeSQLite, StoreTypeMemory}
}
