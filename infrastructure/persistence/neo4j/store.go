// Package neo4j implements ports.MemoryStore on a Neo4j graph. Users and
// memories are nodes joined by HAS_MEMORY; relevance comes from the
// memoryText Lucene full-text index.
package neo4j

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/TeleViaBox/mini-neo4j-agent-backend/application/ports"
	"github.com/TeleViaBox/mini-neo4j-agent-backend/domain/core/entities"
	pkgerrors "github.com/TeleViaBox/mini-neo4j-agent-backend/pkg/errors"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"
)

// IndexName is the full-text index over Memory.text.
const IndexName = "memoryText"

const (
	userConstraintName   = "user_id"
	memoryConstraintName = "memory_id"
)

// Executed in order by InitSchema. Each is a no-op when the object exists.
var schemaStatements = []string{
	`CREATE CONSTRAINT user_id IF NOT EXISTS FOR (u:User) REQUIRE u.id IS UNIQUE`,
	`CREATE CONSTRAINT memory_id IF NOT EXISTS FOR (m:Memory) REQUIRE m.id IS UNIQUE`,
	`CREATE FULLTEXT INDEX memoryText IF NOT EXISTS FOR (m:Memory) ON EACH [m.text]`,
}

const addMemoryCypher = `
	MERGE (u:User {id: $user_id})
	CREATE (m:Memory {id: $id, user_id: $user_id, text: $text, created_at: $created_at})
	MERGE (u)-[:HAS_MEMORY]->(m)
`

const searchMemoriesCypher = `
	CALL db.index.fulltext.queryNodes('memoryText', $q) YIELD node, score
	WHERE node.user_id = $user_id
	RETURN node.id AS id, node.text AS text, node.created_at AS created_at, score
	ORDER BY score DESC
	LIMIT $limit
`

// Config holds the connection settings. Building a store never checks
// reachability.
type Config struct {
	URI      string
	Username string
	Password string
	Database string
}

// Store owns the single long-lived driver. Every operation opens its own
// session and closes it before returning.
type Store struct {
	driver   neo4j.DriverWithContext
	database string
	logger   *zap.Logger

	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

var _ ports.MemoryStore = (*Store)(nil)

// NewStore creates the driver for cfg.
func NewStore(cfg Config, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("connect", err)
	}
	logger.Info("Created Neo4j driver",
		zap.String("uri", cfg.URI),
		zap.String("database", cfg.Database),
	)
	return &Store{driver: driver, database: cfg.Database, logger: logger}, nil
}

func (s *Store) session(ctx context.Context, mode neo4j.AccessMode) neo4j.SessionWithContext {
	return s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: mode, DatabaseName: s.database})
}

// Ping runs RETURN 1. Connectivity failures and a closed store report
// (false, nil); anything else is returned.
func (s *Store) Ping(ctx context.Context) (bool, error) {
	if s.closed.Load() {
		return false, nil
	}
	session := s.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	result, err := session.Run(ctx, "RETURN 1 AS ok", nil)
	if err == nil {
		_, err = result.Consume(ctx)
	}
	if err != nil {
		if isUnavailable(err) {
			s.logger.Debug("Neo4j not reachable", zap.Error(err))
			return false, nil
		}
		return false, s.classify("ping", err)
	}
	return true, nil
}

// InitSchema creates both uniqueness constraints and the full-text index.
func (s *Store) InitSchema(ctx context.Context) error {
	if s.closed.Load() {
		return pkgerrors.NewUnavailableError("neo4j")
	}
	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	for _, stmt := range schemaStatements {
		result, err := session.Run(ctx, stmt, nil)
		if err == nil {
			_, err = result.Consume(ctx)
		}
		if err != nil {
			return s.classify("init_schema", err)
		}
	}
	s.logger.Info("Neo4j schema ready", zap.String("index", IndexName))
	return nil
}

// AddMemory merges the owner, creates the memory and the HAS_MEMORY edge
// in one explicit transaction. Managed transactions are avoided so the
// driver never retries the write.
func (s *Store) AddMemory(ctx context.Context, m entities.Memory) error {
	if s.closed.Load() {
		return pkgerrors.NewUnavailableError("neo4j")
	}
	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	tx, err := session.BeginTransaction(ctx)
	if err != nil {
		return s.classify("add_memory", err)
	}
	defer tx.Close(ctx)

	result, err := tx.Run(ctx, addMemoryCypher, map[string]any{
		"id":         m.ID,
		"user_id":    m.UserID,
		"text":       m.Text,
		"created_at": m.CreatedAt,
	})
	if err != nil {
		return s.classify("add_memory", err)
	}
	if _, err := result.Consume(ctx); err != nil {
		return s.classify("add_memory", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return s.classify("add_memory", err)
	}
	return nil
}

// SearchMemories queries the full-text index across every memory, keeps
// the caller's own and returns at most limit hits by descending score.
func (s *Store) SearchMemories(ctx context.Context, userID, query string, limit int) ([]entities.SearchHit, error) {
	if s.closed.Load() {
		return nil, pkgerrors.NewUnavailableError("neo4j")
	}
	session := s.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	// q is handed to the index in Lucene query syntax; parse failures
	// surface as INVALID_QUERY.
	result, err := session.Run(ctx, searchMemoriesCypher, map[string]any{
		"q":       query,
		"user_id": userID,
		"limit":   limit,
	})
	if err != nil {
		return nil, s.classify("search_memories", err)
	}

	hits := []entities.SearchHit{}
	for result.Next(ctx) {
		record := result.Record()
		hits = append(hits, entities.SearchHit{
			ID:        stringValue(record, "id"),
			Text:      stringValue(record, "text"),
			CreatedAt: stringValue(record, "created_at"),
			Score:     floatValue(record, "score"),
		})
	}
	if err := result.Err(); err != nil {
		return nil, s.classify("search_memories", err)
	}
	return hits, nil
}

// SchemaObjects counts the named uniqueness constraints and the full-text
// index that InitSchema maintains.
func (s *Store) SchemaObjects(ctx context.Context) (constraints, indexes int, err error) {
	session := s.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	constraints, err = countSchema(ctx, session,
		`SHOW CONSTRAINTS YIELD name WHERE name IN $names RETURN count(*) AS n`,
		map[string]any{"names": []string{userConstraintName, memoryConstraintName}})
	if err != nil {
		return 0, 0, err
	}
	indexes, err = countSchema(ctx, session,
		`SHOW FULLTEXT INDEXES YIELD name WHERE name = $name RETURN count(*) AS n`,
		map[string]any{"name": IndexName})
	return constraints, indexes, err
}

// Close releases the driver once; later calls return the first result.
func (s *Store) Close(ctx context.Context) error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.closeErr = s.driver.Close(ctx)
		if s.closeErr == nil {
			s.logger.Info("Closed Neo4j driver")
		}
	})
	return s.closeErr
}

func countSchema(ctx context.Context, session neo4j.SessionWithContext, cypher string, params map[string]any) (int, error) {
	result, err := session.Run(ctx, cypher, params)
	if err != nil {
		return 0, err
	}
	record, err := result.Single(ctx)
	if err != nil {
		return 0, err
	}
	n, _ := record.Get("n")
	count, _ := n.(int64)
	return int(count), nil
}

func stringValue(record *neo4j.Record, key string) string {
	if v, ok := record.Get(key); ok && v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func floatValue(record *neo4j.Record, key string) float64 {
	v, _ := record.Get(key)
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	}
	return 0
}
