// Package sqlite implements ports.MemoryStore on an embedded SQLite
// database. Relevance search uses an FTS5 virtual table ranked by bm25.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/TeleViaBox/mini-neo4j-agent-backend/application/ports"
	"github.com/TeleViaBox/mini-neo4j-agent-backend/domain/core/entities"
	pkgerrors "github.com/TeleViaBox/mini-neo4j-agent-backend/pkg/errors"

	"go.uber.org/zap"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// IndexName is the FTS5 table holding memory text.
const IndexName = "memory_text"

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY
	);`,
	`CREATE TABLE IF NOT EXISTS memories (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id),
		text TEXT NOT NULL,
		created_at TEXT NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS has_memory (
		memory_id TEXT PRIMARY KEY REFERENCES memories(id),
		user_id TEXT NOT NULL REFERENCES users(id)
	);`,
	`CREATE INDEX IF NOT EXISTS idx_memories_user ON memories(user_id);`,
	`CREATE VIRTUAL TABLE IF NOT EXISTS memory_text USING fts5(
		memory_id UNINDEXED,
		text,
		tokenize='unicode61 remove_diacritics 2'
	);`,
	`CREATE TRIGGER IF NOT EXISTS memories_text_ai AFTER INSERT ON memories BEGIN
		INSERT INTO memory_text(memory_id, text) VALUES (new.id, new.text);
	END;`,
}

// Store is a SQLite backed memory store.
type Store struct {
	db        *sql.DB
	logger    *zap.Logger
	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

var _ ports.MemoryStore = (*Store)(nil)

// NewStore opens (creating if needed) the database at path. It does not
// create the schema; call InitSchema for that.
func NewStore(path string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if path != MemoryPath && !strings.HasPrefix(path, "file:") {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One shared connection avoids writer lock contention and keeps an
	// in-memory database alive for the lifetime of the store.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		`PRAGMA journal_mode=WAL;`,
		`PRAGMA synchronous=NORMAL;`,
		`PRAGMA busy_timeout=5000;`,
		`PRAGMA foreign_keys=ON;`,
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply %q: %w", pragma, err)
		}
	}

	logger.Info("Opened SQLite memory store", zap.String("path", path))
	return &Store{db: db, logger: logger}, nil
}

// Ping runs a trivial round trip. A closed store reports not ready.
func (s *Store) Ping(ctx context.Context) (bool, error) {
	if s.closed.Load() {
		return false, nil
	}
	if err := s.db.PingContext(ctx); err != nil {
		if errors.Is(err, sql.ErrConnDone) {
			return false, nil
		}
		return false, pkgerrors.NewDatabaseError("ping", err)
	}
	return true, nil
}

// InitSchema creates the tables, the FTS5 index and its insert trigger.
// Every statement is IF NOT EXISTS so repeated calls are no-ops.
func (s *Store) InitSchema(ctx context.Context) error {
	if s.closed.Load() {
		return pkgerrors.NewUnavailableError("sqlite")
	}
	for _, stmt := range schemaStatements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return s.classify("init_schema", err)
		}
	}
	s.logger.Info("SQLite schema ready", zap.String("index", IndexName))
	return nil
}

// AddMemory upserts the user, inserts the memory (the trigger feeds the
// FTS table) and records ownership in one transaction.
func (s *Store) AddMemory(ctx context.Context, m entities.Memory) error {
	if s.closed.Load() {
		return pkgerrors.NewUnavailableError("sqlite")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return s.classify("add_memory", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO users(id) VALUES (?) ON CONFLICT(id) DO NOTHING`, m.UserID); err != nil {
		return s.classify("add_memory", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO memories(id, user_id, text, created_at) VALUES (?, ?, ?, ?)`,
		m.ID, m.UserID, m.Text, m.CreatedAt); err != nil {
		return s.classify("add_memory", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO has_memory(memory_id, user_id) VALUES (?, ?)`, m.ID, m.UserID); err != nil {
		return s.classify("add_memory", err)
	}

	if err := tx.Commit(); err != nil {
		return s.classify("add_memory", err)
	}
	return nil
}

// SearchMemories matches the FTS index across all memories, keeps the
// caller's own and returns them by descending score.
func (s *Store) SearchMemories(ctx context.Context, userID, query string, limit int) ([]entities.SearchHit, error) {
	if s.closed.Load() {
		return nil, pkgerrors.NewUnavailableError("sqlite")
	}

	// query is an FTS5 expression; syntax errors surface as INVALID_QUERY.
	rows, err := s.db.QueryContext(ctx, `
SELECT m.id, m.text, m.created_at, -bm25(memory_text) AS score
FROM memory_text
JOIN memories m ON m.id = memory_text.memory_id
WHERE memory_text MATCH ?
AND m.user_id = ?
ORDER BY score DESC
LIMIT ?`, query, userID, limit)
	if err != nil {
		return nil, s.classify("search_memories", err)
	}
	defer rows.Close()

	hits := []entities.SearchHit{}
	for rows.Next() {
		var h entities.SearchHit
		if err := rows.Scan(&h.ID, &h.Text, &h.CreatedAt, &h.Score); err != nil {
			return nil, s.classify("search_memories", err)
		}
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, s.classify("search_memories", err)
	}
	return hits, nil
}

// SchemaObjects counts the uniqueness-bearing tables and the full-text
// index that InitSchema creates.
func (s *Store) SchemaObjects(ctx context.Context) (constraints, indexes int, err error) {
	err = s.db.QueryRowContext(ctx, `
SELECT
	(SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name IN ('users', 'memories')),
	(SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = ?)`, IndexName).
		Scan(&constraints, &indexes)
	return constraints, indexes, err
}

// Close closes the database exactly once.
func (s *Store) Close(ctx context.Context) error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.closeErr = s.db.Close()
		if s.closeErr == nil {
			s.logger.Info("Closed SQLite memory store")
		}
	})
	return s.closeErr
}

func (s *Store) classify(op string, err error) error {
	switch {
	case errors.Is(err, sql.ErrConnDone):
		return pkgerrors.NewUnavailableError("sqlite").WithCause(err)
	case op == "search_memories" && isMissingTable(err):
		return pkgerrors.NewIndexUnavailableError(IndexName).WithCause(err)
	case op == "search_memories" && isQuerySyntaxError(err):
		return pkgerrors.NewValidationError("query could not be parsed").
			WithCode(pkgerrors.CodeInvalidQuery).
			WithCause(err)
	case isDuplicateKey(err):
		return pkgerrors.NewDatabaseError(op, err).WithCode(pkgerrors.CodeDuplicateMemoryID)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	}
	s.logger.Error("SQLite operation failed", zap.String("operation", op), zap.Error(err))
	return pkgerrors.NewDatabaseError(op, err)
}

// isDuplicateKey reports a primary key collision. Other constraint
// failures (NOT NULL, foreign keys) are plain database errors.
func isDuplicateKey(err error) bool {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}

func isMissingTable(err error) bool {
	return err != nil && strings.Contains(err.Error(), "no such table")
}

// FTS5 parser messages for a MATCH expression it cannot compile.
var ftsSyntaxErrors = []string{
	"fts5: syntax error",
	"unterminated string",
	"unknown special query",
	"no such column",
}

func isQuerySyntaxError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, m := range ftsSyntaxErrors {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}
