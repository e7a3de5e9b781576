// Package memory is an in-process MemoryStore used for local development
// and tests. Relevance is TF-IDF over lower-cased word tokens.
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/TeleViaBox/mini-neo4j-agent-backend/application/ports"
	"github.com/TeleViaBox/mini-neo4j-agent-backend/domain/core/entities"
	pkgerrors "github.com/TeleViaBox/mini-neo4j-agent-backend/pkg/errors"

	"go.uber.org/zap"
)

// IndexName mirrors the name of the Neo4j full-text index so error
// messages read the same across backends.
const IndexName = "memoryText"

type document struct {
	memory entities.Memory
	terms  map[string]int
	length int
}

// Store keeps users, memories and the possession relation in maps guarded
// by a single RWMutex.
type Store struct {
	mu       sync.RWMutex
	users    map[string]entities.User
	memories map[string]*document
	order    []string            // memory ids in insertion order
	owns     map[string][]string // user id -> memory ids
	docFreq  map[string]int
	indexed  bool
	closed   bool

	closeOnce sync.Once
	logger    *zap.Logger
}

var _ ports.MemoryStore = (*Store)(nil)

// NewStore creates an empty store. The full-text index does not exist
// until InitSchema is called.
func NewStore(logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		users:    make(map[string]entities.User),
		memories: make(map[string]*document),
		owns:     make(map[string][]string),
		docFreq:  make(map[string]int),
		logger:   logger,
	}
}

// Ping reports false once the store has been closed.
func (s *Store) Ping(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.closed, nil
}

// InitSchema enables the full-text index. Uniqueness is always enforced.
func (s *Store) InitSchema(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return pkgerrors.NewUnavailableError("memory store")
	}
	if !s.indexed {
		s.indexed = true
		s.logger.Debug("In-memory full-text index enabled", zap.String("index", IndexName))
	}
	return nil
}

// AddMemory upserts the owner and records the memory in one critical
// section.
func (s *Store) AddMemory(ctx context.Context, m entities.Memory) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	terms, length := tokenize(m.Text)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return pkgerrors.NewUnavailableError("memory store")
	}
	if _, exists := s.memories[m.ID]; exists {
		return pkgerrors.NewDatabaseError("add_memory", fmt.Errorf("memory %q already exists", m.ID)).
			WithCode(pkgerrors.CodeDuplicateMemoryID)
	}

	if _, ok := s.users[m.UserID]; !ok {
		s.users[m.UserID] = m.Owner()
	}
	s.memories[m.ID] = &document{memory: m, terms: terms, length: length}
	s.order = append(s.order, m.ID)
	s.owns[m.UserID] = append(s.owns[m.UserID], m.ID)
	for term := range terms {
		s.docFreq[term]++
	}
	return nil
}

// SearchMemories scores every memory against the query, keeps those owned
// by userID and returns the best limit hits. Equal scores keep insertion
// order.
func (s *Store) SearchMemories(ctx context.Context, userID, query string, limit int) ([]entities.SearchHit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	queryTerms, _ := tokenize(query)

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, pkgerrors.NewUnavailableError("memory store")
	}
	if !s.indexed {
		return nil, pkgerrors.NewIndexUnavailableError(IndexName)
	}

	total := float64(len(s.memories))
	hits := make([]entities.SearchHit, 0)
	for _, id := range s.order {
		doc := s.memories[id]
		score := 0.0
		for term := range queryTerms {
			tf := doc.terms[term]
			if tf == 0 {
				continue
			}
			idf := math.Log(1 + total/float64(s.docFreq[term]))
			score += float64(tf) / float64(doc.length) * idf
		}
		if score <= 0 || doc.memory.UserID != userID {
			continue
		}
		hits = append(hits, entities.SearchHit{
			ID:        doc.memory.ID,
			Text:      doc.memory.Text,
			CreatedAt: doc.memory.CreatedAt,
			Score:     score,
		})
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if limit >= 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// MemoriesOf returns the ids of the memories owned by userID in insertion
// order.
func (s *Store) MemoriesOf(userID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.owns[userID]...)
}

// Close marks the store closed. Later calls are no-ops.
func (s *Store) Close(ctx context.Context) error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
	})
	return nil
}

func tokenize(text string) (map[string]int, int) {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	terms := make(map[string]int, len(fields))
	for _, f := range fields {
		terms[f]++
	}
	return terms, len(fields)
}
