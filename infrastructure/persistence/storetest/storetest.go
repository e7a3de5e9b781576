// Package storetest is a conformance suite shared by every ports.MemoryStore
// implementation. Each backend's tests call Run with a factory that returns
// a fresh store whose schema has not been initialized yet.
package storetest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/TeleViaBox/mini-neo4j-agent-backend/application/ports"
	"github.com/TeleViaBox/mini-neo4j-agent-backend/domain/core/entities"
	pkgerrors "github.com/TeleViaBox/mini-neo4j-agent-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Harness describes the backend under test.
type Harness struct {
	// New returns a fresh store with no schema initialized. The suite
	// closes it.
	New func(t *testing.T) ports.MemoryStore

	// SchemaObjects reports how many uniqueness constraints and full-text
	// indexes exist. Optional.
	SchemaObjects func(t *testing.T, store ports.MemoryStore) (constraints, indexes int)

	// SharedSchema is set for backends where the schema outlives a single
	// store instance, so "search before init" cannot be observed.
	SharedSchema bool

	// QuerySyntax is set for backends that hand the query to a full-text
	// engine with its own syntax (prefix, phrase, boolean operators).
	QuerySyntax bool
}

// Run executes the full suite.
func Run(t *testing.T, h Harness) {
	t.Run("PingReportsReady", func(t *testing.T) { testPingReportsReady(t, h) })
	t.Run("InitSchemaIsIdempotent", func(t *testing.T) { testInitSchemaIsIdempotent(t, h) })
	t.Run("SearchBeforeInitFails", func(t *testing.T) { testSearchBeforeInitFails(t, h) })
	t.Run("RoundTrip", func(t *testing.T) { testRoundTrip(t, h) })
	t.Run("DuplicateMemoryIDFails", func(t *testing.T) { testDuplicateMemoryIDFails(t, h) })
	t.Run("OwnershipIsolation", func(t *testing.T) { testOwnershipIsolation(t, h) })
	t.Run("Ranking", func(t *testing.T) { testRanking(t, h) })
	t.Run("LimitKeepsHighestScores", func(t *testing.T) { testLimitKeepsHighestScores(t, h) })
	t.Run("EmptyResult", func(t *testing.T) { testEmptyResult(t, h) })
	t.Run("ConcurrentWrites", func(t *testing.T) { testConcurrentWrites(t, h) })
	t.Run("CloseIsIdempotent", func(t *testing.T) { testCloseIsIdempotent(t, h) })
	if h.QuerySyntax {
		t.Run("PrefixQuery", func(t *testing.T) { testPrefixQuery(t, h) })
		t.Run("PhraseQuery", func(t *testing.T) { testPhraseQuery(t, h) })
		t.Run("BooleanQuery", func(t *testing.T) { testBooleanQuery(t, h) })
		t.Run("MalformedQueryIsInvalid", func(t *testing.T) { testMalformedQueryIsInvalid(t, h) })
	}
}

func newReadyStore(t *testing.T, h Harness) ports.MemoryStore {
	t.Helper()
	store := h.New(t)
	t.Cleanup(func() { _ = store.Close(context.Background()) })
	require.NoError(t, store.InitSchema(context.Background()))
	return store
}

func newUserID() string {
	return "user-" + uuid.NewString()
}

func addMemory(t *testing.T, store ports.MemoryStore, userID, text string) entities.Memory {
	t.Helper()
	m, err := entities.NewMemory(uuid.NewString(), userID, text, time.Now().UTC().Format(time.RFC3339Nano))
	require.NoError(t, err)
	require.NoError(t, store.AddMemory(context.Background(), m))
	return m
}

func scores(hits []entities.SearchHit) []float64 {
	out := make([]float64, len(hits))
	for i, h := range hits {
		out[i] = h.Score
	}
	return out
}

func assertDescending(t *testing.T, hits []entities.SearchHit) {
	t.Helper()
	s := scores(hits)
	assert.True(t, sort.SliceIsSorted(s, func(i, j int) bool { return s[i] > s[j] }),
		"scores not descending: %v", s)
}

func testPingReportsReady(t *testing.T, h Harness) {
	store := h.New(t)
	defer store.Close(context.Background())

	ready, err := store.Ping(context.Background())
	require.NoError(t, err)
	assert.True(t, ready)
}

func testInitSchemaIsIdempotent(t *testing.T, h Harness) {
	ctx := context.Background()
	store := h.New(t)
	defer store.Close(ctx)

	require.NoError(t, store.InitSchema(ctx))
	require.NoError(t, store.InitSchema(ctx))

	if h.SchemaObjects != nil {
		constraints, indexes := h.SchemaObjects(t, store)
		assert.Equal(t, 2, constraints)
		assert.Equal(t, 1, indexes)
	}
}

func testSearchBeforeInitFails(t *testing.T, h Harness) {
	if h.SharedSchema {
		t.Skip("schema is shared with other store instances")
	}
	store := h.New(t)
	defer store.Close(context.Background())

	hits, err := store.SearchMemories(context.Background(), newUserID(), "apple", 10)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsIndexUnavailable(err), "expected index unavailable, got %v", err)
	assert.Nil(t, hits)
}

func testRoundTrip(t *testing.T, h Harness) {
	store := newReadyStore(t, h)
	userID := newUserID()
	created := addMemory(t, store, userID, "buy milk")

	hits, err := store.SearchMemories(context.Background(), userID, "milk", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, created.ID, hits[0].ID)
	assert.Equal(t, created.Text, hits[0].Text)
	assert.Equal(t, created.CreatedAt, hits[0].CreatedAt)
	assert.Greater(t, hits[0].Score, 0.0)
}

func testDuplicateMemoryIDFails(t *testing.T, h Harness) {
	ctx := context.Background()
	store := newReadyStore(t, h)
	userID := newUserID()
	first := addMemory(t, store, userID, "original walnut note")

	dup := first
	dup.Text = "overwritten walnut note"
	err := store.AddMemory(ctx, dup)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsDatabase(err), "expected database error, got %v", err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeDuplicateMemoryID))

	hits, err := store.SearchMemories(ctx, userID, "walnut", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "original walnut note", hits[0].Text)
}

func testOwnershipIsolation(t *testing.T, h Harness) {
	ctx := context.Background()
	store := newReadyStore(t, h)
	owner, other := newUserID(), newUserID()
	addMemory(t, store, owner, "secret apricot stash")
	addMemory(t, store, owner, "apricot apricot apricot")

	hits, err := store.SearchMemories(ctx, other, "apricot", 50)
	require.NoError(t, err)
	assert.Empty(t, hits)

	hits, err = store.SearchMemories(ctx, owner, "apricot", 50)
	require.NoError(t, err)
	assert.Len(t, hits, 2)
}

func testRanking(t *testing.T, h Harness) {
	ctx := context.Background()
	store := newReadyStore(t, h)
	userID := newUserID()
	pie := addMemory(t, store, userID, "apple pie recipe")
	tree := addMemory(t, store, userID, "apple tree care")
	addMemory(t, store, userID, "banana bread")

	hits, err := store.SearchMemories(ctx, userID, "apple", 10)
	require.NoError(t, err)
	require.Len(t, hits, 2)

	ids := []string{hits[0].ID, hits[1].ID}
	assert.ElementsMatch(t, []string{pie.ID, tree.ID}, ids)
	assertDescending(t, hits)
}

func testLimitKeepsHighestScores(t *testing.T, h Harness) {
	ctx := context.Background()
	store := newReadyStore(t, h)
	userID := newUserID()
	texts := []string{
		"mango",
		"mango smoothie",
		"mango mango salsa",
		"fresh mango chutney with lime",
		"dried mango slices for the long hiking trip next week",
	}
	for _, text := range texts {
		addMemory(t, store, userID, text)
	}

	all, err := store.SearchMemories(ctx, userID, "mango", 50)
	require.NoError(t, err)
	require.Len(t, all, len(texts))
	assertDescending(t, all)

	top, err := store.SearchMemories(ctx, userID, "mango", 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.InDeltaSlice(t, scores(all[:2]), scores(top), 1e-9)
}

func testEmptyResult(t *testing.T, h Harness) {
	store := newReadyStore(t, h)
	userID := newUserID()
	addMemory(t, store, userID, "buy milk")

	hits, err := store.SearchMemories(context.Background(), userID, "zucchini", 10)
	require.NoError(t, err)
	assert.NotNil(t, hits)
	assert.Empty(t, hits)
}

func testConcurrentWrites(t *testing.T, h Harness) {
	ctx := context.Background()
	store := newReadyStore(t, h)
	userID := newUserID()

	const writers = 20
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m, err := entities.NewMemory(uuid.NewString(), userID, fmt.Sprintf("parallel kiwi note %d", i), time.Now().UTC().Format(time.RFC3339Nano))
			if err != nil {
				errs <- err
				return
			}
			errs <- store.AddMemory(ctx, m)
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	hits, err := store.SearchMemories(ctx, userID, "kiwi", 50)
	require.NoError(t, err)
	assert.Len(t, hits, writers)
}

func testCloseIsIdempotent(t *testing.T, h Harness) {
	ctx := context.Background()
	store := h.New(t)

	require.NoError(t, store.Close(ctx))
	require.NoError(t, store.Close(ctx))

	ready, err := store.Ping(ctx)
	require.NoError(t, err)
	assert.False(t, ready)
}

func seedOrchard(t *testing.T, store ports.MemoryStore, userID string) map[string]string {
	t.Helper()
	ids := map[string]string{}
	for _, text := range []string{"applesauce jar", "pie with apple", "apple pie"} {
		ids[text] = addMemory(t, store, userID, text).ID
	}
	return ids
}

func hitIDs(hits []entities.SearchHit) []string {
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.ID
	}
	return out
}

func testPrefixQuery(t *testing.T, h Harness) {
	store := newReadyStore(t, h)
	userID := newUserID()
	ids := seedOrchard(t, store, userID)

	hits, err := store.SearchMemories(context.Background(), userID, "apple*", 10)

	require.NoError(t, err)
	assert.ElementsMatch(t, []string{ids["applesauce jar"], ids["pie with apple"], ids["apple pie"]}, hitIDs(hits))
}

func testPhraseQuery(t *testing.T, h Harness) {
	store := newReadyStore(t, h)
	userID := newUserID()
	ids := seedOrchard(t, store, userID)

	hits, err := store.SearchMemories(context.Background(), userID, `"apple pie"`, 10)

	require.NoError(t, err)
	assert.Equal(t, []string{ids["apple pie"]}, hitIDs(hits))
}

func testBooleanQuery(t *testing.T, h Harness) {
	store := newReadyStore(t, h)
	userID := newUserID()
	ids := seedOrchard(t, store, userID)

	hits, err := store.SearchMemories(context.Background(), userID, "apple AND pie", 10)

	require.NoError(t, err)
	assert.ElementsMatch(t, []string{ids["pie with apple"], ids["apple pie"]}, hitIDs(hits))
}

func testMalformedQueryIsInvalid(t *testing.T, h Harness) {
	store := newReadyStore(t, h)
	userID := newUserID()
	seedOrchard(t, store, userID)

	hits, err := store.SearchMemories(context.Background(), userID, `"apple`, 10)

	require.Error(t, err)
	assert.Nil(t, hits)
	assert.True(t, pkgerrors.IsValidation(err), "unexpected error: %v", err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInvalidQuery))
}
