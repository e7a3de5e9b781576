package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/TeleViaBox/mini-neo4j-agent-backend/application/ports"
	"github.com/TeleViaBox/mini-neo4j-agent-backend/application/ports/mocks"
	"github.com/TeleViaBox/mini-neo4j-agent-backend/application/services"
	"github.com/TeleViaBox/mini-neo4j-agent-backend/domain/core/entities"
	"github.com/TeleViaBox/mini-neo4j-agent-backend/infrastructure/messaging"
	"github.com/TeleViaBox/mini-neo4j-agent-backend/infrastructure/persistence/memory"
	"github.com/TeleViaBox/mini-neo4j-agent-backend/infrastructure/persistence/sqlite"
	pkgerrors "github.com/TeleViaBox/mini-neo4j-agent-backend/pkg/errors"
	"github.com/TeleViaBox/mini-neo4j-agent-backend/pkg/observability"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestRouter(t *testing.T, store ports.MemoryStore, metrics *observability.Collector) *chi.Mux {
	t.Helper()
	logger := zap.NewNop()
	svc := services.NewMemoryService(store, messaging.NewNoopPublisher(logger), metrics, logger)
	return NewRouter(svc, metrics, RouterConfig{
		ServiceName:   "memory-api-test",
		EnableMetrics: metrics != nil,
		EnableCORS:    true,
	}, logger).Setup()
}

func newReadyStore(t *testing.T) *memory.Store {
	t.Helper()
	store := memory.NewStore(zap.NewNop())
	require.NoError(t, store.InitSchema(context.Background()))
	return store
}

func do(t *testing.T, router http.Handler, method, target string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) pkgerrors.ErrorResponse {
	t.Helper()
	var body pkgerrors.ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return body
}

func searchURL(userID, q, limit string) string {
	v := url.Values{}
	v.Set("user_id", userID)
	v.Set("q", q)
	if limit != "" {
		v.Set("limit", limit)
	}
	return "/v1/memories/search?" + v.Encode()
}

func TestHealth(t *testing.T) {
	store := new(mocks.MockMemoryStore)
	router := newTestRouter(t, store, nil)

	w := do(t, router, http.MethodGet, "/v1/health", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok":true}`, w.Body.String())
	assert.Equal(t, "v1", w.Header().Get("X-API-Version"))
	store.AssertNotCalled(t, "Ping", mock.Anything)
}

func TestReady(t *testing.T) {
	t.Run("store reachable", func(t *testing.T) {
		router := newTestRouter(t, newReadyStore(t), nil)

		w := do(t, router, http.MethodGet, "/v1/ready", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"ready":true}`, w.Body.String())
	})

	t.Run("store unavailable", func(t *testing.T) {
		store := newReadyStore(t)
		require.NoError(t, store.Close(context.Background()))
		router := newTestRouter(t, store, nil)

		w := do(t, router, http.MethodGet, "/v1/ready", nil)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, pkgerrors.CodeStoreNotReady, decodeError(t, w).Code)
	})

	t.Run("probe fails", func(t *testing.T) {
		store := new(mocks.MockMemoryStore)
		store.On("Ping", mock.Anything).Return(false, errors.New("auth failed"))
		router := newTestRouter(t, store, nil)

		w := do(t, router, http.MethodGet, "/v1/ready", nil)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestCreateAndSearch(t *testing.T) {
	router := newTestRouter(t, newReadyStore(t), nil)

	w := do(t, router, http.MethodPost, "/v1/memories", map[string]string{"user_id": "u1", "text": "buy milk"})
	require.Equal(t, http.StatusOK, w.Code)

	var created entities.Memory
	require.NoError(t, json.NewDecoder(w.Body).Decode(&created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "u1", created.UserID)
	assert.Equal(t, "buy milk", created.Text)
	assert.NotEmpty(t, created.CreatedAt)

	w = do(t, router, http.MethodGet, searchURL("u1", "milk", ""), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Results []entities.SearchHit `json:"results"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.Len(t, resp.Results, 1)
	assert.Equal(t, created.ID, resp.Results[0].ID)
	assert.Equal(t, created.CreatedAt, resp.Results[0].CreatedAt)
	assert.Greater(t, resp.Results[0].Score, 0.0)

	// other users see nothing
	w = do(t, router, http.MethodGet, searchURL("u2", "milk", ""), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"results":[]}`, w.Body.String())
}

func TestCreateMemory_BadRequests(t *testing.T) {
	tests := []struct {
		name    string
		body    interface{}
		message string
	}{
		{"malformed json", `{"user_id":`, "invalid request body"},
		{"missing text", map[string]string{"user_id": "u1"}, "text is required"},
		{"missing user", map[string]string{"text": "hello"}, "user_id is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := new(mocks.MockMemoryStore)
			router := newTestRouter(t, store, nil)

			w := do(t, router, http.MethodPost, "/v1/memories", tt.body)

			require.Equal(t, http.StatusBadRequest, w.Code)
			body := decodeError(t, w)
			assert.Equal(t, string(pkgerrors.ErrorTypeValidation), body.Type)
			assert.Contains(t, body.Message, tt.message)
			store.AssertNotCalled(t, "AddMemory", mock.Anything, mock.Anything)
		})
	}
}

func TestSearchMemories_LimitValidation(t *testing.T) {
	for _, limit := range []string{"0", "51", "-3", "ten"} {
		t.Run(limit, func(t *testing.T) {
			router := newTestRouter(t, newReadyStore(t), nil)

			w := do(t, router, http.MethodGet, searchURL("u1", "milk", limit), nil)

			require.Equal(t, http.StatusBadRequest, w.Code)
			body := decodeError(t, w)
			assert.Equal(t, "limit must be 1..50", body.Message)
			assert.EqualValues(t, 1, body.Details["min"])
			assert.EqualValues(t, 50, body.Details["max"])
		})
	}
}

func TestSearchMemories_DefaultLimit(t *testing.T) {
	store := new(mocks.MockMemoryStore)
	store.On("Ping", mock.Anything).Return(true, nil)
	store.On("SearchMemories", mock.Anything, "u1", "milk", entities.DefaultSearchLimit).
		Return([]entities.SearchHit{}, nil)
	router := newTestRouter(t, store, nil)

	w := do(t, router, http.MethodGet, searchURL("u1", "milk", ""), nil)

	assert.Equal(t, http.StatusOK, w.Code)
	store.AssertExpectations(t)
}

func TestSearchMemories_IndexMissing(t *testing.T) {
	// schema never initialized
	router := newTestRouter(t, memory.NewStore(zap.NewNop()), nil)

	w := do(t, router, http.MethodGet, searchURL("u1", "milk", "5"), nil)

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	body := decodeError(t, w)
	assert.Equal(t, string(pkgerrors.ErrorTypeIndexUnavailable), body.Type)
	assert.Equal(t, pkgerrors.CodeIndexMissing, body.Code)
}

func TestSearchMemories_QuerySyntax(t *testing.T) {
	ctx := context.Background()
	store, err := sqlite.NewStore(sqlite.MemoryPath, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close(ctx) })
	require.NoError(t, store.InitSchema(ctx))
	router := newTestRouter(t, store, nil)
	for _, text := range []string{"applesauce jar", "pie with apple"} {
		w := do(t, router, http.MethodPost, "/v1/memories", map[string]string{"user_id": "u1", "text": text})
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := do(t, router, http.MethodGet, searchURL("u1", "apple*", ""), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Results []entities.SearchHit `json:"results"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Len(t, resp.Results, 2)

	w = do(t, router, http.MethodGet, searchURL("u1", `"apple`, ""), nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeError(t, w)
	assert.Equal(t, string(pkgerrors.ErrorTypeValidation), body.Type)
	assert.Equal(t, pkgerrors.CodeInvalidQuery, body.Code)
}

func TestUnknownRoute(t *testing.T) {
	router := newTestRouter(t, new(mocks.MockMemoryStore), nil)

	w := do(t, router, http.MethodGet, "/v1/nope", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", decodeError(t, w).Type)
}

func TestMetricsEndpoint(t *testing.T) {
	metrics := observability.NewCollector("memory_api")
	router := newTestRouter(t, newReadyStore(t), metrics)

	do(t, router, http.MethodGet, "/v1/health", nil)
	w := do(t, router, http.MethodGet, "/metrics", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "memory_api_http_requests_total")
	assert.Contains(t, w.Body.String(), `route="/v1/health"`)
}

func TestMetricsEndpoint_Disabled(t *testing.T) {
	router := newTestRouter(t, newReadyStore(t), nil)

	w := do(t, router, http.MethodGet, "/metrics", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
