package di

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/TeleViaBox/mini-neo4j-agent-backend/infrastructure/config"
	"github.com/TeleViaBox/mini-neo4j-agent-backend/infrastructure/messaging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		Environment:          "test",
		StoreDriver:          "memory",
		LogLevel:             "error",
		ServiceName:          "memory-api-test",
		MetricsNamespace:     "memtest",
		EnableMetrics:        true,
		EnableCircuitBreaker: true,
	}
}

func TestInitializeContainer(t *testing.T) {
	ctx := context.Background()

	container, cleanup, err := InitializeContainer(ctx, testConfig())
	require.NoError(t, err)
	defer cleanup()

	assert.NotNil(t, container.Logger)
	assert.NotNil(t, container.Metrics)
	assert.NotNil(t, container.Handler)
	assert.IsType(t, &messaging.NoopPublisher{}, container.Publisher)
	require.NoError(t, container.Service.InitSchema(ctx))

	body := `{"user_id":"u1","text":"wire it all together"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/memories", strings.NewReader(body))
	w := httptest.NewRecorder()
	container.Handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w = httptest.NewRecorder()
	container.Handler.ServeHTTP(w, req)
	assert.Contains(t, w.Body.String(), "memtest_memories_created_total 1")
	assert.Contains(t, w.Body.String(), `memtest_store_operations_total{operation="add_memory",status="success"} 1`)
}

func TestInitializeContainer_UnknownDriver(t *testing.T) {
	cfg := testConfig()
	cfg.StoreDriver = "cassandra"

	_, _, err := InitializeContainer(context.Background(), cfg)

	assert.ErrorContains(t, err, "unsupported store type")
}

func TestProvideMetrics_Disabled(t *testing.T) {
	cfg := testConfig()
	cfg.EnableMetrics = false

	assert.Nil(t, ProvideMetrics(cfg))
}

func TestProvideLogger_RejectsUnknownLevel(t *testing.T) {
	cfg := testConfig()
	cfg.LogLevel = "loud"

	_, err := ProvideLogger(cfg)

	assert.Error(t, err)
}
