package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable LoadConfig reads so the host environment
// cannot leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"CONFIG_FILE", "SERVER_ADDRESS", "ENVIRONMENT", "SHUTDOWN_TIMEOUT_SECONDS",
		"STORE_DRIVER", "NEO4J_URI", "NEO4J_USER", "NEO4J_PASSWORD", "NEO4J_DATABASE",
		"SQLITE_PATH", "AWS_REGION", "EVENT_BUS_NAME", "AWS_LAMBDA_FUNCTION_NAME", "IS_LAMBDA",
		"LOG_LEVEL", "SERVICE_NAME", "METRICS_NAMESPACE", "OTEL_EXPORTER_OTLP_ENDPOINT",
		"CORS_ALLOWED_ORIGINS", "ENABLE_METRICS", "ENABLE_TRACING", "ENABLE_CORS",
		"ENABLE_CIRCUIT_BREAKER",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ServerAddress)
	assert.Equal(t, "neo4j", cfg.StoreDriver)
	assert.Equal(t, "neo4j://localhost:7687", cfg.Neo4jURI)
	assert.Equal(t, "neo4j", cfg.Neo4jUser)
	assert.Equal(t, "test12345", cfg.Neo4jPassword)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "mini-mem0-backend", cfg.ServiceName)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout())
	assert.True(t, cfg.EnableMetrics)
	assert.False(t, cfg.EnableTracing)
	assert.True(t, cfg.IsDevelopment())
	assert.False(t, cfg.IsLambda)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("STORE_DRIVER", "SQLite")
	t.Setenv("SQLITE_PATH", "/tmp/m.db")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("ENABLE_METRICS", "false")
	t.Setenv("AWS_LAMBDA_FUNCTION_NAME", "memories-api")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.StoreDriver)
	assert.Equal(t, "/tmp/m.db", cfg.SQLitePath)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
	assert.False(t, cfg.EnableMetrics)
	assert.True(t, cfg.IsLambda)
}

func TestLoadConfig_FileThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server_address: ":9090"
store_driver: memory
log_level: warn
enable_circuit_breaker: false
cors_allowed_origins:
  - https://app.example
`), 0o600))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("LOG_LEVEL", "error")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.ServerAddress)
	assert.Equal(t, "memory", cfg.StoreDriver)
	assert.Equal(t, "error", cfg.LogLevel, "environment wins over the file")
	assert.False(t, cfg.EnableCircuitBreaker)
	assert.Equal(t, []string{"https://app.example"}, cfg.CORSAllowedOrigins)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "absent.yaml"))

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"defaults are valid", func(c *Config) {}, ""},
		{"unknown driver", func(c *Config) { c.StoreDriver = "dynamodb" }, "STORE_DRIVER"},
		{"bad log level", func(c *Config) { c.LogLevel = "trace" }, "LOG_LEVEL"},
		{"zero shutdown timeout", func(c *Config) { c.ShutdownTimeoutSeconds = 0 }, "SHUTDOWN_TIMEOUT_SECONDS"},
		{"production dev password", func(c *Config) { c.Environment = "production" }, "NEO4J_PASSWORD"},
		{"production memory store", func(c *Config) {
			c.Environment = "production"
			c.StoreDriver = "memory"
		}, "memory store"},
		{"production real password", func(c *Config) {
			c.Environment = "production"
			c.Neo4jPassword = "s3cret"
		}, ""},
		{"sqlite without path", func(c *Config) {
			c.StoreDriver = "sqlite"
			c.SQLitePath = ""
		}, "SQLITE_PATH"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaults()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
