package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Development defaults for the Neo4j connection.
const (
	DefaultNeo4jURI      = "neo4j://localhost:7687"
	DefaultNeo4jUser     = "neo4j"
	DevNeo4jPassword     = "test12345"
	DefaultServiceName   = "mini-mem0-backend"
	DefaultOTLPEndpoint  = "localhost:4317"
	DefaultSQLitePath    = "memories.db"
	DefaultServerAddress = ":8080"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	ServerAddress          string `yaml:"server_address"`
	Environment            string `yaml:"environment"`
	ShutdownTimeoutSeconds int    `yaml:"shutdown_timeout_seconds"`

	// Store configuration
	StoreDriver   string `yaml:"store_driver"`
	Neo4jURI      string `yaml:"neo4j_uri"`
	Neo4jUser     string `yaml:"neo4j_user"`
	Neo4jPassword string `yaml:"neo4j_password"`
	Neo4jDatabase string `yaml:"neo4j_database"`
	SQLitePath    string `yaml:"sqlite_path"`

	// AWS configuration
	AWSRegion    string `yaml:"aws_region"`
	EventBusName string `yaml:"event_bus_name"`

	// Lambda configuration
	IsLambda           bool   `yaml:"-"`
	LambdaFunctionName string `yaml:"-"`

	// Logging
	LogLevel string `yaml:"log_level"`

	// Observability
	ServiceName      string `yaml:"service_name"`
	MetricsNamespace string `yaml:"metrics_namespace"`
	OTLPEndpoint     string `yaml:"otlp_endpoint"`

	// CORS
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`

	// Feature flags
	EnableMetrics        bool `yaml:"enable_metrics"`
	EnableTracing        bool `yaml:"enable_tracing"`
	EnableCORS           bool `yaml:"enable_cors"`
	EnableCircuitBreaker bool `yaml:"enable_circuit_breaker"`
}

func defaults() *Config {
	return &Config{
		ServerAddress:          DefaultServerAddress,
		Environment:            "development",
		ShutdownTimeoutSeconds: 30,
		StoreDriver:            "neo4j",
		Neo4jURI:               DefaultNeo4jURI,
		Neo4jUser:              DefaultNeo4jUser,
		Neo4jPassword:          DevNeo4jPassword,
		SQLitePath:             DefaultSQLitePath,
		AWSRegion:              "us-west-2",
		LogLevel:               "info",
		ServiceName:            DefaultServiceName,
		OTLPEndpoint:           DefaultOTLPEndpoint,
		CORSAllowedOrigins:     []string{"*"},
		EnableMetrics:          true,
		EnableCORS:             true,
		EnableCircuitBreaker:   true,
	}
}

// LoadConfig builds the configuration from defaults, then the YAML file
// named by CONFIG_FILE (if any), then environment variables. It is read
// once at startup.
func LoadConfig() (*Config, error) {
	cfg := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.overlayFile(path); err != nil {
			return nil, err
		}
	}
	cfg.overlayEnv()

	// Validate required configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Load is an alias for LoadConfig
func Load() (*Config, error) {
	return LoadConfig()
}

func (c *Config) overlayFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) overlayEnv() {
	c.ServerAddress = getEnv("SERVER_ADDRESS", c.ServerAddress)
	c.Environment = getEnv("ENVIRONMENT", c.Environment)
	c.ShutdownTimeoutSeconds = getEnvInt("SHUTDOWN_TIMEOUT_SECONDS", c.ShutdownTimeoutSeconds)

	c.StoreDriver = strings.ToLower(getEnv("STORE_DRIVER", c.StoreDriver))
	c.Neo4jURI = getEnv("NEO4J_URI", c.Neo4jURI)
	c.Neo4jUser = getEnv("NEO4J_USER", c.Neo4jUser)
	c.Neo4jPassword = getEnv("NEO4J_PASSWORD", c.Neo4jPassword)
	c.Neo4jDatabase = getEnv("NEO4J_DATABASE", c.Neo4jDatabase)
	c.SQLitePath = getEnv("SQLITE_PATH", c.SQLitePath)

	c.AWSRegion = getEnv("AWS_REGION", c.AWSRegion)
	c.EventBusName = getEnv("EVENT_BUS_NAME", c.EventBusName)

	c.LambdaFunctionName = getEnv("AWS_LAMBDA_FUNCTION_NAME", "")
	c.IsLambda = getEnvBool("IS_LAMBDA", c.LambdaFunctionName != "")

	c.LogLevel = strings.ToLower(getEnv("LOG_LEVEL", c.LogLevel))
	c.ServiceName = getEnv("SERVICE_NAME", c.ServiceName)
	c.MetricsNamespace = getEnv("METRICS_NAMESPACE", c.MetricsNamespace)
	c.OTLPEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", c.OTLPEndpoint)
	c.CORSAllowedOrigins = getEnvList("CORS_ALLOWED_ORIGINS", c.CORSAllowedOrigins)

	c.EnableMetrics = getEnvBool("ENABLE_METRICS", c.EnableMetrics)
	c.EnableTracing = getEnvBool("ENABLE_TRACING", c.EnableTracing)
	c.EnableCORS = getEnvBool("ENABLE_CORS", c.EnableCORS)
	c.EnableCircuitBreaker = getEnvBool("ENABLE_CIRCUIT_BREAKER", c.EnableCircuitBreaker)
}

// Validate checks if all required configuration is present
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case "neo4j":
		if c.Neo4jURI == "" {
			return fmt.Errorf("NEO4J_URI is required for the neo4j store")
		}
	case "sqlite":
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required for the sqlite store")
		}
	case "memory":
	default:
		return fmt.Errorf("STORE_DRIVER must be one of neo4j, sqlite, memory (got %q)", c.StoreDriver)
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error (got %q)", c.LogLevel)
	}

	if c.ShutdownTimeoutSeconds <= 0 {
		return fmt.Errorf("SHUTDOWN_TIMEOUT_SECONDS must be positive")
	}

	if c.IsProduction() {
		if c.StoreDriver == "neo4j" && c.Neo4jPassword == DevNeo4jPassword {
			return fmt.Errorf("NEO4J_PASSWORD must be set in production")
		}
		if c.StoreDriver == "memory" {
			return fmt.Errorf("the memory store cannot be used in production")
		}
	}

	return nil
}

// ShutdownTimeout is the grace period for draining HTTP traffic.
func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutSeconds) * time.Second
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvList splits a comma separated variable, dropping empty entries
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
