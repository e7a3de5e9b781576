package di

import (
	"context"
	"time"

	"github.com/TeleViaBox/mini-neo4j-agent-backend/application/ports"
	"github.com/TeleViaBox/mini-neo4j-agent-backend/application/services"
	"github.com/TeleViaBox/mini-neo4j-agent-backend/infrastructure/config"
	"github.com/TeleViaBox/mini-neo4j-agent-backend/infrastructure/messaging"
	"github.com/TeleViaBox/mini-neo4j-agent-backend/infrastructure/messaging/eventbridge"
	"github.com/TeleViaBox/mini-neo4j-agent-backend/infrastructure/persistence"
	"github.com/TeleViaBox/mini-neo4j-agent-backend/infrastructure/persistence/decorators"
	neo4jstore "github.com/TeleViaBox/mini-neo4j-agent-backend/infrastructure/persistence/neo4j"
	"github.com/TeleViaBox/mini-neo4j-agent-backend/interfaces/http/rest"
	"github.com/TeleViaBox/mini-neo4j-agent-backend/pkg/observability"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const closeTimeout = 10 * time.Second

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.IsProduction() {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	level, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	zapCfg.Level = level

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, err
	}
	return logger.With(zap.String("service", cfg.ServiceName)), nil
}

// ProvideMetrics creates the Prometheus collector, or nil when metrics are
// disabled.
func ProvideMetrics(cfg *config.Config) *observability.Collector {
	if !cfg.EnableMetrics {
		return nil
	}
	return observability.NewCollector(cfg.MetricsNamespace)
}

// ProvideTracing installs the tracer provider. The cleanup flushes pending
// spans.
func ProvideTracing(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*observability.TracerProvider, func(), error) {
	tp, err := observability.InitTracing(ctx, observability.TracingConfig{
		Enabled:     cfg.EnableTracing,
		ServiceName: cfg.ServiceName,
		Environment: cfg.Environment,
		Endpoint:    cfg.OTLPEndpoint,
	})
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Failed to shut down tracer provider", zap.Error(err))
		}
	}
	return tp, cleanup, nil
}

// ProvideStore creates the configured backend and wraps it in the
// decorator chain. The cleanup closes the store; it must run only after the
// HTTP server has drained.
func ProvideStore(
	cfg *config.Config,
	metrics *observability.Collector,
	tp *observability.TracerProvider,
	logger *zap.Logger,
) (ports.MemoryStore, func(), error) {
	base, err := persistence.NewStore(persistence.StoreConfig{
		Type: persistence.StoreType(cfg.StoreDriver),
		Neo4j: neo4jstore.Config{
			URI:      cfg.Neo4jURI,
			Username: cfg.Neo4jUser,
			Password: cfg.Neo4jPassword,
			Database: cfg.Neo4jDatabase,
		},
		SQLitePath: cfg.SQLitePath,
	}, logger)
	if err != nil {
		return nil, nil, err
	}

	store := decorators.Decorate(base, decorators.ChainOptions{
		EnableCircuitBreaker: cfg.EnableCircuitBreaker,
		CircuitBreaker:       decorators.DefaultCircuitBreakerConfig(cfg.StoreDriver + "-store"),
		Metrics:              metrics,
		Tracer:               tp.Tracer(),
	}, logger)

	logger.Info("Memory store configured",
		zap.String("driver", cfg.StoreDriver),
		zap.Bool("circuitBreaker", cfg.EnableCircuitBreaker),
	)

	cleanup := func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		defer cancel()
		if err := store.Close(closeCtx); err != nil {
			logger.Warn("Failed to close memory store", zap.Error(err))
		}
	}
	return store, cleanup, nil
}

// ProvideEventPublisher publishes to EventBridge when a bus is configured
// and falls back to a no-op publisher otherwise.
func ProvideEventPublisher(ctx context.Context, cfg *config.Config, logger *zap.Logger) (ports.EventPublisher, error) {
	if cfg.EventBusName == "" {
		return messaging.NewNoopPublisher(logger), nil
	}

	client, err := eventbridge.NewClient(ctx, cfg.AWSRegion)
	if err != nil {
		return nil, err
	}
	return eventbridge.NewPublisher(client, cfg.EventBusName, logger), nil
}

// ProvideMemoryService creates the application service
func ProvideMemoryService(
	store ports.MemoryStore,
	publisher ports.EventPublisher,
	metrics *observability.Collector,
	logger *zap.Logger,
) *services.MemoryService {
	return services.NewMemoryService(store, publisher, metrics, logger)
}

// ProvideRouter creates the HTTP router
func ProvideRouter(
	cfg *config.Config,
	service *services.MemoryService,
	metrics *observability.Collector,
	logger *zap.Logger,
) *rest.Router {
	return rest.NewRouter(service, metrics, rest.RouterConfig{
		ServiceName:        cfg.ServiceName,
		EnableMetrics:      cfg.EnableMetrics,
		EnableTracing:      cfg.EnableTracing,
		EnableCORS:         cfg.EnableCORS,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		Debug:              cfg.IsDevelopment(),
	}, logger)
}

// ProvideHTTPHandler builds the chi mux served by the API and Lambda entry
// points.
func ProvideHTTPHandler(router *rest.Router) *chi.Mux {
	return router.Setup()
}
