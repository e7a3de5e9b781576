package decorators

import (
	"github.com/TeleViaBox/mini-neo4j-agent-backend/application/ports"
	"github.com/TeleViaBox/mini-neo4j-agent-backend/pkg/observability"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ChainOptions selects the decorators applied by Decorate.
type ChainOptions struct {
	EnableCircuitBreaker bool
	CircuitBreaker       CircuitBreakerConfig
	Metrics              *observability.Collector
	Tracer               trace.Tracer
}

// Decorate applies the configured decorators.
// Order: Base -> Circuit Breaker -> Instrumentation
// Instrumentation is outermost so breaker rejections are measured too.
func Decorate(base ports.MemoryStore, opts ChainOptions, logger *zap.Logger) ports.MemoryStore {
	decorated := base

	if opts.EnableCircuitBreaker {
		cfg := opts.CircuitBreaker
		if cfg.Name == "" {
			cfg = DefaultCircuitBreakerConfig("memory-store")
		}
		decorated = NewCircuitBreakerStore(decorated, cfg, logger)
		logger.Debug("Applied circuit breaker decorator to MemoryStore")
	}

	decorated = NewInstrumentedStore(decorated, opts.Metrics, opts.Tracer, logger)
	logger.Debug("Applied instrumentation decorator to MemoryStore")

	return decorated
}
