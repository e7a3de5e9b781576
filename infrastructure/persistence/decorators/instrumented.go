// Package decorators wraps a ports.MemoryStore with cross-cutting
// behaviour: metrics, tracing, logging and a circuit breaker.
package decorators

import (
	"context"
	"time"

	"github.com/TeleViaBox/mini-neo4j-agent-backend/application/ports"
	"github.com/TeleViaBox/mini-neo4j-agent-backend/domain/core/entities"
	pkgerrors "github.com/TeleViaBox/mini-neo4j-agent-backend/pkg/errors"
	"github.com/TeleViaBox/mini-neo4j-agent-backend/pkg/observability"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// InstrumentedStore records metrics, spans and logs around every call to
// the wrapped store. It never alters results or errors.
type InstrumentedStore struct {
	next    ports.MemoryStore
	metrics *observability.Collector
	tracer  trace.Tracer
	logger  *zap.Logger
}

var _ ports.MemoryStore = (*InstrumentedStore)(nil)

// NewInstrumentedStore wraps next. metrics may be nil when metrics are
// disabled; a nil tracer falls back to the global provider.
func NewInstrumentedStore(next ports.MemoryStore, metrics *observability.Collector, tracer trace.Tracer, logger *zap.Logger) *InstrumentedStore {
	if tracer == nil {
		tracer = otel.Tracer("memory_store")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InstrumentedStore{next: next, metrics: metrics, tracer: tracer, logger: logger}
}

func (s *InstrumentedStore) start(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span, time.Time) {
	ctx, span := s.tracer.Start(ctx, "memory_store."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)
	return ctx, span, time.Now()
}

func (s *InstrumentedStore) finish(span trace.Span, op string, started time.Time, err error, fields ...zap.Field) {
	defer span.End()
	elapsed := time.Since(started)
	if s.metrics != nil {
		s.metrics.ObserveStoreOperation(op, elapsed, err)
	}

	fields = append(fields, zap.String("operation", op), zap.Duration("duration", elapsed))
	if err == nil {
		span.SetStatus(codes.Ok, "")
		s.logger.Debug("Store operation succeeded", fields...)
		return
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	fields = append(fields, zap.Error(err))
	if appErr := pkgerrors.GetAppError(err); appErr != nil {
		span.SetAttributes(attribute.String("error.type", string(appErr.Type)))
		fields = append(fields, zap.String("error_type", string(appErr.Type)))
	}
	if pkgerrors.IsValidation(err) || pkgerrors.IsIndexUnavailable(err) || pkgerrors.IsUnavailable(err) {
		s.logger.Warn("Store operation failed", fields...)
		return
	}
	s.logger.Error("Store operation failed", fields...)
}

func (s *InstrumentedStore) Ping(ctx context.Context) (bool, error) {
	ctx, span, started := s.start(ctx, "ping")
	ready, err := s.next.Ping(ctx)
	span.SetAttributes(attribute.Bool("store.ready", ready))
	s.finish(span, "ping", started, err, zap.Bool("ready", ready))
	return ready, err
}

func (s *InstrumentedStore) InitSchema(ctx context.Context) error {
	ctx, span, started := s.start(ctx, "init_schema")
	err := s.next.InitSchema(ctx)
	s.finish(span, "init_schema", started, err)
	return err
}

func (s *InstrumentedStore) AddMemory(ctx context.Context, memory entities.Memory) error {
	ctx, span, started := s.start(ctx, "add_memory",
		attribute.String("memory.id", memory.ID),
		attribute.String("user.id", memory.UserID),
		attribute.Int("memory.text_length", len(memory.Text)),
	)
	err := s.next.AddMemory(ctx, memory)
	s.finish(span, "add_memory", started, err, zap.String("memory_id", memory.ID))
	return err
}

func (s *InstrumentedStore) SearchMemories(ctx context.Context, userID, query string, limit int) ([]entities.SearchHit, error) {
	ctx, span, started := s.start(ctx, "search_memories",
		attribute.String("user.id", userID),
		attribute.Int("search.limit", limit),
	)
	hits, err := s.next.SearchMemories(ctx, userID, query, limit)
	span.SetAttributes(attribute.Int("search.results", len(hits)))
	s.finish(span, "search_memories", started, err, zap.Int("results", len(hits)))
	return hits, err
}

func (s *InstrumentedStore) Close(ctx context.Context) error {
	ctx, span, started := s.start(ctx, "close")
	err := s.next.Close(ctx)
	s.finish(span, "close", started, err)
	return err
}
