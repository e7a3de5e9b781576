// Package messaging holds event publishers that do not need a broker.
package messaging

import (
	"context"

	"github.com/TeleViaBox/mini-neo4j-agent-backend/application/ports"
	"github.com/TeleViaBox/mini-neo4j-agent-backend/domain/events"

	"go.uber.org/zap"
)

// NoopPublisher drops events. It is used when no event bus is configured.
type NoopPublisher struct {
	logger *zap.Logger
}

var _ ports.EventPublisher = (*NoopPublisher)(nil)

func NewNoopPublisher(logger *zap.Logger) *NoopPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NoopPublisher{logger: logger}
}

func (p *NoopPublisher) Publish(ctx context.Context, event events.DomainEvent) error {
	p.logger.Debug("Event dropped, no event bus configured",
		zap.String("eventType", event.GetEventType()),
		zap.String("aggregateID", event.GetAggregateID()),
	)
	return nil
}
