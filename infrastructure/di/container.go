package di

import (
	"github.com/TeleViaBox/mini-neo4j-agent-backend/application/ports"
	"github.com/TeleViaBox/mini-neo4j-agent-backend/application/services"
	"github.com/TeleViaBox/mini-neo4j-agent-backend/infrastructure/config"
	"github.com/TeleViaBox/mini-neo4j-agent-backend/pkg/observability"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Container holds all application dependencies
type Container struct {
	Config    *config.Config
	Logger    *zap.Logger
	Metrics   *observability.Collector
	Tracing   *observability.TracerProvider
	Store     ports.MemoryStore
	Publisher ports.EventPublisher
	Service   *services.MemoryService
	Handler   *chi.Mux
}
