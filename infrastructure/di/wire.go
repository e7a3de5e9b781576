//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"github.com/TeleViaBox/mini-neo4j-agent-backend/infrastructure/config"

	"github.com/google/wire"
)

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	ProvideLogger,
	ProvideMetrics,
	ProvideTracing,
	ProvideStore,
	ProvideEventPublisher,
	ProvideMemoryService,
	ProvideRouter,
	ProvideHTTPHandler,
	wire.Struct(new(Container), "*"),
)

// InitializeContainer creates a fully wired container. The returned
// cleanup closes the store and then flushes the tracer.
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, func(), error) {
	wire.Build(SuperSet)
	return nil, nil, nil // Wire will replace this
}
