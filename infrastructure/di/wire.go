//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"github.com/google/wire"
	"kbweb/application/ports"
	"kbweb/infrastructure/config"
	"kbweb/infrastructure/scnet"
)

// GraphSet binds the Graph Service client to the application ports
var GraphSet = wire.NewSet(
	ProvideGraphClient,
	ProvideGraphService,
	wire.Bind(new(ports.GraphService), new(*scnet.GraphService)),
	wire.Bind(new(ports.ElementReader), new(*scnet.GraphService)),
	ProvideKeynodes,
	ProvideTemplateCatalog,
	ProvideResultAssembler,
)

// ViewerSet provides the websocket side
var ViewerSet = wire.NewSet(
	ProvideHub,
	ProvideRenderer,
	ProvideViewerServer,
)

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	ProvideLogger,
	ProvideMetrics,
	ProvideTracing,
	GraphSet,
	ViewerSet,
	ProvideEventPublisher,
	ProvideQueryBus,
	ProvideCommandBus,
	ProvideAgentRunner,
	ProvideJWTService,
	ProvideAuthenticator,
	ProvideRateLimiter,
	ProvideErrorHandler,
	ProvideReadinessCheck,
	ProvideRouter,
	wire.Struct(new(Container), "*"),
)

// InitializeContainer creates a fully wired container
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, func(), error) {
	wire.Build(SuperSet)
	return nil, nil, nil // Wire will replace this
}
