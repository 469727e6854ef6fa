package di

import (
	"kbweb/application/agents"
	"kbweb/application/commands/bus"
	"kbweb/application/ports"
	querybus "kbweb/application/queries/bus"
	"kbweb/application/services"
	"kbweb/infrastructure/config"
	"kbweb/infrastructure/scnet"
	"kbweb/interfaces/http/rest"
	"kbweb/interfaces/websocket"
	"kbweb/pkg/auth"
	"kbweb/pkg/errors"
	"kbweb/pkg/observability"

	"go.uber.org/zap"
)

// Container holds all application dependencies
type Container struct {
	Config        *config.Config
	Logger        *zap.Logger
	Metrics       *observability.Collector
	Tracing       *observability.TracerProvider
	GraphClient   *scnet.Client
	Graph         *scnet.GraphService
	Keynodes      *services.Keynodes
	Catalog       *services.TemplateCatalog
	Hub           *websocket.Hub
	Renderer      ports.Renderer
	CommandBus    *bus.CommandBus
	QueryBus      *querybus.QueryBus
	Runner        *agents.Runner
	Authenticator *auth.Authenticator
	RateLimiter   *auth.UserRateLimiter
	ErrorHandler  *errors.ErrorHandler
	Router        *rest.Router
}
