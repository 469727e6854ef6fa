package di

import (
	"context"
	"fmt"
	"time"

	"kbweb/application/agents"
	"kbweb/application/commands"
	"kbweb/application/commands/bus"
	"kbweb/application/ports"
	"kbweb/application/queries"
	querybus "kbweb/application/queries/bus"
	queries_handlers "kbweb/application/queries/handlers"
	"kbweb/application/services"
	"kbweb/infrastructure/config"
	"kbweb/infrastructure/messaging"
	"kbweb/infrastructure/messaging/eventbridge"
	"kbweb/infrastructure/scnet"
	"kbweb/interfaces/http/rest"
	"kbweb/interfaces/websocket"
	"kbweb/pkg/auth"
	"kbweb/pkg/errors"
	"kbweb/pkg/observability"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	var zcfg zap.Config
	if cfg.IsProduction() {
		zcfg = zap.NewProductionConfig()
	} else {
		zcfg = zap.NewDevelopmentConfig()
	}

	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)

	logger, err := zcfg.Build()
	if err != nil {
		return nil, err
	}

	return logger.With(zap.String("service", cfg.ServiceName)), nil
}

// ProvideMetrics creates the Prometheus collector; nil when metrics are off
func ProvideMetrics(cfg *config.Config) *observability.Collector {
	if !cfg.EnableMetrics {
		return nil
	}
	return observability.NewCollector("kbweb")
}

// ProvideTracing installs the tracer provider and flushes it on cleanup
func ProvideTracing(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*observability.TracerProvider, func(), error) {
	tp, err := observability.InitTracing(ctx, cfg.ServiceName, cfg.Environment, cfg.OTLPEndpoint, cfg.EnableTracing)
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Failed to flush traces", zap.Error(err))
		}
	}
	return tp, cleanup, nil
}

// ProvideGraphClient dials the Graph Service
func ProvideGraphClient(
	ctx context.Context,
	cfg *config.Config,
	metrics *observability.Collector,
	logger *zap.Logger,
) (*scnet.Client, func(), error) {
	client, err := scnet.Dial(ctx, cfg.ScnetConfig(), metrics, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("connect graph service: %w", err)
	}

	cleanup := func() {
		if err := client.Close(); err != nil {
			logger.Warn("Failed to close graph service connection", zap.Error(err))
		}
	}
	return client, cleanup, nil
}

// ProvideGraphService creates the typed Graph Service facade
func ProvideGraphService(client *scnet.Client, cfg *config.Config, logger *zap.Logger) *scnet.GraphService {
	return scnet.NewGraphService(client, cfg.GraphService.LabelConcurrency, logger)
}

// ProvideKeynodes resolves the editor keynodes. A missing keynode stops startup.
func ProvideKeynodes(
	ctx context.Context,
	graph ports.GraphService,
	cfg *config.Config,
	logger *zap.Logger,
) (*services.Keynodes, error) {
	keynodes := services.NewKeynodes(graph, logger)
	if err := keynodes.Resolve(ctx, services.EditorKeynodes(cfg.KBUserIdentifier)...); err != nil {
		return nil, fmt.Errorf("resolve editor keynodes: %w", err)
	}
	return keynodes, nil
}

// ProvideTemplateCatalog creates the catalog and loads it once
func ProvideTemplateCatalog(
	ctx context.Context,
	graph ports.GraphService,
	keynodes *services.Keynodes,
	cfg *config.Config,
	logger *zap.Logger,
) *services.TemplateCatalog {
	catalog := services.NewTemplateCatalog(graph, keynodes, cfg.KBUserIdentifier, logger)
	if _, err := catalog.Reload(ctx); err != nil {
		// The editor starts with the built-in example; a reload can fix it later
		logger.Warn("Failed to load templates", zap.Error(err))
	}
	return catalog
}

// ProvideResultAssembler creates the result assembler
func ProvideResultAssembler(
	graph ports.ElementReader,
	metrics *observability.Collector,
	logger *zap.Logger,
) *services.ResultAssembler {
	return services.NewResultAssembler(graph, metrics, logger)
}

// ProvideHub creates the viewer hub
func ProvideHub(metrics *observability.Collector, logger *zap.Logger) *websocket.Hub {
	return websocket.NewHub(metrics, logger)
}

// ProvideRenderer creates the viewer renderer and pushes template changes to
// viewers. Lambda never runs the hub, so results are discarded there.
func ProvideRenderer(
	cfg *config.Config,
	hub *websocket.Hub,
	catalog *services.TemplateCatalog,
	logger *zap.Logger,
) ports.Renderer {
	if cfg.IsLambda {
		logger.Info("Viewers disabled in Lambda, results are not rendered")
		return websocket.DiscardRenderer{}
	}
	renderer := websocket.NewGraphRenderer(hub, logger)
	catalog.Subscribe(renderer.PublishTemplates)
	return renderer
}

// ProvideEventPublisher publishes to EventBridge when enabled, otherwise to the log
func ProvideEventPublisher(ctx context.Context, cfg *config.Config, logger *zap.Logger) (ports.EventPublisher, error) {
	if !cfg.EnableEventBridge {
		return messaging.NewLogPublisher(logger), nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := awseventbridge.NewFromConfig(awsCfg)
	return eventbridge.NewPublisher(client, cfg.EventBusName, logger), nil
}

// ProvideQueryBus creates a query bus with registered handlers
func ProvideQueryBus(
	graph ports.GraphService,
	assembler *services.ResultAssembler,
	keynodes *services.Keynodes,
	catalog *services.TemplateCatalog,
	renderer ports.Renderer,
	publisher ports.EventPublisher,
	metrics *observability.Collector,
	logger *zap.Logger,
) (*querybus.QueryBus, error) {
	queryBus := querybus.NewQueryBus(metrics)

	graphHandler := queries_handlers.NewGraphQueryHandler(graph, assembler, keynodes, renderer, publisher, logger)
	listHandler := queries_handlers.NewListTemplatesHandler(catalog)

	registrations := []struct {
		query   querybus.Query
		handler querybus.QueryHandler
	}{
		{queries.SearchTemplateQuery{}, querybus.QueryHandlerFunc(func(ctx context.Context, query querybus.Query) (interface{}, error) {
			q, ok := query.(queries.SearchTemplateQuery)
			if !ok {
				return nil, fmt.Errorf("invalid query type")
			}
			return graphHandler.HandleSearch(ctx, q)
		})},
		{queries.FindByIdentifierQuery{}, querybus.QueryHandlerFunc(func(ctx context.Context, query querybus.Query) (interface{}, error) {
			q, ok := query.(queries.FindByIdentifierQuery)
			if !ok {
				return nil, fmt.Errorf("invalid query type")
			}
			return graphHandler.HandleFind(ctx, q)
		})},
		{queries.GenerateTemplateQuery{}, querybus.QueryHandlerFunc(func(ctx context.Context, query querybus.Query) (interface{}, error) {
			q, ok := query.(queries.GenerateTemplateQuery)
			if !ok {
				return nil, fmt.Errorf("invalid query type")
			}
			return graphHandler.HandleGenerate(ctx, q)
		})},
		{queries.ListTemplatesQuery{}, querybus.QueryHandlerFunc(func(ctx context.Context, query querybus.Query) (interface{}, error) {
			q, ok := query.(queries.ListTemplatesQuery)
			if !ok {
				return nil, fmt.Errorf("invalid query type")
			}
			return listHandler.Handle(ctx, q)
		})},
	}

	for _, r := range registrations {
		if err := queryBus.Register(r.query, r.handler); err != nil {
			return nil, err
		}
	}
	return queryBus, nil
}

// ProvideCommandBus creates a command bus with registered handlers
func ProvideCommandBus(
	graph ports.GraphService,
	keynodes *services.Keynodes,
	catalog *services.TemplateCatalog,
	publisher ports.EventPublisher,
	metrics *observability.Collector,
	logger *zap.Logger,
) (*bus.CommandBus, error) {
	commandBus := bus.NewCommandBus(
		bus.LoggingMiddleware(logger),
		bus.MetricsMiddleware(metrics),
	)

	createNodeHandler := commands.NewCreateNodeHandler(graph, keynodes, publisher, logger)
	if err := commandBus.Register(commands.CreateNodeCommand{}, bus.CommandHandlerFunc(
		func(ctx context.Context, cmd bus.Command) (bus.CommandResult, error) {
			createCmd, ok := cmd.(commands.CreateNodeCommand)
			if !ok {
				return bus.CommandResult{}, fmt.Errorf("invalid command type")
			}
			result, err := createNodeHandler.Handle(ctx, createCmd)
			if err != nil {
				return bus.CommandResult{}, err
			}
			return bus.CommandResult{Data: result}, nil
		},
	)); err != nil {
		return nil, err
	}

	reloadHandler := commands.NewReloadTemplatesHandler(catalog)
	if err := commandBus.Register(commands.ReloadTemplatesCommand{}, bus.CommandHandlerFunc(
		func(ctx context.Context, cmd bus.Command) (bus.CommandResult, error) {
			reloadCmd, ok := cmd.(commands.ReloadTemplatesCommand)
			if !ok {
				return bus.CommandResult{}, fmt.Errorf("invalid command type")
			}
			templates, err := reloadHandler.Handle(ctx, reloadCmd)
			if err != nil {
				return bus.CommandResult{}, err
			}
			return bus.CommandResult{Data: templates}, nil
		},
	)); err != nil {
		return nil, err
	}

	return commandBus, nil
}

// ProvideAgentRunner creates the agent runner with the set power agent
func ProvideAgentRunner(
	graph ports.GraphService,
	keynodes *services.Keynodes,
	publisher ports.EventPublisher,
	metrics *observability.Collector,
	logger *zap.Logger,
) *agents.Runner {
	actions := agents.NewActionAgent(graph, keynodes)
	runner := agents.NewRunner(graph, keynodes, actions, publisher, metrics, logger)
	runner.Register(agents.NewSetPowerAgent(graph, actions, publisher, logger.Named("set_power")))
	return runner
}

// ProvideJWTService returns nil when no secret is configured
func ProvideJWTService(cfg *config.Config) (*auth.JWTService, error) {
	if cfg.JWTSecret == "" {
		return nil, nil
	}
	return auth.NewJWTService(cfg.JWTSecret, cfg.JWTIssuer, cfg.TokenTTL)
}

// ProvideAuthenticator creates the request authenticator
func ProvideAuthenticator(jwtService *auth.JWTService, logger *zap.Logger) *auth.Authenticator {
	if jwtService == nil {
		logger.Warn("JWT_SECRET not set, requests are trusted by X-User-ID")
	}
	return auth.NewAuthenticator(jwtService)
}

// ProvideRateLimiter returns nil when limiting is off
func ProvideRateLimiter(cfg *config.Config) *auth.UserRateLimiter {
	if cfg.RequestsPerMinute <= 0 {
		return nil
	}
	return auth.NewUserRateLimiter(cfg.RequestsPerMinute)
}

// ProvideErrorHandler creates the HTTP error handler
func ProvideErrorHandler(cfg *config.Config, logger *zap.Logger) *errors.ErrorHandler {
	return errors.NewErrorHandler(logger, cfg.IsDevelopment())
}

// ProvideViewerServer creates the websocket endpoint for viewers
func ProvideViewerServer(
	hub *websocket.Hub,
	authenticator *auth.Authenticator,
	cfg *config.Config,
	logger *zap.Logger,
) *websocket.Server {
	return websocket.NewServer(hub, authenticator, cfg.AllowedOrigins, logger)
}

// ProvideReadinessCheck reports ready while the Graph Service answers
func ProvideReadinessCheck(client *scnet.Client) rest.ReadinessCheck {
	return client.Ping
}

// ProvideRouter creates the HTTP router
func ProvideRouter(
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	viewers *websocket.Server,
	authenticator *auth.Authenticator,
	limiter *auth.UserRateLimiter,
	metrics *observability.Collector,
	errHandler *errors.ErrorHandler,
	ready rest.ReadinessCheck,
	cfg *config.Config,
	logger *zap.Logger,
) *rest.Router {
	return rest.NewRouter(
		commandBus,
		queryBus,
		viewers,
		authenticator,
		limiter,
		metrics,
		errHandler,
		ready,
		rest.Options{
			EnableCORS:     cfg.EnableCORS,
			AllowedOrigins: cfg.AllowedOrigins,
			EnableMetrics:  cfg.EnableMetrics,
		},
		logger,
	)
}
