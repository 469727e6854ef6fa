package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"kbweb/application/commands/bus"
	querybus "kbweb/application/queries/bus"
	"kbweb/interfaces/http/rest/handlers"
	"kbweb/interfaces/http/rest/middleware"
	"kbweb/interfaces/websocket"
	"kbweb/pkg/auth"
	"kbweb/pkg/errors"
	"kbweb/pkg/observability"
)

// ReadinessCheck reports whether the service can answer requests
type ReadinessCheck func(ctx context.Context) error

// Options holds router settings
type Options struct {
	EnableCORS     bool
	AllowedOrigins []string
	EnableMetrics  bool
}

// Router creates and configures the HTTP router
type Router struct {
	commandBus    *bus.CommandBus
	queryBus      *querybus.QueryBus
	viewers       *websocket.Server
	authenticator *auth.Authenticator
	limiter       *auth.UserRateLimiter
	metrics       *observability.Collector
	errors        *errors.ErrorHandler
	ready         ReadinessCheck
	opts          Options
	logger        *zap.Logger
}

// NewRouter creates a new router instance. viewers may be nil where no
// websocket is served, e.g. behind API Gateway.
func NewRouter(
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	viewers *websocket.Server,
	authenticator *auth.Authenticator,
	limiter *auth.UserRateLimiter,
	metrics *observability.Collector,
	errHandler *errors.ErrorHandler,
	ready ReadinessCheck,
	opts Options,
	logger *zap.Logger,
) *Router {
	return &Router{
		commandBus:    commandBus,
		queryBus:      queryBus,
		viewers:       viewers,
		authenticator: authenticator,
		limiter:       limiter,
		metrics:       metrics,
		errors:        errHandler,
		ready:         ready,
		opts:          opts,
		logger:        logger,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(rt.errors.Middleware)
	router.Use(middleware.Logger(rt.logger))
	if rt.opts.EnableMetrics {
		router.Use(middleware.Metrics(rt.metrics))
	}

	if rt.opts.EnableCORS {
		origins := rt.opts.AllowedOrigins
		if len(origins) == 0 {
			origins = []string{"http://localhost:3000"}
		}
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   origins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", "X-User-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)
	if rt.opts.EnableMetrics {
		router.Handle("/metrics", rt.metrics.Handler())
	}
	if rt.viewers != nil {
		router.Get("/ws", rt.viewers.HandleWebSocket)
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Authenticate(rt.authenticator, rt.limiter, rt.errors, rt.logger))

		graphHandler := handlers.NewGraphHandler(rt.queryBus, rt.errors, rt.logger)
		nodeHandler := handlers.NewNodeHandler(rt.commandBus, rt.errors, rt.logger)

		r.Get("/templates", graphHandler.ListTemplates)
		r.Post("/templates/reload", nodeHandler.ReloadTemplates)
		r.Post("/search", graphHandler.Search)
		r.Post("/find", graphHandler.Find)
		r.Post("/generate", graphHandler.Generate)
		r.Post("/nodes", nodeHandler.CreateNode)
	})

	return router
}

func (rt *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	writeStatus(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// readinessCheck answers 503 while the Graph Service is unreachable
func (rt *Router) readinessCheck(w http.ResponseWriter, req *http.Request) {
	if rt.ready != nil {
		ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
		defer cancel()
		if err := rt.ready(ctx); err != nil {
			writeStatus(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"reason": err.Error(),
			})
			return
		}
	}
	writeStatus(w, http.StatusOK, map[string]string{"status": "ready"})
}

func writeStatus(w http.ResponseWriter, status int, body map[string]string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
