package rest

import (
	"net/http"

	"github.com/TeleViaBox/mini-neo4j-agent-backend/application/services"
	"github.com/TeleViaBox/mini-neo4j-agent-backend/interfaces/http/rest/handlers"
	"github.com/TeleViaBox/mini-neo4j-agent-backend/interfaces/http/rest/middleware"
	pkgerrors "github.com/TeleViaBox/mini-neo4j-agent-backend/pkg/errors"
	"github.com/TeleViaBox/mini-neo4j-agent-backend/pkg/observability"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// RouterConfig toggles the optional middleware layers
type RouterConfig struct {
	ServiceName        string
	EnableMetrics      bool
	EnableTracing      bool
	EnableCORS         bool
	CORSAllowedOrigins []string
	Debug              bool
}

// Router creates and configures the HTTP router
type Router struct {
	service *services.MemoryService
	metrics *observability.Collector
	config  RouterConfig
	logger  *zap.Logger
}

// NewRouter creates a new router instance. metrics may be nil.
func NewRouter(
	service *services.MemoryService,
	metrics *observability.Collector,
	config RouterConfig,
	logger *zap.Logger,
) *Router {
	return &Router{
		service: service,
		metrics: metrics,
		config:  config,
		logger:  logger,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() *chi.Mux {
	router := chi.NewRouter()
	errHandler := pkgerrors.NewErrorHandler(rt.logger, rt.config.Debug)

	// Global middleware
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(middleware.Logger(rt.logger))
	router.Use(errHandler.Middleware)
	router.Use(versionMiddleware)

	if rt.config.EnableTracing {
		router.Use(observability.TracingMiddleware(rt.config.ServiceName))
	}
	if rt.config.EnableMetrics && rt.metrics != nil {
		router.Use(observability.MetricsMiddleware(rt.metrics))
	}

	if rt.config.EnableCORS {
		origins := rt.config.CORSAllowedOrigins
		if len(origins) == 0 {
			origins = []string{"*"}
		}
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins: origins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
			ExposedHeaders: []string{"X-Request-ID", "X-Trace-ID"},
			MaxAge:         300,
		}))
	}

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		errHandler.HandleStatus(w, r, http.StatusNotFound, "route not found")
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		errHandler.HandleStatus(w, r, http.StatusMethodNotAllowed, "method not allowed")
	})

	healthHandler := handlers.NewHealthHandler(rt.service, errHandler, rt.logger)
	memoryHandler := handlers.NewMemoryHandler(rt.service, errHandler, rt.logger)

	router.Route("/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.Health)
		r.Get("/ready", healthHandler.Ready)

		r.Route("/memories", func(r chi.Router) {
			r.Post("/", memoryHandler.CreateMemory)
			r.Get("/search", memoryHandler.SearchMemories)
		})
	})

	if rt.config.EnableMetrics && rt.metrics != nil {
		router.Method(http.MethodGet, "/metrics", rt.metrics.Handler())
	}

	return router
}

// versionMiddleware adds API version headers to all responses
func versionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-API-Version", "v1")
		next.ServeHTTP(w, r)
	})
}
