package transport

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mediaops/callsheet/internal/config"
	"github.com/mediaops/callsheet/internal/engine"
	"github.com/mediaops/callsheet/internal/observability"
)

// Dependencies holds all injected dependencies for the HTTP transport layer.
type Dependencies struct {
	Config       *config.Config
	Logger       *zap.Logger
	Metrics      *observability.Metrics
	Service      *engine.Service
	Authenticate func(http.Handler) http.Handler
	Readiness    observability.ReadinessChecks
	// OpenAPI serves the API document on /openapi.yaml when set.
	OpenAPI http.Handler
}

// NewRouter creates a chi.Router with the full middleware pipeline and all
// route registrations. Health, readiness, metrics, and the OpenAPI document
// bypass the authentication middleware.
func NewRouter(deps Dependencies) chi.Router {
	r := chi.NewRouter()

	r.Use(Recovery(deps.Logger))
	r.Use(CORS(deps.Config.Server.CORS))
	r.Use(RequestID)
	r.Use(SecurityHeaders)

	// Public routes.
	r.Get("/health", observability.HandleHealth())
	r.Get("/ready", observability.HandleReady(deps.Readiness))
	if deps.Config.Observability.Metrics.Enabled {
		r.Method(http.MethodGet, deps.Config.Observability.Metrics.Path, observability.Handler())
	}
	if deps.OpenAPI != nil {
		r.Method(http.MethodGet, "/openapi.yaml", deps.OpenAPI)
	}

	auth := deps.Authenticate
	if auth == nil {
		auth = func(next http.Handler) http.Handler { return next }
	}

	r.Group(func(r chi.Router) {
		r.Use(auth)
		r.Use(BuildActor)
		r.Use(HandlerTimeout(deps.Config.Server.HandlerTimeout))
		r.Use(observability.TracingMiddleware)
		r.Use(RequestLogging(deps.Logger))
		if deps.Metrics != nil {
			r.Use(deps.Metrics.MetricsMiddleware)
		}

		r.Route("/api/items", func(r chi.Router) {
			r.Get("/", handleItemsList(deps.Service))
			r.Post("/", handleItemCreate(deps.Service))
			r.Route("/{itemID}", func(r chi.Router) {
				r.Get("/", handleItemGet(deps.Service))
				r.Post("/transition", handleItemTransition(deps.Service))
				r.Delete("/", handleItemDelete(deps.Service))
				r.Get("/history", handleItemHistory(deps.Service))
			})
		})
	})

	return r
}
