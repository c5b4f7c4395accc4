package transport

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/pitabwire/designer/internal/config"
	"github.com/pitabwire/designer/internal/observability"
	"github.com/pitabwire/designer/internal/session"
)

// Dependencies holds all injected dependencies for the HTTP transport layer.
type Dependencies struct {
	Config    *config.Config
	Sessions  *session.Manager
	Logger    *zap.Logger
	Readiness []observability.Check

	// MetricsHandler serves /metrics. Defaults to the Prometheus handler.
	MetricsHandler http.Handler
}

// NewRouter creates a chi.Router with the full middleware pipeline and all
// route registrations. Health, readiness, and metrics endpoints skip the
// request context, timeout, and logging layers.
func NewRouter(deps Dependencies) chi.Router {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	metricsHandler := deps.MetricsHandler
	if metricsHandler == nil {
		metricsHandler = observability.Handler()
	}
	sessions := deps.Sessions

	r := chi.NewRouter()

	// Global middleware: applied to all routes including health.
	r.Use(Recovery(logger))
	r.Use(CORS(deps.Config.Server.CORS))
	r.Use(RequestID)
	r.Use(SecurityHeaders)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		WriteNotFound(w, "no route for "+r.Method+" "+r.URL.Path)
	})

	r.Get("/designer/health", observability.HandleHealth())
	r.Get("/designer/ready", observability.HandleReady(deps.Readiness...))
	if m := deps.Config.Observability.Metrics; m.Enabled {
		path := m.Path
		if path == "" {
			path = "/metrics"
		}
		r.Method(http.MethodGet, path, metricsHandler)
	}

	r.Group(func(r chi.Router) {
		r.Use(BuildRequestContext(logger))
		r.Use(MaxBody(deps.Config.Server.MaxBodyBytes))
		r.Use(HandlerTimeout(deps.Config.Server.HandlerTimeout))
		r.Use(RequestLogging(logger))

		r.Get("/designer/templates", handleListTemplates(sessions))
		r.Post("/designer/sessions", handleCreateSession(sessions))

		r.Route("/designer/sessions/{sessionId}", func(r chi.Router) {
			r.Use(SessionContext(sessions))

			r.Get("/", handleGetSession)
			r.Delete("/", handleCloseSession(sessions))

			r.Get("/config", handleGetConfig)
			r.Put("/config", handleLoadConfig)
			r.Post("/templates/{name}", handleLoadTemplate)

			r.Post("/components", handleAddComponent)
			r.Put("/components/{componentId}", handleUpdateComponent)
			r.Patch("/components/{componentId}", handleUpdateProperty)
			r.Delete("/components/{componentId}", handleDeleteComponent)
			r.Post("/components/{componentId}/move", handleMoveComponent)
			r.Post("/components/{componentId}/duplicate", handleDuplicateComponent)
			r.Post("/components/{componentId}/select", handleSelectComponent)
			r.Post("/undo", handleUndo)
			r.Post("/redo", handleRedo)

			r.Get("/render", handleRender)

			r.Get("/grid", handleGetGrid)
			r.Put("/grid", handleSetGrid)
			r.Post("/grid/drop", handleDrop)
			r.Post("/grid/resize", handleResize)

			r.Get("/forms/{componentId}/fields", handleGetFormFields)
			r.Put("/forms/{componentId}/fields/{fieldId}", handleUpdateFormField)

			r.Post("/events/{componentId}", handleEvent)

			r.Post("/save", handleSave)
			r.Post("/restore", handleRestore)
		})
	})

	return r
}
