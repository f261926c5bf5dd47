package routes

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/zatekoja/opticalqc/internal/api/handlers"
	"github.com/zatekoja/opticalqc/internal/api/middleware"
	"github.com/zatekoja/opticalqc/internal/infrastructure/observability"
)

// HealthChecker reports whether a dependency is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	validationHandler *handlers.ValidationHandler
	sseHandler        *handlers.SSEHandler

	readiness      map[string]HealthChecker
	metrics        *observability.Metrics
	allowedOrigins []string
}

// NewRouter creates a new router. sseHandler may be nil when streaming is
// served by a separate process.
func NewRouter(
	validationHandler *handlers.ValidationHandler,
	sseHandler *handlers.SSEHandler,
	readiness map[string]HealthChecker,
	metrics *observability.Metrics,
	allowedOrigins []string,
) *Router {
	return &Router{
		mux:               http.NewServeMux(),
		validationHandler: validationHandler,
		sseHandler:        sseHandler,
		readiness:         readiness,
		metrics:           metrics,
		allowedOrigins:    allowedOrigins,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	// Health check endpoint
	r.mux.HandleFunc("GET /health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			return
		}
	})
	r.mux.HandleFunc("GET /ready", r.ready)

	// Validation endpoints
	r.mux.HandleFunc("POST /api/orders/{id}/validate", r.validationHandler.ValidateOrder)
	r.mux.HandleFunc("POST /api/validations/sweep", r.validationHandler.ValidatePendingOrders)
	r.mux.HandleFunc("GET /api/validations/statistics", r.validationHandler.GetValidationStatistics)

	if r.sseHandler != nil {
		r.mux.HandleFunc("GET /api/stream/validations", r.sseHandler.StreamValidations)
	}

	// Apply middleware in reverse order (last middleware wraps first)
	var handler http.Handler = r.mux
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.ObservabilityMiddleware(r.metrics)(handler)
	handler = middleware.CORS(r.allowedOrigins)(handler)

	return handler
}

// ready pings every registered dependency.
func (r *Router) ready(w http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
	defer cancel()

	status := make(map[string]string, len(r.readiness))
	code := http.StatusOK
	for name, checker := range r.readiness {
		if err := checker.Ping(ctx); err != nil {
			status[name] = err.Error()
			code = http.StatusServiceUnavailable
			continue
		}
		status[name] = "ok"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(status)
}
