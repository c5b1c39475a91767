package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/marmos91/dittobox/internal/logger"
	"github.com/marmos91/dittobox/pkg/adapter"
	"github.com/marmos91/dittobox/pkg/api/handlers"
	"github.com/marmos91/dittobox/pkg/metrics"
	"github.com/marmos91/dittobox/pkg/registry"
)

// Dependencies are the server components the API reports on. Any of them
// may be nil; the matching endpoints then answer 503.
type Dependencies struct {
	Sessions adapter.SessionManager
	Registry registry.Store
}

// NewRouter creates and configures the chi router with all middleware and routes.
//
// Routes:
//   - GET /health - Liveness probe
//   - GET /health/ready - Readiness probe (BOX listener bound)
//   - GET /metrics - Prometheus exposition, when metrics are enabled
//   - GET /api/v1/clients, GET /api/v1/clients/{identity}
//   - GET /api/v1/sessions, DELETE /api/v1/sessions/{id}
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Middleware stack - order matters
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	healthHandler := handlers.NewHealthHandler(deps.Sessions)
	clientHandler := handlers.NewClientHandler(deps.Registry)
	sessionHandler := handlers.NewSessionHandler(deps.Sessions)

	r.Route("/health", func(r chi.Router) {
		r.Get("/", healthHandler.Liveness)
		r.Get("/ready", healthHandler.Readiness)
	})

	if metrics.IsEnabled() {
		r.Handle("/metrics", metrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/clients", func(r chi.Router) {
			r.Get("/", clientHandler.List)
			r.Get("/{identity}", clientHandler.Get)
		})
		r.Route("/sessions", func(r chi.Router) {
			r.Get("/", sessionHandler.List)
			r.Delete("/{id}", sessionHandler.Close)
		})
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/health", http.StatusTemporaryRedirect)
	})

	return r
}

// requestLogger logs each request using the internal logger.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := middleware.GetReqID(r.Context())

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		logger.Debug("API request completed",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).String(),
		)
	})
}
