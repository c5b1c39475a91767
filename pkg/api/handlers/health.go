package handlers

import (
	"net/http"
	"time"

	"github.com/marmos91/dittobox/pkg/adapter"
)

// HealthHandler handles health check endpoints.
//
// Health endpoints are unauthenticated and provide:
//   - Liveness probe: Is the server process running?
//   - Readiness probe: Is the BOX listener bound and accepting?
type HealthHandler struct {
	server    adapter.SessionManager
	startedAt time.Time
}

// NewHealthHandler creates a new health handler. server may be nil, in
// which case readiness reports unhealthy.
func NewHealthHandler(server adapter.SessionManager) *HealthHandler {
	return &HealthHandler{server: server, startedAt: time.Now()}
}

// Liveness handles GET /health. It succeeds as long as the HTTP server is
// responsive.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	uptime := time.Since(h.startedAt)
	writeJSON(w, http.StatusOK, healthyResponse(map[string]interface{}{
		"service":    "dittobox",
		"started_at": h.startedAt.UTC().Format(time.RFC3339),
		"uptime":     uptime.Round(time.Second).String(),
		"uptime_sec": int64(uptime.Seconds()),
	}))
}

// Readiness handles GET /health/ready.
//
// Returns 503 Service Unavailable until the BOX listener is bound, and again
// once shutdown has begun.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	if h.server == nil {
		writeJSON(w, http.StatusServiceUnavailable, unhealthyResponse("server not initialized"))
		return
	}
	if !h.server.Ready() {
		writeJSON(w, http.StatusServiceUnavailable, unhealthyResponse("server not accepting connections"))
		return
	}

	writeJSON(w, http.StatusOK, healthyResponse(map[string]interface{}{
		"sessions": len(h.server.Sessions()),
	}))
}
