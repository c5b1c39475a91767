package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/marmos91/dittobox/pkg/adapter"
)

// SessionHandler lists and cancels live BOX sessions.
type SessionHandler struct {
	server adapter.SessionManager
}

// NewSessionHandler creates a handler over server, which may be nil.
func NewSessionHandler(server adapter.SessionManager) *SessionHandler {
	return &SessionHandler{server: server}
}

// List handles GET /api/v1/sessions.
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.server == nil {
		writeError(w, http.StatusServiceUnavailable, "server not initialized")
		return
	}

	sessions := h.server.Sessions()
	if sessions == nil {
		sessions = []adapter.SessionInfo{}
	}
	writeJSON(w, http.StatusOK, okResponse(sessions))
}

// Close handles DELETE /api/v1/sessions/{id}. The session's connection is
// closed; the client sees the stream end.
func (h *SessionHandler) Close(w http.ResponseWriter, r *http.Request) {
	if h.server == nil {
		writeError(w, http.StatusServiceUnavailable, "server not initialized")
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.server.CloseSession(id); err != nil {
		if errors.Is(err, adapter.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, okResponse(map[string]string{"id": id}))
}
