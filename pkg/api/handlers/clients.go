package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/marmos91/dittobox/internal/logger"
	"github.com/marmos91/dittobox/pkg/registry"
)

// ClientHandler exposes the client registry.
type ClientHandler struct {
	store registry.Store
}

// NewClientHandler creates a handler over store, which may be nil.
func NewClientHandler(store registry.Store) *ClientHandler {
	return &ClientHandler{store: store}
}

// List handles GET /api/v1/clients.
func (h *ClientHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeError(w, http.StatusServiceUnavailable, "registry not initialized")
		return
	}

	clients, err := h.store.List(r.Context())
	if err != nil {
		logger.Error("Failed to list clients", logger.Err(err))
		writeError(w, http.StatusInternalServerError, "failed to list clients")
		return
	}
	if clients == nil {
		clients = []*registry.Client{}
	}
	writeJSON(w, http.StatusOK, okResponse(clients))
}

// Get handles GET /api/v1/clients/{identity}.
func (h *ClientHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeError(w, http.StatusServiceUnavailable, "registry not initialized")
		return
	}

	identity := chi.URLParam(r, "identity")
	client, err := h.store.Get(r.Context(), identity)
	if err != nil {
		if errors.Is(err, registry.ErrClientNotFound) {
			writeError(w, http.StatusNotFound, "client not found")
			return
		}
		logger.Error("Failed to get client", logger.Identity(identity), logger.Err(err))
		writeError(w, http.StatusInternalServerError, "failed to get client")
		return
	}
	writeJSON(w, http.StatusOK, okResponse(client))
}
