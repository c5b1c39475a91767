package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/marmos91/dittobox/pkg/adapter"
	"github.com/marmos91/dittobox/pkg/registry"
)

type fakeServer struct {
	ready    bool
	sessions []adapter.SessionInfo
	closed   []string
}

func (f *fakeServer) Sessions() []adapter.SessionInfo { return f.sessions }
func (f *fakeServer) Ready() bool                     { return f.ready }

func (f *fakeServer) CloseSession(id string) error {
	for _, s := range f.sessions {
		if s.ID == id {
			f.closed = append(f.closed, id)
			return nil
		}
	}
	return adapter.ErrSessionNotFound
}

func decode(t *testing.T, w *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	return resp
}

// withParam routes a request through chi so URL parameters resolve.
func withParam(method, pattern, target string, h http.HandlerFunc) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Method(method, pattern, h)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, target, nil))
	return w
}

func TestLiveness_ReturnsOK(t *testing.T) {
	handler := NewHealthHandler(nil)
	w := httptest.NewRecorder()

	handler.Liveness(w, httptest.NewRequest("GET", "/health", nil))

	if w.Code != http.StatusOK {
		t.Errorf("Expected status %d, got %d", http.StatusOK, w.Code)
	}
	resp := decode(t, w)
	if resp.Status != "healthy" {
		t.Errorf("Expected status 'healthy', got '%s'", resp.Status)
	}
	data, ok := resp.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("Expected Data to be a map, got %T", resp.Data)
	}
	if data["service"] != "dittobox" {
		t.Errorf("Expected service 'dittobox', got '%s'", data["service"])
	}
}

func TestReadiness(t *testing.T) {
	tests := []struct {
		name   string
		server adapter.SessionManager
		want   int
		errMsg string
	}{
		{"no server", nil, http.StatusServiceUnavailable, "server not initialized"},
		{"not listening", &fakeServer{}, http.StatusServiceUnavailable, "server not accepting connections"},
		{"ready", &fakeServer{ready: true}, http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			NewHealthHandler(tt.server).Readiness(w, httptest.NewRequest("GET", "/health/ready", nil))

			if w.Code != tt.want {
				t.Errorf("Expected status %d, got %d", tt.want, w.Code)
			}
			resp := decode(t, w)
			if resp.Error != tt.errMsg {
				t.Errorf("Expected error '%s', got '%s'", tt.errMsg, resp.Error)
			}
		})
	}
}

func TestClients(t *testing.T) {
	store := registry.NewMemoryStore()
	if _, err := store.Touch(context.Background(), "alice", "127.0.0.1:5000", time.Now()); err != nil {
		t.Fatalf("Touch: %v", err)
	}
	handler := NewClientHandler(store)

	w := httptest.NewRecorder()
	handler.List(w, httptest.NewRequest("GET", "/api/v1/clients", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d", http.StatusOK, w.Code)
	}
	list, ok := decode(t, w).Data.([]interface{})
	if !ok || len(list) != 1 {
		t.Fatalf("Expected one client, got %v", list)
	}

	w = withParam("GET", "/api/v1/clients/{identity}", "/api/v1/clients/alice", handler.Get)
	if w.Code != http.StatusOK {
		t.Errorf("Expected status %d, got %d", http.StatusOK, w.Code)
	}
	client := decode(t, w).Data.(map[string]interface{})
	if client["identity"] != "alice" || client["last_address"] != "127.0.0.1:5000" {
		t.Errorf("Unexpected client %v", client)
	}

	w = withParam("GET", "/api/v1/clients/{identity}", "/api/v1/clients/bob", handler.Get)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status %d, got %d", http.StatusNotFound, w.Code)
	}
	if resp := decode(t, w); resp.Status != "error" || resp.Error != "client not found" {
		t.Errorf("Unexpected response %+v", resp)
	}
}

func TestClients_EmptyListIsArray(t *testing.T) {
	w := httptest.NewRecorder()
	NewClientHandler(registry.NewMemoryStore()).List(w, httptest.NewRequest("GET", "/api/v1/clients", nil))

	if _, ok := decode(t, w).Data.([]interface{}); !ok {
		t.Error("Expected an empty JSON array")
	}
}

func TestClients_NoRegistry(t *testing.T) {
	w := httptest.NewRecorder()
	NewClientHandler(nil).List(w, httptest.NewRequest("GET", "/api/v1/clients", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected status %d, got %d", http.StatusServiceUnavailable, w.Code)
	}
}

func TestSessions(t *testing.T) {
	server := &fakeServer{ready: true, sessions: []adapter.SessionInfo{
		{ID: "s-1", Identity: "alice", State: adapter.StateActive.String()},
	}}
	handler := NewSessionHandler(server)

	w := httptest.NewRecorder()
	handler.List(w, httptest.NewRequest("GET", "/api/v1/sessions", nil))
	list, ok := decode(t, w).Data.([]interface{})
	if !ok || len(list) != 1 {
		t.Fatalf("Expected one session, got %v", list)
	}

	w = withParam("DELETE", "/api/v1/sessions/{id}", "/api/v1/sessions/s-1", handler.Close)
	if w.Code != http.StatusOK {
		t.Errorf("Expected status %d, got %d", http.StatusOK, w.Code)
	}
	if len(server.closed) != 1 || server.closed[0] != "s-1" {
		t.Errorf("Expected s-1 to be closed, got %v", server.closed)
	}

	w = withParam("DELETE", "/api/v1/sessions/{id}", "/api/v1/sessions/nope", handler.Close)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status %d, got %d", http.StatusNotFound, w.Code)
	}
}
