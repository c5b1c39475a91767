package api

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/dittobox/pkg/adapter/box"
	"github.com/marmos91/dittobox/pkg/api/handlers"
	"github.com/marmos91/dittobox/pkg/metrics"
	"github.com/marmos91/dittobox/pkg/registry"
	"github.com/marmos91/dittobox/pkg/sandbox"
)

func get(t *testing.T, h http.Handler, method, path string) (int, handlers.Response) {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	var resp handlers.Response
	if w.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	}
	return w.Code, resp
}

func TestRouterAgainstLiveServer(t *testing.T) {
	root, err := sandbox.NewRoot(t.TempDir())
	require.NoError(t, err)
	store := registry.NewMemoryStore()
	srv := box.New(box.Config{BindAddress: "127.0.0.1"}, root, store, nil)

	router := NewRouter(Dependencies{Sessions: srv, Registry: store})

	code, _ := get(t, router, http.MethodGet, "/health/ready")
	assert.Equal(t, http.StatusServiceUnavailable, code, "not ready before Serve")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	conn, err := net.Dial("tcp", srv.Addr())
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()
	_, err = conn.Write([]byte("alice<END>LIST<END>"))
	require.NoError(t, err)
	buf := make([]byte, 256)
	_, err = conn.Read(buf)
	require.NoError(t, err)

	code, resp := get(t, router, http.MethodGet, "/health/ready")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", resp.Status)

	code, resp = get(t, router, http.MethodGet, "/api/v1/clients/alice")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "alice", resp.Data.(map[string]interface{})["identity"])

	code, resp = get(t, router, http.MethodGet, "/api/v1/sessions")
	require.Equal(t, http.StatusOK, code)
	sessions := resp.Data.([]interface{})
	require.Len(t, sessions, 1)
	id := sessions[0].(map[string]interface{})["id"].(string)

	code, _ = get(t, router, http.MethodDelete, "/api/v1/sessions/"+id)
	assert.Equal(t, http.StatusOK, code)

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, err = conn.Read(buf)
	assert.Error(t, err, "closed session must end the stream")
}

func TestRouterWithoutDependencies(t *testing.T) {
	router := NewRouter(Dependencies{})

	code, resp := get(t, router, http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", resp.Status)

	for _, path := range []string{"/health/ready", "/api/v1/clients", "/api/v1/sessions"} {
		code, _ := get(t, router, http.MethodGet, path)
		assert.Equal(t, http.StatusServiceUnavailable, code, path)
	}

	code, _ = get(t, router, http.MethodGet, "/")
	assert.Equal(t, http.StatusTemporaryRedirect, code)
}

func TestMetricsEndpoint(t *testing.T) {
	metrics.InitRegistry()
	t.Cleanup(metrics.Reset)

	w := httptest.NewRecorder()
	NewRouter(Dependencies{}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestServerStartStop(t *testing.T) {
	s := NewServer(APIConfig{BindAddress: "127.0.0.1"}, Dependencies{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	addr := s.Addr()
	require.NotEmpty(t, addr)

	resp, err := http.Get("http://" + addr + "/health")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestServerListenFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer func() { _ = ln.Close() }()
	port := ln.Addr().(*net.TCPAddr).Port

	s := NewServer(APIConfig{BindAddress: "127.0.0.1", Port: port}, Dependencies{})
	assert.Error(t, s.Start(context.Background()))
	assert.Empty(t, s.Addr())
}
