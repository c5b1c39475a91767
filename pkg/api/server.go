package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/marmos91/dittobox/internal/logger"
)

// Server provides the admin HTTP server.
//
// The server supports graceful shutdown with a bounded timeout.
type Server struct {
	server       *http.Server
	config       APIConfig
	shutdownOnce sync.Once

	listenerMu    sync.RWMutex
	listener      net.Listener
	listenerReady chan struct{}
}

// NewServer creates a new API HTTP server in a stopped state. Call Start
// to begin serving requests.
func NewServer(config APIConfig, deps Dependencies) *Server {
	config.applyDefaults()

	server := &http.Server{
		Addr:         net.JoinHostPort(config.BindAddress, strconv.Itoa(config.Port)),
		Handler:      NewRouter(deps),
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}

	return &Server{
		server:        server,
		config:        config,
		listenerReady: make(chan struct{}),
	}
}

// Start starts the API HTTP server and blocks until the context is cancelled
// or an error occurs.
//
// Returns nil on graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		close(s.listenerReady)
		return fmt.Errorf("API server failed to listen on %s: %w", s.server.Addr, err)
	}
	s.listenerMu.Lock()
	s.listener = ln
	s.listenerMu.Unlock()
	close(s.listenerReady)

	errChan := make(chan error, 1)
	go func() {
		logger.Info("API server listening", logger.KeyAddress, ln.Addr().String())
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("API server shutdown signal received")
		// The cancelled ctx would abort the shutdown immediately.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.Stop(shutdownCtx)
	case err := <-errChan:
		return fmt.Errorf("API server failed: %w", err)
	}
}

// Stop initiates graceful shutdown of the API server. It is safe to call
// multiple times and concurrently with Start.
func (s *Server) Stop(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		logger.Debug("API server shutdown initiated")

		if err := s.server.Shutdown(ctx); err != nil {
			shutdownErr = fmt.Errorf("API server shutdown error: %w", err)
			logger.Error("API server shutdown error", logger.Err(err))
		} else {
			logger.Info("API server stopped gracefully")
		}
	})
	return shutdownErr
}

// Addr blocks until Start has bound its listener and returns its address,
// or "" if binding failed.
func (s *Server) Addr() string {
	<-s.listenerReady

	s.listenerMu.RLock()
	defer s.listenerMu.RUnlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Port returns the configured TCP port.
func (s *Server) Port() int {
	return s.config.Port
}
