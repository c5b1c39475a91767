package adapter

import (
	"context"
	"errors"
	"fmt"
	"net"
	"runtime/debug"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/marmos91/dittobox/internal/logger"
)

// ConnectionHandler serves one accepted connection. Serve blocks until the
// connection is finished or ctx is cancelled.
type ConnectionHandler interface {
	Serve(ctx context.Context)
}

// ConnectionFactory creates protocol handlers for accepted connections.
// The Session handle is owned by the BaseAdapter; handlers update its
// identity and state as the protocol progresses.
type ConnectionFactory interface {
	NewConnection(conn net.Conn, session *Session) ConnectionHandler
}

// BaseConfig holds configuration common to all protocol adapters.
type BaseConfig struct {
	// BindAddress is the IP address to bind to. Empty binds all interfaces.
	BindAddress string

	// Port is the TCP port to listen on. 0 picks a free port.
	Port int

	// MaxConnections limits concurrent sessions. 0 means unlimited.
	MaxConnections int

	// ShutdownTimeout is how long Serve waits for sessions after shutdown
	// begins before force-closing them.
	ShutdownTimeout time.Duration

	// MetricsLogInterval logs the active session count periodically. 0 disables it.
	MetricsLogInterval time.Duration
}

// MetricsRecorder receives connection lifecycle events. A nil recorder
// disables collection.
type MetricsRecorder interface {
	RecordConnectionAccepted()
	RecordConnectionClosed()
	RecordConnectionForceClosed()
	SetActiveConnections(count int32)
}

// BaseAdapter owns the listener and every session spawned from it.
//
// Each accepted connection runs on its own goroutine with a tracked Session
// handle, so shutdown can wait for, interrupt, or force-close sessions
// instead of abandoning them.
//
// All exported methods are safe for concurrent use. Shutdown is idempotent.
type BaseAdapter struct {
	Config BaseConfig

	protocolName string

	// Metrics is optional.
	Metrics MetricsRecorder

	listener   net.Listener
	listenerMu sync.RWMutex
	serving    atomic.Bool

	readyOnce sync.Once
	// ListenerReady is closed once Serve has bound (or failed to bind) its listener.
	ListenerReady chan struct{}

	shutdownOnce sync.Once
	// Shutdown is closed when graceful shutdown begins.
	Shutdown chan struct{}

	// ShutdownCtx is passed to every handler and cancelled on shutdown.
	ShutdownCtx    context.Context
	CancelRequests context.CancelFunc

	activeConns sync.WaitGroup
	ConnCount   atomic.Int32
	sessions    sync.Map // id -> *Session

	connSemaphore chan struct{}
}

// NewBaseAdapter creates a stopped BaseAdapter. Call ServeWithFactory to start.
func NewBaseAdapter(config BaseConfig, protocol string) *BaseAdapter {
	var connSemaphore chan struct{}
	if config.MaxConnections > 0 {
		connSemaphore = make(chan struct{}, config.MaxConnections)
		logger.Debug(protocol+" connection limit", "max_connections", config.MaxConnections)
	} else {
		logger.Debug(protocol+" connection limit", "max_connections", "unlimited")
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = 30 * time.Second
	}

	shutdownCtx, cancelRequests := context.WithCancel(context.Background())

	return &BaseAdapter{
		Config:         config,
		protocolName:   protocol,
		Shutdown:       make(chan struct{}),
		connSemaphore:  connSemaphore,
		ShutdownCtx:    shutdownCtx,
		CancelRequests: cancelRequests,
		ListenerReady:  make(chan struct{}),
	}
}

// ServeWithFactory binds the listener and runs the accept loop until ctx is
// cancelled or Stop is called.
//
// The loop never blocks on client processing: every accepted connection is
// handed to its own goroutine immediately. When MaxConnections is reached,
// further connections are accepted and closed at once.
//
// Returns nil on graceful shutdown, an error if the listener cannot be
// created or sessions had to be force-closed.
func (b *BaseAdapter) ServeWithFactory(ctx context.Context, factory ConnectionFactory) error {
	if !b.serving.CompareAndSwap(false, true) {
		return ErrAlreadyServing
	}

	listenAddr := net.JoinHostPort(b.Config.BindAddress, strconv.Itoa(b.Config.Port))
	listener, err := net.Listen("tcp", listenAddr)
	if err != nil {
		b.markReady()
		return fmt.Errorf("failed to create %s listener on %s: %w", b.protocolName, listenAddr, err)
	}

	b.listenerMu.Lock()
	b.listener = listener
	b.listenerMu.Unlock()
	b.markReady()

	logger.Info(b.protocolName+" server listening", logger.KeyAddress, listener.Addr().String())

	go func() {
		select {
		case <-ctx.Done():
			logger.Info(b.protocolName+" shutdown signal received", logger.KeyError, ctx.Err())
			b.initiateShutdown()
		case <-b.Shutdown:
		}
	}()

	select {
	case <-b.Shutdown:
		// Stop raced ahead of Serve; the listener was never closed.
		_ = listener.Close()
		return b.gracefulShutdown()
	default:
	}

	if b.Config.MetricsLogInterval > 0 {
		go b.logMetrics(ctx)
	}

	for {
		tcpConn, err := listener.Accept()
		if err != nil {
			select {
			case <-b.Shutdown:
				return b.gracefulShutdown()
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return b.gracefulShutdown()
			}
			logger.Warn("Error accepting "+b.protocolName+" connection", logger.KeyError, err)
			continue
		}

		if !b.acquireSlot() {
			logger.Warn(b.protocolName+" connection limit reached, rejecting",
				logger.KeyAddress, tcpConn.RemoteAddr().String(),
				"max_connections", b.Config.MaxConnections)
			_ = tcpConn.Close()
			continue
		}

		if tcp, ok := tcpConn.(*net.TCPConn); ok {
			if err := tcp.SetNoDelay(true); err != nil {
				logger.Debug("Failed to set TCP_NODELAY", logger.KeyError, err)
			}
		}

		session := newSession(tcpConn)
		b.activeConns.Add(1)
		active := b.ConnCount.Add(1)
		b.sessions.Store(session.ID(), session)

		if b.Metrics != nil {
			b.Metrics.RecordConnectionAccepted()
			b.Metrics.SetActiveConnections(active)
		}
		logger.Debug(b.protocolName+" connection accepted",
			logger.KeyAddress, session.RemoteAddr(),
			logger.KeySessionID, session.ID(),
			logger.KeyActive, active)

		handler := factory.NewConnection(tcpConn, session)
		go b.runSession(session, handler)
	}
}

func (b *BaseAdapter) runSession(session *Session, handler ConnectionHandler) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error(b.protocolName+" session panic",
				logger.KeySessionID, session.ID(),
				logger.KeyAddress, session.RemoteAddr(),
				"panic", r,
				"stack", string(debug.Stack()))
		}

		session.finish()
		b.sessions.Delete(session.ID())
		b.releaseSlot()
		remaining := b.ConnCount.Add(-1)
		b.activeConns.Done()

		if b.Metrics != nil {
			b.Metrics.RecordConnectionClosed()
			b.Metrics.SetActiveConnections(remaining)
		}
		logger.Debug(b.protocolName+" connection closed",
			logger.KeyAddress, session.RemoteAddr(),
			logger.KeySessionID, session.ID(),
			logger.KeyActive, remaining)
	}()

	handler.Serve(b.ShutdownCtx)
}

func (b *BaseAdapter) acquireSlot() bool {
	if b.connSemaphore == nil {
		return true
	}
	select {
	case b.connSemaphore <- struct{}{}:
		return true
	default:
		return false
	}
}

func (b *BaseAdapter) releaseSlot() {
	if b.connSemaphore != nil {
		<-b.connSemaphore
	}
}

func (b *BaseAdapter) markReady() {
	b.readyOnce.Do(func() { close(b.ListenerReady) })
}

// initiateShutdown stops the accept loop and closes the listener. It then
// cancels ShutdownCtx before interrupting blocking reads, so handlers stop
// extending their deadlines first. Safe to call repeatedly.
func (b *BaseAdapter) initiateShutdown() {
	b.shutdownOnce.Do(func() {
		logger.Debug(b.protocolName + " shutdown initiated")
		close(b.Shutdown)

		b.listenerMu.Lock()
		if b.listener != nil {
			if err := b.listener.Close(); err != nil {
				logger.Debug("Error closing "+b.protocolName+" listener", logger.KeyError, err)
			}
		}
		b.listenerMu.Unlock()

		b.CancelRequests()
		b.interruptBlockingReads()
	})
}

// interruptBlockingReads sets a short read deadline on every session so
// handlers blocked waiting for the next frame notice the shutdown.
func (b *BaseAdapter) interruptBlockingReads() {
	deadline := time.Now().Add(100 * time.Millisecond)
	b.sessions.Range(func(_, value any) bool {
		s := value.(*Session)
		if err := s.conn.SetReadDeadline(deadline); err != nil {
			logger.Debug("Error setting shutdown deadline on connection",
				logger.KeyAddress, s.RemoteAddr(), logger.KeyError, err)
		}
		return true
	})
}

// waitIdle returns a channel closed once every session has finished.
func (b *BaseAdapter) waitIdle() <-chan struct{} {
	done := make(chan struct{})
	go func() {
		b.activeConns.Wait()
		close(done)
	}()
	return done
}

// gracefulShutdown waits up to ShutdownTimeout for sessions, then force-closes the rest.
func (b *BaseAdapter) gracefulShutdown() error {
	logger.Info(b.protocolName+" graceful shutdown: waiting for active connections",
		logger.KeyActive, b.ConnCount.Load(), "timeout", b.Config.ShutdownTimeout)

	timer := time.NewTimer(b.Config.ShutdownTimeout)
	defer timer.Stop()

	select {
	case <-b.waitIdle():
		logger.Info(b.protocolName + " graceful shutdown complete: all connections closed")
		return nil
	case <-timer.C:
		remaining := b.ConnCount.Load()
		logger.Warn(b.protocolName+" shutdown timeout exceeded - forcing closure",
			logger.KeyActive, remaining, "timeout", b.Config.ShutdownTimeout)
		b.forceCloseConnections()
		return fmt.Errorf("%s shutdown timeout: %d connections force-closed", b.protocolName, remaining)
	}
}

func (b *BaseAdapter) forceCloseConnections() {
	closed := 0
	b.sessions.Range(func(_, value any) bool {
		s := value.(*Session)
		s.Cancel()
		closed++
		if b.Metrics != nil {
			b.Metrics.RecordConnectionForceClosed()
		}
		logger.Debug("Force-closed connection", logger.KeyAddress, s.RemoteAddr(), logger.KeySessionID, s.ID())
		return true
	})
	if closed > 0 {
		logger.Info("Force-closed connections", "count", closed)
	}
}

// Stop initiates graceful shutdown and waits for sessions until ctx is done.
func (b *BaseAdapter) Stop(ctx context.Context) error {
	b.initiateShutdown()

	if ctx == nil {
		return b.gracefulShutdown()
	}

	select {
	case <-b.waitIdle():
		return nil
	case <-ctx.Done():
		logger.Warn(b.protocolName+" shutdown context cancelled",
			logger.KeyActive, b.ConnCount.Load(), logger.KeyError, ctx.Err())
		b.forceCloseConnections()
		return ctx.Err()
	}
}

func (b *BaseAdapter) logMetrics(ctx context.Context) {
	ticker := time.NewTicker(b.Config.MetricsLogInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-b.Shutdown:
			return
		case <-ticker.C:
			logger.Info(b.protocolName+" metrics", "active_connections", b.ConnCount.Load())
		}
	}
}

// Sessions returns a snapshot of the running sessions ordered by start time.
func (b *BaseAdapter) Sessions() []SessionInfo {
	var out []SessionInfo
	b.sessions.Range(func(_, value any) bool {
		out = append(out, value.(*Session).Info())
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out
}

// Session returns the live session with the given ID.
func (b *BaseAdapter) Session(id string) (*Session, bool) {
	v, ok := b.sessions.Load(id)
	if !ok {
		return nil, false
	}
	return v.(*Session), true
}

// CloseSession cancels one session by closing its connection.
func (b *BaseAdapter) CloseSession(id string) error {
	s, ok := b.Session(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	logger.Info(b.protocolName+" closing session on request", logger.KeySessionID, id, logger.KeyIdentity, s.Identity())
	s.Cancel()
	return nil
}

// Ready reports whether the listener is bound and shutdown has not begun.
func (b *BaseAdapter) Ready() bool {
	select {
	case <-b.Shutdown:
		return false
	default:
	}
	b.listenerMu.RLock()
	defer b.listenerMu.RUnlock()
	return b.listener != nil
}

// GetActiveConnections returns the current number of active sessions.
func (b *BaseAdapter) GetActiveConnections() int32 {
	return b.ConnCount.Load()
}

// GetListenerAddr blocks until Serve has bound its listener and returns its
// address, or "" if binding failed.
func (b *BaseAdapter) GetListenerAddr() string {
	<-b.ListenerReady

	b.listenerMu.RLock()
	defer b.listenerMu.RUnlock()
	if b.listener == nil {
		return ""
	}
	return b.listener.Addr().String()
}

// Port returns the configured TCP port.
func (b *BaseAdapter) Port() int {
	return b.Config.Port
}

// Protocol returns the protocol name.
func (b *BaseAdapter) Protocol() string {
	return b.protocolName
}
