package box

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"github.com/marmos91/dittobox/internal/logger"
	"github.com/marmos91/dittobox/internal/protocol/command"
	"github.com/marmos91/dittobox/internal/protocol/frame"
	"github.com/marmos91/dittobox/internal/telemetry"
	"github.com/marmos91/dittobox/pkg/adapter"
	"github.com/marmos91/dittobox/pkg/metrics"
	"github.com/marmos91/dittobox/pkg/sandbox"
)

// closingWriteTimeout bounds the best-effort goodbye sent to a peer that
// may already be gone.
const closingWriteTimeout = time.Second

// Connection serves one BOX client from handshake to close.
//
// All reads go through frames, so bytes that arrive directly after a
// request frame (a PUT payload) are never lost. All writes take writeMu,
// which keeps a response frame and the transfer that follows it contiguous.
type Connection struct {
	server  *Adapter
	conn    net.Conn
	session *adapter.Session

	frames  *frame.Reader
	writeMu sync.Mutex

	sandbox *sandbox.Sandbox
	lc      *logger.LogContext
}

// NewConnection creates a handler for an accepted connection.
func NewConnection(server *Adapter, conn net.Conn, session *adapter.Session) *Connection {
	return &Connection{
		server:  server,
		conn:    conn,
		session: session,
	}
}

// Serve runs the session state machine: one identity frame, then commands
// until QUIT, a read failure, or server shutdown.
func (c *Connection) Serve(ctx context.Context) {
	defer c.close()

	c.lc = logger.NewLogContext(c.session.ID(), clientIP(c.session.RemoteAddr()))
	ctx = logger.WithContext(ctx, c.lc)
	c.frames = frame.NewReader(&idleReader{conn: c.conn, idle: c.server.config.IdleTimeout, ctx: ctx}, c.server.config.MaxFrameSize)

	logger.DebugCtx(ctx, "BOX connection opened")

	if !c.handshake(ctx) {
		return
	}
	ctx = logger.WithContext(ctx, c.lc)

	for {
		select {
		case <-ctx.Done():
			logger.DebugCtx(ctx, "BOX session closed due to server shutdown")
			c.sendClosing(ctx)
			return
		default:
		}

		text, err := c.frames.ReadFrame()
		if err != nil {
			c.logReadError(ctx, err)
			c.sendClosing(ctx)
			return
		}

		if !c.dispatch(ctx, text) {
			return
		}
	}
}

// handshake reads the identity frame and opens the sandbox. It reports
// whether the session became Active.
func (c *Connection) handshake(ctx context.Context) bool {
	ctx, span := telemetry.StartHandshakeSpan(ctx, c.session.ID(), c.session.RemoteAddr())
	defer span.End()

	identity, err := c.frames.ReadFrame()
	if err != nil {
		c.server.metrics.RecordHandshake(metrics.OutcomeFailed)
		telemetry.RecordError(ctx, err)
		c.logReadError(ctx, err)
		return false
	}

	if err := sandbox.ValidateIdentity(identity); err != nil {
		c.server.metrics.RecordHandshake(metrics.OutcomeInvalid)
		telemetry.RecordError(ctx, err)
		logger.WarnCtx(ctx, "BOX handshake rejected", logger.Err(err))
		_ = c.respond(command.RespInvalidName)
		return false
	}

	sb, err := c.server.root.Open(identity)
	if err != nil {
		c.server.metrics.RecordHandshake(metrics.OutcomeFailed)
		telemetry.RecordError(ctx, err)
		logger.ErrorCtx(ctx, "BOX sandbox unavailable", logger.Identity(identity), logger.Err(err))
		c.sendClosing(ctx)
		return false
	}

	c.sandbox = sb
	c.session.SetIdentity(identity)
	c.lc = c.lc.WithIdentity(identity)
	c.server.metrics.RecordHandshake(metrics.OutcomeOK)
	telemetry.SetAttributes(ctx, telemetry.Outcome(metrics.OutcomeOK))

	if c.server.registry != nil {
		if _, err := c.server.registry.Touch(ctx, identity, c.session.RemoteAddr(), time.Now()); err != nil {
			logger.WarnCtx(ctx, "Failed to record client in registry", logger.Identity(identity), logger.Err(err))
		}
	}

	logger.InfoCtx(logger.WithContext(ctx, c.lc), "BOX client identified", logger.Path(sb.Dir()))
	return true
}

// respond sends one response frame.
func (c *Connection) respond(text string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.writeFrameLocked(text)
}

func (c *Connection) writeFrameLocked(text string) error {
	if d := c.server.config.IdleTimeout; d > 0 {
		_ = c.conn.SetWriteDeadline(time.Now().Add(d))
	}
	return frame.WriteFrame(c.conn, text)
}

// sendClosing tells the peer the session is ending. Failures are expected
// when the peer has already gone and are only logged at debug.
func (c *Connection) sendClosing(ctx context.Context) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	_ = c.conn.SetWriteDeadline(time.Now().Add(closingWriteTimeout))
	if err := frame.WriteFrame(c.conn, command.RespClosing); err != nil {
		logger.DebugCtx(ctx, "BOX closing acknowledgment not delivered", logger.Err(err))
	}
}

func (c *Connection) logReadError(ctx context.Context, err error) {
	var netErr net.Error
	switch {
	case errors.Is(err, io.EOF):
		logger.DebugCtx(ctx, "BOX connection closed by client")
	case errors.Is(err, frame.ErrFrameTooLarge):
		logger.WarnCtx(ctx, "BOX frame too large, closing session", logger.Err(err))
	case errors.As(err, &netErr) && netErr.Timeout():
		logger.DebugCtx(ctx, "BOX connection timed out", logger.Err(err))
	case errors.Is(err, net.ErrClosed):
		logger.DebugCtx(ctx, "BOX connection closed locally")
	default:
		logger.DebugCtx(ctx, "BOX read failed", logger.Err(err))
	}
}

func (c *Connection) close() {
	_ = c.conn.Close()
	logger.Debug("BOX connection closed", logger.KeySessionID, c.session.ID(), logger.KeyAddress, c.session.RemoteAddr())
}

// idleReader refreshes the read deadline before every read while the
// session's context is live. Once shutdown begins it leaves the deadline
// set by the acceptor alone so blocked reads are interrupted.
type idleReader struct {
	conn net.Conn
	idle time.Duration
	ctx  context.Context
}

func (r *idleReader) Read(p []byte) (int, error) {
	if r.idle > 0 && r.ctx.Err() == nil {
		_ = r.conn.SetReadDeadline(time.Now().Add(r.idle))
		// Shutdown may have set its interrupt deadline in between; ours
		// must not outlive it.
		if r.ctx.Err() != nil {
			_ = r.conn.SetReadDeadline(time.Now())
		}
	}
	return r.conn.Read(p)
}

func clientIP(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}
