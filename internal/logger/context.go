package logger

import (
	"context"
	"time"
)

type logContextKey struct{}

// LogContext holds the per-connection fields that the *Ctx functions put in
// front of every record. Values are treated as immutable; the With* helpers
// return modified copies.
type LogContext struct {
	TraceID   string
	SpanID    string
	SessionID string
	ClientIP  string // remote address without port
	Identity  string // empty until the client has named itself
	Command   string
	StartTime time.Time
}

// NewLogContext starts the log context of an accepted connection.
func NewLogContext(sessionID, clientIP string) *LogContext {
	return &LogContext{SessionID: sessionID, ClientIP: clientIP, StartTime: time.Now()}
}

func WithContext(ctx context.Context, lc *LogContext) context.Context {
	return context.WithValue(ctx, logContextKey{}, lc)
}

// FromContext returns the LogContext stored in ctx, if any.
func FromContext(ctx context.Context) *LogContext {
	if ctx == nil {
		return nil
	}
	lc, _ := ctx.Value(logContextKey{}).(*LogContext)
	return lc
}

func (lc *LogContext) with(update func(*LogContext)) *LogContext {
	if lc == nil {
		return nil
	}
	c := *lc
	update(&c)
	return &c
}

func (lc *LogContext) WithIdentity(identity string) *LogContext {
	return lc.with(func(c *LogContext) { c.Identity = identity })
}

// WithCommand scopes a copy to one command and restarts its clock.
func (lc *LogContext) WithCommand(command string) *LogContext {
	return lc.with(func(c *LogContext) {
		c.Command = command
		c.StartTime = time.Now()
	})
}

func (lc *LogContext) WithTrace(traceID, spanID string) *LogContext {
	return lc.with(func(c *LogContext) { c.TraceID, c.SpanID = traceID, spanID })
}

// DurationMs is the time since StartTime in milliseconds.
func (lc *LogContext) DurationMs() float64 {
	if lc == nil || lc.StartTime.IsZero() {
		return 0
	}
	return Duration(lc.StartTime)
}
