package logger

import "log/slog"

// Standard field keys. Use them instead of ad-hoc strings so log queries stay stable.
const (
	KeyTraceID = "trace_id"
	KeySpanID  = "span_id"

	// Connection & session
	KeySessionID = "session_id"
	KeyClientIP  = "client_ip"
	KeyAddress   = "address"
	KeyIdentity  = "identity"
	KeyState     = "state"
	KeyProtocol  = "protocol"

	// Commands & files
	KeyCommand   = "command"
	KeyFilename  = "filename"
	KeyPath      = "path"
	KeySize      = "size"
	KeyEntries   = "entries"
	KeyDirection = "direction"
	KeyReceived  = "received"
	KeyExpected  = "expected"
	KeyOutcome   = "outcome"

	// Operation metadata
	KeyDurationMs = "duration_ms"
	KeyError      = "error"
	KeyStore      = "store"
	KeyActive     = "active"
)

func SessionID(id string) slog.Attr  { return slog.String(KeySessionID, id) }
func ClientIP(addr string) slog.Attr { return slog.String(KeyClientIP, addr) }
func Identity(name string) slog.Attr { return slog.String(KeyIdentity, name) }
func Command(cmd string) slog.Attr   { return slog.String(KeyCommand, cmd) }
func Filename(name string) slog.Attr { return slog.String(KeyFilename, name) }
func Path(p string) slog.Attr        { return slog.String(KeyPath, p) }
func Size(n int64) slog.Attr         { return slog.Int64(KeySize, n) }

// DurationMs creates a duration attribute in milliseconds.
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}

// Err creates an error attribute. A nil error yields an empty attribute that handlers drop.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}
