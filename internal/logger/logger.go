// Package logger is the process-wide structured logger used by the server and
// the client tools. It wraps log/slog with a coloured text handler for
// terminals and a JSON handler for log shippers.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Level represents log levels
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// Config holds logger configuration
type Config struct {
	Level  string // DEBUG, INFO, WARN, ERROR
	Format string // text, json
	Output string // stdout, stderr, or file path
}

var (
	currentLevel  atomic.Int32
	currentFormat atomic.Value // "text" or "json"

	mu       sync.RWMutex
	slogger  *slog.Logger
	output   io.Writer = os.Stdout
	closer   io.Closer
	useColor bool
)

func init() {
	currentLevel.Store(int32(LevelInfo))
	currentFormat.Store("text")
	useColor = isTerminal(os.Stdout.Fd())
	reconfigure()
}

var levelNames = [...]string{LevelDebug: "DEBUG", LevelInfo: "INFO", LevelWarn: "WARN", LevelError: "ERROR"}

func (l Level) String() string {
	if l < 0 || int(l) >= len(levelNames) {
		return "UNKNOWN"
	}
	return levelNames[l]
}

// ParseLevel converts a level name (case-insensitive) to a Level. WARNING
// is accepted as an alias of WARN.
func ParseLevel(s string) (Level, bool) {
	name := strings.ToUpper(strings.TrimSpace(s))
	if name == "WARNING" {
		name = "WARN"
	}
	for l, n := range levelNames {
		if n == name {
			return Level(l), true
		}
	}
	return LevelInfo, false
}

// slog spaces its levels four apart starting at DEBUG=-4.
func (l Level) slogLevel() slog.Level {
	return slog.Level(4*int(l) - 4)
}

// reconfigure rebuilds the slog handler based on current settings
func reconfigure() {
	mu.Lock()
	defer mu.Unlock()

	opts := &slog.HandlerOptions{Level: Level(currentLevel.Load()).slogLevel()}

	var h slog.Handler
	if format, _ := currentFormat.Load().(string); format == "json" {
		h = slog.NewJSONHandler(output, opts)
	} else {
		h = NewColorTextHandler(output, opts, useColor)
	}
	slogger = slog.New(h)
}

// Init initializes the logger with the given configuration.
// Output can be "stdout", "stderr", or a file path.
func Init(cfg Config) error {
	if cfg.Output != "" {
		var (
			w     io.Writer
			c     io.Closer
			color bool
		)

		switch strings.ToLower(cfg.Output) {
		case "stdout":
			w, color = os.Stdout, isTerminal(os.Stdout.Fd())
		case "stderr":
			w, color = os.Stderr, isTerminal(os.Stderr.Fd())
		default:
			f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
			if err != nil {
				return fmt.Errorf("failed to open log file %q: %w", cfg.Output, err)
			}
			w, c = f, f
		}

		mu.Lock()
		if closer != nil {
			_ = closer.Close()
		}
		output, closer, useColor = w, c, color
		mu.Unlock()
	}

	if cfg.Level != "" {
		if _, ok := ParseLevel(cfg.Level); !ok {
			return fmt.Errorf("invalid log level %q", cfg.Level)
		}
		SetLevel(cfg.Level)
	}
	if cfg.Format != "" {
		SetFormat(cfg.Format)
	}

	reconfigure()
	return nil
}

// SetLevel sets the minimum log level. Unknown names are ignored.
func SetLevel(level string) {
	l, ok := ParseLevel(level)
	if !ok {
		return
	}
	currentLevel.Store(int32(l))
	reconfigure()
}

// SetFormat sets the output format (text or json)
func SetFormat(format string) {
	format = strings.ToLower(format)
	if format != "text" && format != "json" {
		return
	}
	currentFormat.Store(format)
	reconfigure()
}

func enabled(l Level) bool {
	return l >= Level(currentLevel.Load())
}

func emit(ctx context.Context, l Level, msg string, args []any) {
	if l != LevelError && !enabled(l) {
		return
	}
	if ctx != nil {
		args = appendContextFields(ctx, args)
	}
	mu.RLock()
	sl := slogger
	mu.RUnlock()
	sl.Log(context.Background(), l.slogLevel(), msg, args...)
}

// Debug logs msg with alternating key/value args, or slog.Attr values.
func Debug(msg string, args ...any) { emit(nil, LevelDebug, msg, args) }

func Info(msg string, args ...any)  { emit(nil, LevelInfo, msg, args) }
func Warn(msg string, args ...any)  { emit(nil, LevelWarn, msg, args) }
func Error(msg string, args ...any) { emit(nil, LevelError, msg, args) }

// DebugCtx is Debug with the session fields stored in ctx placed first.
func DebugCtx(ctx context.Context, msg string, args ...any) { emit(ctx, LevelDebug, msg, args) }

func InfoCtx(ctx context.Context, msg string, args ...any)  { emit(ctx, LevelInfo, msg, args) }
func WarnCtx(ctx context.Context, msg string, args ...any)  { emit(ctx, LevelWarn, msg, args) }
func ErrorCtx(ctx context.Context, msg string, args ...any) { emit(ctx, LevelError, msg, args) }

func appendContextFields(ctx context.Context, args []any) []any {
	lc := FromContext(ctx)
	if lc == nil {
		return args
	}

	fields := [...][2]string{
		{KeyTraceID, lc.TraceID},
		{KeySpanID, lc.SpanID},
		{KeySessionID, lc.SessionID},
		{KeyClientIP, lc.ClientIP},
		{KeyIdentity, lc.Identity},
		{KeyCommand, lc.Command},
	}
	out := make([]any, 0, 2*len(fields)+len(args))
	for _, f := range fields {
		if f[1] != "" {
			out = append(out, f[0], f[1])
		}
	}
	return append(out, args...)
}

// With returns a logger that adds args to every record.
func With(args ...any) *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return slogger.With(args...)
}

// Duration returns duration since start time in milliseconds
func Duration(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}
