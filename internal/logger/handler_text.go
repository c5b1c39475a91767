package logger

import (
	"context"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
)

// ColorTextHandler writes one human-readable line per record:
//
//	[2006-01-02 15:04:05] [INFO] message key=value key="value with spaces"
//
// Level names are coloured when useColor is set.
type ColorTextHandler struct {
	level    slog.Leveler
	w        io.Writer
	mu       *sync.Mutex
	prefix   string // dotted group path applied to keys
	attrs    []byte // pre-rendered WithAttrs output
	useColor bool
}

// NewColorTextHandler creates a new ColorTextHandler
func NewColorTextHandler(w io.Writer, opts *slog.HandlerOptions, useColor bool) *ColorTextHandler {
	var level slog.Leveler = slog.LevelInfo
	if opts != nil && opts.Level != nil {
		level = opts.Level
	}
	return &ColorTextHandler{
		level:    level,
		w:        w,
		mu:       &sync.Mutex{},
		useColor: useColor,
	}
}

// Enabled reports whether the handler handles records at the given level
func (h *ColorTextHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle formats and writes a log record
func (h *ColorTextHandler) Handle(_ context.Context, r slog.Record) error {
	buf := make([]byte, 0, 256)
	buf = append(buf, '[')
	buf = r.Time.AppendFormat(buf, "2006-01-02 15:04:05")
	buf = append(buf, "] ["...)
	buf = append(buf, h.levelLabel(r.Level)...)
	buf = append(buf, "] "...)
	buf = append(buf, r.Message...)
	buf = append(buf, h.attrs...)

	r.Attrs(func(a slog.Attr) bool {
		buf = h.appendAttr(buf, h.prefix, a)
		return true
	})
	buf = append(buf, '\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(buf)
	return err
}

func (h *ColorTextHandler) levelLabel(level slog.Level) string {
	var label, color string
	switch {
	case level < slog.LevelInfo:
		label, color = "DEBUG", colorGray
	case level < slog.LevelWarn:
		label, color = "INFO", colorGreen
	case level < slog.LevelError:
		label, color = "WARN", colorYellow
	default:
		label, color = "ERROR", colorRed
	}
	if !h.useColor {
		return label
	}
	return color + label + colorReset
}

func (h *ColorTextHandler) appendAttr(buf []byte, prefix string, a slog.Attr) []byte {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return buf
	}

	if a.Value.Kind() == slog.KindGroup {
		group := prefix
		if a.Key != "" {
			group = prefix + a.Key + "."
		}
		for _, ga := range a.Value.Group() {
			buf = h.appendAttr(buf, group, ga)
		}
		return buf
	}

	buf = append(buf, ' ')
	if h.useColor {
		buf = append(buf, colorCyan...)
	}
	buf = append(buf, prefix...)
	buf = append(buf, a.Key...)
	if h.useColor {
		buf = append(buf, colorReset...)
	}
	buf = append(buf, '=')
	return append(buf, formatValue(a.Value)...)
}

func formatValue(v slog.Value) string {
	switch v.Kind() {
	case slog.KindString:
		s := v.String()
		if s == "" || strings.ContainsAny(s, " \t\n\"=") {
			return strconv.Quote(s)
		}
		return s
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'f', 3, 64)
	case slog.KindTime:
		return v.Time().Format(time.RFC3339)
	default:
		return v.String()
	}
}

// WithAttrs returns a new handler with additional attrs
func (h *ColorTextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append([]byte{}, h.attrs...)
	for _, a := range attrs {
		clone.attrs = h.appendAttr(clone.attrs, h.prefix, a)
	}
	return &clone
}

// WithGroup returns a new handler with a group name
func (h *ColorTextHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.prefix = h.prefix + name + "."
	return &clone
}
