// Package output renders dboxctl and dbox results as tables, JSON or YAML.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format represents the output format type.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// ParseFormat parses a string into a Format. Empty means table.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "table", "":
		return FormatTable, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("invalid output format: %q (valid: table, json, yaml)", s)
	}
}

// Printer writes results in one format.
type Printer struct {
	out    io.Writer
	format Format
	color  bool
}

// NewPrinter creates a Printer. color only affects status messages.
func NewPrinter(out io.Writer, format Format, color bool) *Printer {
	return &Printer{out: out, format: format, color: color}
}

// Format returns the printer's output format.
func (p *Printer) Format() Format { return p.format }

// Writer returns the printer's output writer.
func (p *Printer) Writer() io.Writer { return p.out }

// Print renders data. Table output needs a TableRenderer; anything else
// falls back to JSON.
func (p *Printer) Print(data any) error {
	switch p.format {
	case FormatTable:
		if renderer, ok := data.(TableRenderer); ok {
			return PrintTable(p.out, renderer)
		}
		return PrintJSON(p.out, data)
	case FormatJSON:
		return PrintJSON(p.out, data)
	case FormatYAML:
		return PrintYAML(p.out, data)
	default:
		return fmt.Errorf("unknown format: %s", p.format)
	}
}

// Success prints msg in green when color is on.
func (p *Printer) Success(msg string) { p.status("32", msg) }

// Error prints msg in red when color is on.
func (p *Printer) Error(msg string) { p.status("31", msg) }

func (p *Printer) status(code, msg string) {
	if p.color {
		_, _ = fmt.Fprintf(p.out, "\033[%sm%s\033[0m\n", code, msg)
		return
	}
	_, _ = fmt.Fprintln(p.out, msg)
}

// PrintJSON writes data as indented JSON.
func PrintJSON(w io.Writer, data any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

// PrintYAML writes data as YAML.
func PrintYAML(w io.Writer, data any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	defer func() { _ = enc.Close() }()
	return enc.Encode(data)
}
