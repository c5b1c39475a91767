// Package bytesize parses and prints human-readable byte quantities such
// as "64KiB", "1Gi" or "500MB".
package bytesize

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// ByteSize is a size in bytes that decodes from strings like "1Gi" or
// plain numbers.
type ByteSize uint64

const (
	B  ByteSize = 1
	KB ByteSize = 1000
	MB ByteSize = 1000 * KB
	GB ByteSize = 1000 * MB
	TB ByteSize = 1000 * GB

	KiB ByteSize = 1024
	MiB ByteSize = 1024 * KiB
	GiB ByteSize = 1024 * MiB
	TiB ByteSize = 1024 * GiB
)

var pattern = regexp.MustCompile(`(?i)^\s*(\d+(?:\.\d+)?)\s*([a-z]*)\s*$`)

var units = map[string]ByteSize{
	"": B, "b": B,
	"k": KB, "kb": KB,
	"m": MB, "mb": MB,
	"g": GB, "gb": GB,
	"t": TB, "tb": TB,
	"ki": KiB, "kib": KiB,
	"mi": MiB, "mib": MiB,
	"gi": GiB, "gib": GiB,
	"ti": TiB, "tib": TiB,
}

// binary units from largest to smallest, used when printing.
var printUnits = []struct {
	size ByteSize
	name string
}{
	{TiB, "TiB"},
	{GiB, "GiB"},
	{MiB, "MiB"},
	{KiB, "KiB"},
}

// Parse converts a human-readable size into a ByteSize.
func Parse(s string) (ByteSize, error) {
	if strings.TrimSpace(s) == "" {
		return 0, fmt.Errorf("empty byte size")
	}

	m := pattern.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("invalid byte size %q", s)
	}

	mult, ok := units[strings.ToLower(m[2])]
	if !ok {
		return 0, fmt.Errorf("unknown byte size unit %q", m[2])
	}

	if !strings.Contains(m[1], ".") {
		n, err := strconv.ParseUint(m[1], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid byte size %q: %w", s, err)
		}
		if n > math.MaxUint64/uint64(mult) {
			return 0, fmt.Errorf("byte size %q overflows", s)
		}
		return ByteSize(n) * mult, nil
	}

	f, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid byte size %q: %w", s, err)
	}
	return ByteSize(f * float64(mult)), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (b *ByteSize) UnmarshalText(text []byte) error {
	v, err := Parse(string(text))
	if err != nil {
		return err
	}
	*b = v
	return nil
}

// MarshalYAML writes the size in its exact short form so saved configs
// stay readable.
func (b ByteSize) MarshalYAML() (any, error) {
	return b.Exact(), nil
}

// Exact prints the size using the largest binary unit that divides it
// evenly, e.g. "64KiB" or "1000B".
func (b ByteSize) Exact() string {
	if b == 0 {
		return "0"
	}
	for _, u := range printUnits {
		if b%u.size == 0 {
			return fmt.Sprintf("%d%s", b/u.size, u.name)
		}
	}
	return fmt.Sprintf("%dB", uint64(b))
}

// String prints an approximate size with two decimals, e.g. "1.50MiB".
func (b ByteSize) String() string {
	for _, u := range printUnits {
		if b >= u.size {
			return fmt.Sprintf("%.2f%s", float64(b)/float64(u.size), u.name)
		}
	}
	return fmt.Sprintf("%dB", uint64(b))
}

// Int64 returns the size as an int64, saturating at math.MaxInt64.
func (b ByteSize) Int64() int64 {
	if uint64(b) > math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(b)
}

// Human formats a raw byte count for display.
func Human(n int64) string {
	if n < 0 {
		return "-" + ByteSize(-n).String()
	}
	return ByteSize(n).String()
}
