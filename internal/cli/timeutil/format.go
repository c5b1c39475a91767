// Package timeutil provides time formatting utilities for CLI output.
package timeutil

import (
	"fmt"
	"time"
)

// LocalTimeFormat is the format used for displaying local times in CLI output.
const LocalTimeFormat = "2006-01-02 15:04:05"

// FormatUptime converts a duration string to a human-readable format like
// "3d 0h 30m 15s". The input is returned unchanged if it does not parse.
func FormatUptime(uptime string) string {
	d, err := time.ParseDuration(uptime)
	if err != nil {
		return uptime
	}
	return FormatDuration(d)
}

// FormatDuration renders d with the largest non-zero unit first.
func FormatDuration(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh %dm %ds", days, hours, minutes, seconds)
	case hours > 0:
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	case minutes > 0:
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	return fmt.Sprintf("%ds", seconds)
}

// FormatTime renders t in local time. The zero time renders as "-".
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(LocalTimeFormat)
}

// FormatSince renders how long ago t was, e.g. "5m 2s ago".
func FormatSince(t time.Time, now time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return FormatDuration(now.Sub(t)) + " ago"
}
