package box

import (
	"fmt"
	"time"

	"github.com/marmos91/dittobox/internal/protocol/frame"
)

// Config holds configuration parameters for the BOX server.
//
// Default values (applied by New if zero):
//   - Port: 0 (an ephemeral port; pkg/config supplies 12346)
//   - MaxConnections: 0 (unlimited)
//   - IdleTimeout: 0 (sessions may stay idle forever)
//   - MaxFrameSize: 64KiB
//   - MaxFileSize: 0 (uploads are unbounded)
//   - ShutdownTimeout: 30s
type Config struct {
	BindAddress string
	Port        int

	// MaxConnections limits concurrent sessions. 0 means unlimited.
	MaxConnections int

	// IdleTimeout closes a session whose peer sends nothing for this long,
	// including in the middle of a transfer. 0 disables it.
	IdleTimeout time.Duration

	// MaxFrameSize bounds a single request frame, in bytes.
	MaxFrameSize int

	// MaxFileSize rejects PUTs declaring more bytes. 0 means unlimited.
	MaxFileSize int64

	// ShutdownTimeout bounds how long Stop waits for sessions.
	ShutdownTimeout time.Duration

	// MetricsLogInterval periodically logs the session count. 0 disables it.
	MetricsLogInterval time.Duration
}

func (c *Config) applyDefaults() {
	if c.MaxFrameSize == 0 {
		c.MaxFrameSize = frame.DefaultMaxSize
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = 30 * time.Second
	}
}

func (c *Config) validate() error {
	switch {
	case c.Port < 0 || c.Port > 65535:
		return fmt.Errorf("port %d out of range", c.Port)
	case c.MaxConnections < 0:
		return fmt.Errorf("max connections must not be negative")
	case c.IdleTimeout < 0:
		return fmt.Errorf("idle timeout must not be negative")
	case c.MaxFrameSize < 64:
		return fmt.Errorf("max frame size %d is too small", c.MaxFrameSize)
	case c.MaxFileSize < 0:
		return fmt.Errorf("max file size must not be negative")
	}
	return nil
}
