// Package adapter provides the protocol-independent TCP server machinery:
// the accept loop, per-connection session handles and graceful shutdown.
// Protocol packages (see adapter/box) plug in through ConnectionFactory.
package adapter

import "context"

// Adapter is a protocol server managed by the dbox process.
//
// Lifecycle:
//  1. Creation with protocol-specific configuration
//  2. Serve starts listening and blocks until shutdown
//  3. Stop initiates graceful shutdown; it may be called concurrently with Serve
//
// Implementations must be safe for concurrent use.
type Adapter interface {
	// Serve starts the protocol server and blocks until ctx is cancelled or
	// an unrecoverable error occurs. It returns nil on graceful shutdown.
	Serve(ctx context.Context) error

	// Stop initiates graceful shutdown. It is idempotent and returns an error
	// if ctx expires before every session has finished.
	Stop(ctx context.Context) error

	// Protocol returns the protocol name used in logs and metrics.
	Protocol() string

	// Port returns the configured TCP port.
	Port() int
}

// SessionManager exposes live sessions to the admin API.
type SessionManager interface {
	Sessions() []SessionInfo
	CloseSession(id string) error
	Ready() bool
}
