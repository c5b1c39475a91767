package api

import "time"

// APIConfig configures the admin HTTP server.
//
// When the server is disabled in the main configuration, NewServer is never
// called (zero overhead).
type APIConfig struct {
	// BindAddress is the interface to listen on. Empty means all interfaces.
	BindAddress string

	// Port is the HTTP port for the API endpoints. Zero picks an ephemeral
	// port, which tests rely on.
	Port int

	// ReadTimeout is the maximum duration for reading the entire request.
	// Default: 10s
	ReadTimeout time.Duration

	// WriteTimeout is the maximum duration before timing out writes of the response.
	// Default: 10s
	WriteTimeout time.Duration

	// IdleTimeout is the maximum amount of time to wait for the next request
	// when keep-alives are enabled.
	// Default: 60s
	IdleTimeout time.Duration
}

// applyDefaults fills in zero values with sensible defaults.
func (c *APIConfig) applyDefaults() {
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 10 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 10 * time.Second
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 60 * time.Second
	}
}
