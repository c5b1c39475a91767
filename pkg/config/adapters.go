package config

import (
	"github.com/marmos91/dittobox/pkg/adapter/box"
	"github.com/marmos91/dittobox/pkg/api"
	"github.com/marmos91/dittobox/pkg/metrics/prometheus"
	"github.com/marmos91/dittobox/pkg/registry"
	"github.com/marmos91/dittobox/pkg/sandbox"
)

// CreateAdapter builds the BOX adapter from cfg.Server. Metrics must be
// initialized first so the recorder is live.
func CreateAdapter(cfg *Config, root *sandbox.Root, reg registry.Store) *box.Adapter {
	s := cfg.Server
	return box.New(box.Config{
		BindAddress:        s.BindAddress,
		Port:               s.Port,
		MaxConnections:     s.MaxConnections,
		IdleTimeout:        s.IdleTimeout,
		MaxFrameSize:       int(s.MaxFrameSize.Int64()),
		MaxFileSize:        s.MaxFileSize.Int64(),
		ShutdownTimeout:    s.ShutdownTimeout,
		MetricsLogInterval: s.MetricsLogInterval,
	}, root, reg, prometheus.NewServerMetrics())
}

// CreateAPIServer builds the admin HTTP server, or returns nil when the API
// is disabled.
func CreateAPIServer(cfg *Config, deps api.Dependencies) *api.Server {
	if !cfg.API.Enabled {
		return nil
	}
	return api.NewServer(api.APIConfig{
		BindAddress:  cfg.API.BindAddress,
		Port:         cfg.API.Port,
		ReadTimeout:  cfg.API.ReadTimeout,
		WriteTimeout: cfg.API.WriteTimeout,
		IdleTimeout:  cfg.API.IdleTimeout,
	}, deps)
}
