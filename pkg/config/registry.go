package config

import (
	"fmt"

	"github.com/marmos91/dittobox/internal/logger"
	"github.com/marmos91/dittobox/pkg/metrics"
	"github.com/marmos91/dittobox/pkg/metrics/prometheus"
	"github.com/marmos91/dittobox/pkg/registry"
)

// InitializeMetrics creates the Prometheus registry when metrics are
// enabled. It must run before any recorder is constructed.
func InitializeMetrics(cfg *Config) {
	if !cfg.Metrics.Enabled {
		logger.Debug("Metrics collection disabled")
		return
	}
	metrics.InitRegistry()
	logger.Info("Metrics collection enabled")
}

// InitializeRegistry opens the client registry described by cfg.Registry,
// instrumented when metrics are enabled.
//
// Example:
//
//	cfg, _ := config.Load("config.yaml")
//	reg, err := config.InitializeRegistry(cfg)
//	if err != nil {
//	    return err
//	}
//	defer reg.Close()
func InitializeRegistry(cfg *Config) (registry.Store, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration is nil")
	}

	logger.Debug("Opening client registry", logger.KeyStore, cfg.Registry.Type, logger.KeyPath, cfg.Registry.Path)

	store, err := registry.New(cfg.Registry, prometheus.NewRegistryMetrics())
	if err != nil {
		return nil, fmt.Errorf("failed to open %s registry: %w", cfg.Registry.Type, err)
	}

	logger.Info("Client registry ready", logger.KeyStore, cfg.Registry.Type)
	return store, nil
}
