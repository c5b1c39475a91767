package config

import (
	"strings"
	"time"

	"github.com/marmos91/dittobox/internal/bytesize"
	"github.com/marmos91/dittobox/pkg/registry"
)

// Default values for settings left unspecified.
const (
	DefaultPort            = 12346
	DefaultStorageRoot     = "./storage"
	DefaultMaxFrameSize    = 64 * bytesize.KiB
	DefaultShutdownTimeout = 30 * time.Second
	DefaultAPIPort         = 8080
)

// ApplyDefaults fills zero-valued fields with defaults. Explicit values
// are preserved.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyTelemetryDefaults(&cfg.Telemetry)
	applyServerDefaults(&cfg.Server)
	applyAPIDefaults(&cfg.API)
	applyRegistryDefaults(&cfg.Registry)
}

func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)
	if cfg.Level == "WARNING" {
		cfg.Level = "WARN"
	}

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

func applyTelemetryDefaults(cfg *TelemetryConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "localhost:4317"
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 1.0
	}

	if cfg.Profiling.Endpoint == "" {
		cfg.Profiling.Endpoint = "http://localhost:4040"
	}
	if len(cfg.Profiling.ProfileTypes) == 0 {
		cfg.Profiling.ProfileTypes = []string{
			"cpu",
			"alloc_space",
			"inuse_space",
			"goroutines",
		}
	}
}

func applyServerDefaults(cfg *ServerConfig) {
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.StorageRoot == "" {
		cfg.StorageRoot = DefaultStorageRoot
	}
	if cfg.MaxFrameSize == 0 {
		cfg.MaxFrameSize = DefaultMaxFrameSize
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = DefaultShutdownTimeout
	}
}

func applyAPIDefaults(cfg *APIConfig) {
	if cfg.Port == 0 {
		cfg.Port = DefaultAPIPort
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 10 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = 60 * time.Second
	}
}

func applyRegistryDefaults(cfg *registry.Config) {
	if cfg.Type == "" {
		cfg.Type = registry.TypeMemory
	}
	cfg.Type = strings.ToLower(cfg.Type)
}

// GetDefaultConfig returns a Config with every default applied. The API
// and metrics are enabled so a fresh install is observable.
func GetDefaultConfig() *Config {
	cfg := &Config{
		Metrics: MetricsConfig{Enabled: true},
		API:     APIConfig{Enabled: true},
	}
	ApplyDefaults(cfg)
	return cfg
}
