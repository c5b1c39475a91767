package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/marmos91/dittobox/internal/bytesize"
	"github.com/marmos91/dittobox/pkg/registry"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. DITTOBOX_SERVER_PORT.
const EnvPrefix = "DITTOBOX"

// Config represents the DittoBox server configuration.
//
// Configuration sources (in order of precedence):
//  1. CLI flags (highest priority)
//  2. Environment variables (DITTOBOX_*)
//  3. Configuration file (YAML)
//  4. Default values (lowest priority)
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Telemetry controls OpenTelemetry distributed tracing
	Telemetry TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry"`

	// Server configures the BOX protocol listener and the storage root
	Server ServerConfig `mapstructure:"server" yaml:"server"`

	// Metrics toggles Prometheus collection. Metrics are served by the API.
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`

	// API configures the admin HTTP server
	API APIConfig `mapstructure:"api" yaml:"api"`

	// Registry selects where known client identities are recorded
	Registry registry.Config `mapstructure:"registry" yaml:"registry"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR" yaml:"level"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// TelemetryConfig controls OpenTelemetry distributed tracing.
type TelemetryConfig struct {
	// Enabled controls whether distributed tracing is enabled
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Endpoint is the OTLP collector endpoint (host:port)
	Endpoint string `mapstructure:"endpoint" validate:"required_if=Enabled true" yaml:"endpoint"`

	// Insecure disables TLS towards the collector
	Insecure bool `mapstructure:"insecure" yaml:"insecure"`

	// SampleRate is the fraction of traces kept (0.0 to 1.0)
	SampleRate float64 `mapstructure:"sample_rate" validate:"gte=0,lte=1" yaml:"sample_rate"`

	// Profiling contains Pyroscope continuous profiling configuration
	Profiling ProfilingConfig `mapstructure:"profiling" yaml:"profiling"`
}

// ProfilingConfig controls Pyroscope continuous profiling.
type ProfilingConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Endpoint is the Pyroscope server URL
	Endpoint string `mapstructure:"endpoint" validate:"required_if=Enabled true" yaml:"endpoint"`

	// ProfileTypes lists the profiles to collect, e.g. cpu, inuse_space, goroutines
	ProfileTypes []string `mapstructure:"profile_types" yaml:"profile_types"`
}

// ServerConfig configures the BOX listener.
type ServerConfig struct {
	// BindAddress is the interface to listen on. Empty means all interfaces.
	BindAddress string `mapstructure:"bind_address" validate:"omitempty,ip" yaml:"bind_address"`

	// Port is the TCP port for the BOX protocol
	Port int `mapstructure:"port" validate:"min=0,max=65535" yaml:"port"`

	// StorageRoot is the directory holding one subdirectory per identity
	StorageRoot string `mapstructure:"storage_root" validate:"required" yaml:"storage_root"`

	// MaxConnections caps concurrent sessions. 0 means unlimited.
	MaxConnections int `mapstructure:"max_connections" validate:"min=0" yaml:"max_connections"`

	// IdleTimeout closes sessions that send nothing for this long. 0 disables it.
	IdleTimeout time.Duration `mapstructure:"idle_timeout" validate:"min=0" yaml:"idle_timeout"`

	// MaxFrameSize bounds a single command frame
	MaxFrameSize bytesize.ByteSize `mapstructure:"max_frame_size" validate:"min=64" yaml:"max_frame_size"`

	// MaxFileSize bounds uploads. 0 means unlimited.
	MaxFileSize bytesize.ByteSize `mapstructure:"max_file_size" yaml:"max_file_size"`

	// ShutdownTimeout is the maximum time to wait for sessions on shutdown
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0" yaml:"shutdown_timeout"`

	// MetricsLogInterval periodically logs the active session count. 0 disables it.
	MetricsLogInterval time.Duration `mapstructure:"metrics_log_interval" validate:"min=0" yaml:"metrics_log_interval"`
}

// MetricsConfig toggles Prometheus collection.
// When Enabled is false, no metrics are collected (zero overhead).
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

// APIConfig configures the admin HTTP server.
type APIConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// BindAddress is the interface to listen on. Empty means all interfaces.
	BindAddress string `mapstructure:"bind_address" validate:"omitempty,ip" yaml:"bind_address"`

	Port         int           `mapstructure:"port" validate:"min=1,max=65535" yaml:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout" validate:"gt=0" yaml:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" validate:"gt=0" yaml:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout" validate:"gt=0" yaml:"idle_timeout"`
}

// Load loads configuration from file, environment, and defaults.
//
// An empty configPath searches the default location. A missing file is
// not an error: defaults plus environment overrides are returned.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	if _, err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// MustLoad is Load with user-facing instructions when the file is missing.
func MustLoad(configPath string) (*Config, error) {
	if configPath == "" {
		if !DefaultConfigExists() {
			return nil, fmt.Errorf("no configuration file found at default location: %s\n\n"+
				"Please initialize a configuration file first:\n"+
				"  dbox init\n\n"+
				"Or specify a custom config file:\n"+
				"  dbox <command> --config /path/to/config.yaml",
				GetDefaultConfigPath())
		}
		configPath = GetDefaultConfigPath()
	} else if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s\n\n"+
			"Please create the configuration file:\n"+
			"  dbox init --config %s",
			configPath, configPath)
	}

	cfg, err := Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// SaveConfig writes cfg to path as YAML.
func SaveConfig(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func setupViper(v *viper.Viper, configPath string) {
	// DITTOBOX_SERVER_MAX_FILE_SIZE=1Gi overrides server.max_file_size
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvKeys(v, reflect.TypeOf(Config{}), "")
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("api.enabled", true)

	if configPath != "" {
		v.SetConfigFile(configPath)
		return
	}
	v.AddConfigPath(getConfigDir())
	v.SetConfigName("config")
	v.SetConfigType("yaml")
}

// bindEnvKeys registers every mapstructure key with viper. AutomaticEnv
// alone only applies to keys viper already knows about, so overrides for
// settings absent from the file would otherwise be ignored by Unmarshal.
func bindEnvKeys(v *viper.Viper, t reflect.Type, prefix string) {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		key := f.Tag.Get("mapstructure")
		if key == "" || key == "-" {
			continue
		}
		if prefix != "" {
			key = prefix + "." + key
		}
		if f.Type.Kind() == reflect.Struct && f.Type != reflect.TypeOf(time.Time{}) {
			bindEnvKeys(v, f.Type, key)
			continue
		}
		_ = v.BindEnv(key)
	}
}

// readConfigFile reports whether a config file was found and read.
func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file: %w", err)
	}
	return true, nil
}

func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		byteSizeDecodeHook(),
		durationDecodeHook(),
		mapstructure.StringToSliceHookFunc(","),
	)
}

// byteSizeDecodeHook accepts "64KiB", "1Gi" or plain numbers for ByteSize fields.
func byteSizeDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(bytesize.ByteSize(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			return bytesize.Parse(v)
		case int:
			if v < 0 {
				return nil, fmt.Errorf("negative byte size %d", v)
			}
			return bytesize.ByteSize(v), nil
		case int64:
			if v < 0 {
				return nil, fmt.Errorf("negative byte size %d", v)
			}
			return bytesize.ByteSize(v), nil
		case uint64:
			return bytesize.ByteSize(v), nil
		case float64:
			if v < 0 {
				return nil, fmt.Errorf("negative byte size %v", v)
			}
			return bytesize.ByteSize(v), nil
		default:
			return data, nil
		}
	}
}

// durationDecodeHook accepts "30s", "5m" or raw nanoseconds for Duration fields.
func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

// getConfigDir returns $XDG_CONFIG_HOME/dittobox, ~/.config/dittobox, or "."
// when no home directory is known.
func getConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "dittobox")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "dittobox")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// DefaultConfigExists checks if a config file exists at the default location.
func DefaultConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}

// GetConfigDir returns the configuration directory path.
func GetConfigDir() string {
	return getConfigDir()
}
