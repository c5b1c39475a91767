package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/marmos91/dittobox/internal/logger"
	"github.com/marmos91/dittobox/internal/telemetry"
	"github.com/marmos91/dittobox/pkg/api"
	"github.com/marmos91/dittobox/pkg/config"
	"github.com/spf13/cobra"
)

var (
	startPort        int
	startStorageRoot string
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the DittoBox server",
	Long: `Start the DittoBox server in the foreground.

Use --config to specify a custom configuration file, or it will use the
default location at $XDG_CONFIG_HOME/dittobox/config.yaml. Without a file
the built-in defaults apply.

Examples:
  # Start with default config
  dbox start

  # Quick start without a config file
  dbox start --port 12346 --storage-root ./storage

  # Start with environment variable overrides
  DITTOBOX_LOGGING_LEVEL=DEBUG dbox start`,
	RunE: runStart,
}

func init() {
	startCmd.Flags().IntVar(&startPort, "port", 0, "BOX listen port (overrides server.port)")
	startCmd.Flags().StringVar(&startStorageRoot, "storage-root", "", "Storage root directory (overrides server.storage_root)")
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port = startPort
	}
	if startStorageRoot != "" {
		cfg.Server.StorageRoot = startStorageRoot
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if err := InitLogger(cfg); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	telemetryShutdown, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "dittobox",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRate:     cfg.Telemetry.SampleRate,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		if err := telemetryShutdown(context.Background()); err != nil {
			logger.Error("telemetry shutdown error", logger.Err(err))
		}
	}()

	profilingShutdown, err := telemetry.InitProfiling(telemetry.ProfilingConfig{
		Enabled:        cfg.Telemetry.Profiling.Enabled,
		ServiceName:    "dittobox",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Profiling.Endpoint,
		ProfileTypes:   cfg.Telemetry.Profiling.ProfileTypes,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize profiling: %w", err)
	}
	defer func() {
		if err := profilingShutdown(); err != nil {
			logger.Error("profiling shutdown error", logger.Err(err))
		}
	}()

	logger.Info("Configuration loaded", "source", getConfigSource(GetConfigFile()))
	logger.Info("Log level", "level", cfg.Logging.Level, "format", cfg.Logging.Format)
	if telemetry.IsEnabled() {
		logger.Info("Telemetry enabled", "endpoint", cfg.Telemetry.Endpoint, "sample_rate", cfg.Telemetry.SampleRate)
	}
	if telemetry.IsProfilingEnabled() {
		logger.Info("Profiling enabled", "endpoint", cfg.Telemetry.Profiling.Endpoint)
	}

	// Metrics first so recorders built below are live.
	config.InitializeMetrics(cfg)

	reg, err := config.InitializeRegistry(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := reg.Close(); err != nil {
			logger.Error("registry close error", logger.Err(err))
		}
	}()

	root, err := config.OpenStorage(cfg)
	if err != nil {
		return err
	}

	server := config.CreateAdapter(cfg, root, reg)
	apiServer := config.CreateAPIServer(cfg, api.Dependencies{Sessions: server, Registry: reg})

	serverDone := make(chan error, 1)
	go func() { serverDone <- server.Serve(ctx) }()

	apiDone := make(chan error, 1)
	if apiServer != nil {
		go func() { apiDone <- apiServer.Start(ctx) }()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	logger.Info("Server is running. Press Ctrl+C to stop.")

	var runErr error
	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received, initiating graceful shutdown", "signal", sig.String())
	case runErr = <-serverDone:
		serverDone = nil
	case runErr = <-apiDone:
		apiDone = nil
	}
	cancel()

	if serverDone != nil {
		if err := <-serverDone; err != nil && runErr == nil {
			runErr = err
		}
	}
	if apiServer != nil && apiDone != nil {
		if err := <-apiDone; err != nil && runErr == nil {
			runErr = err
		}
	}

	if runErr != nil {
		logger.Error("Server stopped with error", logger.Err(runErr))
		return runErr
	}
	logger.Info("Server stopped gracefully")
	return nil
}
