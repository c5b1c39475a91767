package commands

import (
	"fmt"

	"github.com/marmos91/dittobox/internal/logger"
	"github.com/marmos91/dittobox/pkg/config"
)

// InitLogger initializes the structured logger from configuration.
func InitLogger(cfg *config.Config) error {
	loggerCfg := logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}
	if err := logger.Init(loggerCfg); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

// getConfigSource describes where the config was loaded from.
func getConfigSource(configFile string) string {
	if configFile != "" {
		return configFile
	}
	if config.DefaultConfigExists() {
		return config.GetDefaultConfigPath()
	}
	return "defaults"
}
