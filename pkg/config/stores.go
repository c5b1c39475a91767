package config

import (
	"fmt"

	"github.com/marmos91/dittobox/internal/logger"
	"github.com/marmos91/dittobox/pkg/sandbox"
)

// OpenStorage resolves and creates the storage root from cfg.Server.
func OpenStorage(cfg *Config) (*sandbox.Root, error) {
	root, err := sandbox.NewRoot(cfg.Server.StorageRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare storage root %q: %w", cfg.Server.StorageRoot, err)
	}
	logger.Info("Storage root ready", logger.KeyPath, root.Path())
	return root, nil
}
