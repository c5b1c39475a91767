package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const configHeader = `# DittoBox Configuration File
#
# Every setting can be overridden with an environment variable named
# DITTOBOX_<SECTION>_<KEY>, e.g. DITTOBOX_SERVER_PORT=12346.
#
# Sizes accept units such as 64KiB, 10Mi or 1GB. Durations accept 30s, 5m, 1h.
# server.max_file_size: 0 means uploads are unbounded.
# server.max_connections and server.idle_timeout: 0 disables the limit.

`

// InitConfig writes a sample config to the default location and returns
// its path. An existing file is only replaced when force is set.
func InitConfig(force bool) (string, error) {
	path := GetDefaultConfigPath()
	if err := InitConfigToPath(path, force); err != nil {
		return "", err
	}
	return path, nil
}

// InitConfigToPath writes a sample config to path.
func InitConfigToPath(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("configuration file already exists at %s (use --force to overwrite)", path)
		}
	}

	data, err := GenerateSample()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GenerateSample renders the default configuration with an explanatory header.
func GenerateSample() ([]byte, error) {
	body, err := yaml.Marshal(GetDefaultConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal default config: %w", err)
	}
	return append([]byte(configHeader), body...), nil
}
