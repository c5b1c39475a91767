// Package config implements configuration management subcommands.
package config

import (
	"github.com/spf13/cobra"
)

// Cmd is the config subcommand.
var Cmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management",
	Long: `Inspect DittoBox configuration files.

Use 'dbox init' to create a new configuration file.

Subcommands:
  show      Display current configuration
  validate  Validate configuration file`,
}

func init() {
	Cmd.AddCommand(showCmd)
	Cmd.AddCommand(validateCmd)
}
