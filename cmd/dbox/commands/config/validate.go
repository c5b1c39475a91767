package config

import (
	"fmt"

	"github.com/marmos91/dittobox/pkg/config"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long: `Validate the DittoBox configuration file.

Checks for syntax errors, missing required fields, and invalid values.

Examples:
  # Validate default config
  dbox config validate

  # Validate specific config file
  dbox config validate --config /etc/dittobox/config.yaml`,
	RunE: runConfigValidate,
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")

	cfg, err := config.MustLoad(configPath)
	if err != nil {
		return err
	}

	displayPath := configPath
	if displayPath == "" {
		displayPath = config.GetDefaultConfigPath()
	}

	var warnings []string
	if cfg.Server.MaxFileSize == 0 {
		warnings = append(warnings, "server.max_file_size is unlimited - clients can fill the disk")
	}
	if cfg.Registry.Type == "memory" {
		warnings = append(warnings, "registry is in memory - client history is lost on restart")
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Configuration file: %s\n", displayPath)
	_, _ = fmt.Fprintln(out, "Validation: OK")

	if len(warnings) > 0 {
		_, _ = fmt.Fprintln(out, "\nWarnings:")
		for _, w := range warnings {
			_, _ = fmt.Fprintf(out, "  - %s\n", w)
		}
	}

	_, _ = fmt.Fprintf(out, "\nConfiguration summary:\n")
	_, _ = fmt.Fprintf(out, "  Listen:          %s:%d\n", cfg.Server.BindAddress, cfg.Server.Port)
	_, _ = fmt.Fprintf(out, "  Storage root:    %s\n", cfg.Server.StorageRoot)
	_, _ = fmt.Fprintf(out, "  Registry:        %s\n", cfg.Registry.Type)
	_, _ = fmt.Fprintf(out, "  Log level:       %s\n", cfg.Logging.Level)
	return nil
}
