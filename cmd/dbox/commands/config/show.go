package config

import (
	"github.com/marmos91/dittobox/internal/cli/output"
	"github.com/marmos91/dittobox/pkg/config"
	"github.com/spf13/cobra"
)

var showOutput string

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Display current configuration",
	Long: `Display the effective DittoBox configuration, after defaults and
environment overrides.

Examples:
  # Show as YAML
  dbox config show

  # Show as JSON
  dbox config show --output json

  # Show as a flat key/value table
  dbox config show -o table`,
	RunE: runConfigShow,
}

func init() {
	showCmd.Flags().StringVarP(&showOutput, "output", "o", "yaml", "Output format (yaml|json|table)")
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")

	cfg, err := config.MustLoad(configPath)
	if err != nil {
		return err
	}

	format, err := output.ParseFormat(showOutput)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch format {
	case output.FormatJSON:
		return output.PrintJSON(out, cfg)
	case output.FormatTable:
		return output.PrintTable(out, output.Flatten(cfg))
	default:
		return output.PrintYAML(out, cfg)
	}
}
