// Package commands implements the CLI commands for the dboxctl client.
package commands

import (
	"github.com/marmos91/dittobox/cmd/dboxctl/cmdutil"
	admincmd "github.com/marmos91/dittobox/cmd/dboxctl/commands/admin"
	profilecmd "github.com/marmos91/dittobox/cmd/dboxctl/commands/profile"
	"github.com/marmos91/dittobox/internal/cli/profile"
	"github.com/spf13/cobra"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "dboxctl",
	Short: "DittoBox client",
	Long: `dboxctl talks to a DittoBox server. Run "dboxctl shell" for an
interactive session, or use the one-shot commands to list, upload,
download, delete and inspect files in your storage directory.

Use "dboxctl [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Sync flags to cmdutil.Flags for subcommands
		cmdutil.Flags.Server, _ = cmd.Flags().GetString("server")
		cmdutil.Flags.Identity, _ = cmd.Flags().GetString("name")
		cmdutil.Flags.API, _ = cmd.Flags().GetString("api")
		cmdutil.Flags.Profile, _ = cmd.Flags().GetString("profile")
		cmdutil.Flags.Output, _ = cmd.Flags().GetString("output")
		cmdutil.Flags.Timeout, _ = cmd.Flags().GetDuration("timeout")
		cmdutil.Flags.NoColor, _ = cmd.Flags().GetBool("no-color")

		if !cmd.Flags().Changed("output") {
			if store, err := profile.NewStore(); err == nil {
				cmdutil.Flags.Output = cmdutil.EmptyOr(store.DefaultOutput(), cmdutil.Flags.Output)
			}
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

// GetRootCmd returns the root command for testing purposes.
func GetRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.PersistentFlags().String("server", "", "BOX server address host:port (overrides profile)")
	rootCmd.PersistentFlags().String("name", "", "Identity to connect as (overrides profile)")
	rootCmd.PersistentFlags().String("api", "", "Admin API URL (overrides profile)")
	rootCmd.PersistentFlags().String("profile", "", "Profile to use instead of the current one")
	rootCmd.PersistentFlags().StringP("output", "o", "table", "Output format (table|json|yaml)")
	rootCmd.PersistentFlags().Duration("timeout", 0, "Abort one-shot commands after this long (0 = no limit)")
	rootCmd.PersistentFlags().Bool("no-color", false, "Disable colored output")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(shellCmd)
	rootCmd.AddCommand(lsCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(putCmd)
	rootCmd.AddCommand(rmCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(profilecmd.Cmd)
	rootCmd.AddCommand(admincmd.Cmd)

}
