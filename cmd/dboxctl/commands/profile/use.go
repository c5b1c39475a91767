package profile

import (
	"fmt"

	"github.com/marmos91/dittobox/cmd/dboxctl/cmdutil"
	"github.com/spf13/cobra"
)

var useCmd = &cobra.Command{
	Use:   "use <name>",
	Short: "Switch to a different profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		if err := store.Use(args[0]); err != nil {
			return err
		}
		cmdutil.PrintSuccess(fmt.Sprintf("Switched to profile '%s'", args[0]))
		return nil
	},
}
