package profile

import (
	"github.com/marmos91/dittobox/cmd/dboxctl/cmdutil"
	"github.com/spf13/cobra"
)

var deleteForce bool

var deleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		if _, err := store.Get(args[0]); err != nil {
			return err
		}
		return cmdutil.RunDeleteWithConfirmation("profile", args[0], deleteForce, func() error {
			return store.Delete(args[0])
		})
	},
}

func init() {
	deleteCmd.Flags().BoolVarP(&deleteForce, "force", "f", false, "Skip confirmation prompt")
}
