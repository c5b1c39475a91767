// Package profile implements profile management subcommands for dboxctl.
package profile

import (
	"fmt"

	profilestore "github.com/marmos91/dittobox/internal/cli/profile"
	"github.com/spf13/cobra"
)

// Cmd is the profile subcommand.
var Cmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage connection profiles",
	Long: `Save and switch between named connection targets.

A profile stores the BOX server address, the identity to connect as and
the admin API URL. Global flags override the selected profile.

Subcommands:
  set      Create or update a profile
  use      Switch to a different profile
  list     List all profiles
  delete   Delete a profile`,
}

func init() {
	Cmd.AddCommand(setCmd)
	Cmd.AddCommand(useCmd)
	Cmd.AddCommand(listCmd)
	Cmd.AddCommand(deleteCmd)
}

func openStore() (*profilestore.Store, error) {
	store, err := profilestore.NewStore()
	if err != nil {
		return nil, fmt.Errorf("failed to open profile store: %w", err)
	}
	return store, nil
}
