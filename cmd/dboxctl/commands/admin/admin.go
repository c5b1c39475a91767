// Package admin implements commands that talk to the server's admin API.
package admin

import (
	"github.com/spf13/cobra"
)

// Cmd is the parent command for server administration.
var Cmd = &cobra.Command{
	Use:   "admin",
	Short: "Server administration",
	Long: `Inspect a running DittoBox server through its admin API.

Examples:
  # Server health and uptime
  dboxctl admin status

  # Every identity the server has seen
  dboxctl admin clients

  # Live sessions, then disconnect one
  dboxctl admin sessions
  dboxctl admin kick 3f1c...`,
}

func init() {
	Cmd.AddCommand(statusCmd)
	Cmd.AddCommand(clientsCmd)
	Cmd.AddCommand(sessionsCmd)
	Cmd.AddCommand(kickCmd)
}
