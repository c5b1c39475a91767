package admin

import (
	"fmt"
	"time"

	"github.com/marmos91/dittobox/cmd/dboxctl/cmdutil"
	"github.com/marmos91/dittobox/internal/cli/timeutil"
	"github.com/marmos91/dittobox/pkg/apiclient"
	"github.com/spf13/cobra"
)

var clientsCmd = &cobra.Command{
	Use:   "clients [identity]",
	Short: "List known client identities",
	Long: `List every identity that has connected to the server, or show one.

Examples:
  dboxctl admin clients
  dboxctl admin clients alice -o yaml`,
	Args: cobra.MaximumNArgs(1),
	RunE: runClients,
}

// ClientList is a list of registry records for table rendering.
type ClientList []apiclient.ClientInfo

// Headers implements TableRenderer.
func (cl ClientList) Headers() []string {
	return []string{"IDENTITY", "SESSIONS", "LAST SEEN", "LAST ADDRESS", "FIRST SEEN"}
}

// Rows implements TableRenderer.
func (cl ClientList) Rows() [][]string {
	now := time.Now()
	rows := make([][]string, 0, len(cl))
	for _, c := range cl {
		rows = append(rows, []string{
			c.Identity,
			fmt.Sprintf("%d", c.Sessions),
			timeutil.FormatSince(c.LastSeen, now),
			cmdutil.EmptyOr(c.LastAddress, "-"),
			timeutil.FormatTime(c.FirstSeen),
		})
	}
	return rows
}

func runClients(cmd *cobra.Command, args []string) error {
	api, err := cmdutil.GetAPIClient()
	if err != nil {
		return err
	}
	ctx, cancel := cmdutil.CommandContext()
	defer cancel()

	if len(args) == 1 {
		c, err := api.GetClient(ctx, args[0])
		if err != nil {
			return fmt.Errorf("failed to get client: %w", err)
		}
		list := ClientList{*c}
		return cmdutil.PrintOutput(cmd.OutOrStdout(), c, false, "", list)
	}

	clients, err := api.ListClients(ctx)
	if err != nil {
		return fmt.Errorf("failed to list clients: %w", err)
	}
	return cmdutil.PrintOutput(cmd.OutOrStdout(), clients, len(clients) == 0, "No clients have connected yet.", ClientList(clients))
}
