package admin

import (
	"fmt"
	"time"

	"github.com/marmos91/dittobox/cmd/dboxctl/cmdutil"
	"github.com/marmos91/dittobox/internal/cli/timeutil"
	"github.com/marmos91/dittobox/pkg/apiclient"
	"github.com/spf13/cobra"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List live sessions",
	Args:  cobra.NoArgs,
	RunE:  runSessions,
}

var kickForce bool

var kickCmd = &cobra.Command{
	Use:   "kick <session-id>",
	Short: "Disconnect a session",
	Long: `Close one live session. The client sees its connection drop; an
upload in progress is discarded.`,
	Args: cobra.ExactArgs(1),
	RunE: runKick,
}

func init() {
	kickCmd.Flags().BoolVarP(&kickForce, "force", "f", false, "Skip confirmation prompt")
}

// SessionList is a list of sessions for table rendering.
type SessionList []apiclient.SessionInfo

// Headers implements TableRenderer.
func (sl SessionList) Headers() []string {
	return []string{"ID", "IDENTITY", "STATE", "REMOTE", "AGE", "COMMANDS"}
}

// Rows implements TableRenderer.
func (sl SessionList) Rows() [][]string {
	now := time.Now()
	rows := make([][]string, 0, len(sl))
	for _, s := range sl {
		rows = append(rows, []string{
			s.ID,
			cmdutil.EmptyOr(s.Identity, "-"),
			s.State,
			s.RemoteAddr,
			timeutil.FormatSince(s.StartedAt, now),
			fmt.Sprintf("%d", s.Commands),
		})
	}
	return rows
}

func runSessions(cmd *cobra.Command, args []string) error {
	api, err := cmdutil.GetAPIClient()
	if err != nil {
		return err
	}
	ctx, cancel := cmdutil.CommandContext()
	defer cancel()

	sessions, err := api.ListSessions(ctx)
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}
	return cmdutil.PrintOutput(cmd.OutOrStdout(), sessions, len(sessions) == 0, "No active sessions.", SessionList(sessions))
}

func runKick(cmd *cobra.Command, args []string) error {
	api, err := cmdutil.GetAPIClient()
	if err != nil {
		return err
	}
	ctx, cancel := cmdutil.CommandContext()
	defer cancel()

	return cmdutil.RunDeleteWithConfirmation("session", args[0], kickForce, func() error {
		return api.CloseSession(ctx, args[0])
	})
}
