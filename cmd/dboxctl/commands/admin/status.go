package admin

import (
	"fmt"
	"io"

	"github.com/marmos91/dittobox/cmd/dboxctl/cmdutil"
	"github.com/marmos91/dittobox/internal/cli/output"
	"github.com/marmos91/dittobox/internal/cli/timeutil"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show server status",
	Long: `Display health, readiness and uptime of the server behind the admin API.

Examples:
  dboxctl admin status
  dboxctl admin status -o json`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

// ServerStatus represents the server status for display.
type ServerStatus struct {
	API       string `json:"api" yaml:"api"`
	Status    string `json:"status" yaml:"status"`
	Healthy   bool   `json:"healthy" yaml:"healthy"`
	Ready     bool   `json:"ready" yaml:"ready"`
	Service   string `json:"service,omitempty" yaml:"service,omitempty"`
	StartedAt string `json:"started_at,omitempty" yaml:"started_at,omitempty"`
	Uptime    string `json:"uptime,omitempty" yaml:"uptime,omitempty"`
	Error     string `json:"error,omitempty" yaml:"error,omitempty"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	target, err := cmdutil.ResolveTarget()
	if err != nil {
		return err
	}
	api, err := cmdutil.GetAPIClient()
	if err != nil {
		return err
	}

	ctx, cancel := cmdutil.CommandContext()
	defer cancel()

	status := ServerStatus{API: target.API, Status: "unreachable"}
	if resp, err := api.Health(ctx); err != nil {
		status.Error = err.Error()
	} else {
		status.Status = resp.Status
		status.Healthy = resp.Healthy()
		status.Service = resp.Data.Service
		status.StartedAt = resp.Data.StartedAt
		status.Uptime = resp.Data.Uptime
		if err := api.Ready(ctx); err != nil {
			status.Error = err.Error()
		} else {
			status.Ready = true
		}
	}

	format, err := cmdutil.GetOutputFormatParsed()
	if err != nil {
		return err
	}
	switch format {
	case output.FormatJSON:
		return output.PrintJSON(cmd.OutOrStdout(), status)
	case output.FormatYAML:
		return output.PrintYAML(cmd.OutOrStdout(), status)
	default:
		printStatusTable(cmd.OutOrStdout(), status)
		return nil
	}
}

func printStatusTable(w io.Writer, status ServerStatus) {
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, "DittoBox Server Status")
	_, _ = fmt.Fprintln(w, "======================")
	_, _ = fmt.Fprintf(w, "  API:        %s\n", status.API)
	_, _ = fmt.Fprintf(w, "  Status:     %s\n", status.Status)
	_, _ = fmt.Fprintf(w, "  Ready:      %s\n", cmdutil.BoolToYesNo(status.Ready))
	if status.Service != "" {
		_, _ = fmt.Fprintf(w, "  Service:    %s\n", status.Service)
	}
	if status.StartedAt != "" {
		_, _ = fmt.Fprintf(w, "  Started:    %s\n", status.StartedAt)
	}
	if status.Uptime != "" {
		_, _ = fmt.Fprintf(w, "  Uptime:     %s\n", timeutil.FormatUptime(status.Uptime))
	}
	if status.Error != "" {
		_, _ = fmt.Fprintf(w, "  Error:      %s\n", status.Error)
	}
	_, _ = fmt.Fprintln(w)
}
