package commands

import (
	"context"
	"os"
	"path/filepath"

	"github.com/marmos91/dittobox/cmd/dboxctl/cmdutil"
	"github.com/marmos91/dittobox/internal/cli/output"
	"github.com/marmos91/dittobox/internal/protocol/transfer"
	"github.com/marmos91/dittobox/pkg/client"
	"github.com/spf13/cobra"
)

var lsCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list"},
	Short:   "List your files",
	Long: `List the files in your storage directory.

Examples:
  # List files as table
  dboxctl ls --name alice

  # List as JSON
  dboxctl ls -o json`,
	Args: cobra.NoArgs,
	RunE: runLs,
}

var getCmd = &cobra.Command{
	Use:   "get <remote> [local]",
	Short: "Download a file",
	Long: `Download a file from your storage directory. The local path defaults
to the remote name in the current directory. A download that is cut short
leaves no partial file behind.

Examples:
  dboxctl get report.pdf
  dboxctl get report.pdf /tmp/report.pdf`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runGet,
}

var putCmd = &cobra.Command{
	Use:   "put <local> [remote]",
	Short: "Upload a file",
	Long: `Upload a local file to your storage directory. The remote name
defaults to the local file's base name. An existing remote file is
replaced.

Examples:
  dboxctl put ./report.pdf
  dboxctl put ./report.pdf final.pdf`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runPut,
}

var rmCmd = &cobra.Command{
	Use:     "rm <name>",
	Aliases: []string{"delete"},
	Short:   "Delete a file",
	Long: `Delete a file from your storage directory.

Examples:
  # Delete with confirmation
  dboxctl rm old.log

  # Delete without confirmation
  dboxctl rm old.log --force`,
	Args: cobra.ExactArgs(1),
	RunE: runRm,
}

var infoCmd = &cobra.Command{
	Use:   "info <name>",
	Short: "Show file size and modification time",
	Args:  cobra.ExactArgs(1),
	RunE:  runInfo,
}

var rmForce bool

func init() {
	rmCmd.Flags().BoolVarP(&rmForce, "force", "f", false, "Skip confirmation prompt")
}

// withClient connects, runs fn and ends the session with QUIT.
func withClient(fn func(ctx context.Context, c *client.Client, format output.Format) error) error {
	format, err := cmdutil.GetOutputFormatParsed()
	if err != nil {
		return err
	}

	ctx, cancel := cmdutil.CommandContext()
	defer cancel()

	c, err := cmdutil.Connect(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()

	if err := fn(ctx, c, format); err != nil {
		return err
	}
	return c.Quit(ctx)
}

// progressFor draws a bar on stderr for table output only, so JSON and
// YAML on stdout stay machine readable.
func progressFor(format output.Format, label string) (transfer.ProgressFunc, func()) {
	if format != output.FormatTable {
		return nil, func() {}
	}
	bar := output.NewProgress(os.Stderr, label)
	return bar.Update, bar.Finish
}

func runLs(cmd *cobra.Command, args []string) error {
	return withClient(func(ctx context.Context, c *client.Client, format output.Format) error {
		listing, err := c.List(ctx)
		if err != nil {
			return err
		}
		return printListing(cmd.OutOrStdout(), format, listing)
	})
}

func runGet(cmd *cobra.Command, args []string) error {
	remote := args[0]
	local := filepath.Base(remote)
	if len(args) > 1 {
		local = args[1]
	}

	return withClient(func(ctx context.Context, c *client.Client, format output.Format) error {
		progress, finish := progressFor(format, "get "+remote)
		n, err := c.Get(ctx, remote, local, progress)
		finish()
		if err != nil {
			return err
		}
		return printTransfer(cmd.OutOrStdout(), format, TransferResult{
			Direction: "download", Remote: remote, Local: local, Bytes: n,
		})
	})
}

func runPut(cmd *cobra.Command, args []string) error {
	local := args[0]
	remote := filepath.Base(local)
	if len(args) > 1 {
		remote = args[1]
	}

	return withClient(func(ctx context.Context, c *client.Client, format output.Format) error {
		progress, finish := progressFor(format, "put "+remote)
		n, err := c.Put(ctx, local, remote, progress)
		finish()
		if err != nil {
			return err
		}
		return printTransfer(cmd.OutOrStdout(), format, TransferResult{
			Direction: "upload", Remote: remote, Local: local, Bytes: n,
		})
	})
}

func runRm(cmd *cobra.Command, args []string) error {
	name := args[0]
	return withClient(func(ctx context.Context, c *client.Client, format output.Format) error {
		return cmdutil.RunDeleteWithConfirmation("file", name, rmForce, func() error {
			return c.Delete(ctx, name)
		})
	})
}

func runInfo(cmd *cobra.Command, args []string) error {
	return withClient(func(ctx context.Context, c *client.Client, format output.Format) error {
		info, err := c.Info(ctx, args[0])
		if err != nil {
			return err
		}
		return printFileInfo(cmd.OutOrStdout(), format, info)
	})
}
