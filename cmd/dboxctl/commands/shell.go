package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/marmos91/dittobox/cmd/dboxctl/cmdutil"
	"github.com/marmos91/dittobox/internal/cli/output"
	"github.com/marmos91/dittobox/internal/cli/prompt"
	"github.com/marmos91/dittobox/internal/protocol/command"
	"github.com/marmos91/dittobox/internal/protocol/transfer"
	"github.com/marmos91/dittobox/pkg/client"
	"github.com/marmos91/dittobox/pkg/sandbox"
	"github.com/spf13/cobra"
)

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Start an interactive session",
	Long: `Connect to the server and issue commands interactively until QUIT.

GET and PUT transfer files between the server and the current directory.
If no identity is configured through --name or a profile, the shell
asks for one.`,
	Args: cobra.NoArgs,
	RunE: runShell,
}

const shellHelp = `Available commands:
  LIST              list your files
  GET <filename>    download a file into the current directory
  PUT <filename>    upload a file from the current directory
  DELETE <filename> delete a file
  INFO <filename>   show size and modification time
  QUIT              end the session`

func runShell(cmd *cobra.Command, args []string) error {
	format, err := cmdutil.GetOutputFormatParsed()
	if err != nil {
		return err
	}
	target, err := cmdutil.ResolveTarget()
	if err != nil {
		return err
	}

	identity := target.Identity
	if identity == "" {
		identity, err = prompt.InputWithValidation("Welcome! Please enter your name", sandbox.ValidateIdentity)
		if err != nil {
			if prompt.IsAborted(err) {
				return nil
			}
			return err
		}
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	c, err := client.Dial(ctx, target.Server, identity)
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()

	dir, err := os.Getwd()
	if err != nil {
		return err
	}

	sh := &shell{
		client:   c,
		out:      cmd.OutOrStdout(),
		format:   format,
		dir:      dir,
		readLine: prompt.Input,
		progress: func(label string) (transfer.ProgressFunc, func()) {
			return progressFor(format, label)
		},
	}
	_, _ = fmt.Fprintf(sh.out, "Connected to %s as %s\n%s\n", target.Server, identity, shellHelp)
	return sh.run(ctx)
}

// shell runs one interactive session over an established client.
type shell struct {
	client   *client.Client
	out      io.Writer
	format   output.Format
	dir      string
	readLine func(label string) (string, error)
	progress func(label string) (transfer.ProgressFunc, func())
}

// run reads command lines until QUIT, an aborted prompt or a broken
// connection. Server-side failures are printed and the loop continues.
func (s *shell) run(ctx context.Context) error {
	for {
		line, err := s.readLine("Enter command")
		if err != nil {
			if prompt.IsAborted(err) {
				return s.client.Quit(ctx)
			}
			return err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		done, err := s.execute(ctx, line)
		if err != nil {
			var respErr *client.ResponseError
			switch {
			case errors.As(err, &respErr):
				_, _ = fmt.Fprint(s.out, respErr.Message)
			case errors.Is(err, client.ErrFileNotExist),
				errors.Is(err, transfer.ErrCreateDestination),
				errors.Is(err, client.ErrLocalFile),
				errors.Is(err, client.ErrInvalidName):
				_, _ = fmt.Fprintln(s.out, err)
			default:
				return err
			}
		}
		if done {
			return nil
		}
	}
}

// execute runs one command line and reports whether the session ended.
func (s *shell) execute(ctx context.Context, line string) (bool, error) {
	req, ok := command.Parse(line)
	if !ok {
		// Let the server answer, as it would for any other client.
		resp, err := s.client.Do(ctx, line)
		if err != nil {
			return false, err
		}
		_, _ = fmt.Fprint(s.out, resp)
		return false, nil
	}

	if req.Keyword.TakesFilename() && req.Filename == "" {
		_, _ = fmt.Fprintf(s.out, "usage: %s <filename>\n", req.Keyword)
		return false, nil
	}

	switch req.Keyword {
	case command.List:
		listing, err := s.client.List(ctx)
		if err != nil {
			return false, err
		}
		return false, printListing(s.out, s.format, listing)

	case command.Get:
		local := filepath.Join(s.dir, filepath.Base(req.Filename))
		progress, finish := s.progress("get " + req.Filename)
		n, err := s.client.Get(ctx, req.Filename, local, progress)
		finish()
		if err != nil {
			return false, err
		}
		return false, printTransfer(s.out, s.format, TransferResult{
			Direction: "download", Remote: req.Filename, Local: local, Bytes: n,
		})

	case command.Put:
		local := filepath.Join(s.dir, filepath.Base(req.Filename))
		progress, finish := s.progress("put " + req.Filename)
		n, err := s.client.Put(ctx, local, req.Filename, progress)
		finish()
		if err != nil {
			return false, err
		}
		return false, printTransfer(s.out, s.format, TransferResult{
			Direction: "upload", Remote: req.Filename, Local: local, Bytes: n,
		})

	case command.Delete:
		if err := s.client.Delete(ctx, req.Filename); err != nil {
			return false, err
		}
		_, _ = fmt.Fprint(s.out, command.RespDeleteOK)
		return false, nil

	case command.Info:
		info, err := s.client.Info(ctx, req.Filename)
		if err != nil {
			return false, err
		}
		return false, printFileInfo(s.out, s.format, info)

	case command.Quit:
		if err := s.client.Quit(ctx); err != nil {
			return true, err
		}
		_, _ = fmt.Fprintln(s.out, command.RespClosing)
		return true, nil
	}
	return false, nil
}
