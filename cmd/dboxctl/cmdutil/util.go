// Package cmdutil provides shared utilities for dboxctl commands.
package cmdutil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/marmos91/dittobox/internal/cli/output"
	"github.com/marmos91/dittobox/internal/cli/profile"
	"github.com/marmos91/dittobox/internal/cli/prompt"
	"github.com/marmos91/dittobox/pkg/apiclient"
	"github.com/marmos91/dittobox/pkg/client"
	"github.com/marmos91/dittobox/pkg/config"
)

// Flags stores global flag values accessible by subcommands.
var Flags = &GlobalFlags{}

// GlobalFlags holds the global flag values.
type GlobalFlags struct {
	Server   string
	Identity string
	API      string
	Profile  string
	Output   string
	Timeout  time.Duration
	NoColor  bool
}

// DefaultServer is dialed when neither a flag nor a profile names a server.
var DefaultServer = fmt.Sprintf("localhost:%d", config.DefaultPort)

// DefaultAPI is used when neither a flag nor a profile names an API URL.
var DefaultAPI = fmt.Sprintf("http://localhost:%d", config.DefaultAPIPort)

// Target is the resolved connection target for one command.
type Target struct {
	Server   string
	Identity string
	API      string
}

// ResolveTarget merges flags over the selected profile over the defaults.
// A missing profile file is not an error.
func ResolveTarget() (*Target, error) {
	t := &Target{Server: DefaultServer, API: DefaultAPI}

	p, err := loadProfile()
	if err != nil {
		return nil, err
	}
	if p != nil {
		t.Server = EmptyOr(p.Server, t.Server)
		t.Identity = p.Identity
		t.API = EmptyOr(p.API, t.API)
	}

	t.Server = EmptyOr(Flags.Server, t.Server)
	t.Identity = EmptyOr(Flags.Identity, t.Identity)
	t.API = EmptyOr(Flags.API, t.API)
	return t, nil
}

func loadProfile() (*profile.Profile, error) {
	store, err := profile.NewStore()
	if err != nil {
		return nil, fmt.Errorf("failed to open profile store: %w", err)
	}

	if Flags.Profile != "" {
		return store.Get(Flags.Profile)
	}
	p, err := store.Current()
	if errors.Is(err, profile.ErrNoCurrentProfile) {
		return nil, nil
	}
	return p, err
}

// Connect dials the BOX server for the resolved target. The identity must
// come from --name or the profile.
func Connect(ctx context.Context) (*client.Client, error) {
	t, err := ResolveTarget()
	if err != nil {
		return nil, err
	}
	if t.Identity == "" {
		return nil, fmt.Errorf("no identity configured. Pass --name or run 'dboxctl profile set'")
	}
	return client.Dial(ctx, t.Server, t.Identity)
}

// GetAPIClient returns an admin API client for the resolved target.
func GetAPIClient() (*apiclient.Client, error) {
	t, err := ResolveTarget()
	if err != nil {
		return nil, err
	}
	return apiclient.New(t.API), nil
}

// CommandContext bounds a one-shot command by --timeout, if set.
func CommandContext() (context.Context, context.CancelFunc) {
	if Flags.Timeout > 0 {
		return context.WithTimeout(context.Background(), Flags.Timeout)
	}
	return context.WithCancel(context.Background())
}

// GetOutputFormatParsed returns the parsed output format.
func GetOutputFormatParsed() (output.Format, error) {
	return output.ParseFormat(Flags.Output)
}

// IsColorDisabled returns whether color output is disabled.
func IsColorDisabled() bool {
	return Flags.NoColor
}

// NewPrinter returns a printer for stdout in the selected format.
func NewPrinter() (*output.Printer, error) {
	format, err := GetOutputFormatParsed()
	if err != nil {
		return nil, err
	}
	return output.NewPrinter(os.Stdout, format, !IsColorDisabled()), nil
}

// PrintOutput prints data in the specified format (JSON, YAML, or table).
// For table format, it displays emptyMsg if data is empty, otherwise uses the tableRenderer.
func PrintOutput(w io.Writer, data any, isEmpty bool, emptyMsg string, tableRenderer output.TableRenderer) error {
	format, err := GetOutputFormatParsed()
	if err != nil {
		return err
	}

	switch format {
	case output.FormatJSON:
		return output.PrintJSON(w, data)
	case output.FormatYAML:
		return output.PrintYAML(w, data)
	default:
		if isEmpty {
			_, _ = fmt.Fprintln(w, emptyMsg)
			return nil
		}
		return output.PrintTable(w, tableRenderer)
	}
}

// PrintSuccess prints a success message if the output format is table.
func PrintSuccess(msg string) {
	format, err := GetOutputFormatParsed()
	if err != nil || format != output.FormatTable {
		return
	}
	output.NewPrinter(os.Stdout, format, !IsColorDisabled()).Success(msg)
}

// RunDeleteWithConfirmation prompts for confirmation (unless force is true) and runs deleteFn.
func RunDeleteWithConfirmation(resourceType, name string, force bool, deleteFn func() error) error {
	confirmed, err := prompt.ConfirmWithForce(fmt.Sprintf("Delete %s '%s'?", resourceType, name), force)
	if err != nil {
		if prompt.IsAborted(err) {
			fmt.Println("\nAborted.")
			return nil
		}
		return err
	}
	if !confirmed {
		fmt.Println("Aborted.")
		return nil
	}

	if err := deleteFn(); err != nil {
		return fmt.Errorf("failed to delete %s: %w", resourceType, err)
	}

	PrintSuccess(fmt.Sprintf("%s '%s' deleted", resourceType, name))
	return nil
}

// EmptyOr returns value if non-empty, otherwise fallback.
func EmptyOr(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

// BoolToYesNo renders a boolean for tables.
func BoolToYesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
