package profile

import (
	"errors"
	"fmt"

	"github.com/marmos91/dittobox/cmd/dboxctl/cmdutil"
	profilestore "github.com/marmos91/dittobox/internal/cli/profile"
	"github.com/marmos91/dittobox/pkg/sandbox"
	"github.com/spf13/cobra"
)

var setCmd = &cobra.Command{
	Use:   "set <name>",
	Short: "Create or update a profile",
	Long: `Create or update a profile from the global --server, --name and --api
flags. Fields not given keep their previous value. The first profile
created becomes the current one.

Examples:
  dboxctl profile set lab --server lab.local:12346 --name alice
  dboxctl profile set lab --api http://lab.local:8080`,
	Args: cobra.ExactArgs(1),
	RunE: runSet,
}

func runSet(cmd *cobra.Command, args []string) error {
	name := args[0]
	store, err := openStore()
	if err != nil {
		return err
	}

	p, err := store.Get(name)
	if errors.Is(err, profilestore.ErrProfileNotFound) {
		p = &profilestore.Profile{}
	} else if err != nil {
		return err
	}

	p.Server = cmdutil.EmptyOr(cmdutil.Flags.Server, cmdutil.EmptyOr(p.Server, cmdutil.DefaultServer))
	p.Identity = cmdutil.EmptyOr(cmdutil.Flags.Identity, p.Identity)
	p.API = cmdutil.EmptyOr(cmdutil.Flags.API, p.API)

	if p.Identity != "" {
		if err := sandbox.ValidateIdentity(p.Identity); err != nil {
			return err
		}
	}

	if err := store.Set(name, p); err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	cmdutil.PrintSuccess(fmt.Sprintf("Profile '%s' saved", name))
	return nil
}
