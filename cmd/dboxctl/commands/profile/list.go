package profile

import (
	"fmt"

	"github.com/marmos91/dittobox/cmd/dboxctl/cmdutil"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all profiles",
	Long: `List all saved profiles. The current profile is marked with an
asterisk (*).

Examples:
  dboxctl profile list
  dboxctl profile list -o json`,
	RunE: runList,
}

// Info represents one profile for output.
type Info struct {
	Name     string `json:"name" yaml:"name"`
	Current  bool   `json:"current" yaml:"current"`
	Server   string `json:"server" yaml:"server"`
	Identity string `json:"identity,omitempty" yaml:"identity,omitempty"`
	API      string `json:"api,omitempty" yaml:"api,omitempty"`
}

// List is a list of profiles for table rendering.
type List []Info

// Headers implements TableRenderer.
func (l List) Headers() []string {
	return []string{"", "NAME", "SERVER", "IDENTITY", "API"}
}

// Rows implements TableRenderer.
func (l List) Rows() [][]string {
	rows := make([][]string, 0, len(l))
	for _, p := range l {
		current := ""
		if p.Current {
			current = "*"
		}
		rows = append(rows, []string{current, p.Name, p.Server, cmdutil.EmptyOr(p.Identity, "-"), cmdutil.EmptyOr(p.API, "-")})
	}
	return rows
}

func runList(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}

	names := store.Names()
	current := store.CurrentName()
	profiles := make(List, 0, len(names))
	for _, name := range names {
		p, err := store.Get(name)
		if err != nil {
			continue
		}
		profiles = append(profiles, Info{
			Name:     name,
			Current:  name == current,
			Server:   p.Server,
			Identity: p.Identity,
			API:      p.API,
		})
	}

	emptyMsg := fmt.Sprintf("No profiles. Create one with 'dboxctl profile set <name>' (stored in %s).", store.Path())
	return cmdutil.PrintOutput(cmd.OutOrStdout(), profiles, len(profiles) == 0, emptyMsg, profiles)
}
