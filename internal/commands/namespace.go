package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// namespaceIndex sets RunE on a parent command so a bare `scrum <group>` lists
// its subcommands (as JSON under --json) instead of failing.
func namespaceIndex(cmd *cobra.Command) {
	cmd.RunE = func(c *cobra.Command, args []string) error {
		type subCmd struct {
			Name        string `json:"name"`
			Description string `json:"description"`
		}
		type resp struct {
			Namespace   string   `json:"namespace"`
			Subcommands []subCmd `json:"subcommands"`
		}
		subs := []subCmd{}
		for _, child := range c.Commands() {
			if !child.Hidden && child.Name() != "help" {
				subs = append(subs, subCmd{Name: child.Name(), Description: child.Short})
			}
		}

		return emit(c, resp{Namespace: c.CommandPath(), Subcommands: subs}, func(w io.Writer) {
			_, _ = fmt.Fprintf(w, "%s commands:\n", c.CommandPath())
			for _, s := range subs {
				_, _ = fmt.Fprintf(w, "  %-12s %s\n", s.Name, s.Description)
			}
		})
	}
}
