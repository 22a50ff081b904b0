package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect configuration",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the resolved configuration as TOML, secrets masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if a.cfg.Path != "" {
				fmt.Fprintf(out, "# loaded from %s\n", a.cfg.Path)
			} else {
				fmt.Fprintln(out, "# no config file; defaults and environment only")
			}
			return a.cfg.Redacted().WriteTOML(out)
		},
	})
	return cmd
}
