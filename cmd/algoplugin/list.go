package main

import (
	"fmt"

	"github.com/LdDl/algo-plugin-go/plugins"
	"github.com/spf13/cobra"
)

func newListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List available plugins",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range plugins.Names() {
				p, err := plugins.New(name)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-14s %s\n", name, p.Definition().Description)
			}
			return nil
		},
	}
}
