package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newUninstallCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "uninstall NAME",
		Short: "Remove an installed font",
		Long: `Remove an installed font directory. NAME is either a Nerd Font name
(FiraCode) or the directory name under the font directory (FiraCodeNerdFont,
Hack).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			env, err := root.load(ctx)
			if err != nil {
				return err
			}

			svc, err := newService(env, false)
			if err != nil {
				return err
			}

			removed, err := svc.Uninstall(ctx, args[0])
			if err != nil {
				return err
			}

			color.New(color.FgGreen).Fprint(cmd.OutOrStdout(), "✓ ")
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", removed)
			return nil
		},
	}
}
