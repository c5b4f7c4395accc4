package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "designer",
		Short:        "Visual layout designer server and tooling",
		Version:      version + " (" + commit + ")",
		SilenceUsage: true,
	}

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newValidateCmd())
	cmd.AddCommand(newRenderCmd())
	return cmd
}
