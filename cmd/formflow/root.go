package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "formflow",
		Short: "Multi-step form wizards",
		Long: `formflow runs multi-step form wizards described in YAML.

Each wizard is a sequence of steps, optionally grouped into pages with
substeps and switched on or off by conditions. Progress is persisted per
session and the final commit revalidates every step before delivery.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringP("config", "c", "", "config file (YAML)")

	root.AddCommand(newServeCommand())
	root.AddCommand(newInspectCommand())
	return root
}
