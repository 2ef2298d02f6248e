package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var envFiles []string

	root := &cobra.Command{
		Use:          "subsync",
		Short:        "Zotlo subscription billing integration",
		Version:      version,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringSliceVar(&envFiles, "env-file", nil, "dotenv files to load before reading the environment")

	root.AddCommand(
		newServeCommand(&envFiles),
		newSyncCommand(&envFiles),
		newReportCommand(&envFiles),
		newMigrateCommand(&envFiles),
	)
	return root
}
