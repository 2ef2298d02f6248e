package main

import (
	"subsync/pkg/database"

	"github.com/spf13/cobra"
)

func newMigrateCommand(envFiles *[]string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), *envFiles)
			if err != nil {
				return err
			}
			defer a.close()
			return database.Migrate(cmd.Context(), a.pool, a.logger)
		},
	}
}
