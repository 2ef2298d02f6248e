package main

import (
	"fmt"

	"subsync/internal/jobs"
	"subsync/internal/jobs/background"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newSyncCommand(envFiles *[]string) *cobra.Command {
	var (
		chunk  int
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Reconcile local subscriptions with Zotlo once",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, *envFiles)
			if err != nil {
				return err
			}
			defer a.close()

			if chunk <= 0 {
				chunk = a.cfg.Sync.BatchSize
			}

			if locker := a.locker(); locker != nil {
				lock, err := locker.Lock(ctx, background.SyncJobName)
				if err != nil {
					return fmt.Errorf("another sync is running: %w", err)
				}
				defer func() {
					if err := lock.Unlock(ctx); err != nil {
						a.logger.Warn("failed to release sync lock", zap.Error(err))
					}
				}()
			}

			summary, err := a.syncJob().Run(ctx, jobs.SyncOptions{BatchSize: chunk, DryRun: dryRun})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "processed=%d changed=%d skipped=%d failed=%d dry_run=%t\n",
				summary.Processed, summary.Changed, summary.Skipped, summary.Failed, dryRun)
			return nil
		},
	}

	cmd.Flags().IntVar(&chunk, "chunk", 0, "subscriptions per page (default SYNC_BATCH_SIZE)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "compute and log changes without writing")
	return cmd
}
