package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"subsync/internal/caching"
	"subsync/internal/metrics"
	"subsync/internal/models"
	"subsync/internal/repositories"
	"subsync/internal/services"

	"go.uber.org/zap"
)

const DefaultSyncBatchSize = 500

// RemoteSubscriptionLister is the part of the Zotlo gateway the sync job needs.
type RemoteSubscriptionLister interface {
	ListSubscriptions(ctx context.Context, subscriberID string) ([]models.RemoteSubscription, error)
}

type SyncOptions struct {
	BatchSize int
	DryRun    bool
}

type SyncSummary struct {
	Processed int
	Changed   int
	Skipped   int
	Failed    int
}

// SubscriptionSyncJob polls Zotlo for every active, pending or trial
// subscription and writes back the differences.
type SubscriptionSyncJob struct {
	store  repositories.Store
	zotlo  RemoteSubscriptionLister
	cache  caching.CacheService
	logger *zap.Logger
}

func NewSubscriptionSyncJob(store repositories.Store, zotlo RemoteSubscriptionLister, cache caching.CacheService, logger *zap.Logger) *SubscriptionSyncJob {
	if cache == nil {
		cache = caching.NewNoopCacheService()
	}
	return &SubscriptionSyncJob{
		store:  store,
		zotlo:  zotlo,
		cache:  cache,
		logger: logger.Named("sync"),
	}
}

// Run walks syncable subscriptions in id order, one page at a time. Per
// record failures are logged and counted; only a failed page read aborts
// the run.
func (j *SubscriptionSyncJob) Run(ctx context.Context, opts SyncOptions) (SyncSummary, error) {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultSyncBatchSize
	}
	started := time.Now()
	j.logger.Info("subscription sync started", zap.Int("batch_size", opts.BatchSize), zap.Bool("dry_run", opts.DryRun))

	var summary SyncSummary
	var lastID int64
	for {
		if err := ctx.Err(); err != nil {
			metrics.SyncRunsCount.WithLabelValues(metrics.OutcomeFailure).Inc()
			return summary, err
		}

		page, err := j.store.Subscriptions().ListSyncable(ctx, lastID, opts.BatchSize)
		if err != nil {
			metrics.SyncRunsCount.WithLabelValues(metrics.OutcomeFailure).Inc()
			j.logger.Error("failed to load subscriptions", zap.Int64("after_id", lastID), zap.Error(err))
			return summary, fmt.Errorf("list syncable subscriptions after %d: %w", lastID, err)
		}
		if len(page) == 0 {
			break
		}

		for i := range page {
			summary.Processed++
			result := j.syncOne(ctx, page[i], opts.DryRun)
			switch result {
			case syncChanged:
				summary.Changed++
			case syncSkipped:
				summary.Skipped++
			case syncFailed:
				summary.Failed++
			}
			metrics.SyncRecordsCount.WithLabelValues(string(result)).Inc()
		}
		lastID = page[len(page)-1].ID

		if len(page) < opts.BatchSize {
			break
		}
	}

	metrics.SyncRunsCount.WithLabelValues(metrics.OutcomeSuccess).Inc()
	j.logger.Info("subscription sync finished",
		zap.Int("processed", summary.Processed),
		zap.Int("changed", summary.Changed),
		zap.Int("skipped", summary.Skipped),
		zap.Int("failed", summary.Failed),
		zap.Bool("dry_run", opts.DryRun),
		zap.Duration("duration", time.Since(started)))
	return summary, nil
}

type syncResult string

const (
	syncChanged   syncResult = "changed"
	syncUnchanged syncResult = "unchanged"
	syncSkipped   syncResult = "skipped"
	syncFailed    syncResult = "failed"
)

func (j *SubscriptionSyncJob) syncOne(ctx context.Context, sub models.Subscription, dryRun bool) syncResult {
	log := j.logger.With(zap.Int64("subscription", sub.ID))
	if sub.UserID == nil {
		log.Debug("subscription has no user, skip")
		return syncSkipped
	}
	log = log.With(zap.Int64("user_id", *sub.UserID))

	user, err := j.store.Users().GetByID(ctx, *sub.UserID)
	if errors.Is(err, repositories.ErrNotFound) {
		log.Warn("user not found, skip")
		return syncSkipped
	}
	if err != nil {
		log.Error("failed to load user", zap.Error(err))
		return syncFailed
	}
	subscriberID := user.SubscriberID()
	if subscriberID == "" {
		log.Debug("user has no subscriber id, skip")
		return syncSkipped
	}

	remote, err := j.zotlo.ListSubscriptions(ctx, subscriberID)
	if err != nil {
		log.Error("zotlo list failed", zap.String("subscriber_id", subscriberID), zap.Error(err))
		return syncFailed
	}

	diff := services.Reconcile(sub, remote)
	if diff == nil {
		return syncUnchanged
	}
	if diff.UnknownStatus != "" {
		log.Warn("unknown zotlo status mapped to active", zap.String("raw_status", diff.UnknownStatus))
	}
	if !diff.HasChanges() {
		return syncUnchanged
	}

	updated := diff.Apply(sub)
	fields := []zap.Field{
		zap.String("old_status", string(sub.Status)),
		zap.String("new_status", string(updated.Status)),
		zap.String("old_package", sub.PackageName),
		zap.String("new_package", updated.PackageName),
		zap.Timep("old_expire_date", sub.ExpireDate),
		zap.Timep("new_expire_date", updated.ExpireDate),
	}
	if dryRun {
		log.Info("dry-run: subscription would change", fields...)
		return syncChanged
	}

	if err := j.store.Subscriptions().Update(ctx, &updated); err != nil {
		if errors.Is(err, repositories.ErrActiveSubscriptionExists) {
			log.Warn("already active, skip", zap.Error(err))
			return syncSkipped
		}
		log.Error("failed to update subscription", zap.Error(err))
		return syncFailed
	}
	if err := j.cache.InvalidateSubscriptionStatus(ctx, *sub.UserID); err != nil {
		log.Warn("status cache invalidation failed", zap.Error(err))
	}
	log.Info("subscription updated", fields...)
	return syncChanged
}
