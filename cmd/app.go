package main

import (
	"context"
	"fmt"

	"subsync/internal/caching"
	"subsync/internal/config"
	"subsync/internal/jobs"
	"subsync/internal/jobs/background"
	"subsync/internal/repositories"
	"subsync/internal/services"
	"subsync/pkg/database"
	"subsync/pkg/logger"

	"github.com/go-co-op/gocron/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// app holds the shared dependencies every command needs.
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	pool    *pgxpool.Pool
	store   repositories.Store
	redis   *redis.Client
	cache   caching.CacheService
	zotlo   services.ZotloService
	storage services.ReportStorage
}

func newApp(ctx context.Context, envFiles []string) (*app, error) {
	cfg, err := config.Load(envFiles...)
	if err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.AppEnv)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	pool, err := database.NewPool(ctx, cfg.DatabaseURL, cfg.Database, log)
	if err != nil {
		_ = log.Sync()
		return nil, err
	}

	a := &app{
		cfg:    cfg,
		logger: log,
		pool:   pool,
		store:  repositories.NewStore(pool),
		cache:  caching.NewNoopCacheService(),
		zotlo:  services.NewZotloService(cfg.Zotlo, log),
	}

	if cfg.Redis.Addr != "" {
		a.redis = caching.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, log)
		a.cache = caching.NewRedisCacheService(a.redis, cfg.Redis.StatusTTL)
	} else {
		log.Info("REDIS_ADDR not set, status cache and job locking disabled")
	}

	if cfg.Minio.Endpoint != "" {
		storage, err := services.NewMinioReportStorage(cfg.Minio)
		if err != nil {
			a.close()
			return nil, err
		}
		a.storage = storage
	}

	return a, nil
}

// locker returns nil when Redis is not configured.
func (a *app) locker() gocron.Locker {
	if a.redis == nil {
		return nil
	}
	return background.NewRedisLocker(a.redis, a.cfg.Sync.LockTTL)
}

func (a *app) syncJob() *jobs.SubscriptionSyncJob {
	return jobs.NewSubscriptionSyncJob(a.store, a.zotlo, a.cache, a.logger)
}

func (a *app) reportJob() *jobs.SubscriptionReportJob {
	return jobs.NewSubscriptionReportJob(a.store, a.storage, a.logger)
}

func (a *app) close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("failed to close redis client", zap.Error(err))
		}
	}
	database.ClosePool(a.pool, a.logger)
	_ = a.logger.Sync()
}
