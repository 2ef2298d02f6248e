package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"subsync/internal/config"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
)

var ErrFailedToConnect = errors.New("failed to open database connection")

// NewPool connects to Postgres, retrying with a fixed delay so the service can
// start before the database is ready.
func NewPool(ctx context.Context, dsn string, cfg config.DatabaseConfig, logger *zap.Logger) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolConfig.MinConns = cfg.MinConns
	}
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	retries := cfg.ConnectRetries
	if retries < 1 {
		retries = 1
	}
	step := cfg.ConnectBackoff
	if step <= 0 {
		step = time.Second
	}
	backoff := retry.WithMaxRetries(uint64(retries-1), retry.NewConstant(step))

	var pool *pgxpool.Pool
	attempt := 0
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		p, err := pgxpool.NewWithConfig(ctx, poolConfig)
		if err != nil {
			logger.Warn("database connection attempt failed", zap.Int("attempt", attempt), zap.Error(err))
			return retry.RetryableError(err)
		}
		if err := p.Ping(ctx); err != nil {
			p.Close()
			logger.Warn("database ping failed", zap.Int("attempt", attempt), zap.Error(err))
			return retry.RetryableError(err)
		}
		pool = p
		return nil
	})
	if err != nil {
		return nil, errors.Join(ErrFailedToConnect, err)
	}

	logger.Info("database connected", zap.Int("attempts", attempt))
	return pool, nil
}

func ClosePool(pool *pgxpool.Pool, logger *zap.Logger) {
	if pool != nil {
		pool.Close()
		logger.Info("database disconnected")
	}
}
