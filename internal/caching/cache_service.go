package caching

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"subsync/internal/models"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const keyPrefix = "subsync"

// CacheService caches the per-user subscription status view. A nil view with
// a nil error is a cache miss.
type CacheService interface {
	GetSubscriptionStatus(ctx context.Context, userID int64) (*models.SubscriptionStatusView, error)
	SetSubscriptionStatus(ctx context.Context, userID int64, view *models.SubscriptionStatusView) error
	InvalidateSubscriptionStatus(ctx context.Context, userID int64) error
	Ping(ctx context.Context) error
}

type redisCacheService struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisClient accepts either host:port or a redis:// URL.
func NewRedisClient(addr, password string, db int, logger *zap.Logger) *redis.Client {
	opts := &redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	}
	if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
		parsed, err := redis.ParseURL(addr)
		if err == nil {
			if password != "" {
				parsed.Password = password
			}
			opts = parsed
		} else {
			logger.Warn("invalid redis url, using it as an address", zap.Error(err))
		}
	}

	client := redis.NewClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		logger.Warn("redis ping failed on initialization", zap.String("addr", opts.Addr), zap.Error(err))
	} else {
		logger.Debug("redis connection established", zap.String("addr", opts.Addr))
	}
	return client
}

func NewRedisCacheService(client *redis.Client, ttl time.Duration) CacheService {
	return &redisCacheService{client: client, ttl: ttl}
}

func statusKey(userID int64) string {
	return fmt.Sprintf("%s:subscription_status:%d", keyPrefix, userID)
}

func (r *redisCacheService) GetSubscriptionStatus(ctx context.Context, userID int64) (*models.SubscriptionStatusView, error) {
	data, err := r.client.Get(ctx, statusKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var view models.SubscriptionStatusView
	if err := json.Unmarshal(data, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

func (r *redisCacheService) SetSubscriptionStatus(ctx context.Context, userID int64, view *models.SubscriptionStatusView) error {
	data, err := json.Marshal(view)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, statusKey(userID), data, r.ttl).Err()
}

func (r *redisCacheService) InvalidateSubscriptionStatus(ctx context.Context, userID int64) error {
	return r.client.Del(ctx, statusKey(userID)).Err()
}

func (r *redisCacheService) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

type noopCacheService struct{}

// NewNoopCacheService is used when Redis is not configured.
func NewNoopCacheService() CacheService {
	return noopCacheService{}
}

func (noopCacheService) GetSubscriptionStatus(context.Context, int64) (*models.SubscriptionStatusView, error) {
	return nil, nil
}

func (noopCacheService) SetSubscriptionStatus(context.Context, int64, *models.SubscriptionStatusView) error {
	return nil
}

func (noopCacheService) InvalidateSubscriptionStatus(context.Context, int64) error {
	return nil
}

func (noopCacheService) Ping(context.Context) error {
	return nil
}
