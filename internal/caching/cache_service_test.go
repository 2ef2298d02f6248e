package caching

import (
	"context"
	"os"
	"testing"
	"time"

	"subsync/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestStatusKey(t *testing.T) {
	assert.Equal(t, "subsync:subscription_status:42", statusKey(42))
}

func TestNoopCacheService(t *testing.T) {
	cache := NewNoopCacheService()
	ctx := context.Background()

	require.NoError(t, cache.SetSubscriptionStatus(ctx, 1, &models.SubscriptionStatusView{Status: "active"}))
	view, err := cache.GetSubscriptionStatus(ctx, 1)
	assert.NoError(t, err)
	assert.Nil(t, view)
	assert.NoError(t, cache.InvalidateSubscriptionStatus(ctx, 1))
	assert.NoError(t, cache.Ping(ctx))
}

func TestRedisCacheService_Unreachable(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond, MaxRetries: -1})
	defer client.Close()
	cache := NewRedisCacheService(client, time.Minute)

	_, err := cache.GetSubscriptionStatus(context.Background(), 1)
	assert.Error(t, err)
	assert.Error(t, cache.Ping(context.Background()))
}

func TestRedisCacheService_RoundTrip(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set, skipping redis cache test")
	}
	client := NewRedisClient(addr, "", 0, zap.NewNop())
	defer client.Close()
	cache := NewRedisCacheService(client, time.Minute)
	ctx := context.Background()
	userID := time.Now().UnixNano()

	miss, err := cache.GetSubscriptionStatus(ctx, userID)
	require.NoError(t, err)
	assert.Nil(t, miss)

	expire := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, cache.SetSubscriptionStatus(ctx, userID, &models.SubscriptionStatusView{Status: "active", Package: "premium", ExpireDate: &expire}))

	hit, err := cache.GetSubscriptionStatus(ctx, userID)
	require.NoError(t, err)
	require.NotNil(t, hit)
	assert.Equal(t, "premium", hit.Package)
	assert.True(t, expire.Equal(*hit.ExpireDate))

	require.NoError(t, cache.InvalidateSubscriptionStatus(ctx, userID))
	gone, err := cache.GetSubscriptionStatus(ctx, userID)
	require.NoError(t, err)
	assert.Nil(t, gone)
}
