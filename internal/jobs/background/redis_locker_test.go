package background

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedis(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set, skipping redis locker test")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	require.NoError(t, client.Ping(context.Background()).Err())
	t.Cleanup(func() { client.Close() })
	return client
}

func TestRedisLocker_SingleHolder(t *testing.T) {
	client := setupRedis(t)
	ctx := context.Background()
	locker := NewRedisLocker(client, time.Minute)
	key := "test-" + time.Now().Format("150405.000000")

	lock, err := locker.Lock(ctx, key)
	require.NoError(t, err)

	_, err = locker.Lock(ctx, key)
	assert.ErrorIs(t, err, ErrLockHeld)

	require.NoError(t, lock.Unlock(ctx))

	again, err := locker.Lock(ctx, key)
	require.NoError(t, err)
	require.NoError(t, again.Unlock(ctx))
}

func TestRedisLocker_UnlockKeepsForeignLease(t *testing.T) {
	client := setupRedis(t)
	ctx := context.Background()
	locker := NewRedisLocker(client, time.Minute)
	key := "test-foreign-" + time.Now().Format("150405.000000")

	lock, err := locker.Lock(ctx, key)
	require.NoError(t, err)

	// Simulate the lease expiring and another instance taking it.
	require.NoError(t, client.Set(ctx, "subsync:lock:"+key, "other-token", time.Minute).Err())
	require.NoError(t, lock.Unlock(ctx))

	value, err := client.Get(ctx, "subsync:lock:"+key).Result()
	require.NoError(t, err)
	assert.Equal(t, "other-token", value)
	client.Del(ctx, "subsync:lock:"+key)
}
