package background

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrLockHeld = errors.New("lock is held by another instance")

// releaseScript deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker is a gocron.Locker backed by SET NX PX leases, so a job runs
// on at most one instance at a time.
type RedisLocker struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

var _ gocron.Locker = (*RedisLocker)(nil)

func NewRedisLocker(client redis.UniversalClient, ttl time.Duration) *RedisLocker {
	return &RedisLocker{client: client, prefix: "subsync:lock:", ttl: ttl}
}

func (l *RedisLocker) Lock(ctx context.Context, key string) (gocron.Lock, error) {
	name := l.prefix + key
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, name, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", name, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLockHeld, name)
	}
	return &redisLock{client: l.client, key: name, token: token}, nil
}

type redisLock struct {
	client redis.UniversalClient
	key    string
	token  string
}

func (l *redisLock) Unlock(ctx context.Context) error {
	if err := releaseScript.Run(ctx, l.client, []string{l.key}, l.token).Err(); err != nil {
		return fmt.Errorf("release lock %s: %w", l.key, err)
	}
	return nil
}
