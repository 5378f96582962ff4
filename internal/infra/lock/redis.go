package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"hotelbook/internal/app/policies"
)

const (
	defaultTTL       = 10 * time.Second
	defaultWait      = 5 * time.Second
	defaultRetry     = 25 * time.Millisecond
	defaultKeyPrefix = "hotelbook:lock:room:"
)

// releaseScript deletes the key only when it still holds our token, so an
// expired lock re-acquired by another instance is never released by us.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// RedisLocker is a room lock shared by every instance using the same Redis.
type RedisLocker struct {
	Client    *redis.Client
	TTL       time.Duration
	Wait      time.Duration
	Retry     time.Duration
	KeyPrefix string
}

func (l *RedisLocker) Lock(ctx context.Context, roomID string) (func(), error) {
	if l.Client == nil {
		return nil, fmt.Errorf("lock: redis client not configured")
	}
	key := l.prefix() + roomID
	token := uuid.NewString()
	waitCtx, cancel := context.WithTimeout(ctx, l.wait())
	defer cancel()

	ticker := time.NewTicker(l.retry())
	defer ticker.Stop()
	for {
		ok, err := l.Client.SetNX(waitCtx, key, token, l.ttl()).Result()
		if err != nil && waitCtx.Err() == nil {
			return nil, fmt.Errorf("lock: acquire %s: %w", key, err)
		}
		if ok {
			return l.releaser(key, token), nil
		}
		select {
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, policies.ErrLockTimeout
		case <-ticker.C:
		}
	}
}

func (l *RedisLocker) releaser(key, token string) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = releaseScript.Run(ctx, l.Client, []string{key}, token).Err()
		})
	}
}

func (l *RedisLocker) ttl() time.Duration {
	if l.TTL <= 0 {
		return defaultTTL
	}
	return l.TTL
}

func (l *RedisLocker) wait() time.Duration {
	if l.Wait <= 0 {
		return defaultWait
	}
	return l.Wait
}

func (l *RedisLocker) retry() time.Duration {
	if l.Retry <= 0 {
		return defaultRetry
	}
	return l.Retry
}

func (l *RedisLocker) prefix() string {
	if l.KeyPrefix == "" {
		return defaultKeyPrefix
	}
	return l.KeyPrefix
}

// NewRedisClient builds the client used by RedisLocker.
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

var _ policies.RoomLocker = (*RedisLocker)(nil)
