package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type redisRunLock struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewRedisRunLock creates a distributed lock on a single Redis key. The TTL
// bounds how long a crashed holder can block other runs.
func NewRedisRunLock(client *redis.Client, name string, ttl time.Duration) RunLock {
	return &redisRunLock{
		client: client,
		key:    fmt.Sprintf("lock:%s", name),
		ttl:    ttl,
	}
}

func (l *redisRunLock) WithLock(ctx context.Context, fn func(ctx context.Context) error) error {
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return fmt.Errorf("acquire lock %s: %w", l.key, err)
	}
	if !ok {
		return ErrLockHeld
	}

	defer func() {
		_ = l.release(ctx, token)
	}()

	runCtx, cancel := context.WithTimeout(ctx, l.ttl)
	defer cancel()

	return fn(runCtx)
}

// unlockScript deletes the key only if this holder's token still owns it.
var unlockScript = redis.NewScript(`
local val = redis.call("GET", KEYS[1])
if val == ARGV[1] then
  return redis.call("DEL", KEYS[1])
else
  return 0
end
`)

func (l *redisRunLock) release(ctx context.Context, token string) error {
	_, err := unlockScript.Run(ctx, l.client, []string{l.key}, token).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release lock %s: %w", l.key, err)
	}
	return nil
}
