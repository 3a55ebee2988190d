package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/alem-hub/learning-journey/pkg/retry"
)

// ErrLockNotAcquired is returned when the lock stayed held for every poll.
var ErrLockNotAcquired = errors.New("lock: not acquired")

// releaseScript deletes the key only if it still holds our token, so an
// expired holder can never release someone else's lock.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RecordLocker implements completion.Locker on top of SET NX PX.
type RecordLocker struct {
	cache   *Cache
	ttl     time.Duration
	retrier *retry.Retrier
}

// NewRecordLocker creates a locker. A non-positive ttl falls back to
// TTLDistributedLock.
func NewRecordLocker(cache *Cache, ttl time.Duration) *RecordLocker {
	if ttl <= 0 {
		ttl = TTLDistributedLock
	}
	return &RecordLocker{
		cache:   cache,
		ttl:     ttl,
		retrier: retry.LockRetrier(),
	}
}

// Lock polls until the key is held or ctx is done.
func (l *RecordLocker) Lock(ctx context.Context, key string) (func(), error) {
	redisKey := LockKey(key)
	token := uuid.NewString()

	err := l.retrier.Do(ctx, func(ctx context.Context) error {
		ok, err := l.cache.SetNX(ctx, redisKey, token, l.ttl)
		if err != nil {
			return retry.Permanent(err)
		}
		if !ok {
			return retry.Retryable(ErrLockNotAcquired)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", key, err)
	}

	return func() {
		// Release must survive a cancelled request context.
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		_ = releaseScript.Run(releaseCtx, l.cache.client, []string{redisKey}, token).Err()
	}, nil
}
