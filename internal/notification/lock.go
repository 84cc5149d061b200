package notification

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const sweepLockKey = "campusnotify:lock:sweep"

// SweepLock keeps concurrent instances from sweeping at the same time.
type SweepLock interface {
	// Acquire reports whether the lock was taken. release is non-nil only
	// when it was.
	Acquire(ctx context.Context) (release func(), ok bool, err error)
}

// RedisLock is a SETNX lease with a random owner token.
type RedisLock struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisLock returns a lock backed by client. A nil client always grants
// the lock.
func NewRedisLock(client *redis.Client, ttl time.Duration) *RedisLock {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisLock{client: client, ttl: ttl}
}

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

func (l *RedisLock) Acquire(ctx context.Context) (func(), bool, error) {
	if l == nil || l.client == nil {
		return func() {}, true, nil
	}
	owner := uuid.NewString()
	ok, err := l.client.SetNX(ctx, sweepLockKey, owner, l.ttl).Result()
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	release := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		releaseScript.Run(ctx, l.client, []string{sweepLockKey}, owner)
	}
	return release, true, nil
}
