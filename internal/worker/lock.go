package worker

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Locker hands out a single-holder lease.  TryLock reports false when the
// lease is held elsewhere; the returned release func is only set on success.
type Locker interface {
	TryLock(ctx context.Context) (release func(), ok bool, err error)
}

var releaseScript = redis.NewScript(`
    if redis.call('GET', KEYS[1]) == ARGV[1] then
        return redis.call('DEL', KEYS[1])
    end
    return 0
`)

// RedisLocker keeps the lease in a Redis key so that only one server
// instance runs the sweep at a time.
type RedisLocker struct {
	rdb *redis.Client
	key string
	ttl time.Duration
}

func NewRedisLocker(rdb *redis.Client, key string, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &RedisLocker{rdb: rdb, key: key, ttl: ttl}
}

func (l *RedisLocker) TryLock(ctx context.Context) (func(), bool, error) {
	token := uuid.NewString()
	ok, err := l.rdb.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil || !ok {
		return nil, false, err
	}
	release := func() {
		// the lease may have expired and been taken by another holder
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = releaseScript.Run(ctx, l.rdb, []string{l.key}, token).Err()
	}
	return release, true, nil
}

// LocalLocker is the in-process fallback used when Redis is unavailable.
type LocalLocker struct {
	mu sync.Mutex
}

func (l *LocalLocker) TryLock(context.Context) (func(), bool, error) {
	if !l.mu.TryLock() {
		return nil, false, nil
	}
	return l.mu.Unlock, true, nil
}
