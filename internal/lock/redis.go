// Package lock implements the Redis-backed distributed mutual-exclusion lock
// from SPEC_FULL.md §4.6: atomic set-if-absent with a TTL, released only by
// the holder via a compare-then-delete. Ported from
// original_source/src/repository/redis.rs's acquire_lock/release_lock.
package lock

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	OutboxLockKey = "outbox_lock"
	DefaultTTL    = 10 * time.Minute
)

type RedisLock struct {
	Client *redis.Client
}

func New(client *redis.Client) *RedisLock {
	return &RedisLock{Client: client}
}

// Acquire attempts SETNX key=token with an expiry. Returns ("", false, nil)
// if another holder already owns the lock — not an error, just "skip this
// tick" per SPEC_FULL.md §4.6 step 1.
func (l *RedisLock) Acquire(ctx context.Context, key string, ttl time.Duration) (token string, acquired bool, err error) {
	token = uuid.NewString()
	ok, err := l.Client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return "", false, err
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

// Release deletes the key only if it still holds our token, so a lock whose
// TTL expired and was reacquired by someone else is never deleted out from
// under them.
func (l *RedisLock) Release(ctx context.Context, key, token string) error {
	// The compare and the delete run as one server-side script, so the key
	// cannot expire and change hands between them.
	release := redis.NewScript(`
		if redis.call("GET", KEYS[1]) == ARGV[1] then
			return redis.call("DEL", KEYS[1])
		end
		return 0
	`)
	return release.Run(ctx, l.Client, []string{key}, token).Err()
}
