// internal/lock/redis.go

// Package lock provides a best-effort cycle lock on Redis. It keeps two
// overlapping trigger invocations from selecting the same batch; the row-level
// claim in the store remains the correctness guarantee.
package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const dispatchLockKey = "dispatch:cycle:lock"

type CycleLock struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCycleLock(client *redis.Client, ttl time.Duration) *CycleLock {
	return &CycleLock{client: client, ttl: ttl}
}

// Acquire takes the lock for the given owner token. It returns false when
// another cycle holds it.
func (l *CycleLock) Acquire(ctx context.Context, owner string) (bool, error) {
	ok, err := l.client.SetNX(ctx, dispatchLockKey, owner, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire cycle lock: %w", err)
	}
	return ok, nil
}

// Release frees the lock only when still held by the same owner, so an
// expired lock taken over by a newer cycle is never released from under it.
func (l *CycleLock) Release(ctx context.Context, owner string) error {
	const script = `
		if redis.call("get", KEYS[1]) == ARGV[1] then
			return redis.call("del", KEYS[1])
		end
		return 0`
	if err := l.client.Eval(ctx, script, []string{dispatchLockKey}, owner).Err(); err != nil {
		return fmt.Errorf("release cycle lock: %w", err)
	}
	return nil
}
