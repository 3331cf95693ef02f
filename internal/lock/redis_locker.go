package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker serializes work on a key across every replica sharing one Redis.
// Locks expire after ttl so a crashed holder cannot block a key forever.
type RedisLocker struct {
	client    *redis.Client
	ttl       time.Duration
	retryStep time.Duration
	prefix    string
}

// NewRedisLocker creates a RedisLocker. ttl must exceed the longest critical section.
func NewRedisLocker(client *redis.Client, ttl time.Duration) *RedisLocker {
	return &RedisLocker{
		client:    client,
		ttl:       ttl,
		retryStep: 25 * time.Millisecond,
		prefix:    "lock:",
	}
}

// Acquire polls SET NX until it wins, wait elapses or ctx is done.
func (l *RedisLocker) Acquire(ctx context.Context, key string, wait time.Duration) (func(), error) {
	redisKey := l.prefix + key
	token := uuid.NewString()
	deadline := time.Now().Add(wait)

	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to acquire lock %s: %w", key, err)
		}
		if ok {
			return func() {
				// Use a fresh context: the caller's may already be cancelled.
				releaseCtx, cancel := context.WithTimeout(context.Background(), time.Second)
				defer cancel()
				releaseScript.Run(releaseCtx, l.client, []string{redisKey}, token)
			}, nil
		}

		if !time.Now().Before(deadline) {
			return nil, ErrTimeout
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.retryStep):
		}
	}
}

// Layered holds the in-process lock first, then the distributed one, so
// goroutines of one replica queue locally instead of polling Redis.
type Layered struct {
	local  *KeyedMutex
	remote *RedisLocker
}

// NewLayered combines a local and a distributed locker.
func NewLayered(local *KeyedMutex, remote *RedisLocker) *Layered {
	return &Layered{local: local, remote: remote}
}

// Acquire takes both locks within a single wait budget.
func (l *Layered) Acquire(ctx context.Context, key string, wait time.Duration) (func(), error) {
	start := time.Now()
	releaseLocal, err := l.local.Acquire(ctx, key, wait)
	if err != nil {
		return nil, err
	}
	remaining := wait - time.Since(start)
	if remaining <= 0 {
		releaseLocal()
		return nil, ErrTimeout
	}
	releaseRemote, err := l.remote.Acquire(ctx, key, remaining)
	if err != nil {
		releaseLocal()
		return nil, err
	}
	return func() {
		releaseRemote()
		releaseLocal()
	}, nil
}
