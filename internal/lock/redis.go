package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
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

// RedisLocker implements Locker using SET NX with a per-acquisition token.
// Locks are shared by every portal instance pointing at the same Redis.
type RedisLocker struct {
	client redis.UniversalClient
	prefix string

	mu     sync.Mutex
	tokens map[string]string
}

// NewRedisLocker creates a new RedisLocker. prefix is prepended to every key.
func NewRedisLocker(client redis.UniversalClient, prefix string) *RedisLocker {
	return &RedisLocker{
		client: client,
		prefix: prefix,
		tokens: make(map[string]string),
	}
}

// Acquire attempts to acquire a lock.
// Returns true if the lock was acquired, false if it's held by another process.
func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, l.prefix+key, token, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis lock acquire %s: %w", key, err)
	}
	if !ok {
		return false, nil
	}

	l.mu.Lock()
	l.tokens[key] = token
	l.mu.Unlock()
	return true, nil
}

// AcquireWithRetry attempts to acquire a lock with retries.
func (l *RedisLocker) AcquireWithRetry(ctx context.Context, key string, ttl time.Duration, maxRetries int, retryDelay time.Duration) (bool, error) {
	return retry(ctx, func() (bool, error) {
		return l.Acquire(ctx, key, ttl)
	}, maxRetries, retryDelay)
}

// Release releases a lock this locker acquired.
// A lock that expired and was taken by someone else is left alone.
func (l *RedisLocker) Release(ctx context.Context, key string) (bool, error) {
	l.mu.Lock()
	token, ok := l.tokens[key]
	delete(l.tokens, key)
	l.mu.Unlock()

	if !ok {
		return false, nil
	}

	n, err := releaseScript.Run(ctx, l.client, []string{l.prefix + key}, token).Int()
	if err != nil {
		return false, fmt.Errorf("redis lock release %s: %w", key, err)
	}
	return n == 1, nil
}

// IsHeld checks if the lock is currently held by anyone.
func (l *RedisLocker) IsHeld(ctx context.Context, key string) (bool, error) {
	err := l.client.Get(ctx, l.prefix+key).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis lock check %s: %w", key, err)
	}
	return true, nil
}

// Ensure RedisLocker implements Locker
var _ Locker = (*RedisLocker)(nil)
