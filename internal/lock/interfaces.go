// Package lock provides distributed and local locking abstractions.
// For single-node deployments, memory-based locks are used.
// For deployments that share a snapshot between instances, Redis-based locks are used.
package lock

import (
	"context"
	"errors"
	"time"
)

// ErrNotAcquired is returned by WithLock when the lock stays busy after all retries.
var ErrNotAcquired = errors.New("lock not acquired")

// Locker defines the interface for distributed/local locking.
// This abstraction allows switching between in-memory locks (single-node)
// and Redis-based locks (distributed) without changing business logic.
type Locker interface {
	// Acquire attempts to acquire a lock.
	// Returns true if the lock was acquired, false if it's held by another process.
	// The lock will automatically expire after the specified TTL.
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// AcquireWithRetry attempts to acquire a lock with retries.
	// Will retry up to maxRetries times with retryDelay between attempts.
	AcquireWithRetry(ctx context.Context, key string, ttl time.Duration, maxRetries int, retryDelay time.Duration) (bool, error)

	// Release releases a lock.
	// Returns true if the lock was released, false if it wasn't held.
	Release(ctx context.Context, key string) (bool, error)

	// IsHeld checks if the lock is currently held.
	IsHeld(ctx context.Context, key string) (bool, error)
}

// Options controls how WithLock acquires its lock.
type Options struct {
	TTL        time.Duration
	MaxRetries int
	RetryDelay time.Duration
}

// DefaultOptions are used for snapshot writes.
var DefaultOptions = Options{
	TTL:        10 * time.Second,
	MaxRetries: 20,
	RetryDelay: 50 * time.Millisecond,
}

// WithLock runs fn while holding key. The lock is released even if fn fails.
func WithLock(ctx context.Context, l Locker, key string, opts Options, fn func(ctx context.Context) error) error {
	acquired, err := l.AcquireWithRetry(ctx, key, opts.TTL, opts.MaxRetries, opts.RetryDelay)
	if err != nil {
		return err
	}
	if !acquired {
		return ErrNotAcquired
	}
	defer func() {
		// Use a fresh context so a cancelled request still releases the lock.
		_, _ = l.Release(context.Background(), key)
	}()

	return fn(ctx)
}

// retry is the shared AcquireWithRetry loop.
func retry(ctx context.Context, acquire func() (bool, error), maxRetries int, retryDelay time.Duration) (bool, error) {
	for i := 0; i <= maxRetries; i++ {
		acquired, err := acquire()
		if err != nil {
			return false, err
		}
		if acquired {
			return true, nil
		}

		// Don't sleep on the last attempt.
		if i < maxRetries {
			select {
			case <-ctx.Done():
				return false, ctx.Err()
			case <-time.After(retryDelay):
			}
		}
	}
	return false, nil
}

// =============================================================================
// Common Lock Keys
// =============================================================================

// Keys provides lock key generation for common scenarios.
var Keys = lockKeys{}

type lockKeys struct{}

// Snapshot returns the lock key guarding writes of a named state snapshot.
func (lockKeys) Snapshot(name string) string {
	return "lock:snapshot:" + name
}

