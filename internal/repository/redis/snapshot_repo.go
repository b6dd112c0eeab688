// Package redis provides a Redis-backed snapshot repository.
// It lets several portal instances share one state document.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/prn-tf/jmrh-portal/internal/config"
	"github.com/prn-tf/jmrh-portal/internal/repository"
)

// Client wraps a go-redis client with health checks.
type Client struct {
	rdb    goredis.UniversalClient
	logger zerolog.Logger
}

// NewClient connects to Redis and verifies the connection.
func NewClient(ctx context.Context, cfg config.RedisConfig, logger zerolog.Logger) (*Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        cfg.Addr(),
		Password:    cfg.Password,
		DB:          cfg.DB,
		PoolSize:    cfg.PoolSize,
		DialTimeout: cfg.DialTimeout,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	logger.Info().
		Str("addr", cfg.Addr()).
		Int("db", cfg.DB).
		Msg("connected to Redis")

	return &Client{rdb: rdb, logger: logger}, nil
}

// Redis returns the underlying client for repositories and lockers.
func (c *Client) Redis() goredis.UniversalClient {
	return c.rdb
}

// Ping checks the connection.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Health checks the connection health.
func (c *Client) Health(ctx context.Context) error {
	return c.Ping(ctx)
}

// Close closes the client.
func (c *Client) Close() error {
	c.logger.Info().Msg("closing Redis connection")
	return c.rdb.Close()
}

// snapshotRepository stores each snapshot as a hash {data, updated_at}.
type snapshotRepository struct {
	client goredis.UniversalClient
	prefix string
}

// NewSnapshotRepository creates a Redis snapshot repository.
// Keys are "<prefix>snapshot:<name>".
func NewSnapshotRepository(client goredis.UniversalClient, prefix string) repository.SnapshotRepository {
	return &snapshotRepository{client: client, prefix: prefix}
}

func (r *snapshotRepository) key(name string) string {
	return r.prefix + "snapshot:" + name
}

// Load returns the stored document for name.
func (r *snapshotRepository) Load(ctx context.Context, name string) ([]byte, error) {
	data, err := r.client.HGet(ctx, r.key(name), "data").Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}
	return data, nil
}

// Save replaces the stored document for name.
func (r *snapshotRepository) Save(ctx context.Context, name string, data []byte) error {
	err := r.client.HSet(ctx, r.key(name),
		"data", data,
		"updated_at", strconv.FormatInt(time.Now().UTC().UnixNano(), 10),
	).Err()
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// Stat returns metadata about the stored document.
func (r *snapshotRepository) Stat(ctx context.Context, name string) (*repository.SnapshotInfo, error) {
	key := r.key(name)

	pipe := r.client.Pipeline()
	size := pipe.HStrLen(ctx, key, "data")
	updated := pipe.HGet(ctx, key, "updated_at")
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, goredis.Nil) {
		return nil, fmt.Errorf("failed to stat snapshot: %w", err)
	}

	ts, err := updated.Int64()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to stat snapshot: %w", err)
	}

	return &repository.SnapshotInfo{
		Name:      name,
		Size:      size.Val(),
		UpdatedAt: time.Unix(0, ts).UTC(),
	}, nil
}

// Ensure Client satisfies the health interface.
var _ repository.DatabaseHealth = (*Client)(nil)
