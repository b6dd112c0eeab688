// Package factory opens the snapshot backend and locker selected by configuration.
package factory

import (
	"context"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/prn-tf/jmrh-portal/internal/config"
	"github.com/prn-tf/jmrh-portal/internal/lock"
	"github.com/prn-tf/jmrh-portal/internal/repository"
	"github.com/prn-tf/jmrh-portal/internal/repository/memory"
	"github.com/prn-tf/jmrh-portal/internal/repository/postgres"
	redisrepo "github.com/prn-tf/jmrh-portal/internal/repository/redis"
	"github.com/prn-tf/jmrh-portal/internal/repository/sqlite"
)

// Backend bundles everything the store needs from the persistence layer.
type Backend struct {
	// Driver is the configured database driver.
	Driver string

	// Snapshots persists the portal state.
	Snapshots repository.SnapshotRepository

	// Database is used by health checks.
	Database repository.DatabaseHealth

	// Locker serializes snapshot writes. Redis-backed when Redis is reachable.
	Locker lock.Locker

	closers []func() error
}

// Close releases every connection opened by Open.
func (b *Backend) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Open connects the configured backend and applies its migrations.
func Open(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*Backend, error) {
	b := &Backend{Driver: cfg.Database.Driver}

	var redisClient *redisrepo.Client
	if cfg.Redis.Enabled || cfg.Database.Driver == "redis" {
		c, err := redisrepo.NewClient(ctx, cfg.Redis, logger)
		if err != nil {
			return nil, err
		}
		redisClient = c
		b.closers = append(b.closers, c.Close)
	}

	switch cfg.Database.Driver {
	case "sqlite":
		db, err := sqlite.NewDB(ctx, sqlite.ConfigFrom(cfg.Database), logger)
		if err != nil {
			_ = b.Close()
			return nil, err
		}
		b.closers = append(b.closers, db.Close)
		if err := db.Migrate(ctx); err != nil {
			_ = b.Close()
			return nil, fmt.Errorf("sqlite migrations: %w", err)
		}
		b.Snapshots = sqlite.NewSnapshotRepository(db)
		b.Database = db

	case "postgres":
		db, err := postgres.NewDB(ctx, cfg.Database, logger)
		if err != nil {
			_ = b.Close()
			return nil, err
		}
		b.closers = append(b.closers, db.Close)
		if err := db.Migrate(ctx); err != nil {
			_ = b.Close()
			return nil, fmt.Errorf("postgres migrations: %w", err)
		}
		b.Snapshots = postgres.NewSnapshotRepository(db)
		b.Database = db

	case "redis":
		b.Snapshots = redisrepo.NewSnapshotRepository(redisClient.Redis(), cfg.Redis.KeyPrefix)
		b.Database = redisClient

	case "memory":
		repo := memory.NewSnapshotRepository()
		b.Snapshots = repo
		b.Database = repo

	default:
		_ = b.Close()
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}

	b.Locker = NewLocker(redisClientOrNil(redisClient), cfg.Redis.KeyPrefix)

	logger.Info().
		Str("driver", b.Driver).
		Str("snapshot", cfg.Database.Snapshot).
		Bool("distributed_lock", redisClient != nil).
		Msg("snapshot backend ready")

	return b, nil
}

// NewLocker returns a Redis locker when a client is given, else an in-memory one.
func NewLocker(client goredis.UniversalClient, prefix string) lock.Locker {
	if client == nil {
		return lock.NewMemoryLocker()
	}
	return lock.NewRedisLocker(client, prefix)
}

func redisClientOrNil(c *redisrepo.Client) goredis.UniversalClient {
	if c == nil {
		return nil
	}
	return c.Redis()
}
