// Package main is the entry point for the JMRH database migration tool.
// This tool manages the SQLite and PostgreSQL snapshot schemas.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/prn-tf/jmrh-portal/internal/config"
	"github.com/prn-tf/jmrh-portal/internal/repository"
	"github.com/prn-tf/jmrh-portal/internal/repository/postgres"
	"github.com/prn-tf/jmrh-portal/internal/repository/sqlite"
)

// Version information (set at build time)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	_ = godotenv.Load()

	command := os.Args[1]

	var err error
	switch command {
	case "version":
		fmt.Printf("JMRH Migration Tool\n")
		fmt.Printf("Version: %s\n", Version)
		fmt.Printf("Build Time: %s\n", BuildTime)
		fmt.Printf("Git Commit: %s\n", GitCommit)

	case "up":
		err = withDatabase(os.Args[2:], migrateUp)

	case "status":
		err = withDatabase(os.Args[2:], status)

	case "help", "-h", "--help":
		printUsage()

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// database is the schema-carrying backend selected by database.driver.
type database struct {
	driver    string
	snapshot  string
	sqlite    *sqlite.DB
	postgres  *postgres.DB
	snapshots repository.SnapshotRepository
}

func withDatabase(args []string, fn func(ctx context.Context, db *database) error) error {
	fs := flag.NewFlagSet("jmrh-migrate", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to config file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Str("component", "migrate").Logger()

	ctx := context.Background()
	db := &database{driver: cfg.Database.Driver, snapshot: cfg.Database.Snapshot}

	switch cfg.Database.Driver {
	case "sqlite":
		conn, err := sqlite.NewDB(ctx, sqlite.ConfigFrom(cfg.Database), logger)
		if err != nil {
			return err
		}
		defer conn.Close()
		db.sqlite = conn
		db.snapshots = sqlite.NewSnapshotRepository(conn)

	case "postgres":
		conn, err := postgres.NewDB(ctx, cfg.Database, logger)
		if err != nil {
			return err
		}
		defer conn.Close()
		db.postgres = conn
		db.snapshots = postgres.NewSnapshotRepository(conn)

	default:
		fmt.Printf("Driver %q has no schema to migrate\n", cfg.Database.Driver)
		return nil
	}

	return fn(ctx, db)
}

func migrateUp(ctx context.Context, db *database) error {
	if db.sqlite != nil {
		if err := db.sqlite.Migrate(ctx); err != nil {
			return err
		}
		v, err := db.sqlite.Version(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("SQLite schema at version %d\n", v)
		return nil
	}

	if err := db.postgres.Migrate(ctx); err != nil {
		return err
	}
	fmt.Println("PostgreSQL schema up to date")
	return nil
}

func status(ctx context.Context, db *database) error {
	fmt.Printf("Driver:   %s\n", db.driver)

	if db.sqlite != nil {
		v, err := db.sqlite.Version(ctx)
		if err != nil {
			return err
		}
		pending, err := db.sqlite.Pending(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Version:  %d\n", v)
		fmt.Printf("Pending:  %d\n", pending)
	}

	info, err := db.snapshots.Stat(ctx, db.snapshot)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		fmt.Printf("Snapshot: %s (not saved yet)\n", db.snapshot)
	case err != nil:
		// The table may not exist before the first migration.
		fmt.Printf("Snapshot: %s (unavailable: %v)\n", db.snapshot, err)
	default:
		fmt.Printf("Snapshot: %s, %d bytes", info.Name, info.Size)
		if !info.UpdatedAt.IsZero() {
			fmt.Printf(", updated %s", info.UpdatedAt.Format(time.RFC3339))
		}
		fmt.Println()
	}
	return nil
}

func printUsage() {
	fmt.Println(`JMRH Migration Tool

Usage:
  jmrh-migrate <command> [--config path]

Commands:
  up          Apply pending schema migrations
  status      Show schema version and snapshot metadata
  version     Print version information
  help        Show this help message

The backend is selected by database.driver (JMRH_DATABASE_DRIVER).
Redis and memory backends have no schema.

Examples:
  jmrh-migrate up
  jmrh-migrate status --config ./configs/config.yaml`)
}
