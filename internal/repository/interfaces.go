// Package repository defines data access interfaces for the JMRH portal.
// These interfaces abstract the snapshot backends (SQLite, PostgreSQL, Redis,
// in-memory for testing) while keeping the store layer clean.
package repository

import (
	"context"
	"time"
)

// =============================================================================
// Snapshot Repository
// =============================================================================

// SnapshotRepository persists named state blobs.
// The portal keeps its whole state (users, papers, current user) in a single
// JSON document that is read on start and overwritten after every mutation.
type SnapshotRepository interface {
	// Load returns the blob stored under name.
	// Returns ErrNotFound if nothing has been saved yet.
	Load(ctx context.Context, name string) ([]byte, error)

	// Save replaces the blob stored under name.
	Save(ctx context.Context, name string, data []byte) error

	// Stat returns metadata about the stored blob.
	// Returns ErrNotFound if nothing has been saved yet.
	Stat(ctx context.Context, name string) (*SnapshotInfo, error)
}

// SnapshotInfo describes a stored snapshot.
type SnapshotInfo struct {
	// Name is the snapshot key.
	Name string

	// Size is the blob size in bytes.
	Size int64

	// UpdatedAt is when the blob was last saved.
	// Zero for backends that do not track it.
	UpdatedAt time.Time
}

// DatabaseHealth is an interface for backend health checks.
type DatabaseHealth interface {
	Ping(ctx context.Context) error
	Health(ctx context.Context) error
	Close() error
}
