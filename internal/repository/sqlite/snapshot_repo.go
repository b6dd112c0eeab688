package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/prn-tf/jmrh-portal/internal/repository"
)

// snapshotRepository implements repository.SnapshotRepository for SQLite.
type snapshotRepository struct {
	db *DB
}

// NewSnapshotRepository creates a new SQLite snapshot repository.
func NewSnapshotRepository(db *DB) repository.SnapshotRepository {
	return &snapshotRepository{db: db}
}

// Load returns the stored document for name.
func (r *snapshotRepository) Load(ctx context.Context, name string) ([]byte, error) {
	var data []byte
	err := r.db.db.QueryRowContext(ctx, `SELECT data FROM snapshots WHERE name = ?`, name).Scan(&data)
	if err != nil {
		if isNoRows(err) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}
	return data, nil
}

// Save replaces the stored document for name.
func (r *snapshotRepository) Save(ctx context.Context, name string, data []byte) error {
	query := `
		INSERT INTO snapshots (name, data, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (name) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at
	`

	_, err := r.db.db.ExecContext(ctx, query, name, data, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// Stat returns metadata about the stored document.
func (r *snapshotRepository) Stat(ctx context.Context, name string) (*repository.SnapshotInfo, error) {
	var (
		size      int64
		updatedAt string
	)
	err := r.db.db.QueryRowContext(ctx,
		`SELECT length(data), updated_at FROM snapshots WHERE name = ?`, name,
	).Scan(&size, &updatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to stat snapshot: %w", err)
	}

	ts, err := time.Parse(time.RFC3339Nano, updatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse snapshot timestamp: %w", err)
	}

	return &repository.SnapshotInfo{Name: name, Size: size, UpdatedAt: ts}, nil
}
