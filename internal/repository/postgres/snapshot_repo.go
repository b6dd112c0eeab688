package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/prn-tf/jmrh-portal/internal/repository"
)

// snapshotRepository implements repository.SnapshotRepository.
type snapshotRepository struct {
	db *DB
}

// NewSnapshotRepository creates a new PostgreSQL snapshot repository.
func NewSnapshotRepository(db *DB) repository.SnapshotRepository {
	return &snapshotRepository{db: db}
}

// Load returns the stored document for name.
func (r *snapshotRepository) Load(ctx context.Context, name string) ([]byte, error) {
	var data []byte
	err := r.db.Pool.QueryRow(ctx, `SELECT data FROM snapshots WHERE name = $1`, name).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}
	return data, nil
}

// Save replaces the stored document for name.
func (r *snapshotRepository) Save(ctx context.Context, name string, data []byte) error {
	// Use PostgreSQL's INSERT ... ON CONFLICT DO UPDATE for atomic upsert
	query := `
		INSERT INTO snapshots (name, data, updated_at)
		VALUES ($1, $2::jsonb, now())
		ON CONFLICT (name) DO UPDATE
		SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at
	`

	if _, err := r.db.Pool.Exec(ctx, query, name, string(data)); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// Stat returns metadata about the stored document.
func (r *snapshotRepository) Stat(ctx context.Context, name string) (*repository.SnapshotInfo, error) {
	info := &repository.SnapshotInfo{Name: name}
	err := r.db.Pool.QueryRow(ctx,
		`SELECT octet_length(data::text), updated_at FROM snapshots WHERE name = $1`, name,
	).Scan(&info.Size, &info.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to stat snapshot: %w", err)
	}
	return info, nil
}
