// Package memory provides an in-process snapshot repository.
// Nothing survives a restart; it backs tests and throwaway demo instances.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/prn-tf/jmrh-portal/internal/repository"
)

type entry struct {
	data      []byte
	updatedAt time.Time
}

// SnapshotRepository implements repository.SnapshotRepository in memory.
type SnapshotRepository struct {
	mu      sync.RWMutex
	entries map[string]entry

	// FailSave, when set, is returned by Save. Tests use it to simulate a
	// broken backend.
	FailSave error
}

// NewSnapshotRepository creates an empty repository.
func NewSnapshotRepository() *SnapshotRepository {
	return &SnapshotRepository{entries: make(map[string]entry)}
}

// Load returns a copy of the stored document for name.
func (r *SnapshotRepository) Load(ctx context.Context, name string) ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[name]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := make([]byte, len(e.data))
	copy(out, e.data)
	return out, nil
}

// Save replaces the stored document for name.
func (r *SnapshotRepository) Save(ctx context.Context, name string, data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.FailSave != nil {
		return r.FailSave
	}

	buf := make([]byte, len(data))
	copy(buf, data)
	r.entries[name] = entry{data: buf, updatedAt: time.Now().UTC()}
	return nil
}

// Stat returns metadata about the stored document.
func (r *SnapshotRepository) Stat(ctx context.Context, name string) (*repository.SnapshotInfo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[name]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &repository.SnapshotInfo{Name: name, Size: int64(len(e.data)), UpdatedAt: e.updatedAt}, nil
}

// Ping always succeeds.
func (r *SnapshotRepository) Ping(ctx context.Context) error { return ctx.Err() }

// Health always succeeds.
func (r *SnapshotRepository) Health(ctx context.Context) error { return ctx.Err() }

// Close is a no-op.
func (r *SnapshotRepository) Close() error { return nil }

var (
	_ repository.SnapshotRepository = (*SnapshotRepository)(nil)
	_ repository.DatabaseHealth     = (*SnapshotRepository)(nil)
)
