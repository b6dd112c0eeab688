package service

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/prn-tf/jmrh-portal/internal/lock"
)

// Reloader re-reads persisted state.
type Reloader interface {
	Reload(ctx context.Context) error
}

// RefresherConfig contains snapshot refresh configuration.
type RefresherConfig struct {
	// Interval is how often to reload. Zero disables the refresher.
	Interval time.Duration

	// Snapshot is the snapshot name whose write lock is checked before reloading.
	Snapshot string
}

// Refresher periodically reloads the store so instances sharing a backend
// see each other's writes.
type Refresher struct {
	store  Reloader
	locker lock.Locker
	logger zerolog.Logger
	config RefresherConfig

	// Control
	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
	doneChan chan struct{}
}

// NewRefresher creates a new Refresher.
func NewRefresher(st Reloader, locker lock.Locker, logger zerolog.Logger, config RefresherConfig) *Refresher {
	if locker == nil {
		locker = lock.NewNoOpLocker()
	}
	return &Refresher{
		store:    st,
		locker:   locker,
		logger:   logger.With().Str("service", "refresher").Logger(),
		config:   config,
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}
}

// Start begins the refresh scheduler. It is a no-op when the interval is zero.
func (r *Refresher) Start() {
	if r.config.Interval <= 0 {
		return
	}

	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return
	}
	r.running = true
	r.mu.Unlock()

	r.logger.Info().Dur("interval", r.config.Interval).Msg("Starting snapshot refresher")

	go r.runLoop()
}

// Stop stops the refresh scheduler and waits for an in-flight reload.
func (r *Refresher) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	r.mu.Unlock()

	close(r.stopChan)
	<-r.doneChan

	r.logger.Info().Msg("Snapshot refresher stopped")
}

// runLoop is the main refresh loop.
func (r *Refresher) runLoop() {
	defer close(r.doneChan)

	ticker := time.NewTicker(r.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.RunOnce(context.Background())
		case <-r.stopChan:
			return
		}
	}
}

// RunOnce reloads the snapshot unless a write is in progress.
// It returns true if a reload happened.
func (r *Refresher) RunOnce(ctx context.Context) bool {
	if r.config.Snapshot != "" {
		held, err := r.locker.IsHeld(ctx, lock.Keys.Snapshot(r.config.Snapshot))
		if err != nil {
			r.logger.Warn().Err(err).Msg("Failed to check snapshot lock")
			return false
		}
		if held {
			r.logger.Debug().Msg("Snapshot write in progress, skipping reload")
			return false
		}
	}

	if err := r.store.Reload(ctx); err != nil {
		r.logger.Error().Err(err).Msg("Failed to reload snapshot")
		return false
	}
	return true
}
