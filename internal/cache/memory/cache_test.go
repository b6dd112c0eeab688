package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prn-tf/jmrh-portal/internal/repository"
)

type fakeClock struct {
	t time.Time
}

func (f *fakeClock) now() time.Time { return f.t }

func TestCache_SetGetExpire(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	c := newCache(clock.now)

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))

	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	// Returned slices are copies.
	got[0] = 'x'
	again, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), again)

	clock.t = clock.t.Add(2 * time.Minute)
	_, err = c.Get(ctx, "k")
	assert.ErrorIs(t, err, repository.ErrCacheMiss)

	c.cleanup()
	assert.Equal(t, 0, c.Len())
}

func TestCache_NoExpiryAndDelete(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Now()}
	c := newCache(clock.now)

	require.NoError(t, c.Set(ctx, "k", []byte("v"), 0))
	clock.t = clock.t.Add(24 * time.Hour)

	_, err := c.Get(ctx, "k")
	require.NoError(t, err)

	require.NoError(t, c.Delete(ctx, "k"))
	_, err = c.Get(ctx, "k")
	assert.ErrorIs(t, err, repository.ErrCacheMiss)
}

func TestCache_Stop(t *testing.T) {
	c := NewCache()
	c.Stop()
	c.Stop()
}
