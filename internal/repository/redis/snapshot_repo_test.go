package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prn-tf/jmrh-portal/internal/repository"
)

func TestSnapshotRepository(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	repo := NewSnapshotRepository(client, "jmrh:")

	_, err := repo.Load(ctx, "portal")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = repo.Stat(ctx, "portal")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	doc := []byte(`{"users":[],"papers":[],"currentUser":null}`)
	require.NoError(t, repo.Save(ctx, "portal", doc))
	assert.True(t, mr.Exists("jmrh:snapshot:portal"))

	data, err := repo.Load(ctx, "portal")
	require.NoError(t, err)
	assert.Equal(t, doc, data)

	info, err := repo.Stat(ctx, "portal")
	require.NoError(t, err)
	assert.Equal(t, int64(len(doc)), info.Size)
	assert.False(t, info.UpdatedAt.IsZero())
}
