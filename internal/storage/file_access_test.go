package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prn-tf/jmrh-portal/internal/cache/memory"
	"github.com/prn-tf/jmrh-portal/internal/metrics"
)

// MockPresigner is a mock implementation of Presigner.
type MockPresigner struct {
	GetCalls int
	PutCalls int
	Err      error
	LastPut  struct{ Bucket, Key, ContentType string }
}

func (m *MockPresigner) PresignGet(ctx context.Context, bucket, key string, expires time.Duration) (string, error) {
	m.GetCalls++
	if m.Err != nil {
		return "", m.Err
	}
	return "https://s3.example/" + bucket + "/" + key + "?X-Amz-Expires=" + expires.String(), nil
}

func (m *MockPresigner) PresignPut(ctx context.Context, bucket, key, contentType string, expires time.Duration) (string, error) {
	m.PutCalls++
	m.LastPut.Bucket, m.LastPut.Key, m.LastPut.ContentType = bucket, key, contentType
	if m.Err != nil {
		return "", m.Err
	}
	return "https://s3.example/" + bucket + "/" + key + "?put", nil
}

func newTestFileAccess(p Presigner) (*FileAccess, *memory.Cache, *metrics.Metrics) {
	c := memory.NewCache()
	m := metrics.New(prometheus.NewRegistry())
	fa := NewFileAccess(p, c, zerolog.Nop(), FileAccessConfig{Bucket: "manuscripts"}, m)
	return fa, c, m
}

func TestResolveURL_PassThrough(t *testing.T) {
	p := &MockPresigner{}
	fa, c, _ := newTestFileAccess(p)
	defer c.Stop()

	for _, u := range []string{"https://cdn.example/paper.pdf", "HTTP://legacy.example/x.pdf"} {
		assert.Equal(t, u, fa.ResolveURL(context.Background(), "", u))
	}
	assert.Zero(t, p.GetCalls)
	assert.Empty(t, fa.ResolveURL(context.Background(), "", ""))
}

func TestResolveURL_CachesSignedURL(t *testing.T) {
	ctx := context.Background()
	p := &MockPresigner{}
	fa, c, m := newTestFileAccess(p)
	defer c.Stop()

	first := fa.ResolveURL(ctx, "", "manuscripts/u1/2026/05/a.pdf")
	second := fa.ResolveURL(ctx, "", "manuscripts/u1/2026/05/a.pdf")

	assert.Equal(t, "https://s3.example/manuscripts/manuscripts/u1/2026/05/a.pdf?X-Amz-Expires=1h0m0s", first)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, p.GetCalls)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SignedURLs.WithLabelValues("cache")))

	// Buckets are part of the cache key.
	_ = fa.ResolveURL(ctx, "archive", "manuscripts/u1/2026/05/a.pdf")
	assert.Equal(t, 2, p.GetCalls)
}

func TestResolveURL_FailureYieldsEmpty(t *testing.T) {
	p := &MockPresigner{Err: errors.New("access denied")}
	fa, c, m := newTestFileAccess(p)
	defer c.Stop()

	assert.Empty(t, fa.ResolveURL(context.Background(), "", "manuscripts/u1/a.pdf"))
	assert.Equal(t, 0, c.Len(), "failures are not cached")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SignedURLFailures))
}

func TestResolveURL_Disabled(t *testing.T) {
	fa := NewFileAccess(nil, nil, zerolog.Nop(), FileAccessConfig{}, nil)
	assert.Empty(t, fa.ResolveURL(context.Background(), "", "manuscripts/u1/a.pdf"))
}

func TestUploadURL(t *testing.T) {
	p := &MockPresigner{}
	fa, c, _ := newTestFileAccess(p)
	defer c.Stop()
	fa.now = func() time.Time { return time.Date(2026, 5, 4, 0, 0, 0, 0, time.UTC) }
	fa.newID = func() string { return "abc" }

	up, err := fa.UploadURL(context.Background(), "u1", "My Paper.PDF")
	require.NoError(t, err)
	assert.Equal(t, "manuscripts/u1/2026/05/abc.pdf", up.Key)
	assert.Equal(t, "application/pdf", up.ContentType)
	assert.Equal(t, "manuscripts", p.LastPut.Bucket)
	assert.Equal(t, up.Key, p.LastPut.Key)
	assert.Equal(t, time.Date(2026, 5, 4, 0, 15, 0, 0, time.UTC), up.ExpiresAt)
	assert.True(t, OwnedBy(up.Key, "u1"))
	assert.False(t, OwnedBy(up.Key, "u2"))

	_, err = fa.UploadURL(context.Background(), "u1", "virus.exe")
	assert.ErrorIs(t, err, ErrUnsupportedFile)
}
