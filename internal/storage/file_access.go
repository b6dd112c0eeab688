package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/prn-tf/jmrh-portal/internal/metrics"
	"github.com/prn-tf/jmrh-portal/internal/repository"
)

// cacheMargin is subtracted from the URL lifetime so a cached URL never
// expires in the visitor's hands right after being served.
const cacheMargin = time.Minute

// FileAccessConfig holds FileAccess settings.
type FileAccessConfig struct {
	// Bucket is used when callers pass an empty bucket.
	Bucket string

	// URLExpiration is the lifetime of download URLs. Default: 1h.
	URLExpiration time.Duration

	// UploadExpiration is the lifetime of upload URLs. Default: 15m.
	UploadExpiration time.Duration
}

// Upload describes a presigned manuscript upload.
type Upload struct {
	Key         string    `json:"key"`
	URL         string    `json:"url"`
	ContentType string    `json:"contentType"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// FileAccess resolves manuscript paths to URLs a browser can fetch.
type FileAccess struct {
	presigner Presigner
	cache     repository.Cache
	logger    zerolog.Logger
	config    FileAccessConfig
	metrics   *metrics.Metrics
	now       func() time.Time
	newID     func() string
}

// NewFileAccess creates a FileAccess. cache may be nil to disable caching.
func NewFileAccess(
	presigner Presigner,
	cache repository.Cache,
	logger zerolog.Logger,
	config FileAccessConfig,
	m *metrics.Metrics,
) *FileAccess {
	if presigner == nil {
		presigner = Disabled()
	}
	if config.URLExpiration <= 0 {
		config.URLExpiration = time.Hour
	}
	if config.UploadExpiration <= 0 {
		config.UploadExpiration = 15 * time.Minute
	}

	return &FileAccess{
		presigner: presigner,
		cache:     cache,
		logger:    logger.With().Str("component", "file_access").Logger(),
		config:    config,
		metrics:   m,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

func cacheKey(bucket, path string) string {
	return "signed-url:" + bucket + "/" + path
}

// ResolveURL returns a URL for path in bucket.
// A path that is already an http(s) URL is returned unchanged. Otherwise a
// presigned GET URL is returned, from the cache when possible. Failures are
// logged and yield "".
func (f *FileAccess) ResolveURL(ctx context.Context, bucket, path string) string {
	if path == "" {
		return ""
	}
	if IsURL(path) {
		f.metrics.RecordSignedURL("passthrough")
		return path
	}
	if bucket == "" {
		bucket = f.config.Bucket
	}

	key := cacheKey(bucket, path)
	if f.cache != nil {
		if cached, err := f.cache.Get(ctx, key); err == nil {
			f.metrics.RecordSignedURL("cache")
			return string(cached)
		} else if !errors.Is(err, repository.ErrCacheMiss) {
			f.logger.Warn().Err(err).Str("key", key).Msg("signed URL cache read failed")
		}
	}

	url, err := f.presigner.PresignGet(ctx, bucket, path, f.config.URLExpiration)
	if err != nil {
		f.metrics.RecordSignedURLFailure()
		f.logger.Error().Err(err).Str("bucket", bucket).Str("path", path).Msg("failed to sign manuscript URL")
		return ""
	}
	f.metrics.RecordSignedURL("presign")

	if ttl := f.config.URLExpiration - cacheMargin; f.cache != nil && ttl > 0 {
		if err := f.cache.Set(ctx, key, []byte(url), ttl); err != nil {
			f.logger.Warn().Err(err).Str("key", key).Msg("signed URL cache write failed")
		}
	}

	return url
}

// UploadURL presigns a PUT for a new manuscript of userID named filename.
func (f *FileAccess) UploadURL(ctx context.Context, userID, filename string) (*Upload, error) {
	contentType, err := ContentType(filename)
	if err != nil {
		return nil, err
	}

	now := f.now().UTC()
	key, err := ManuscriptKey(userID, filename, now, f.newID())
	if err != nil {
		return nil, err
	}

	url, err := f.presigner.PresignPut(ctx, f.config.Bucket, key, contentType, f.config.UploadExpiration)
	if err != nil {
		f.metrics.RecordSignedURLFailure()
		return nil, fmt.Errorf("failed to sign upload URL: %w", err)
	}

	f.logger.Debug().Str("user_id", userID).Str("key", key).Msg("issued upload URL")

	return &Upload{
		Key:         key,
		URL:         url,
		ContentType: contentType,
		ExpiresAt:   now.Add(f.config.UploadExpiration),
	}, nil
}
