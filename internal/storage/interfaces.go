// Package storage gives the portal access to uploaded manuscripts.
// Manuscripts live in an S3-compatible bucket. The portal never proxies file
// bytes: it hands out short-lived presigned URLs for downloads and uploads.
package storage

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrStorageDisabled is returned when no bucket is configured.
	ErrStorageDisabled = errors.New("object storage is not configured")

	// ErrUnsupportedFile is returned for manuscript types the journal does not accept.
	ErrUnsupportedFile = errors.New("unsupported manuscript file type")
)

// Presigner creates time-limited URLs for objects.
// Implementations include S3Presigner and test doubles.
type Presigner interface {
	// PresignGet returns a URL that downloads bucket/key until expires elapses.
	PresignGet(ctx context.Context, bucket, key string, expires time.Duration) (string, error)

	// PresignPut returns a URL that uploads bucket/key with contentType.
	PresignPut(ctx context.Context, bucket, key, contentType string, expires time.Duration) (string, error)
}

// disabledPresigner fails every call with ErrStorageDisabled.
type disabledPresigner struct{}

func (disabledPresigner) PresignGet(ctx context.Context, bucket, key string, expires time.Duration) (string, error) {
	return "", ErrStorageDisabled
}

func (disabledPresigner) PresignPut(ctx context.Context, bucket, key, contentType string, expires time.Duration) (string, error) {
	return "", ErrStorageDisabled
}

// Disabled returns a Presigner for deployments without object storage.
func Disabled() Presigner {
	return disabledPresigner{}
}
