package storage

import (
	"context"
	"io"
)

// ObjectStorage is the subset of an S3-style bucket used to publish job outputs.
type ObjectStorage interface {
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error

	// GetURL returns the public URL for key.
	GetURL(key string) string

	Delete(ctx context.Context, key string) error

	Exists(ctx context.Context, key string) (bool, error)

	// EnsureBucket checks the bucket is reachable, creating it where allowed.
	EnsureBucket(ctx context.Context) error
}
