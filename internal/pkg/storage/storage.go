package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

var ErrNotFound = errors.New("file not found")

// FileStorage keeps tick photos. Keys are slash separated and relative to the
// backend root (a directory or a bucket).
type FileStorage interface {
	// Upload stores the object and returns its key
	Upload(ctx context.Context, file io.Reader, size int64, key string, contentType string) (string, error)

	Download(ctx context.Context, key string) (io.ReadCloser, error)

	Delete(ctx context.Context, key string) error

	// GetURL returns a link valid for at least expiry. Local storage ignores expiry.
	GetURL(ctx context.Context, key string, expiry time.Duration) (string, error)

	Exists(ctx context.Context, key string) (bool, error)
}
