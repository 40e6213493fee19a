package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/feastro/apiserver/config"
)

// ErrNoBackend is returned by New when STORAGE_BACKEND is "none".
var ErrNoBackend = errors.New("storage backend not configured")

// Video object keys embed a fresh uuid and are never overwritten.
const immutableCacheControl = "public, max-age=31536000, immutable"

// partSize bounds the memory used per in-flight upload chunk.
const partSize = 16 << 20

// ObjectStorage defines common object operations across backends.
type ObjectStorage interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, key string) error
	// URL returns the direct public URL of key.
	URL(key string) string
	Bucket() string
}

// Storage wraps an ObjectStorage backend and rewrites public URLs onto the
// CDN when one is configured.
type Storage struct {
	backend ObjectStorage
	cdnURL  string
}

// NewStorage constructs a Storage wrapper for the provided backend.
func NewStorage(backend ObjectStorage, cdnURL string) *Storage {
	return &Storage{
		backend: backend,
		cdnURL:  strings.TrimRight(strings.TrimSpace(cdnURL), "/"),
	}
}

// New builds the backend selected by cfg.Backend and makes sure its bucket
// exists.
func New(ctx context.Context, cfg config.StorageConfig) (*Storage, error) {
	var backend ObjectStorage
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", "none":
		return nil, ErrNoBackend
	case "minio":
		client, err := NewMinioClient(cfg.Minio)
		if err != nil {
			return nil, err
		}
		backend = client
	case "gcs":
		client, err := NewGCSClient(ctx, cfg.GCS)
		if err != nil {
			return nil, err
		}
		backend = client
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}

	if err := backend.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("ensure bucket %s: %w", backend.Bucket(), err)
	}
	return NewStorage(backend, cfg.CDNURL), nil
}

// Put uploads an object to the configured bucket.
func (s *Storage) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	return s.backend.Put(ctx, key, r, size, contentType)
}

// Delete removes an object from the configured bucket.
func (s *Storage) Delete(ctx context.Context, key string) error {
	return s.backend.Delete(ctx, key)
}

// PublicURL returns the URL clients should use to fetch key.
func (s *Storage) PublicURL(key string) string {
	if s.cdnURL != "" {
		return s.cdnURL + "/" + strings.TrimLeft(key, "/")
	}
	return s.backend.URL(key)
}
