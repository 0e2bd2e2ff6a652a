package storage

import (
	"context"
	"errors"
	"strings"
	"time"
)

// ObjectStorage defines the object operations the upload flow needs from a
// backend: clients upload directly with a presigned URL.
type ObjectStorage interface {
	EnsureBucket(ctx context.Context) error
	PresignPut(ctx context.Context, key, contentType string, expiry time.Duration) (string, error)
	Bucket() string
}

// Storage wraps an ObjectStorage backend with a stable API.
type Storage struct {
	backend ObjectStorage
}

// NewStorage constructs a Storage wrapper for the provided backend.
func NewStorage(backend ObjectStorage) *Storage {
	return &Storage{backend: backend}
}

// EnsureBucket ensures the configured bucket exists.
func (s *Storage) EnsureBucket(ctx context.Context) error {
	return s.backend.EnsureBucket(ctx)
}

// PresignPut returns a URL that accepts a single PUT of key until expiry.
func (s *Storage) PresignPut(ctx context.Context, key, contentType string, expiry time.Duration) (string, error) {
	key = strings.TrimPrefix(strings.TrimSpace(key), "/")
	if key == "" {
		return "", errors.New("object key is required")
	}
	if expiry <= 0 {
		return "", errors.New("presign expiry must be positive")
	}
	return s.backend.PresignPut(ctx, key, contentType, expiry)
}

// Bucket returns the configured bucket name.
func (s *Storage) Bucket() string {
	return s.backend.Bucket()
}
