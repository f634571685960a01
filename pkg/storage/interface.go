package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

var (
	ErrNotFound             = errors.New("object not found")
	ErrUploadURLUnsupported = errors.New("presigned upload not supported by this storage driver")
)

// Storage defines the interface for media object storage.
type Storage interface {
	// Write stores content from the reader with the given key.
	// The size parameter is the expected content size (-1 if unknown).
	Write(ctx context.Context, key string, r io.Reader, size int64, contentType string) error

	// Read retrieves content for the given key. The caller closes the reader.
	Read(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes the content with the given key. Missing keys are not an error.
	Delete(ctx context.Context, key string) error

	// Exists checks if content with the given key exists.
	Exists(ctx context.Context, key string) (bool, error)

	// PublicURL returns the stable URL clients use to fetch the object.
	PublicURL(key string) string

	// GetUploadURL returns a presigned PUT URL for direct client upload.
	GetUploadURL(ctx context.Context, key, contentType string, expires time.Duration) (string, error)
}

// Config selects the storage driver.
type Config struct {
	Driver string      `mapstructure:"driver"` // "local", "s3"
	Local  LocalConfig `mapstructure:"local"`
	S3     S3Config    `mapstructure:"s3"`
}

// New creates the configured Storage.
func New(ctx context.Context, cfg Config) (Storage, error) {
	switch cfg.Driver {
	case "s3":
		return NewS3Storage(ctx, cfg.S3)
	default:
		return NewLocalStorage(cfg.Local)
	}
}
