// Package archive persists snapshots of committed weekly schedules to a
// storage backend, one CSV plus manifest per generation run. Snapshots are
// the audit trail for "what did the system schedule that week"; losing one
// costs a log line, never a generation run.
package archive

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/plantops/pmsched/internal/config"
)

var (
	ErrNotFound      = errors.New("archive object not found")
	ErrInvalidConfig = errors.New("invalid archive configuration")
)

// Backend stores and retrieves archive objects by key.
type Backend interface {
	Put(ctx context.Context, key string, r io.Reader) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// NewBackend builds the configured storage backend.
func NewBackend(ctx context.Context, cfg *config.ArchiveConfig) (Backend, error) {
	switch cfg.Backend {
	case "filesystem":
		if cfg.Filesystem == nil || cfg.Filesystem.Path == "" {
			return nil, fmt.Errorf("%w: filesystem backend requires a path", ErrInvalidConfig)
		}
		return NewFilesystemBackend(cfg.Filesystem.Path), nil
	case "s3":
		if cfg.S3 == nil {
			return nil, fmt.Errorf("%w: s3 backend requires credentials", ErrInvalidConfig)
		}
		return NewS3Backend(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("%w: unknown backend type %q", ErrInvalidConfig, cfg.Backend)
	}
}
