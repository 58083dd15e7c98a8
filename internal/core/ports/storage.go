// internal/core/ports/storage.go
package ports

import (
	"context"
	"io"
	"time"
)

// ObjectInfo describes a stored upload.
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// FileStorage keeps uploaded spreadsheets until a worker has ingested them.
type FileStorage interface {
	Upload(ctx context.Context, key string, data io.Reader, contentType string) (string, error)
	Download(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
	Exists(ctx context.Context, key string) (bool, error)
}
