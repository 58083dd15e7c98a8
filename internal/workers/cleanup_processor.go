// internal/workers/cleanup_processor.go
package workers

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/ammerola/pos-ledger/internal/adapters/storage"
	"github.com/ammerola/pos-ledger/internal/core/ports"
)

// CleanupProcessor purges ingested uploads once they are past retention.
type CleanupProcessor struct {
	storage   ports.FileStorage
	retention time.Duration
	now       func() time.Time
	logger    *slog.Logger
}

// NewCleanupProcessor creates a new cleanup processor
func NewCleanupProcessor(fileStorage ports.FileStorage, retention time.Duration, logger *slog.Logger) *CleanupProcessor {
	return &CleanupProcessor{
		storage:   fileStorage,
		retention: retention,
		now:       time.Now,
		logger:    logger.With(slog.String("processor", "cleanup")),
	}
}

// WithClock replaces the time source.
func (p *CleanupProcessor) WithClock(now func() time.Time) *CleanupProcessor {
	p.now = now
	return p
}

// CleanupUploads handles TypeCleanupUploads. Failed deletes are logged and
// retried on the next run.
func (p *CleanupProcessor) CleanupUploads(ctx context.Context, t *asynq.Task) error {
	p.logger.InfoContext(ctx, "cleaning up uploads")

	objects, err := p.storage.List(ctx, storage.UploadPrefix)
	if err != nil {
		return fmt.Errorf("failed to list uploads: %w", err)
	}

	cutoff := p.now().Add(-p.retention)
	var deleted int
	for _, obj := range objects {
		if !obj.LastModified.Before(cutoff) {
			continue
		}
		if err := p.storage.Delete(ctx, obj.Key); err != nil {
			p.logger.WarnContext(ctx, "failed to delete upload",
				slog.String("key", obj.Key),
				slog.String("error", err.Error()))
			continue
		}
		deleted++
	}

	p.logger.InfoContext(ctx, "uploads cleaned up",
		slog.Int("scanned", len(objects)),
		slog.Int("files_deleted", deleted))
	return nil
}
