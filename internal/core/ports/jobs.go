// internal/core/ports/jobs.go
package ports

import (
	"context"

	"github.com/ammerola/pos-ledger/internal/core/domain"
)

// JobQueue hands ingestion work to the background workers.
type JobQueue interface {
	EnqueueImport(ctx context.Context, job domain.ImportJob) (string, error)
	EnqueueCounterReconcile(ctx context.Context) (string, error)
	Status(ctx context.Context, id string) (*domain.JobStatus, error)
}
