// internal/workers/queue.go
package workers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/ammerola/pos-ledger/internal/core/domain"
	"github.com/ammerola/pos-ledger/internal/core/ports"
)

// Queue enqueues ingestion tasks and reports their progress.
type Queue struct {
	client    *asynq.Client
	inspector *asynq.Inspector
	timeout   time.Duration
	maxRetry  int
	logger    *slog.Logger
}

var _ ports.JobQueue = (*Queue)(nil)

// NewQueue connects a client and an inspector to the asynq Redis.
func NewQueue(opt asynq.RedisConnOpt, timeout time.Duration, maxRetry int, logger *slog.Logger) *Queue {
	return &Queue{
		client:    asynq.NewClient(opt),
		inspector: asynq.NewInspector(opt),
		timeout:   timeout,
		maxRetry:  maxRetry,
		logger:    logger.With(slog.String("component", "job_queue")),
	}
}

// EnqueueImport queues job and returns its task ID.
func (q *Queue) EnqueueImport(ctx context.Context, job domain.ImportJob) (string, error) {
	if job.JobID == "" {
		job.JobID = uuid.NewString()
	}
	task, err := NewImportTask(job, q.timeout, q.maxRetry)
	if err != nil {
		return "", err
	}

	info, err := q.client.EnqueueContext(ctx, task)
	if err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) {
			return "", domain.NewConflictError("job", fmt.Sprintf("job %s already queued", job.JobID))
		}
		return "", fmt.Errorf("failed to enqueue import: %w", err)
	}

	q.logger.InfoContext(ctx, "import enqueued",
		slog.String("job_id", info.ID),
		slog.String("type", info.Type),
		slog.String("object_key", job.ObjectKey))
	return info.ID, nil
}

func (q *Queue) EnqueueCounterReconcile(ctx context.Context) (string, error) {
	info, err := q.client.EnqueueContext(ctx, NewCounterReconcileTask())
	if err != nil {
		if errors.Is(err, asynq.ErrDuplicateTask) {
			return "", domain.NewConflictError("job", "counter reconcile already queued")
		}
		return "", fmt.Errorf("failed to enqueue counter reconcile: %w", err)
	}
	q.logger.InfoContext(ctx, "counter reconcile enqueued", slog.String("job_id", info.ID))
	return info.ID, nil
}

// Status looks the task up in every known queue.
func (q *Queue) Status(ctx context.Context, id string) (*domain.JobStatus, error) {
	for _, queue := range Queues {
		info, err := q.inspector.GetTaskInfo(queue, id)
		if errors.Is(err, asynq.ErrQueueNotFound) || errors.Is(err, asynq.ErrTaskNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to inspect task: %w", err)
		}
		return statusFromInfo(info), nil
	}
	return nil, domain.NewNotFoundError("job", id)
}

// Close releases the Redis connections.
func (q *Queue) Close() error {
	return errors.Join(q.client.Close(), q.inspector.Close())
}

func statusFromInfo(info *asynq.TaskInfo) *domain.JobStatus {
	return &domain.JobStatus{
		ID:        info.ID,
		Type:      info.Type,
		Queue:     info.Queue,
		State:     info.State.String(),
		Retried:   info.Retried,
		LastError: info.LastErr,
		Result:    info.Result,
	}
}
