// internal/workers/tasks.go
package workers

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/ammerola/pos-ledger/internal/core/domain"
)

const (
	TypeCatalogImport     = "catalog:import"
	TypeCatalogImportPDF  = "catalog:import_pdf"
	TypeSalesImport       = "sales:import"
	TypeCountersReconcile = "counters:reconcile"
	TypeCleanupUploads    = "cleanup:uploads"
)

const (
	QueueCritical = "critical"
	QueueDefault  = "default"
	QueueLow      = "low"
)

// Queues lists every queue tasks are enqueued on, highest priority first.
var Queues = []string{QueueCritical, QueueDefault, QueueLow}

// resultRetention keeps finished import tasks visible to the status endpoint.
const resultRetention = 24 * time.Hour

// TaskTypeFor maps an import kind to its task type.
func TaskTypeFor(kind domain.ImportKind) (string, error) {
	switch kind {
	case domain.ImportCatalog:
		return TypeCatalogImport, nil
	case domain.ImportCatalogPDF:
		return TypeCatalogImportPDF, nil
	case domain.ImportSales:
		return TypeSalesImport, nil
	default:
		return "", domain.NewValidationError("kind", fmt.Sprintf("unknown import kind %q", kind))
	}
}

// NewImportTask builds the task that ingests an uploaded file. The job ID
// doubles as the task ID so a job is never queued twice.
func NewImportTask(job domain.ImportJob, timeout time.Duration, maxRetry int) (*asynq.Task, error) {
	taskType, err := TaskTypeFor(job.Kind)
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal import payload: %w", err)
	}

	opts := []asynq.Option{
		asynq.Queue(QueueDefault),
		asynq.MaxRetry(maxRetry),
		asynq.Retention(resultRetention),
	}
	if job.JobID != "" {
		opts = append(opts, asynq.TaskID(job.JobID))
	}
	if timeout > 0 {
		opts = append(opts, asynq.Timeout(timeout))
	}
	return asynq.NewTask(taskType, payload, opts...), nil
}

// NewCounterReconcileTask builds the periodic counter rebuild task.
func NewCounterReconcileTask() *asynq.Task {
	return asynq.NewTask(TypeCountersReconcile, nil,
		asynq.Queue(QueueCritical),
		asynq.MaxRetry(3),
		asynq.Unique(5*time.Minute),
		asynq.Retention(time.Hour))
}

// NewCleanupTask builds the upload purge task.
func NewCleanupTask() *asynq.Task {
	return asynq.NewTask(TypeCleanupUploads, nil, asynq.Queue(QueueLow), asynq.MaxRetry(1))
}

func decodeImportJob(t *asynq.Task) (domain.ImportJob, error) {
	var job domain.ImportJob
	if err := json.Unmarshal(t.Payload(), &job); err != nil {
		return job, fmt.Errorf("failed to unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}
	if job.ObjectKey == "" {
		return job, fmt.Errorf("payload has no object key: %w", asynq.SkipRetry)
	}
	return job, nil
}
