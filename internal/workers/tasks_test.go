package workers_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ammerola/pos-ledger/internal/core/domain"
	"github.com/ammerola/pos-ledger/internal/workers"
)

func TestTaskTypeFor(t *testing.T) {
	tests := []struct {
		kind    domain.ImportKind
		want    string
		wantErr bool
	}{
		{kind: domain.ImportCatalog, want: workers.TypeCatalogImport},
		{kind: domain.ImportCatalogPDF, want: workers.TypeCatalogImportPDF},
		{kind: domain.ImportSales, want: workers.TypeSalesImport},
		{kind: "stock", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			got, err := workers.TaskTypeFor(tt.kind)
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewImportTask(t *testing.T) {
	job := domain.ImportJob{
		JobID:     "job-1",
		Kind:      domain.ImportSales,
		ObjectKey: "uploads/sales/2024/03/15/x-ventas.xlsx",
		FileName:  "ventas.xlsx",
	}

	task, err := workers.NewImportTask(job, time.Minute, 3)
	require.NoError(t, err)
	assert.Equal(t, workers.TypeSalesImport, task.Type())

	var decoded domain.ImportJob
	require.NoError(t, json.Unmarshal(task.Payload(), &decoded))
	assert.Equal(t, job, decoded)
}

func TestNewImportTask_UnknownKind(t *testing.T) {
	_, err := workers.NewImportTask(domain.ImportJob{Kind: "bogus", ObjectKey: "k"}, 0, 0)
	assert.Error(t, err)
}

func TestPeriodicTasks(t *testing.T) {
	assert.Equal(t, workers.TypeCountersReconcile, workers.NewCounterReconcileTask().Type())
	assert.Equal(t, workers.TypeCleanupUploads, workers.NewCleanupTask().Type())
}

func TestExponentialBackoff(t *testing.T) {
	tests := []struct {
		name string
		n    int
		want time.Duration
	}{
		{name: "first_retry", n: 0, want: time.Second},
		{name: "third_retry", n: 3, want: 8 * time.Second},
		{name: "capped", n: 12, want: 10 * time.Minute},
		{name: "huge_n_capped", n: 100, want: 10 * time.Minute},
	}
	task := asynq.NewTask(workers.TypeSalesImport, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, workers.ExponentialBackoff(tt.n, nil, task))
		})
	}
}
