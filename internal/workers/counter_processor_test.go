package workers_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/ammerola/pos-ledger/internal/core/domain"
	"github.com/ammerola/pos-ledger/internal/workers"
	"github.com/ammerola/pos-ledger/test/helpers"
	"github.com/ammerola/pos-ledger/test/mocks"
)

func TestCounterProcessor_ProcessReconcile(t *testing.T) {
	snapshots := []domain.CounterSnapshot{{Terminal: "POS1", LastSaleNumber: 9}}

	tests := []struct {
		name    string
		setup   func(counters *mocks.MockCounterService, cache *mocks.MockCacheRepository)
		wantErr bool
	}{
		{
			name: "lock_acquired_and_released",
			setup: func(counters *mocks.MockCounterService, cache *mocks.MockCacheRepository) {
				gomock.InOrder(
					cache.EXPECT().SetNX(gomock.Any(), workers.CounterLockKey, gomock.Any(), time.Minute).Return(true, nil),
					counters.EXPECT().Reconcile(gomock.Any()).Return(snapshots, nil),
					cache.EXPECT().Delete(gomock.Any(), workers.CounterLockKey).Return(nil),
				)
			},
		},
		{
			name: "lock_held_skips",
			setup: func(_ *mocks.MockCounterService, cache *mocks.MockCacheRepository) {
				cache.EXPECT().SetNX(gomock.Any(), workers.CounterLockKey, gomock.Any(), time.Minute).Return(false, nil)
			},
		},
		{
			name: "lock_error",
			setup: func(_ *mocks.MockCounterService, cache *mocks.MockCacheRepository) {
				cache.EXPECT().SetNX(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(false, errors.New("redis down"))
			},
			wantErr: true,
		},
		{
			name: "reconcile_error_still_releases",
			setup: func(counters *mocks.MockCounterService, cache *mocks.MockCacheRepository) {
				cache.EXPECT().SetNX(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(true, nil)
				counters.EXPECT().Reconcile(gomock.Any()).Return(nil, errors.New("boom"))
				cache.EXPECT().Delete(gomock.Any(), workers.CounterLockKey).Return(nil)
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			counters := mocks.NewMockCounterService(ctrl)
			cache := mocks.NewMockCacheRepository(ctrl)
			tt.setup(counters, cache)

			p := workers.NewCounterProcessor(counters, cache, time.Minute, helpers.TestLogger())
			err := p.ProcessReconcile(context.Background(), workers.NewCounterReconcileTask())

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCounterProcessor_WithoutLocker(t *testing.T) {
	ctrl := gomock.NewController(t)
	counters := mocks.NewMockCounterService(ctrl)
	counters.EXPECT().Reconcile(gomock.Any()).Return(nil, nil)

	p := workers.NewCounterProcessor(counters, nil, 0, helpers.TestLogger())
	require.NoError(t, p.ProcessReconcile(context.Background(), asynq.NewTask(workers.TypeCountersReconcile, nil)))
}
