package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/ammerola/pos-ledger/internal/core/domain"
	"github.com/ammerola/pos-ledger/internal/core/ports"
	"github.com/ammerola/pos-ledger/internal/core/services"
	"github.com/ammerola/pos-ledger/test/helpers"
	"github.com/ammerola/pos-ledger/test/mocks"
)

func TestCounterService_Reconcile(t *testing.T) {
	ctrl := gomock.NewController(t)
	counters := mocks.NewMockCounterRepository(ctrl)
	sales := mocks.NewMockSaleRepository(ctrl)
	svc := services.NewCounterService(helpers.PassthroughTransactor(ctrl), nil, counters, sales,
		[]string{"POS1", "POS2"}, helpers.TestLogger())

	aggregates := map[string]domain.LedgerAggregate{
		"POS1":  {DistinctSales: 5, MaxSaleNumber: 9, MaxClientSeq: 10},
		"POS2":  {},
		"TODAS": {DistinctSales: 7, MaxSaleNumber: 12, MaxClientSeq: 10},
		"CAJA9": {DistinctSales: 2, MaxSaleNumber: 12, MaxClientSeq: 0},
	}

	sales.EXPECT().Terminals(gomock.Any(), gomock.Any()).Return([]string{"POS1", "CAJA9", "TODAS"}, nil)

	var order []string
	counters.EXPECT().
		Ensure(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ ports.Querier, terminal string) error {
			order = append(order, terminal)
			return nil
		}).
		Times(4)
	sales.EXPECT().
		Aggregate(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ ports.Querier, terminal string) (domain.LedgerAggregate, error) {
			return aggregates[terminal], nil
		}).
		Times(4)

	saved := map[string]domain.Counter{}
	counters.EXPECT().
		Save(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ ports.Querier, c *domain.Counter) error {
			saved[c.Terminal] = *c
			return nil
		}).
		Times(4)

	snapshots, err := svc.Reconcile(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"POS1", "POS2", "TODAS", "CAJA9"}, order)
	require.Len(t, snapshots, 4)

	assert.Equal(t, int64(5), saved["POS1"].TotalSaleCount)
	assert.Equal(t, int64(9), saved["POS1"].LastSaleNumber)
	assert.Equal(t, int64(10), saved["POS1"].LastClientSeq)
	assert.Equal(t, "CLIENTE-POS1-0011", snapshots[0].NextClientID)

	assert.Equal(t, domain.Counter{Terminal: "POS2"}, saved["POS2"])
	assert.Equal(t, "CLIENTE-POS2-0001", snapshots[1].NextClientID)
}

func TestCounterService_Reconcile_RollsBackOnFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	counters := mocks.NewMockCounterRepository(ctrl)
	sales := mocks.NewMockSaleRepository(ctrl)
	svc := services.NewCounterService(helpers.PassthroughTransactor(ctrl), nil, counters, sales, nil, helpers.TestLogger())

	sales.EXPECT().Terminals(gomock.Any(), gomock.Any()).Return(nil, nil)
	counters.EXPECT().Ensure(gomock.Any(), gomock.Any(), "POS1").Return(nil)
	sales.EXPECT().Aggregate(gomock.Any(), gomock.Any(), "POS1").Return(domain.LedgerAggregate{}, errors.New("deadlock"))

	_, err := svc.Reconcile(context.Background())
	assert.ErrorIs(t, err, domain.ErrStorage)
}

func TestCounterService_Get(t *testing.T) {
	tests := []struct {
		name    string
		counter *domain.Counter
		repoErr error
		want    string
		wantErr error
	}{
		{
			name:    "returns_snapshot",
			counter: &domain.Counter{Terminal: "POS3", LastClientSeq: 41, LastSaleNumber: 40, TotalSaleCount: 40},
			want:    "CLIENTE-POS3-0042",
		},
		{
			name:    "missing_counter_is_not_configured",
			wantErr: domain.ErrNotFound,
		},
		{
			name:    "repository_error",
			repoErr: errors.New("closed pool"),
			wantErr: domain.ErrStorage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			counters := mocks.NewMockCounterRepository(ctrl)
			svc := services.NewCounterService(helpers.PassthroughTransactor(ctrl), nil, counters,
				mocks.NewMockSaleRepository(ctrl), nil, helpers.TestLogger())

			counters.EXPECT().Get(gomock.Any(), gomock.Any(), "POS3").Return(tt.counter, tt.repoErr)

			snap, err := svc.Get(context.Background(), "POS3")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, snap.NextClientID)
		})
	}
}

func TestCounterService_List(t *testing.T) {
	ctrl := gomock.NewController(t)
	counters := mocks.NewMockCounterRepository(ctrl)
	svc := services.NewCounterService(helpers.PassthroughTransactor(ctrl), nil, counters,
		mocks.NewMockSaleRepository(ctrl), nil, helpers.TestLogger())

	counters.EXPECT().List(gomock.Any(), gomock.Any()).Return([]domain.Counter{
		{Terminal: "POS1", LastClientSeq: 3, LastSaleNumber: 3, TotalSaleCount: 3},
		{Terminal: "TODAS", LastClientSeq: 3, LastSaleNumber: 3, TotalSaleCount: 3},
	}, nil)

	snaps, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	assert.Equal(t, int64(3), snaps[1].TotalSales)
}
