package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/ammerola/pos-ledger/internal/core/domain"
	"github.com/ammerola/pos-ledger/internal/core/ports"
	"github.com/ammerola/pos-ledger/internal/core/services"
	"github.com/ammerola/pos-ledger/test/helpers"
	"github.com/ammerola/pos-ledger/test/mocks"
)

func TestDashboardService_Stats(t *testing.T) {
	tests := []struct {
		name       string
		terminal   string
		setupMocks func(*mocks.MockStatsRepository, *mocks.MockCounterRepository)
		check      func(*testing.T, *domain.DashboardStats)
		wantErr    error
	}{
		{
			name:     "terminal_dashboard_includes_next_client",
			terminal: "POS1",
			setupMocks: func(s *mocks.MockStatsRepository, c *mocks.MockCounterRepository) {
				s.EXPECT().LedgerCounts(gomock.Any(), "POS1", gomock.Any()).
					Return(ports.LedgerCounts{DistinctSales: 12, Revenue: "1234.5", SalesToday: 3}, nil)
				s.EXPECT().AvailableProducts(gomock.Any()).Return(int64(80), nil)
				c.EXPECT().Get(gomock.Any(), gomock.Any(), "POS1").
					Return(&domain.Counter{Terminal: "POS1", LastClientSeq: 9}, nil)
			},
			check: func(t *testing.T, s *domain.DashboardStats) {
				assert.Equal(t, "Terminal POS1", s.Title)
				assert.Equal(t, int64(12), s.TotalSales)
				assert.Equal(t, int64(3), s.SalesToday)
				assert.Equal(t, int64(80), s.AvailableProducts)
				assert.Equal(t, "$1,234.50", s.RevenueDisplay)
				assert.Equal(t, "CLIENTE-POS1-0010", s.NextClientID)
			},
		},
		{
			name:     "aggregate_dashboard_skips_counter",
			terminal: "",
			setupMocks: func(s *mocks.MockStatsRepository, c *mocks.MockCounterRepository) {
				s.EXPECT().LedgerCounts(gomock.Any(), domain.TerminalAll, gomock.Any()).
					Return(ports.LedgerCounts{Revenue: "0"}, nil)
				s.EXPECT().AvailableProducts(gomock.Any()).Return(int64(0), nil)
			},
			check: func(t *testing.T, s *domain.DashboardStats) {
				assert.Equal(t, domain.TerminalAll, s.Terminal)
				assert.Equal(t, "General (Todas las Terminales)", s.Title)
				assert.Equal(t, "$0.00", s.RevenueDisplay)
				assert.Empty(t, s.NextClientID)
			},
		},
		{
			name:     "stats_failure",
			terminal: "POS2",
			setupMocks: func(s *mocks.MockStatsRepository, c *mocks.MockCounterRepository) {
				s.EXPECT().LedgerCounts(gomock.Any(), "POS2", gomock.Any()).
					Return(ports.LedgerCounts{}, errors.New("timeout"))
			},
			wantErr: domain.ErrStorage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			stats := mocks.NewMockStatsRepository(ctrl)
			counters := mocks.NewMockCounterRepository(ctrl)
			tt.setupMocks(stats, counters)

			svc := services.NewDashboardService(nil, stats, counters, nil, "$", helpers.TestLogger())
			got, err := svc.Stats(context.Background(), tt.terminal)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.check(t, got)
		})
	}
}

func TestDashboardService_Stats_UsesCache(t *testing.T) {
	ctrl := gomock.NewController(t)
	cache := mocks.NewMockCacheRepository(ctrl)
	svc := services.NewDashboardService(nil, mocks.NewMockStatsRepository(ctrl),
		mocks.NewMockCounterRepository(ctrl), cache, "$", helpers.TestLogger())

	cache.EXPECT().
		GetOrSet(gomock.Any(), "dash:POS3", gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, dest any, _ func() (any, error), _ any) error {
			*dest.(*domain.DashboardStats) = domain.DashboardStats{Terminal: "POS3", TotalSales: 4}
			return nil
		})

	got, err := svc.Stats(context.Background(), "POS3")
	require.NoError(t, err)
	assert.Equal(t, int64(4), got.TotalSales)
}

func TestDashboardService_Invalidate(t *testing.T) {
	ctrl := gomock.NewController(t)
	cache := mocks.NewMockCacheRepository(ctrl)
	svc := services.NewDashboardService(nil, nil, nil, cache, "", helpers.TestLogger())

	cache.EXPECT().DeletePattern(gomock.Any(), "dash:*").Return(errors.New("down"))
	assert.Error(t, svc.Invalidate(context.Background()))

	assert.NoError(t, services.NewDashboardService(nil, nil, nil, nil, "", helpers.TestLogger()).
		Invalidate(context.Background()))
}

func TestFormatMoney(t *testing.T) {
	tests := []struct {
		name   string
		amount decimal.Decimal
		want   string
	}{
		{name: "zero", amount: decimal.Zero, want: "$0.00"},
		{name: "hundreds", amount: decimal.RequireFromString("999.999"), want: "$1,000.00"},
		{name: "thousands", amount: decimal.RequireFromString("1234.5"), want: "$1,234.50"},
		{name: "millions", amount: decimal.RequireFromString("1234567.891"), want: "$1,234,567.89"},
		{name: "negative", amount: decimal.RequireFromString("-45.1"), want: "-$45.10"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, services.FormatMoney("$", tt.amount))
		})
	}
}

func TestDashboardTitle(t *testing.T) {
	assert.Equal(t, "Terminal POS2", services.DashboardTitle("POS2"))
	assert.Equal(t, "General (Todas las Terminales)", services.DashboardTitle(domain.TerminalAll))
}
