package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

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

type finalizeMocks struct {
	counters *mocks.MockCounterRepository
	sales    *mocks.MockSaleRepository
	cache    *mocks.MockCacheRepository
}

func newFinalizeService(t *testing.T, now time.Time) (*services.FinalizeService, finalizeMocks) {
	ctrl := gomock.NewController(t)
	m := finalizeMocks{
		counters: mocks.NewMockCounterRepository(ctrl),
		sales:    mocks.NewMockSaleRepository(ctrl),
		cache:    mocks.NewMockCacheRepository(ctrl),
	}
	svc := services.NewFinalizeService(helpers.PassthroughTransactor(ctrl), m.counters, m.sales, m.cache,
		decimal.Zero, helpers.TestLogger()).
		WithClock(func() time.Time { return now })
	return svc, m
}

func TestFinalizeService_Finalize_ReservesNextNumbers(t *testing.T) {
	now := time.Date(2024, 3, 15, 14, 30, 5, 0, time.UTC)
	svc, m := newFinalizeService(t, now)
	cart := helpers.CreateTestCart("POS1", 10, 5.5)

	counter := &domain.Counter{Terminal: "POS1", LastClientSeq: 9, LastSaleNumber: 5, TotalSaleCount: 5}
	m.counters.EXPECT().GetForUpdate(gomock.Any(), gomock.Any(), "POS1").Return(counter, nil)
	m.sales.EXPECT().
		InsertBatch(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ ports.Querier, lines []domain.Sale) error {
			require.Len(t, lines, 2)
			for _, l := range lines {
				assert.Equal(t, int64(6), l.SaleNumber)
				assert.Equal(t, "CLIENTE-POS1-0010", l.ClientID)
				assert.Equal(t, "POS POS1", l.Seller)
				assert.Equal(t, "POS1", l.Terminal)
				assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), l.Date)
				require.NotNil(t, l.Time)
				assert.Equal(t, 14, l.Time.Hour())
			}
			assert.True(t, lines[1].LineTotal.Equal(decimal.NewFromFloat(5.5)))
			return nil
		})
	m.counters.EXPECT().
		Save(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ ports.Querier, c *domain.Counter) error {
			assert.Equal(t, domain.Counter{Terminal: "POS1", LastClientSeq: 10, LastSaleNumber: 6, TotalSaleCount: 6}, *c)
			return nil
		})
	m.cache.EXPECT().DeletePattern(gomock.Any(), "dash:*").Return(nil)

	result, err := svc.Finalize(context.Background(), "POS1", cart)
	require.NoError(t, err)

	assert.Equal(t, int64(6), result.SaleNumber)
	assert.Equal(t, "CLIENTE-POS1-0010", result.ClientID)
	assert.Equal(t, 2, result.LineCount)
	assert.Equal(t, "15.5", result.Subtotal.String())
	assert.Equal(t, "3.26", result.Tax.String())
	assert.Equal(t, "18.76", result.Total.String())
	assert.Equal(t, "2024-03-15", result.Date)
	assert.Equal(t, "14:30:05", result.Time)
}

func TestFinalizeService_Finalize_Rejections(t *testing.T) {
	tests := []struct {
		name       string
		terminal   string
		cart       *domain.Cart
		setupMocks func(finalizeMocks)
		wantErr    error
	}{
		{
			name:       "nil_cart_is_empty",
			terminal:   "POS1",
			cart:       nil,
			setupMocks: func(finalizeMocks) {},
			wantErr:    domain.ErrValidation,
		},
		{
			name:       "empty_cart_touches_nothing",
			terminal:   "POS1",
			cart:       &domain.Cart{},
			setupMocks: func(finalizeMocks) {},
			wantErr:    domain.ErrValidation,
		},
		{
			name:     "invalid_line_quantity",
			terminal: "POS1",
			cart: &domain.Cart{Items: []domain.CartItem{
				{ProductName: "Té", Quantity: 0, UnitPrice: decimal.NewFromInt(1)},
			}},
			setupMocks: func(finalizeMocks) {},
			wantErr:    domain.ErrValidation,
		},
		{
			name:       "blank_terminal",
			terminal:   " ",
			cart:       helpers.CreateTestCart("", 1),
			setupMocks: func(finalizeMocks) {},
			wantErr:    domain.ErrValidation,
		},
		{
			name:     "unconfigured_terminal",
			terminal: "POS9",
			cart:     helpers.CreateTestCart("POS9", 1),
			setupMocks: func(m finalizeMocks) {
				m.counters.EXPECT().GetForUpdate(gomock.Any(), gomock.Any(), "POS9").Return(nil, nil)
			},
			wantErr: domain.ErrNotFound,
		},
		{
			name:     "insert_failure_leaves_counter_unsaved",
			terminal: "POS2",
			cart:     helpers.CreateTestCart("POS2", 1),
			setupMocks: func(m finalizeMocks) {
				m.counters.EXPECT().
					GetForUpdate(gomock.Any(), gomock.Any(), "POS2").
					Return(&domain.Counter{Terminal: "POS2"}, nil)
				m.sales.EXPECT().InsertBatch(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("disk full"))
			},
			wantErr: domain.ErrStorage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, m := newFinalizeService(t, time.Now())
			tt.setupMocks(m)

			result, err := svc.Finalize(context.Background(), tt.terminal, tt.cart)
			assert.Nil(t, result)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestFinalizeService_Finalize_EmptyCartIsErrEmptyCart(t *testing.T) {
	svc, _ := newFinalizeService(t, time.Now())

	_, err := svc.Finalize(context.Background(), "POS1", &domain.Cart{})
	assert.Equal(t, domain.ErrEmptyCart, err)
}
