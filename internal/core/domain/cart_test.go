package domain_test

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ammerola/pos-ledger/internal/core/domain"
)

func TestCalculateTotals(t *testing.T) {
	tests := []struct {
		name     string
		items    []domain.CartItem
		rate     decimal.Decimal
		subtotal string
		tax      string
		total    string
	}{
		{
			name: "two_lines_at_21_percent",
			items: []domain.CartItem{
				{ProductName: "A", Quantity: 2, UnitPrice: decimal.NewFromInt(10)},
				{ProductName: "B", Quantity: 1, UnitPrice: decimal.NewFromInt(5)},
			},
			rate:     decimal.NewFromInt(21),
			subtotal: "25",
			tax:      "5.25",
			total:    "30.25",
		},
		{
			name: "stored_subtotal_wins_over_price_times_quantity",
			items: []domain.CartItem{
				{ProductName: "A", Quantity: 3, UnitPrice: decimal.NewFromInt(10), Subtotal: decimal.NewFromInt(27)},
			},
			rate:     decimal.NewFromInt(21),
			subtotal: "27",
			tax:      "5.67",
			total:    "32.67",
		},
		{
			name: "rounds_to_cents",
			items: []domain.CartItem{
				{ProductName: "A", Quantity: 1, UnitPrice: decimal.RequireFromString("0.99")},
			},
			rate:     decimal.NewFromInt(21),
			subtotal: "0.99",
			tax:      "0.21",
			total:    "1.2",
		},
		{
			name:     "empty_cart",
			items:    nil,
			rate:     decimal.NewFromInt(21),
			subtotal: "0",
			tax:      "0",
			total:    "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			totals := domain.CalculateTotals(tt.items, tt.rate)
			assert.True(t, decimal.RequireFromString(tt.subtotal).Equal(totals.Subtotal), "subtotal %s", totals.Subtotal)
			assert.True(t, decimal.RequireFromString(tt.tax).Equal(totals.Tax), "tax %s", totals.Tax)
			assert.True(t, decimal.RequireFromString(tt.total).Equal(totals.Total), "total %s", totals.Total)
		})
	}
}

func TestCart_Validate(t *testing.T) {
	line := domain.CartItem{ProductName: "Pan", Quantity: 1, UnitPrice: decimal.NewFromInt(100)}

	tests := []struct {
		name          string
		cart          *domain.Cart
		expectedError error
	}{
		{name: "nil_cart", cart: nil, expectedError: domain.ErrEmptyCart},
		{name: "no_lines", cart: &domain.Cart{Terminal: "POS1"}, expectedError: domain.ErrEmptyCart},
		{name: "valid", cart: &domain.Cart{Terminal: "POS1", Items: []domain.CartItem{line}}},
		{
			name:          "zero_quantity",
			cart:          &domain.Cart{Items: []domain.CartItem{{ProductName: "Pan", Quantity: 0, UnitPrice: decimal.NewFromInt(1)}}},
			expectedError: domain.ErrValidation,
		},
		{
			name:          "blank_product",
			cart:          &domain.Cart{Items: []domain.CartItem{{ProductName: " ", Quantity: 1}}},
			expectedError: domain.ErrValidation,
		},
		{
			name:          "negative_price",
			cart:          &domain.Cart{Items: []domain.CartItem{{ProductName: "Pan", Quantity: 1, UnitPrice: decimal.NewFromInt(-1)}}},
			expectedError: domain.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cart.Validate()
			if tt.expectedError == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.expectedError)
		})
	}
}

func TestCart_EmptyCartIsValidationError(t *testing.T) {
	var cart domain.Cart
	err := cart.Validate()
	assert.True(t, errors.Is(err, domain.ErrValidation))
	assert.False(t, errors.Is(err, domain.ErrNotFound))
}

func TestCart_AddRemoveClear(t *testing.T) {
	product := &domain.Product{
		Name:      "Yerba 1kg",
		SalePrice: decimal.RequireFromString("3500.50"),
		Supplier:  "Catálogo",
		Category:  "Almacén",
	}
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	item, err := domain.NewCartItem(product, 2, now)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("7001").Equal(item.Subtotal))
	assert.Equal(t, now, item.AddedAt)

	_, err = domain.NewCartItem(product, 0, now)
	assert.ErrorIs(t, err, domain.ErrValidation)

	cart := &domain.Cart{Terminal: domain.TerminalPOS1}
	cart.Add(item)
	cart.Add(domain.CartItem{ProductName: "Pan", Quantity: 1, UnitPrice: decimal.NewFromInt(1)})
	require.Len(t, cart.Items, 2)

	removed, err := cart.Remove(0)
	require.NoError(t, err)
	assert.Equal(t, "Yerba 1kg", removed.ProductName)
	assert.Len(t, cart.Items, 1)

	_, err = cart.Remove(5)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = cart.Remove(-1)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	cart.Clear()
	assert.True(t, cart.IsEmpty())
}
