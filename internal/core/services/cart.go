// internal/core/services/cart.go
package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ammerola/pos-ledger/internal/core/domain"
	"github.com/ammerola/pos-ledger/internal/core/ports"
)

// CartService edits session carts and hands them to the finalizer.
type CartService struct {
	store     ports.CartStore
	catalog   ports.CatalogService
	finalizer ports.SaleFinalizer
	taxRate   decimal.Decimal
	logger    *slog.Logger
}

var _ ports.CartService = (*CartService)(nil)

// NewCartService creates a new cart service.
func NewCartService(
	store ports.CartStore,
	catalog ports.CatalogService,
	finalizer ports.SaleFinalizer,
	taxRate decimal.Decimal,
	logger *slog.Logger,
) *CartService {
	if taxRate.IsZero() {
		taxRate = domain.DefaultTaxRate
	}
	return &CartService{
		store:     store,
		catalog:   catalog,
		finalizer: finalizer,
		taxRate:   taxRate,
		logger:    logger.With(slog.String("service", "cart")),
	}
}

// Get returns the session cart, empty if none is stored.
func (s *CartService) Get(ctx context.Context, sessionID string) (*domain.Cart, error) {
	cart, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, domain.StorageError("load cart", err)
	}
	if cart == nil {
		cart = &domain.Cart{Items: []domain.CartItem{}}
	}
	return cart, nil
}

// AddItem prices quantity units of the named product and appends the line.
func (s *CartService) AddItem(ctx context.Context, sessionID, productName string, quantity int) (*domain.Cart, error) {
	if quantity <= 0 {
		return nil, domain.NewValidationError("quantity", "quantity must be positive")
	}

	product, err := s.catalog.Get(ctx, productName)
	if err != nil {
		return nil, err
	}
	if !product.IsAvailable() {
		return nil, domain.NewValidationError("product_name", "product is not available")
	}

	item, err := domain.NewCartItem(product, quantity, time.Now())
	if err != nil {
		return nil, err
	}

	cart, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	cart.Add(item)
	if err := s.store.Save(ctx, sessionID, cart); err != nil {
		return nil, domain.StorageError("save cart", err)
	}

	s.logger.DebugContext(ctx, "cart item added",
		slog.String("product", item.ProductName),
		slog.Int("quantity", item.Quantity),
		slog.Int("lines", len(cart.Items)))
	return cart, nil
}

// RemoveItem drops the line at index.
func (s *CartService) RemoveItem(ctx context.Context, sessionID string, index int) (*domain.Cart, error) {
	cart, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if _, err := cart.Remove(index); err != nil {
		return nil, err
	}
	if err := s.store.Save(ctx, sessionID, cart); err != nil {
		return nil, domain.StorageError("save cart", err)
	}
	return cart, nil
}

func (s *CartService) Clear(ctx context.Context, sessionID string) (*domain.Cart, error) {
	if err := s.store.Clear(ctx, sessionID); err != nil {
		return nil, domain.StorageError("clear cart", err)
	}
	return &domain.Cart{Items: []domain.CartItem{}}, nil
}

// Checkout finalizes the session cart on terminal. The stored cart is cleared
// only after the sale commits; on failure it is left for another attempt.
func (s *CartService) Checkout(ctx context.Context, sessionID, terminal string) (*domain.FinalizeResult, error) {
	cart, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	cart.Terminal = terminal

	result, err := s.finalizer.Finalize(ctx, terminal, cart)
	if err != nil {
		return nil, err
	}

	if err := s.clearAfterSale(ctx, sessionID); err != nil {
		s.logger.ErrorContext(ctx, "failed to clear cart after sale",
			slog.Int64("sale_number", result.SaleNumber),
			slog.String("error", err.Error()))
		result.CartRetained = true
	}
	return result, nil
}

const cartClearAttempts = 3

// clearAfterSale retries the clear of a committed cart on a detached context.
func (s *CartService) clearAfterSale(ctx context.Context, sessionID string) error {
	ctx = context.WithoutCancel(ctx)
	var err error
	for attempt := 1; attempt <= cartClearAttempts; attempt++ {
		if err = s.store.Clear(ctx, sessionID); err == nil {
			return nil
		}
		if attempt < cartClearAttempts {
			time.Sleep(time.Duration(attempt) * 50 * time.Millisecond)
		}
	}
	return err
}

func (s *CartService) Totals(cart *domain.Cart) domain.Totals {
	if cart == nil {
		return domain.CalculateTotals(nil, s.taxRate)
	}
	return domain.CalculateTotals(cart.Items, s.taxRate)
}
