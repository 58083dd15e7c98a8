// internal/core/services/finalize.go
package services

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/ammerola/pos-ledger/internal/core/domain"
	"github.com/ammerola/pos-ledger/internal/core/ports"
)

// FinalizeService commits carts as numbered sales.
type FinalizeService struct {
	tx       ports.Transactor
	counters ports.CounterRepository
	sales    ports.SaleRepository
	cache    ports.CacheRepository
	taxRate  decimal.Decimal
	now      func() time.Time
	logger   *slog.Logger
}

var _ ports.SaleFinalizer = (*FinalizeService)(nil)

// NewFinalizeService creates a new finalize service. A zero taxRate falls
// back to domain.DefaultTaxRate. cache may be nil.
func NewFinalizeService(
	tx ports.Transactor,
	counters ports.CounterRepository,
	sales ports.SaleRepository,
	cache ports.CacheRepository,
	taxRate decimal.Decimal,
	logger *slog.Logger,
) *FinalizeService {
	if taxRate.IsZero() {
		taxRate = domain.DefaultTaxRate
	}
	return &FinalizeService{
		tx:       tx,
		counters: counters,
		sales:    sales,
		cache:    cache,
		taxRate:  taxRate,
		now:      time.Now,
		logger:   logger.With(slog.String("service", "finalize")),
	}
}

// WithClock replaces the time source used to stamp sales.
func (s *FinalizeService) WithClock(now func() time.Time) *FinalizeService {
	s.now = now
	return s
}

// Finalize reserves the next sale number and client sequence of terminal and
// writes one ledger row per cart line. The counter row stays locked until
// commit, so concurrent finalizations on one terminal are serialized. On any
// failure nothing is written and the counter is untouched.
func (s *FinalizeService) Finalize(ctx context.Context, terminal string, cart *domain.Cart) (*domain.FinalizeResult, error) {
	if cart.IsEmpty() {
		return nil, domain.ErrEmptyCart
	}
	if err := cart.Validate(); err != nil {
		return nil, err
	}
	terminal = strings.TrimSpace(terminal)
	if terminal == "" {
		return nil, domain.NewValidationError("terminal", "terminal is required")
	}

	now := s.now()
	date := truncateDay(now)
	tod := time.Date(0, 1, 1, now.Hour(), now.Minute(), now.Second(), 0, time.UTC)
	totals := domain.CalculateTotals(cart.Items, s.taxRate)

	var result *domain.FinalizeResult
	err := s.tx.Transaction(ctx, func(tx pgx.Tx) error {
		counter, err := s.counters.GetForUpdate(ctx, tx, terminal)
		if err != nil {
			return err
		}
		if counter == nil {
			return domain.ErrTerminalNotConfigured
		}

		saleNumber, clientSeq := counter.Advance()
		clientID := domain.FormatClientID(terminal, clientSeq)
		seller := domain.SellerForTerminal(terminal)

		lines := make([]domain.Sale, 0, len(cart.Items))
		for _, item := range cart.Items {
			lines = append(lines, domain.Sale{
				SaleNumber:  saleNumber,
				Date:        date,
				Time:        &tod,
				ClientID:    clientID,
				ProductName: item.ProductName,
				Quantity:    item.Quantity,
				UnitPrice:   item.UnitPrice,
				LineTotal:   item.LineTotal(),
				Seller:      seller,
				Terminal:    terminal,
			})
		}

		if err := s.sales.InsertBatch(ctx, tx, lines); err != nil {
			return err
		}
		if err := s.counters.Save(ctx, tx, counter); err != nil {
			return err
		}

		result = &domain.FinalizeResult{
			SaleNumber: saleNumber,
			ClientID:   clientID,
			Terminal:   terminal,
			LineCount:  len(lines),
			Subtotal:   totals.Subtotal,
			Tax:        totals.Tax,
			Total:      totals.Total,
			Date:       now.Format(time.DateOnly),
			Time:       now.Format(time.TimeOnly),
		}
		return nil
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "sale finalization failed",
			slog.String("terminal", terminal),
			slog.String("error", err.Error()))
		return nil, domain.StorageError("finalize sale", err)
	}

	s.logger.InfoContext(ctx, "sale finalized",
		slog.String("terminal", terminal),
		slog.Int64("sale_number", result.SaleNumber),
		slog.String("client_id", result.ClientID),
		slog.Int("lines", result.LineCount),
		slog.String("total", result.Total.StringFixed(2)))

	invalidateCache(ctx, s.cache, s.logger, cacheKeyDashboard)
	return result, nil
}
