// internal/core/services/dashboard.go
package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ammerola/pos-ledger/internal/core/domain"
	"github.com/ammerola/pos-ledger/internal/core/ports"
)

const dashboardCacheTTL = time.Minute

// DashboardService builds ledger statistics for the POS screens.
type DashboardService struct {
	db       ports.Querier
	stats    ports.StatsRepository
	counters ports.CounterRepository
	cache    ports.CacheRepository
	currency string
	logger   *slog.Logger
}

var _ ports.DashboardService = (*DashboardService)(nil)

// NewDashboardService creates a new dashboard service. cache may be nil.
func NewDashboardService(
	db ports.Querier,
	stats ports.StatsRepository,
	counters ports.CounterRepository,
	cache ports.CacheRepository,
	currency string,
	logger *slog.Logger,
) *DashboardService {
	if currency == "" {
		currency = "$"
	}
	return &DashboardService{
		db:       db,
		stats:    stats,
		counters: counters,
		cache:    cache,
		currency: currency,
		logger:   logger.With(slog.String("service", "dashboard")),
	}
}

// Stats returns the dashboard of terminal, or of the whole ledger for
// domain.TerminalAll. Results are cached for a minute.
func (s *DashboardService) Stats(ctx context.Context, terminal string) (*domain.DashboardStats, error) {
	if terminal == "" {
		terminal = domain.TerminalAll
	}

	if s.cache == nil {
		return s.compute(ctx, terminal)
	}

	var stats domain.DashboardStats
	key := fmt.Sprintf("%s:%s", cacheKeyDashboard, terminal)
	err := s.cache.GetOrSet(ctx, key, &stats, func() (any, error) {
		return s.compute(ctx, terminal)
	}, dashboardCacheTTL)
	if err != nil {
		return nil, domain.StorageError("dashboard stats", err)
	}
	return &stats, nil
}

func (s *DashboardService) compute(ctx context.Context, terminal string) (*domain.DashboardStats, error) {
	now := time.Now()

	counts, err := s.stats.LedgerCounts(ctx, terminal, now)
	if err != nil {
		return nil, domain.StorageError("dashboard stats", err)
	}
	revenue, err := decimal.NewFromString(counts.Revenue)
	if err != nil {
		revenue = decimal.Zero
	}

	available, err := s.stats.AvailableProducts(ctx)
	if err != nil {
		return nil, domain.StorageError("dashboard stats", err)
	}

	stats := &domain.DashboardStats{
		Terminal:          terminal,
		Title:             DashboardTitle(terminal),
		TotalSales:        counts.DistinctSales,
		Revenue:           revenue.Round(2),
		RevenueDisplay:    FormatMoney(s.currency, revenue),
		SalesToday:        counts.SalesToday,
		AvailableProducts: available,
		GeneratedAt:       now,
	}

	if terminal != domain.TerminalAll {
		counter, err := s.counters.Get(ctx, s.db, terminal)
		if err != nil {
			return nil, domain.StorageError("dashboard stats", err)
		}
		if counter != nil {
			stats.NextClientID = counter.Snapshot().NextClientID
		}
	}

	s.logger.DebugContext(ctx, "dashboard computed",
		slog.String("terminal", terminal),
		slog.Int64("total_sales", stats.TotalSales))
	return stats, nil
}

func (s *DashboardService) Diagnostics(ctx context.Context) (*domain.Diagnostics, error) {
	d, err := s.stats.Diagnostics(ctx)
	if err != nil {
		return nil, domain.StorageError("diagnostics", err)
	}
	return &d, nil
}

// Invalidate drops every cached dashboard.
func (s *DashboardService) Invalidate(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	if err := s.cache.DeletePattern(ctx, cacheKeyDashboard+":*"); err != nil {
		return fmt.Errorf("failed to invalidate dashboards: %w", err)
	}
	return nil
}

// DashboardTitle names the dashboard of terminal.
func DashboardTitle(terminal string) string {
	if terminal == domain.TerminalAll {
		return "General (Todas las Terminales)"
	}
	return "Terminal " + terminal
}

// FormatMoney renders amount with thousands separators, e.g. $1,234.50.
func FormatMoney(symbol string, amount decimal.Decimal) string {
	fixed := amount.Abs().StringFixed(2)
	whole, frac, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}

	sign := ""
	if amount.IsNegative() {
		sign = "-"
	}
	return fmt.Sprintf("%s%s%s.%s", sign, symbol, b.String(), frac)
}
