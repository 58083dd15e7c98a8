// internal/core/services/counters.go
package services

import (
	"context"
	"log/slog"
	"sort"

	"github.com/jackc/pgx/v5"

	"github.com/ammerola/pos-ledger/internal/core/domain"
	"github.com/ammerola/pos-ledger/internal/core/ports"
)

// CounterService keeps terminal counters in line with the ledger.
type CounterService struct {
	tx        ports.Transactor
	db        ports.Querier
	counters  ports.CounterRepository
	sales     ports.SaleRepository
	terminals []string
	logger    *slog.Logger
}

var _ ports.CounterService = (*CounterService)(nil)

// NewCounterService creates a new counter service. terminals are the
// configured physical terminals; domain.DefaultTerminals is used when empty.
func NewCounterService(
	tx ports.Transactor,
	db ports.Querier,
	counters ports.CounterRepository,
	sales ports.SaleRepository,
	terminals []string,
	logger *slog.Logger,
) *CounterService {
	if len(terminals) == 0 {
		terminals = domain.DefaultTerminals
	}
	return &CounterService{
		tx:        tx,
		db:        db,
		counters:  counters,
		sales:     sales,
		terminals: terminals,
		logger:    logger.With(slog.String("service", "counters")),
	}
}

// Reconcile recomputes every counter from the ledger: the configured
// terminals, the aggregate bucket and any terminal found in imported sales.
// All counters are rewritten in a single transaction.
func (s *CounterService) Reconcile(ctx context.Context) ([]domain.CounterSnapshot, error) {
	var snapshots []domain.CounterSnapshot

	err := s.tx.Transaction(ctx, func(tx pgx.Tx) error {
		ledgerTerminals, err := s.sales.Terminals(ctx, tx)
		if err != nil {
			return err
		}

		snapshots = snapshots[:0]
		for _, terminal := range s.terminalSet(ledgerTerminals) {
			if err := s.counters.Ensure(ctx, tx, terminal); err != nil {
				return err
			}
			agg, err := s.sales.Aggregate(ctx, tx, terminal)
			if err != nil {
				return err
			}

			c := &domain.Counter{Terminal: terminal}
			c.Apply(agg)
			if err := s.counters.Save(ctx, tx, c); err != nil {
				return err
			}
			snapshots = append(snapshots, c.Snapshot())

			s.logger.DebugContext(ctx, "counter reconciled",
				slog.String("terminal", terminal),
				slog.Int64("last_sale_number", c.LastSaleNumber),
				slog.Int64("last_client_seq", c.LastClientSeq),
				slog.Int64("total_sales", c.TotalSaleCount))
		}
		return nil
	})
	if err != nil {
		return nil, domain.StorageError("reconcile counters", err)
	}

	s.logger.InfoContext(ctx, "counters reconciled", slog.Int("terminals", len(snapshots)))
	return snapshots, nil
}

// terminalSet merges the configured terminals, the aggregate bucket and the
// ledger terminals, keeping configured ones first.
func (s *CounterService) terminalSet(ledger []string) []string {
	seen := make(map[string]struct{}, len(s.terminals)+len(ledger)+1)
	set := make([]string, 0, len(s.terminals)+len(ledger)+1)

	add := func(t string) {
		if t == "" {
			return
		}
		if _, ok := seen[t]; ok {
			return
		}
		seen[t] = struct{}{}
		set = append(set, t)
	}

	for _, t := range s.terminals {
		add(t)
	}
	add(domain.TerminalAll)

	extra := make([]string, 0, len(ledger))
	for _, t := range ledger {
		if _, ok := seen[t]; !ok {
			extra = append(extra, t)
		}
	}
	sort.Strings(extra)
	for _, t := range extra {
		add(t)
	}
	return set
}

func (s *CounterService) List(ctx context.Context) ([]domain.CounterSnapshot, error) {
	counters, err := s.counters.List(ctx, s.db)
	if err != nil {
		return nil, domain.StorageError("list counters", err)
	}

	snapshots := make([]domain.CounterSnapshot, 0, len(counters))
	for i := range counters {
		snapshots = append(snapshots, counters[i].Snapshot())
	}
	return snapshots, nil
}

// Get returns the counter of terminal, or ErrTerminalNotConfigured.
func (s *CounterService) Get(ctx context.Context, terminal string) (*domain.CounterSnapshot, error) {
	c, err := s.counters.Get(ctx, s.db, terminal)
	if err != nil {
		return nil, domain.StorageError("get counter", err)
	}
	if c == nil {
		return nil, domain.ErrTerminalNotConfigured
	}
	snap := c.Snapshot()
	return &snap, nil
}
