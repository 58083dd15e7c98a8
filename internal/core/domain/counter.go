// internal/core/domain/counter.go
package domain

import "time"

// Counter tracks the sequence state of one terminal (or the aggregate bucket).
type Counter struct {
	Terminal       string    `json:"terminal" db:"terminal"`
	LastClientSeq  int64     `json:"last_client_seq" db:"last_client_seq"`
	LastSaleNumber int64     `json:"last_sale_number" db:"last_sale_number"`
	TotalSaleCount int64     `json:"total_sale_count" db:"total_sale_count"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// CounterSnapshot is the read model handed to callers.
type CounterSnapshot struct {
	Terminal       string `json:"terminal"`
	LastClientSeq  int64  `json:"last_client_seq"`
	LastSaleNumber int64  `json:"last_sale_number"`
	TotalSales     int64  `json:"total_sales"`
	NextClientID   string `json:"next_client_id"`
}

// Snapshot converts the counter to its read model.
func (c *Counter) Snapshot() CounterSnapshot {
	return CounterSnapshot{
		Terminal:       c.Terminal,
		LastClientSeq:  c.LastClientSeq,
		LastSaleNumber: c.LastSaleNumber,
		TotalSales:     c.TotalSaleCount,
		NextClientID:   FormatClientID(c.Terminal, c.LastClientSeq+1),
	}
}

// Advance moves the counter past one finalized sale and returns the reserved
// sale number and client sequence.
func (c *Counter) Advance() (saleNumber, clientSeq int64) {
	c.LastClientSeq++
	c.LastSaleNumber++
	c.TotalSaleCount++
	return c.LastSaleNumber, c.LastClientSeq
}

// LedgerAggregate is what the ledger says a counter should be.
type LedgerAggregate struct {
	DistinctSales int64
	MaxSaleNumber int64
	MaxClientSeq  int64
}

// Apply overwrites the counter with a freshly computed aggregate.
func (c *Counter) Apply(agg LedgerAggregate) {
	c.TotalSaleCount = agg.DistinctSales
	c.LastSaleNumber = agg.MaxSaleNumber
	c.LastClientSeq = agg.MaxClientSeq
}
