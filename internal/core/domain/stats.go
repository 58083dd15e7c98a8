// internal/core/domain/stats.go
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DashboardStats aggregates the ledger for one terminal or for TerminalAll.
type DashboardStats struct {
	Terminal          string          `json:"terminal"`
	Title             string          `json:"title"`
	TotalSales        int64           `json:"total_sales"`
	Revenue           decimal.Decimal `json:"revenue"`
	RevenueDisplay    string          `json:"revenue_display"`
	SalesToday        int64           `json:"sales_today"`
	AvailableProducts int64           `json:"available_products"`
	NextClientID      string          `json:"next_client_id,omitempty"`
	GeneratedAt       time.Time       `json:"generated_at"`
}

// Diagnostics reports raw store sizes.
type Diagnostics struct {
	Status     string `json:"status"`
	Products   int64  `json:"products"`
	LedgerRows int64  `json:"ledger_rows"`
	Counters   int64  `json:"counters"`
	Database   string `json:"database"`
}
