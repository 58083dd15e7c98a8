// internal/core/domain/sale.go
package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Terminal identifiers. TerminalAll is the aggregate bucket covering every terminal.
const (
	TerminalPOS1 = "POS1"
	TerminalPOS2 = "POS2"
	TerminalPOS3 = "POS3"
	TerminalAll  = "TODAS"
)

// DefaultTerminals are the physical terminals provisioned out of the box.
var DefaultTerminals = []string{TerminalPOS1, TerminalPOS2, TerminalPOS3}

// Column widths of the sales table.
const (
	MaxClientIDLen = 50
	MaxSellerLen   = 100
	MaxTerminalLen = 50
)

// MaxLineTotal bounds line totals stored as NUMERIC(14,2).
var MaxLineTotal = decimal.New(1, 12)

// DefaultSeller is stamped on imported rows without a seller.
const DefaultSeller = "POS"

// SellerForTerminal names the seller recorded on live sales.
func SellerForTerminal(terminal string) string {
	return fmt.Sprintf("%s %s", DefaultSeller, terminal)
}

// FormatClientID renders CLIENTE-<terminal>-<seq>, zero padded to four digits.
func FormatClientID(terminal string, seq int64) string {
	return fmt.Sprintf("CLIENTE-%s-%04d", terminal, seq)
}

// Sale is one ledger row: a single line item of a completed transaction.
// A sale number is unique only within its terminal.
type Sale struct {
	ID          int64           `json:"id" db:"id"`
	SaleNumber  int64           `json:"sale_number" db:"sale_number"`
	Date        time.Time       `json:"date" db:"sale_date"`
	Time        *time.Time      `json:"time,omitempty" db:"sale_time"`
	ClientID    string          `json:"client_id" db:"client_id"`
	ProductName string          `json:"product_name" db:"product_name"`
	Quantity    int             `json:"quantity" db:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price" db:"unit_price"`
	LineTotal   decimal.Decimal `json:"line_total" db:"line_total"`
	Seller      string          `json:"seller" db:"seller"`
	Terminal    string          `json:"terminal" db:"terminal"`
}

// SaleKey identifies every ledger row of one transaction.
type SaleKey struct {
	SaleNumber int64
	Terminal   string
}

// FinalizeResult summarizes a committed sale.
type FinalizeResult struct {
	SaleNumber int64           `json:"sale_number"`
	ClientID   string          `json:"client_id"`
	Terminal   string          `json:"terminal"`
	LineCount  int             `json:"line_count"`
	Subtotal   decimal.Decimal `json:"subtotal"`
	Tax        decimal.Decimal `json:"tax"`
	Total      decimal.Decimal `json:"total"`
	Date       string          `json:"date"`
	Time       string          `json:"time"`
	// CartRetained is set when the sale committed but the stored cart
	// could not be cleared. The caller must clear it before selling again.
	CartRetained bool `json:"cart_retained,omitempty"`
}

// SaleFilter narrows ledger listings.
type SaleFilter struct {
	Terminal   string
	SaleNumber *int64
	DateFrom   *time.Time
	DateTo     *time.Time
	Limit      int
	Offset     int
}
