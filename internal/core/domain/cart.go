// internal/core/domain/cart.go
package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultTaxRate is the VAT percentage applied at checkout.
var DefaultTaxRate = decimal.NewFromInt(21)

var hundred = decimal.NewFromInt(100)

// CartItem is one line of an in-progress sale.
type CartItem struct {
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	Supplier    string          `json:"supplier,omitempty"`
	Category    string          `json:"category,omitempty"`
	AddedAt     time.Time       `json:"added_at"`
}

// NewCartItem prices qty units of p at its current sale price.
func NewCartItem(p *Product, qty int, now time.Time) (CartItem, error) {
	if qty <= 0 {
		return CartItem{}, NewValidationError("quantity", "quantity must be positive")
	}
	return CartItem{
		ProductName: p.Name,
		Quantity:    qty,
		UnitPrice:   p.SalePrice,
		Subtotal:    p.SalePrice.Mul(decimal.NewFromInt(int64(qty))),
		Supplier:    p.Supplier,
		Category:    p.Category,
		AddedAt:     now,
	}, nil
}

// LineTotal is the stored subtotal, or price times quantity when none was set.
func (i CartItem) LineTotal() decimal.Decimal {
	if !i.Subtotal.IsZero() {
		return i.Subtotal
	}
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Cart is the caller-owned work in progress of one terminal session.
type Cart struct {
	Terminal string     `json:"terminal"`
	Items    []CartItem `json:"items"`
}

func (c *Cart) IsEmpty() bool {
	return c == nil || len(c.Items) == 0
}

func (c *Cart) Add(item CartItem) {
	c.Items = append(c.Items, item)
}

// Remove drops the line at index.
func (c *Cart) Remove(index int) (CartItem, error) {
	if index < 0 || index >= len(c.Items) {
		return CartItem{}, NewNotFoundError("cart_item", fmt.Sprint(index))
	}
	item := c.Items[index]
	c.Items = append(c.Items[:index], c.Items[index+1:]...)
	return item, nil
}

func (c *Cart) Clear() {
	c.Items = nil
}

// Validate rejects empty carts and malformed lines.
func (c *Cart) Validate() error {
	if c.IsEmpty() {
		return ErrEmptyCart
	}
	for i, item := range c.Items {
		if strings.TrimSpace(item.ProductName) == "" {
			return NewValidationError(fmt.Sprintf("items[%d].product_name", i), "product name is required")
		}
		if item.Quantity <= 0 {
			return NewValidationError(fmt.Sprintf("items[%d].quantity", i), "quantity must be positive")
		}
		if item.UnitPrice.IsNegative() {
			return NewValidationError(fmt.Sprintf("items[%d].unit_price", i), "unit price cannot be negative")
		}
	}
	return nil
}

// Totals are checkout amounts rounded to cents.
type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
	TaxRate  decimal.Decimal `json:"tax_rate"`
}

// CalculateTotals sums the lines and applies taxRate percent.
func CalculateTotals(items []CartItem, taxRate decimal.Decimal) Totals {
	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.LineTotal())
	}
	tax := subtotal.Mul(taxRate).Div(hundred)
	total := subtotal.Add(tax)

	return Totals{
		Subtotal: subtotal.Round(2),
		Tax:      tax.Round(2),
		Total:    total.Round(2),
		TaxRate:  taxRate,
	}
}
