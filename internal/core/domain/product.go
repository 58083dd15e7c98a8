// internal/core/domain/product.go
package domain

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// ProductStatus controls whether a product is offered at the point of sale.
type ProductStatus string

const (
	StatusAvailable   ProductStatus = "Disponible"
	StatusUnavailable ProductStatus = "No Disponible"
)

// Sentinel values used when a catalog field is absent.
const (
	CategoryUncategorized = "Sin Categoría"
	SupplierNone          = "Sin Proveedor"
	SupplierCatalog       = "Catálogo"
)

// Column widths of the products table.
const (
	MaxProductNameLen = 255
	MaxCategoryLen    = 100
	MaxSupplierLen    = 100
)

// MaxPrice bounds prices stored as NUMERIC(12,2).
var MaxPrice = decimal.New(1, 10)

// FitsColumn reports whether s fits a VARCHAR(n) column.
func FitsColumn(s string, n int) bool {
	return utf8.RuneCountInString(s) <= n
}

// Product is a catalog entry. Name is unique regardless of case.
type Product struct {
	ID          int64           `json:"id" db:"id"`
	Name        string          `json:"name" db:"name"`
	Category    string          `json:"category" db:"category"`
	Subcategory string          `json:"subcategory" db:"subcategory"`
	SalePrice   decimal.Decimal `json:"sale_price" db:"sale_price"`
	Supplier    string          `json:"supplier" db:"supplier"`
	Status      ProductStatus   `json:"status" db:"status"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
}

// NameKey is the case-folded lookup key for a product name.
func NameKey(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// ApplyDefaults fills absent category, supplier and status with sentinels.
func (p *Product) ApplyDefaults() {
	p.Name = strings.Join(strings.Fields(p.Name), " ")
	p.Category = strings.TrimSpace(p.Category)
	p.Subcategory = strings.TrimSpace(p.Subcategory)
	p.Supplier = strings.TrimSpace(p.Supplier)

	if p.Category == "" {
		p.Category = CategoryUncategorized
	}
	if p.Supplier == "" {
		p.Supplier = SupplierNone
	}
	if p.Status == "" {
		p.Status = StatusAvailable
	}
}

// Validate checks the fields an administrator must supply.
func (p *Product) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return NewValidationError("name", "product name is required")
	}
	if !FitsColumn(p.Name, MaxProductNameLen) {
		return NewValidationError("name", "product name is too long")
	}
	if !p.SalePrice.IsPositive() {
		return NewValidationError("sale_price", "price must be greater than 0")
	}
	if p.SalePrice.GreaterThanOrEqual(MaxPrice) {
		return NewValidationError("sale_price", "price is too large")
	}
	if !FitsColumn(p.Category, MaxCategoryLen) || !FitsColumn(p.Subcategory, MaxCategoryLen) {
		return NewValidationError("category", "category is too long")
	}
	if !FitsColumn(p.Supplier, MaxSupplierLen) {
		return NewValidationError("supplier", "supplier is too long")
	}
	return nil
}

// IsAvailable reports whether the product can be sold.
func (p *Product) IsAvailable() bool {
	return p.Status == StatusAvailable
}
