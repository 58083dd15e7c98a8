// internal/handlers/catalog.go
package handlers

import (
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/ammerola/pos-ledger/internal/core/domain"
	"github.com/ammerola/pos-ledger/internal/core/ports"
)

// CatalogHandler serves product lookup and administrator edits.
type CatalogHandler struct {
	catalog ports.CatalogService
	logger  *slog.Logger
}

func NewCatalogHandler(catalog ports.CatalogService, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{
		catalog: catalog,
		logger:  logger.With(slog.String("handler", "catalog")),
	}
}

// ProductListResponse is one page of the catalog.
type ProductListResponse struct {
	Products []domain.Product `json:"products"`
	Total    int64            `json:"total"`
	Limit    int              `json:"limit"`
	Offset   int              `json:"offset"`
}

// ProductRequest is the body of product create and update.
type ProductRequest struct {
	Name        string               `json:"name"`
	Category    string               `json:"category"`
	Subcategory string               `json:"subcategory"`
	SalePrice   decimal.Decimal      `json:"sale_price"`
	Supplier    string               `json:"supplier"`
	Status      domain.ProductStatus `json:"status"`
}

func (req ProductRequest) toDomain() *domain.Product {
	p := &domain.Product{
		Name:        req.Name,
		Category:    req.Category,
		Subcategory: req.Subcategory,
		SalePrice:   req.SalePrice,
		Supplier:    req.Supplier,
		Status:      req.Status,
	}
	p.ApplyDefaults()
	return p
}

// List handles GET /api/v1/products
func (h *CatalogHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit, err := queryInt(r, "limit", 50)
	if err != nil {
		respondDomainError(w, r, h.logger, "invalid query", err)
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		respondDomainError(w, r, h.logger, "invalid query", err)
		return
	}

	params := ports.ProductListParams{
		Search:   q.Get("q"),
		Category: q.Get("category"),
		Status:   domain.ProductStatus(q.Get("status")),
		Limit:    limit,
		Offset:   offset,
	}
	products, total, err := h.catalog.List(r.Context(), params)
	if err != nil {
		respondDomainError(w, r, h.logger, "failed to list products", err)
		return
	}

	respondJSON(w, http.StatusOK, ProductListResponse{
		Products: products,
		Total:    total,
		Limit:    limit,
		Offset:   offset,
	})
}

// Search handles GET /api/v1/products/search
func (h *CatalogHandler) Search(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		respondDomainError(w, r, h.logger, "failed to search products", err)
		return
	}
	respondJSON(w, http.StatusOK, products)
}

// Get handles GET /api/v1/products/{name}
func (h *CatalogHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.catalog.Get(r.Context(), r.PathValue("name"))
	if err != nil {
		respondDomainError(w, r, h.logger, "failed to get product", err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

// Create handles POST /api/v1/products
func (h *CatalogHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req ProductRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondDomainError(w, r, h.logger, "failed to create product", err)
		return
	}

	p := req.toDomain()
	if err := h.catalog.Create(ctx, p); err != nil {
		respondDomainError(w, r, h.logger, "failed to create product", err)
		return
	}

	h.logger.InfoContext(ctx, "product created", slog.String("name", p.Name))
	respondJSON(w, http.StatusCreated, p)
}

// Update handles PUT /api/v1/products/{name}
func (h *CatalogHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	original := r.PathValue("name")

	var req ProductRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondDomainError(w, r, h.logger, "failed to update product", err)
		return
	}
	if req.Name == "" {
		req.Name = original
	}

	p := req.toDomain()
	if err := h.catalog.Update(ctx, original, p); err != nil {
		respondDomainError(w, r, h.logger, "failed to update product", err)
		return
	}

	h.logger.InfoContext(ctx, "product updated",
		slog.String("original_name", original),
		slog.String("name", p.Name))
	respondJSON(w, http.StatusOK, p)
}

// Delete handles DELETE /api/v1/products/{name}
func (h *CatalogHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name := r.PathValue("name")

	if err := h.catalog.Delete(ctx, name); err != nil {
		respondDomainError(w, r, h.logger, "failed to delete product", err)
		return
	}

	h.logger.InfoContext(ctx, "product deleted", slog.String("name", name))
	w.WriteHeader(http.StatusNoContent)
}
