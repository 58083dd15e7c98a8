// internal/handlers/cart.go
package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/ammerola/pos-ledger/internal/core/domain"
	"github.com/ammerola/pos-ledger/internal/core/ports"
)

// CartHandler edits the cart of the authenticated session and checks it out.
type CartHandler struct {
	carts  ports.CartService
	logger *slog.Logger
}

func NewCartHandler(carts ports.CartService, logger *slog.Logger) *CartHandler {
	return &CartHandler{
		carts:  carts,
		logger: logger.With(slog.String("handler", "cart")),
	}
}

type CartResponse struct {
	Items  []domain.CartItem `json:"items"`
	Totals domain.Totals     `json:"totals"`
}

type AddItemRequest struct {
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
}

// FinalizeRequest optionally names the terminal. Only administrators may
// sell on a terminal other than their own.
type FinalizeRequest struct {
	Terminal string `json:"terminal,omitempty"`
}

func (h *CartHandler) respondCart(w http.ResponseWriter, cart *domain.Cart) {
	items := []domain.CartItem{}
	if cart != nil && cart.Items != nil {
		items = cart.Items
	}
	respondJSON(w, http.StatusOK, CartResponse{Items: items, Totals: h.carts.Totals(cart)})
}

// Get handles GET /api/v1/cart
func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	cart, err := h.carts.Get(r.Context(), p.Session)
	if err != nil {
		respondDomainError(w, r, h.logger, "failed to load cart", err)
		return
	}
	h.respondCart(w, cart)
}

// AddItem handles POST /api/v1/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	var req AddItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondDomainError(w, r, h.logger, "failed to add item", err)
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	cart, err := h.carts.AddItem(r.Context(), p.Session, req.ProductName, req.Quantity)
	if err != nil {
		respondDomainError(w, r, h.logger, "failed to add item", err)
		return
	}
	h.respondCart(w, cart)
}

// RemoveItem handles DELETE /api/v1/cart/items/{index}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid item index")
		return
	}

	cart, err := h.carts.RemoveItem(r.Context(), p.Session, index)
	if err != nil {
		respondDomainError(w, r, h.logger, "failed to remove item", err)
		return
	}
	h.respondCart(w, cart)
}

// Clear handles DELETE /api/v1/cart
func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	cart, err := h.carts.Clear(r.Context(), p.Session)
	if err != nil {
		respondDomainError(w, r, h.logger, "failed to clear cart", err)
		return
	}
	h.respondCart(w, cart)
}

// Finalize handles POST /api/v1/sales/finalize
func (h *CartHandler) Finalize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, ok := principal(w, r)
	if !ok {
		return
	}

	var req FinalizeRequest
	if r.ContentLength > 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			respondDomainError(w, r, h.logger, "failed to finalize sale", err)
			return
		}
	}

	terminal := p.Terminal
	if req.Terminal != "" && req.Terminal != terminal {
		if !p.IsAdmin() {
			respondError(w, r, http.StatusForbidden, "cannot sell on another terminal")
			return
		}
		terminal = req.Terminal
	}

	result, err := h.carts.Checkout(ctx, p.Session, terminal)
	if err != nil {
		respondDomainError(w, r, h.logger, "failed to finalize sale", err)
		return
	}

	if result.CartRetained {
		w.Header().Set("Warning", `199 - "sale recorded but cart not cleared"`)
	}
	h.logger.InfoContext(ctx, "sale finalized",
		slog.Int64("sale_number", result.SaleNumber),
		slog.String("client_id", result.ClientID),
		slog.String("terminal", result.Terminal),
		slog.String("total", result.Total.StringFixed(2)))
	respondJSON(w, http.StatusCreated, result)
}
