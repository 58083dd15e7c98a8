// internal/handlers/sales.go
package handlers

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/ammerola/pos-ledger/internal/adapters/spreadsheet"
	"github.com/ammerola/pos-ledger/internal/core/domain"
	"github.com/ammerola/pos-ledger/internal/core/ports"
)

// SalesHandler lists and exports the ledger.
type SalesHandler struct {
	sales  ports.SalesImporter
	logger *slog.Logger
	now    func() time.Time
}

func NewSalesHandler(sales ports.SalesImporter, logger *slog.Logger) *SalesHandler {
	return &SalesHandler{
		sales:  sales,
		logger: logger.With(slog.String("handler", "sales")),
		now:    time.Now,
	}
}

// List handles GET /api/v1/sales
func (h *SalesHandler) List(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	filter, err := parseSaleFilter(r, p)
	if err != nil {
		respondDomainError(w, r, h.logger, "invalid query", err)
		return
	}

	sales, err := h.sales.List(r.Context(), filter)
	if err != nil {
		respondDomainError(w, r, h.logger, "failed to list sales", err)
		return
	}
	if sales == nil {
		sales = []domain.Sale{}
	}
	respondJSON(w, http.StatusOK, sales)
}

// ExportXLSX handles GET /api/v1/export/sales.xlsx
func (h *SalesHandler) ExportXLSX(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, ok := principal(w, r)
	if !ok {
		return
	}

	filter, err := parseSaleFilter(r, p)
	if err != nil {
		respondDomainError(w, r, h.logger, "invalid query", err)
		return
	}
	filter.Limit = -1
	filter.Offset = 0

	sales, err := h.sales.List(ctx, filter)
	if err != nil {
		respondDomainError(w, r, h.logger, "failed to export sales", err)
		return
	}

	var buf bytes.Buffer
	if err := spreadsheet.WriteLedger(&buf, sales); err != nil {
		respondDomainError(w, r, h.logger, "failed to render workbook", err)
		return
	}

	scope := filter.Terminal
	if scope == "" {
		scope = domain.TerminalAll
	}
	filename := fmt.Sprintf("ventas_%s_%s.xlsx", scope, h.now().Format("20060102_150405"))

	w.Header().Set("Content-Type", spreadsheet.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.ErrorContext(ctx, "failed to write export", slog.String("error", err.Error()))
		return
	}

	h.logger.InfoContext(ctx, "sales exported",
		slog.String("terminal", scope),
		slog.Int("rows", len(sales)))
}

// parseSaleFilter reads the ledger query. Cashiers are pinned to their own
// terminal; TODAS means no terminal filter.
func parseSaleFilter(r *http.Request, p *domain.Principal) (domain.SaleFilter, error) {
	q := r.URL.Query()
	var filter domain.SaleFilter

	terminal := q.Get("terminal")
	if terminal == "" {
		terminal = p.DefaultView()
	}
	if !p.CanView(terminal) {
		return filter, domain.NewForbiddenError("cannot view terminal " + terminal)
	}
	if terminal != domain.TerminalAll {
		filter.Terminal = terminal
	}

	if raw := q.Get("sale_number"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n <= 0 {
			return filter, domain.NewValidationError("sale_number", "must be a positive integer")
		}
		filter.SaleNumber = &n
	}

	for key, dst := range map[string]**time.Time{"from": &filter.DateFrom, "to": &filter.DateTo} {
		raw := q.Get(key)
		if raw == "" {
			continue
		}
		d, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			return filter, domain.NewValidationError(key, "must be a date in YYYY-MM-DD format")
		}
		*dst = &d
	}

	var err error
	if filter.Limit, err = queryInt(r, "limit", 0); err != nil {
		return filter, err
	}
	if filter.Offset, err = queryInt(r, "offset", 0); err != nil {
		return filter, err
	}
	return filter, nil
}
