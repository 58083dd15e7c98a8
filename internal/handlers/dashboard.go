// internal/handlers/dashboard.go
package handlers

import (
	"log/slog"
	"net/http"

	"github.com/ammerola/pos-ledger/internal/core/ports"
)

// DashboardHandler serves statistics and terminal counters.
type DashboardHandler struct {
	dashboards ports.DashboardService
	counters   ports.CounterService
	queue      ports.JobQueue
	logger     *slog.Logger
}

func NewDashboardHandler(
	dashboards ports.DashboardService,
	counters ports.CounterService,
	queue ports.JobQueue,
	logger *slog.Logger,
) *DashboardHandler {
	return &DashboardHandler{
		dashboards: dashboards,
		counters:   counters,
		queue:      queue,
		logger:     logger.With(slog.String("handler", "dashboard")),
	}
}

// GetDashboard handles GET /api/v1/dashboard and
// GET /api/v1/dashboard/{terminal}. Without a terminal the caller's default
// view is used.
func (h *DashboardHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	terminal := r.PathValue("terminal")
	if terminal == "" {
		terminal = p.DefaultView()
	}
	if !p.CanView(terminal) {
		respondError(w, r, http.StatusForbidden, "cannot view terminal "+terminal)
		return
	}

	stats, err := h.dashboards.Stats(r.Context(), terminal)
	if err != nil {
		respondDomainError(w, r, h.logger, "failed to load dashboard", err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

// Diagnostics handles GET /api/v1/diagnostics
func (h *DashboardHandler) Diagnostics(w http.ResponseWriter, r *http.Request) {
	diag, err := h.dashboards.Diagnostics(r.Context())
	if err != nil {
		respondDomainError(w, r, h.logger, "failed to load diagnostics", err)
		return
	}
	respondJSON(w, http.StatusOK, diag)
}

// ListCounters handles GET /api/v1/counters. Cashiers only see their own.
func (h *DashboardHandler) ListCounters(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	if !p.IsAdmin() {
		snap, err := h.counters.Get(r.Context(), p.Terminal)
		if err != nil {
			respondDomainError(w, r, h.logger, "failed to load counter", err)
			return
		}
		respondJSON(w, http.StatusOK, []any{snap})
		return
	}

	snapshots, err := h.counters.List(r.Context())
	if err != nil {
		respondDomainError(w, r, h.logger, "failed to list counters", err)
		return
	}
	respondJSON(w, http.StatusOK, snapshots)
}

// ReconcileCounters handles POST /api/v1/counters/reconcile. With
// ?async=true the rebuild is queued instead of run inline.
func (h *DashboardHandler) ReconcileCounters(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.URL.Query().Get("async") == "true" && h.queue != nil {
		id, err := h.queue.EnqueueCounterReconcile(ctx)
		if err != nil {
			respondDomainError(w, r, h.logger, "failed to queue reconcile", err)
			return
		}
		respondJSON(w, http.StatusAccepted, map[string]string{"job_id": id, "status": "queued"})
		return
	}

	snapshots, err := h.counters.Reconcile(ctx)
	if err != nil {
		respondDomainError(w, r, h.logger, "failed to reconcile counters", err)
		return
	}

	h.logger.InfoContext(ctx, "counters reconciled", slog.Int("terminals", len(snapshots)))
	respondJSON(w, http.StatusOK, snapshots)
}
