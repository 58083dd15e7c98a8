// internal/handlers/routes.go
package handlers

import (
	"net/http"

	"github.com/ammerola/pos-ledger/internal/handlers/middleware"
)

const apiV1 = "/api/v1"

// PublicPaths are served without a bearer token.
var PublicPaths = []string{"/health", "/ready", apiV1 + "/auth/login"}

// Routes groups the handlers served by the API. Health may be nil.
type Routes struct {
	Auth      *AuthHandler
	Catalog   *CatalogHandler
	Cart      *CartHandler
	Sales     *SalesHandler
	Dashboard *DashboardHandler
	Import    *ImportHandler
	Health    *HealthHandler
}

// Register mounts every route on mux. Administrator-only routes are wrapped
// in middleware.RequireAdmin; authentication itself is applied around mux.
func (rt Routes) Register(mux *http.ServeMux) {
	admin := func(h http.HandlerFunc) http.Handler {
		return middleware.RequireAdmin(h)
	}

	if rt.Health != nil {
		mux.HandleFunc("GET /health", rt.Health.Health)
		mux.HandleFunc("GET /ready", rt.Health.Readiness)
	}

	mux.HandleFunc("POST "+apiV1+"/auth/login", rt.Auth.Login)
	mux.HandleFunc("GET "+apiV1+"/auth/me", rt.Auth.Me)

	mux.HandleFunc("GET "+apiV1+"/products", rt.Catalog.List)
	mux.HandleFunc("GET "+apiV1+"/products/search", rt.Catalog.Search)
	mux.HandleFunc("GET "+apiV1+"/products/{name}", rt.Catalog.Get)
	mux.Handle("POST "+apiV1+"/products", admin(rt.Catalog.Create))
	mux.Handle("PUT "+apiV1+"/products/{name}", admin(rt.Catalog.Update))
	mux.Handle("DELETE "+apiV1+"/products/{name}", admin(rt.Catalog.Delete))

	mux.HandleFunc("GET "+apiV1+"/cart", rt.Cart.Get)
	mux.HandleFunc("POST "+apiV1+"/cart/items", rt.Cart.AddItem)
	mux.HandleFunc("DELETE "+apiV1+"/cart/items/{index}", rt.Cart.RemoveItem)
	mux.HandleFunc("DELETE "+apiV1+"/cart", rt.Cart.Clear)

	mux.HandleFunc("POST "+apiV1+"/sales/finalize", rt.Cart.Finalize)
	mux.HandleFunc("GET "+apiV1+"/sales", rt.Sales.List)
	mux.HandleFunc("GET "+apiV1+"/export/sales.xlsx", rt.Sales.ExportXLSX)

	mux.HandleFunc("GET "+apiV1+"/dashboard", rt.Dashboard.GetDashboard)
	mux.HandleFunc("GET "+apiV1+"/dashboard/{terminal}", rt.Dashboard.GetDashboard)
	mux.Handle("GET "+apiV1+"/diagnostics", admin(rt.Dashboard.Diagnostics))
	mux.HandleFunc("GET "+apiV1+"/counters", rt.Dashboard.ListCounters)
	mux.Handle("POST "+apiV1+"/counters/reconcile", admin(rt.Dashboard.ReconcileCounters))

	mux.Handle("POST "+apiV1+"/import/catalog", admin(rt.Import.ImportCatalog))
	mux.Handle("POST "+apiV1+"/import/catalog/pdf", admin(rt.Import.ImportCatalogPDF))
	mux.Handle("POST "+apiV1+"/import/sales", admin(rt.Import.ImportSales))
	mux.Handle("GET "+apiV1+"/import/status/{id}", admin(rt.Import.Status))
}
