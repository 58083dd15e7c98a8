//go:build e2e
// +build e2e

package e2e_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/ammerola/pos-ledger/internal/adapters/auth"
	"github.com/ammerola/pos-ledger/internal/adapters/db"
	redis_a "github.com/ammerola/pos-ledger/internal/adapters/redis_adapter"
	"github.com/ammerola/pos-ledger/internal/adapters/spreadsheet"
	"github.com/ammerola/pos-ledger/internal/adapters/storage"
	"github.com/ammerola/pos-ledger/internal/core/domain"
	"github.com/ammerola/pos-ledger/internal/core/services"
	"github.com/ammerola/pos-ledger/internal/handlers"
	"github.com/ammerola/pos-ledger/internal/handlers/middleware"
	"github.com/ammerola/pos-ledger/test/helpers"
)

type POSWorkflowSuite struct {
	suite.Suite
	server    *httptest.Server
	client    *http.Client
	baseURL   string
	testDB    *helpers.TestDB
	testRedis *helpers.TestRedis
	counters  *services.CounterService
}

func (s *POSWorkflowSuite) SetupSuite() {
	s.testDB = helpers.SetupTestDB(s.T())
	s.testRedis = helpers.SetupTestRedis(s.T())
	s.server = s.startTestServer()
	s.client = &http.Client{Timeout: 10 * time.Second}
	s.baseURL = s.server.URL + "/api/v1"
}

func (s *POSWorkflowSuite) TearDownSuite() {
	s.server.Close()
}

func (s *POSWorkflowSuite) SetupTest() {
	helpers.TruncateAllTables(s.T(), s.testDB.PgxPool)
	s.testRedis.Server.FlushAll()
	_, err := s.counters.Reconcile(context.Background())
	s.Require().NoError(err)
}

func (s *POSWorkflowSuite) TestCheckoutWorkflow() {
	admin := s.login("admin", "admin123")
	pos1 := s.login("pos1", "pos1123")

	// 1. Admin adds two products
	for _, p := range []map[string]any{
		{"name": "Yerba Mate 1kg", "sale_price": "12.50", "category": "Almacén"},
		{"name": "Café Molido 500g", "sale_price": "8.00"},
	} {
		resp := s.request(admin, http.MethodPost, "/products", p)
		s.Equal(http.StatusCreated, resp.StatusCode)
		resp.Body.Close()
	}

	// 2. The cashier cannot edit the catalog
	resp := s.request(pos1, http.MethodDelete, "/products/Yerba%20Mate%201kg", nil)
	s.Equal(http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	// 3. Search needs two characters and finds the product
	resp = s.request(pos1, http.MethodGet, "/products/search?q=yerba", nil)
	s.Equal(http.StatusOK, resp.StatusCode)
	var found []domain.Product
	s.decode(resp, &found)
	s.Require().Len(found, 1)
	s.Equal("Yerba Mate 1kg", found[0].Name)

	// 4. Fill the cart
	resp = s.request(pos1, http.MethodPost, "/cart/items", map[string]any{"product_name": "yerba mate 1kg", "quantity": 2})
	s.Equal(http.StatusOK, resp.StatusCode)
	resp.Body.Close()
	resp = s.request(pos1, http.MethodPost, "/cart/items", map[string]any{"product_name": "Café Molido 500g"})
	s.Equal(http.StatusOK, resp.StatusCode)
	var cart handlers.CartResponse
	s.decode(resp, &cart)
	s.Len(cart.Items, 2)
	s.Equal("33", cart.Totals.Subtotal.String())

	// 5. Finalize
	resp = s.request(pos1, http.MethodPost, "/sales/finalize", nil)
	s.Equal(http.StatusCreated, resp.StatusCode)
	var result domain.FinalizeResult
	s.decode(resp, &result)
	s.Equal(int64(1), result.SaleNumber)
	s.Equal("CLIENTE-POS1-0001", result.ClientID)
	s.Equal(2, result.LineCount)
	s.Equal("39.93", result.Total.StringFixed(2))

	// 6. The cart is cleared
	resp = s.request(pos1, http.MethodGet, "/cart", nil)
	s.decode(resp, &cart)
	s.Empty(cart.Items)

	// 7. The ledger holds both lines
	resp = s.request(pos1, http.MethodGet, "/sales?sale_number=1", nil)
	s.Equal(http.StatusOK, resp.StatusCode)
	var lines []domain.Sale
	s.decode(resp, &lines)
	s.Len(lines, 2)

	// 8. The dashboard reflects the sale and previews the next client
	resp = s.request(pos1, http.MethodGet, "/dashboard", nil)
	s.Equal(http.StatusOK, resp.StatusCode)
	var stats domain.DashboardStats
	s.decode(resp, &stats)
	s.Equal(domain.TerminalPOS1, stats.Terminal)
	s.Equal(int64(1), stats.TotalSales)
	s.Equal("CLIENTE-POS1-0002", stats.NextClientID)

	resp = s.request(pos1, http.MethodGet, "/dashboard/POS2", nil)
	s.Equal(http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	// 9. The export round-trips through the workbook reader
	resp = s.request(admin, http.MethodGet, "/export/sales.xlsx?terminal=POS1", nil)
	s.Equal(http.StatusOK, resp.StatusCode)
	data, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	s.Require().NoError(err)
	rows, err := spreadsheet.ReadBytes(data)
	s.Require().NoError(err)
	s.Len(rows, 2)
}

func (s *POSWorkflowSuite) TestEmptyCartIsRejected() {
	pos2 := s.login("pos2", "pos2123")

	resp := s.request(pos2, http.MethodPost, "/sales/finalize", nil)
	s.Equal(http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func (s *POSWorkflowSuite) TestConcurrentCheckoutsOnOneTerminal() {
	admin := s.login("admin", "admin123")
	resp := s.request(admin, http.MethodPost, "/products", map[string]any{"name": "Pan", "sale_price": "2"})
	s.Require().Equal(http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	const sessions = 5
	tokens := make([]string, sessions)
	for i := range tokens {
		tokens[i] = s.login("pos3", "pos3123")
		resp := s.request(tokens[i], http.MethodPost, "/cart/items", map[string]any{"product_name": "Pan"})
		s.Require().Equal(http.StatusOK, resp.StatusCode)
		resp.Body.Close()
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		numbers = map[int64]bool{}
	)
	for _, token := range tokens {
		wg.Add(1)
		go func(token string) {
			defer wg.Done()
			resp := s.request(token, http.MethodPost, "/sales/finalize", nil)
			var result domain.FinalizeResult
			if resp.StatusCode == http.StatusCreated {
				s.decode(resp, &result)
			} else {
				resp.Body.Close()
			}
			mu.Lock()
			numbers[result.SaleNumber] = true
			mu.Unlock()
		}(token)
	}
	wg.Wait()

	for n := int64(1); n <= sessions; n++ {
		s.True(numbers[n], "sale number %d missing", n)
	}
}

func (s *POSWorkflowSuite) TestHealthCheck() {
	resp, err := s.client.Get(s.server.URL + "/health")
	s.Require().NoError(err)
	s.Equal(http.StatusOK, resp.StatusCode)

	var health map[string]any
	s.decode(resp, &health)
	s.Equal("healthy", health["status"])
	s.Contains(health, "services")
}

func (s *POSWorkflowSuite) startTestServer() *httptest.Server {
	log := helpers.TestLogger()
	cfg := helpers.LoadTestConfig()
	database := s.testDB.Database
	pool := database.Pool()

	cache := redis_a.NewCache(s.testRedis.Client, time.Minute, log)
	products := db.NewProductRepository(log)
	sales := db.NewSaleRepository(log)
	counters := db.NewCounterRepository(log)

	catalog := services.NewCatalogService(database, pool, products, cache, log)
	salesSvc := services.NewSalesImportService(database, pool, sales, cache, log)
	s.counters = services.NewCounterService(database, pool, counters, sales, nil, log)
	finalizer := services.NewFinalizeService(database, counters, sales, cache, cfg.POS.TaxRate, log)
	dashboards := services.NewDashboardService(pool, db.NewStatsRepository(database.SQLDB(), log), counters, cache, "$", log)
	carts := services.NewCartService(redis_a.NewCartStore(s.testRedis.Client, time.Hour, log),
		catalog, finalizer, cfg.POS.TaxRate, log)

	creds, err := auth.DevelopmentCredentials()
	s.Require().NoError(err)
	tokens, err := auth.NewJWTManager("e2e-secret-that-is-long-enough-for-hmac", time.Hour)
	s.Require().NoError(err)

	files, err := storage.NewLocalStorage(s.T().TempDir(), log)
	s.Require().NoError(err)

	mux := http.NewServeMux()
	handlers.Routes{
		Auth:      handlers.NewAuthHandler(auth.NewStaticAuthenticator(creds, log), tokens, log),
		Catalog:   handlers.NewCatalogHandler(catalog, log),
		Cart:      handlers.NewCartHandler(carts, log),
		Sales:     handlers.NewSalesHandler(salesSvc, log),
		Dashboard: handlers.NewDashboardHandler(dashboards, s.counters, nil, log),
		Import:    handlers.NewImportHandler(files, nil, 1<<20, log),
		Health:    handlers.NewHealthHandler(database, s.testRedis.Client, nil, cfg, log),
	}.Register(mux)

	return httptest.NewServer(middleware.Chain(mux,
		middleware.RequestID(middleware.DefaultRequestIDHeader),
		middleware.Logger(log),
		middleware.Recovery(log),
		middleware.Auth(tokens, handlers.PublicPaths...),
	))
}

func (s *POSWorkflowSuite) login(username, password string) string {
	resp := s.request("", http.MethodPost, "/auth/login", map[string]string{
		"username": username,
		"password": password,
	})
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	var out handlers.LoginResponse
	s.decode(resp, &out)
	s.Require().NotEmpty(out.Token)
	return out.Token
}

func (s *POSWorkflowSuite) request(token, method, path string, body any) *http.Response {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		s.Require().NoError(err)
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, s.baseURL+path, reqBody)
	s.Require().NoError(err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
	}

	resp, err := s.client.Do(req)
	s.Require().NoError(err)
	return resp
}

func (s *POSWorkflowSuite) decode(resp *http.Response, v any) {
	defer resp.Body.Close()
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(v))
}

func TestPOSWorkflowSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping E2E tests in short mode")
	}
	suite.Run(t, new(POSWorkflowSuite))
}
