package handlers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/ammerola/pos-ledger/internal/core/domain"
	"github.com/ammerola/pos-ledger/internal/handlers"
	"github.com/ammerola/pos-ledger/internal/handlers/middleware"
	"github.com/ammerola/pos-ledger/test/helpers"
	"github.com/ammerola/pos-ledger/test/mocks"
)

var (
	adminPrincipal = &domain.Principal{Username: "admin", Role: domain.RoleAdmin, Terminal: domain.TerminalAll, Session: "sess-admin"}
	pos1Principal  = &domain.Principal{Username: "pos1", Role: domain.RolePOS, Terminal: "POS1", Session: "sess-pos1"}
)

type testDeps struct {
	auth       *mocks.MockAuthenticator
	tokens     *mocks.MockTokenManager
	catalog    *mocks.MockCatalogService
	carts      *mocks.MockCartService
	sales      *mocks.MockSalesImporter
	dashboards *mocks.MockDashboardService
	counters   *mocks.MockCounterService
	storage    *mocks.MockFileStorage
	queue      *mocks.MockJobQueue
	mux        *http.ServeMux
}

func newTestRouter(t *testing.T) *testDeps {
	t.Helper()
	ctrl := gomock.NewController(t)
	log := helpers.TestLogger()

	d := &testDeps{
		auth:       mocks.NewMockAuthenticator(ctrl),
		tokens:     mocks.NewMockTokenManager(ctrl),
		catalog:    mocks.NewMockCatalogService(ctrl),
		carts:      mocks.NewMockCartService(ctrl),
		sales:      mocks.NewMockSalesImporter(ctrl),
		dashboards: mocks.NewMockDashboardService(ctrl),
		counters:   mocks.NewMockCounterService(ctrl),
		storage:    mocks.NewMockFileStorage(ctrl),
		queue:      mocks.NewMockJobQueue(ctrl),
		mux:        http.NewServeMux(),
	}

	handlers.Routes{
		Auth:      handlers.NewAuthHandler(d.auth, d.tokens, log),
		Catalog:   handlers.NewCatalogHandler(d.catalog, log),
		Cart:      handlers.NewCartHandler(d.carts, log),
		Sales:     handlers.NewSalesHandler(d.sales, log),
		Dashboard: handlers.NewDashboardHandler(d.dashboards, d.counters, d.queue, log),
		Import:    handlers.NewImportHandler(d.storage, d.queue, 10<<20, log),
	}.Register(d.mux)

	return d
}

// do serves req as p; a nil principal sends the request anonymously.
func (d *testDeps) do(p *domain.Principal, method, target string, body io.Reader) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if p != nil {
		req = req.WithContext(middleware.WithPrincipal(req.Context(), p))
	}
	w := httptest.NewRecorder()
	d.mux.ServeHTTP(w, req)
	return w
}

func (d *testDeps) doMultipart(p *domain.Principal, target, fileName string, content []byte) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, _ := mw.CreateFormFile("file", fileName)
	_, _ = part.Write(content)
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if p != nil {
		req = req.WithContext(middleware.WithPrincipal(req.Context(), p))
	}
	w := httptest.NewRecorder()
	d.mux.ServeHTTP(w, req)
	return w
}

func jsonBody(t *testing.T, v any) io.Reader {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(b)
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) handlers.ErrorResponse {
	t.Helper()
	var resp handlers.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}
