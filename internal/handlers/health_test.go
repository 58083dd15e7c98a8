package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ammerola/pos-ledger/internal/handlers"
	"github.com/ammerola/pos-ledger/test/helpers"
)

type fakeDB struct {
	err error
}

func (f fakeDB) Ping(context.Context) error { return f.err }

func (f fakeDB) Health(context.Context) map[string]any {
	return map[string]any{"total_conns": 2}
}

func TestHealthHandler(t *testing.T) {
	tests := []struct {
		name           string
		dbErr          error
		stopRedis      bool
		expectedStatus int
		wantStatus     string
	}{
		{name: "all_healthy", expectedStatus: http.StatusOK, wantStatus: "healthy"},
		{name: "database_down", dbErr: errors.New("connection refused"), expectedStatus: http.StatusServiceUnavailable, wantStatus: "degraded"},
		{name: "redis_down", stopRedis: true, expectedStatus: http.StatusServiceUnavailable, wantStatus: "degraded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := helpers.SetupTestRedis(t)
			if tt.stopRedis {
				r.Server.Close()
			}
			h := handlers.NewHealthHandler(fakeDB{err: tt.dbErr}, r.Client, nil, helpers.LoadTestConfig(), helpers.TestLogger())

			w := httptest.NewRecorder()
			h.Health(w, httptest.NewRequest(http.MethodGet, "/health", nil))

			require.Equal(t, tt.expectedStatus, w.Code)
			var body handlers.HealthStatus
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.wantStatus, body.Status)
			assert.Equal(t, "test", body.Version)
			assert.Contains(t, body.Services, "database")
			assert.Contains(t, body.Services, "redis")
			assert.NotContains(t, body.Services, "asynq")

			w = httptest.NewRecorder()
			h.Readiness(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
			assert.Equal(t, tt.expectedStatus, w.Code)
		})
	}
}
