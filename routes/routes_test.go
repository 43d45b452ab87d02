package routes

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/vehicle-valuation/app"
	"github.com/upb/vehicle-valuation/config"
	"go.uber.org/zap/zaptest"
)

type upstreams struct {
	superCar      *httptest.Server
	premiumCar    *httptest.Server
	superCarCalls atomic.Int32
	premiumCalls  atomic.Int32
	superCarDown  atomic.Bool
}

func newUpstreams(t *testing.T) *upstreams {
	t.Helper()
	u := &upstreams{}

	u.superCar = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u.superCarCalls.Add(1)
		if u.superCarDown.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"vin":"X","registrationDate":"2012-06-14T00:00:00.0000000","valuation":{"lowerValue":22350,"upperValue":24750}}`))
	}))
	t.Cleanup(u.superCar.Close)

	u.premiumCar = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u.premiumCalls.Add(1)
		w.Header().Set("Content-Type", "application/xml")
		_, _ = w.Write([]byte(`<root><ValuationPrivateSaleMinimum>11500</ValuationPrivateSaleMinimum><ValuationPrivateSaleMaximum>12750</ValuationPrivateSaleMaximum></root>`))
	}))
	t.Cleanup(u.premiumCar.Close)

	return u
}

func newTestServer(t *testing.T, threshold float64) (http.Handler, *upstreams) {
	t.Helper()

	u := newUpstreams(t)
	cfg := &config.Config{
		Environment: "test",
		Server: config.ServerConfig{
			Host:               "127.0.0.1",
			Port:               3000,
			RequestTimeout:     5 * time.Second,
			CORSAllowedOrigins: []string{"*"},
		},
		Database: config.DatabaseConfig{
			Driver:           config.DriverSQLite,
			ConnectionString: filepath.Join(t.TempDir(), "valuations.sqlite"),
			MaxOpenConns:     1,
		},
		Providers: config.ProvidersConfig{
			SuperCar:   config.ProviderEndpoint{BaseURL: u.superCar.URL, Timeout: time.Second},
			PremiumCar: config.ProviderEndpoint{BaseURL: u.premiumCar.URL, Timeout: time.Second},
		},
		Failover:      config.FailoverConfig{Threshold: threshold, DurationMs: 60000},
		Cache:         config.CacheConfig{Size: 8, TTL: time.Minute},
		Observability: config.ObservabilityConfig{LogLevel: "debug"},
	}

	deps, err := app.NewDependencies(context.Background(), cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = deps.Close(context.Background()) })

	return SetupRoutes(deps), u
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestHealthEndpoints(t *testing.T) {
	h, _ := newTestServer(t, 0.5)

	w := do(t, h, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = do(t, h, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusOK, w.Code)

	data := decode(t, w)["data"].(map[string]interface{})
	checks := data["checks"].(map[string]interface{})
	assert.Equal(t, "healthy", checks["database"])
	assert.Equal(t, "configured", checks["providers"])
}

func TestValuationLifecycle(t *testing.T) {
	h, u := newTestServer(t, 0.5)

	w := do(t, h, http.MethodGet, "/valuations/ABC123", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, h, http.MethodPut, "/valuations/ABC123", `{"mileage":10000}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	data := decode(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "ABC123", data["vrm"])
	assert.Equal(t, "SuperCar Valuations", data["provider"])
	assert.Equal(t, "23550", data["midpoint_value"])

	// a second request is served from storage
	w = do(t, h, http.MethodPut, "/valuations/ABC123", `{"mileage":99999}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int32(1), u.superCarCalls.Load())

	w = do(t, h, http.MethodGet, "/valuations/ABC123", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "SuperCar Valuations", decode(t, w)["data"].(map[string]interface{})["provider"])

	w = do(t, h, http.MethodGet, "/api/v1/provider-logs/ABC123", "")
	require.Equal(t, http.StatusOK, w.Code)
	logs := decode(t, w)["data"].(map[string]interface{})["logs"].([]interface{})
	require.Len(t, logs, 1)
	assert.Equal(t, float64(http.StatusOK), logs[0].(map[string]interface{})["response_code"])

	w = do(t, h, http.MethodGet, "/api/v1/provider-logs/summary", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestValuationFallback(t *testing.T) {
	h, u := newTestServer(t, 0.5)
	u.superCarDown.Store(true)

	// the first failure trips a 0.5 threshold and the secondary answers
	w := do(t, h, http.MethodPut, "/valuations/XYZ789", `{"mileage":500}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Premium Car Valuations", decode(t, w)["data"].(map[string]interface{})["provider"])
	assert.Equal(t, int32(1), u.premiumCalls.Load())

	w = do(t, h, http.MethodGet, "/api/v1/failover", "")
	require.Equal(t, http.StatusOK, w.Code)
	tracker := decode(t, w)["data"].(map[string]interface{})["tracker"].(map[string]interface{})
	assert.Equal(t, true, tracker["active"])

	// while active the primary is skipped
	w = do(t, h, http.MethodPut, "/valuations/DEF456", `{"mileage":500}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int32(1), u.superCarCalls.Load())

	w = do(t, h, http.MethodPost, "/api/v1/failover/reset", "")
	require.Equal(t, http.StatusOK, w.Code)
	tracker = decode(t, w)["data"].(map[string]interface{})["tracker"].(map[string]interface{})
	assert.Equal(t, false, tracker["active"])

	w = do(t, h, http.MethodGet, "/api/v1/provider-logs/XYZ789", "")
	require.Equal(t, http.StatusOK, w.Code)
	logs := decode(t, w)["data"].(map[string]interface{})["logs"].([]interface{})
	require.Len(t, logs, 1)
	entry := logs[0].(map[string]interface{})
	assert.Equal(t, float64(http.StatusServiceUnavailable), entry["response_code"])
	assert.Equal(t, "Premium Car Valuations", entry["provider"])
}

func TestValuationValidation(t *testing.T) {
	h, u := newTestServer(t, 0.5)

	tests := []struct {
		name string
		path string
		body string
	}{
		{"vrm too long", "/valuations/ABCD1234", `{"mileage":100}`},
		{"missing mileage", "/valuations/ABC123", `{}`},
		{"negative mileage", "/valuations/ABC123", `{"mileage":-5}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, h, http.MethodPut, tt.path, tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
	assert.Zero(t, u.superCarCalls.Load())
}

func TestRouterFallbacks(t *testing.T) {
	h, _ := newTestServer(t, 0.5)

	w := do(t, h, http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", decode(t, w)["error"])

	w = do(t, h, http.MethodDelete, "/valuations/ABC123", "")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Equal(t, "method_not_allowed", decode(t, w)["error"])
}
