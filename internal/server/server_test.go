package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rollup-dashboard/internal/api"
	"rollup-dashboard/internal/cache"
	"rollup-dashboard/internal/channels"
	"rollup-dashboard/internal/charts"
	"rollup-dashboard/internal/coordinator"
	"rollup-dashboard/internal/prefs"
	"rollup-dashboard/models"
)

func newTestServer(t *testing.T) (*Server, *api.MockBackend) {
	t.Helper()

	backend := api.NewMockBackend()
	backend.Metrics[models.Range1h] = models.DashboardMetrics{Range: models.Range1h, AvgTps: 8.1}
	backend.Series[models.Range1h] = models.SeriesSet{
		Range: models.Range1h,
		Series: []models.Series{
			{Metric: models.MetricTps, Range: models.Range1h, Points: []models.MetricPoint{
				{Timestamp: 1000, Value: 8},
			}},
		},
		LastUpdated: time.Now().UnixMilli(),
	}
	for i := 1; i <= 70; i++ {
		backend.Blocks = append(backend.Blocks, models.Block{
			Number:   uint64(i),
			Proposer: fmt.Sprintf("0xproposer%d", i%3),
		})
		backend.Transactions = append(backend.Transactions, models.Transaction{
			Hash:      fmt.Sprintf("0xtx%d", i),
			From:      fmt.Sprintf("0xsender%d", i%5),
			SortOrder: fmt.Sprintf("%04d", i),
		})
	}

	caches := cache.NewManager(cache.DefaultConfig())
	chartStore := charts.NewStore()
	coord := coordinator.New(coordinator.DefaultConfig(), backend, caches, chartStore, channels.New())
	prefStore := prefs.NewStore(t.TempDir())

	return New(DefaultConfig(), coord, backend, caches, chartStore, prefStore), backend
}

func doRequest(t *testing.T, s *Server, method, target string, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, req)

	var payload map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	}
	return rec, payload
}

func TestDashboardColdFetchAndCacheHit(t *testing.T) {
	s, backend := newTestServer(t)

	rec, payload := doRequest(t, s, http.MethodGet, "/api/dashboard", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1h", payload["range"])
	metrics := payload["metrics"].(map[string]any)
	assert.Equal(t, 8.1, metrics["avgTps"])

	calls := backend.CallCount()
	doRequest(t, s, http.MethodGet, "/api/dashboard", "")
	assert.Equal(t, calls, backend.CallCount(), "second dashboard request should be served from cache")
}

func TestDashboardRejectsInvalidRange(t *testing.T) {
	s, _ := newTestServer(t)
	rec, _ := doRequest(t, s, http.MethodGet, "/api/dashboard?range=bogus", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChartsServedAfterRefresh(t *testing.T) {
	s, _ := newTestServer(t)

	doRequest(t, s, http.MethodGet, "/api/dashboard", "")
	rec, payload := doRequest(t, s, http.MethodGet, "/api/charts?range=1h", "")
	require.Equal(t, http.StatusOK, rec.Code)
	series := payload["series"].([]any)
	require.Len(t, series, 1)
}

func TestChartsEmptyBeforeAnyRefresh(t *testing.T) {
	s, _ := newTestServer(t)
	rec, payload := doRequest(t, s, http.MethodGet, "/api/charts", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, payload["series"])
}

func TestBlocksTablePagination(t *testing.T) {
	s, _ := newTestServer(t)

	rec, payload := doRequest(t, s, http.MethodGet, "/api/blocks", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(0), payload["page"])
	assert.Equal(t, float64(50), payload["count"])
	assert.Equal(t, true, payload["disablePrev"])
	assert.Equal(t, false, payload["disableNext"])

	_, payload = doRequest(t, s, http.MethodGet, "/api/blocks?nav=next", "")
	assert.Equal(t, float64(1), payload["page"])
	assert.Equal(t, float64(20), payload["count"])
	assert.Equal(t, true, payload["disableNext"])

	_, payload = doRequest(t, s, http.MethodGet, "/api/blocks?nav=prev", "")
	assert.Equal(t, float64(0), payload["page"])
	assert.Equal(t, float64(50), payload["count"])
}

func TestBlocksTablePaginationWithEchoedRange(t *testing.T) {
	s, _ := newTestServer(t)

	// Dashboard clients keep the current range in every request URL; an
	// echoed unchanged range must not reset the page position.
	rec, payload := doRequest(t, s, http.MethodGet, "/api/blocks?range=1h", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(0), payload["page"])
	assert.Equal(t, float64(50), payload["count"])

	_, payload = doRequest(t, s, http.MethodGet, "/api/blocks?range=1h&nav=next", "")
	assert.Equal(t, float64(1), payload["page"])
	assert.Equal(t, float64(20), payload["count"])
	assert.Equal(t, true, payload["disableNext"])

	// A genuinely new range still resets to the first page.
	_, payload = doRequest(t, s, http.MethodGet, "/api/blocks?range=24h", "")
	assert.Equal(t, float64(0), payload["page"])
}

func TestTableLoadsFeedQualityCardinality(t *testing.T) {
	s, _ := newTestServer(t)

	doRequest(t, s, http.MethodGet, "/api/blocks", "")
	doRequest(t, s, http.MethodGet, "/api/transactions", "")

	_, payload := doRequest(t, s, http.MethodGet, "/api/quality", "")
	assert.Equal(t, float64(3), payload["uniqueProposers"])
	assert.Equal(t, float64(5), payload["uniqueSenders"])
}

func TestDrilldownSuspendsAndRoutesManualRefresh(t *testing.T) {
	s, backend := newTestServer(t)

	doRequest(t, s, http.MethodGet, "/api/blocks", "")
	callsBefore := backend.CallCount()

	rec, payload := doRequest(t, s, http.MethodPost, "/api/drilldown", `{"active":true,"table":"blocks"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, payload["suspended"])

	// Manual refresh now reloads the blocks table, not the dashboard.
	doRequest(t, s, http.MethodPost, "/api/refresh", "")
	assert.Equal(t, callsBefore+1, backend.CallCount())

	rec, payload = doRequest(t, s, http.MethodPost, "/api/drilldown", `{"active":false}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, payload["suspended"])
}

func TestDrilldownRejectsUnknownTable(t *testing.T) {
	s, _ := newTestServer(t)
	rec, _ := doRequest(t, s, http.MethodPost, "/api/drilldown", `{"active":true,"table":"nope"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRefreshRateRoundTrip(t *testing.T) {
	s, _ := newTestServer(t)

	rec, payload := doRequest(t, s, http.MethodGet, "/api/preferences/refresh-rate", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(prefs.DefaultRefreshRate), payload["refreshRateSeconds"])

	rec, _ = doRequest(t, s, http.MethodPut, "/api/preferences/refresh-rate", `{"refreshRateSeconds":60}`)
	require.Equal(t, http.StatusOK, rec.Code)

	_, payload = doRequest(t, s, http.MethodGet, "/api/preferences/refresh-rate", "")
	assert.Equal(t, float64(60), payload["refreshRateSeconds"])

	// The live refresh loop picks the new interval up immediately.
	_, payload = doRequest(t, s, http.MethodGet, "/api/health", "")
	refresh := payload["refresh"].(map[string]any)
	assert.Equal(t, float64(60), refresh["intervalSeconds"])
}

func TestRefreshRateRejectsDisallowedValue(t *testing.T) {
	s, _ := newTestServer(t)
	rec, payload := doRequest(t, s, http.MethodPut, "/api/preferences/refresh-rate", `{"refreshRateSeconds":7}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, payload["error"], "not allowed")
}

func TestCacheStatsShape(t *testing.T) {
	s, _ := newTestServer(t)

	doRequest(t, s, http.MethodGet, "/api/dashboard", "")
	_, payload := doRequest(t, s, http.MethodGet, "/api/cache/stats", "")

	caches := payload["caches"].(map[string]any)
	assert.Contains(t, caches, "metrics")
	assert.Contains(t, caches, "charts")
	assert.Contains(t, caches, "tables")
}

func TestHealthEndpoint(t *testing.T) {
	s, _ := newTestServer(t)
	rec, payload := doRequest(t, s, http.MethodGet, "/api/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", payload["status"])
	assert.Equal(t, float64(0), payload["clients"])
}
