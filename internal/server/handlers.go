package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"rollup-dashboard/internal/cache"
	"rollup-dashboard/internal/coordinator"
	"rollup-dashboard/internal/prefs"
	"rollup-dashboard/internal/tables"
	"rollup-dashboard/models"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// applyRangeAndFilter applies optional range/address query params to the
// coordinator before serving.
func (s *Server) applyRangeAndFilter(r *http.Request) error {
	if rangeParam := r.URL.Query().Get("range"); rangeParam != "" {
		timeRange := models.TimeRange(rangeParam)
		if !timeRange.IsValid() {
			return errors.New("invalid time range: " + rangeParam)
		}
		s.coordinator.SetTimeRange(timeRange)
	}
	if r.URL.Query().Has("address") {
		s.coordinator.SetFilter(r.URL.Query().Get("address"))
	}
	return nil
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if err := s.applyRangeAndFilter(r); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	timeRange := s.coordinator.TimeRange()
	params := map[string]string{"filter": r.URL.Query().Get("address")}

	metrics, ok := s.caches.Metrics.Get(cache.MetricsKey(timeRange), params)
	if !ok {
		s.coordinator.RefreshData(r.Context())
		metrics, _ = s.caches.Metrics.Get(cache.MetricsKey(timeRange), params)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"range":   timeRange,
		"metrics": metrics,
		"status":  s.coordinator.Status(),
	})
}

func (s *Server) handleCharts(w http.ResponseWriter, r *http.Request) {
	timeRange := s.coordinator.TimeRange()
	if rangeParam := r.URL.Query().Get("range"); rangeParam != "" {
		timeRange = models.TimeRange(rangeParam)
		if !timeRange.IsValid() {
			writeError(w, http.StatusBadRequest, "invalid time range: "+rangeParam)
			return
		}
	}

	set, ok := s.charts.Get(timeRange)
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{
			"range":  timeRange,
			"series": []models.Series{},
		})
		return
	}
	writeJSON(w, http.StatusOK, set)
}

// tablePageResponse is the drill-down table payload.
type tablePageResponse struct {
	Kind        string `json:"kind"`
	Page        int    `json:"page"`
	Rows        any    `json:"rows"`
	Count       int    `json:"count"`
	DisablePrev bool   `json:"disablePrev"`
	DisableNext bool   `json:"disableNext"`
	LastError   string `json:"lastError,omitempty"`
	LastWarning string `json:"lastWarning,omitempty"`
}

// serveTable applies range/filter/navigation params to a pager and writes
// the resulting page. The served row count feeds the consistency validator.
func serveTable[T tables.Record](s *Server, w http.ResponseWriter, r *http.Request, kind string, pager *tables.Pager[T]) []T {
	query := r.URL.Query()

	if rangeParam := query.Get("range"); rangeParam != "" {
		timeRange := models.TimeRange(rangeParam)
		if !timeRange.IsValid() {
			writeError(w, http.StatusBadRequest, "invalid time range: "+rangeParam)
			return nil
		}
		pager.SetRange(timeRange)
	}
	if query.Has("address") {
		pager.SetFilter(query.Get("address"))
	}

	switch query.Get("nav") {
	case "next":
		pager.OnNext(r.Context())
	case "prev":
		pager.OnPrev(r.Context())
	default:
		pager.Load(r.Context())
	}

	rows := pager.Rows()
	s.coordinator.ReportTableCount(kind, len(rows))

	writeJSON(w, http.StatusOK, tablePageResponse{
		Kind:        kind,
		Page:        pager.Page(),
		Rows:        rows,
		Count:       len(rows),
		DisablePrev: pager.DisablePrev(),
		DisableNext: pager.DisableNext(),
		LastError:   pager.LastError(),
		LastWarning: pager.LastWarning(),
	})
	return rows
}

func (s *Server) handleBlocks(w http.ResponseWriter, r *http.Request) {
	rows := serveTable(s, w, r, models.TableBlocks, s.blocks)
	for _, block := range rows {
		s.coordinator.Quality().ObserveProposer(block.Proposer)
	}
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	rows := serveTable(s, w, r, models.TableTransactions, s.transactions)
	for _, tx := range rows {
		s.coordinator.Quality().ObserveSender(tx.From)
	}
}

func (s *Server) handleDistribution(w http.ResponseWriter, r *http.Request) {
	serveTable(s, w, r, models.TableDistribution, s.distribution)
}

// drilldownRequest toggles drill-down mode. While a drill-down is open the
// auto-refresh loop is suspended and manual refresh targets its table.
type drilldownRequest struct {
	Active bool   `json:"active"`
	Table  string `json:"table"`
}

func (s *Server) handleDrilldown(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}

	var req drilldownRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if !req.Active {
		s.coordinator.SetDrilldown(false, nil)
		writeJSON(w, http.StatusOK, s.coordinator.Status())
		return
	}

	switch req.Table {
	case models.TableBlocks:
		s.coordinator.SetDrilldown(true, s.tableRefresher(s.blocks.Refresh))
	case models.TableTransactions:
		s.coordinator.SetDrilldown(true, s.tableRefresher(s.transactions.Refresh))
	case models.TableDistribution:
		s.coordinator.SetDrilldown(true, s.tableRefresher(s.distribution.Refresh))
	default:
		writeError(w, http.StatusBadRequest, "unknown table: "+req.Table)
		return
	}
	writeJSON(w, http.StatusOK, s.coordinator.Status())
}

// tableRefresher wraps a pager refresh so manual refresh reloads from the
// backend instead of serving the cached page back.
func (s *Server) tableRefresher(refresh func(context.Context) bool) coordinator.DrilldownRefresher {
	return func(ctx context.Context) bool {
		s.caches.InvalidateTables()
		return refresh(ctx)
	}
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}
	s.coordinator.HandleManualRefresh(r.Context())
	writeJSON(w, http.StatusOK, s.coordinator.Status())
}

func (s *Server) handleQuality(w http.ResponseWriter, r *http.Request) {
	quality := s.coordinator.Quality()
	writeJSON(w, http.StatusOK, map[string]any{
		"score":           quality.QualityScore(),
		"hasWarnings":     quality.HasWarnings(),
		"hasErrors":       quality.HasErrors(),
		"lastResult":      quality.LastResult(),
		"uniqueSenders":   quality.UniqueSenders(),
		"uniqueProposers": quality.UniqueProposers(),
	})
}

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"overall": s.caches.OverallStats(),
		"caches":  s.caches.StatsByCache(),
	})
}

// refreshRatePayload is the preference endpoint body in both directions.
type refreshRatePayload struct {
	RefreshRateSeconds int `json:"refreshRateSeconds"`
}

func (s *Server) handleRefreshRate(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{
			"refreshRateSeconds": s.prefs.LoadRefreshRate(),
			"allowed":            prefs.AllowedRefreshRates(),
		})

	case http.MethodPut:
		var payload refreshRatePayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if err := s.prefs.SaveRefreshRate(payload.RefreshRateSeconds); err != nil {
			var invalid *prefs.InvalidRateError
			if errors.As(err, &invalid) {
				writeError(w, http.StatusBadRequest, invalid.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, "failed to persist preference")
			return
		}
		s.coordinator.SetRefreshIntervalSeconds(payload.RefreshRateSeconds)
		writeJSON(w, http.StatusOK, map[string]any{
			"refreshRateSeconds": payload.RefreshRateSeconds,
		})

	default:
		writeError(w, http.StatusMethodNotAllowed, "GET or PUT required")
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "ok",
		"clients":      s.hub.Count(),
		"chartVersion": s.charts.Version(),
		"ranges":       s.charts.Ranges(),
		"refresh":      s.coordinator.Status(),
	})
}
