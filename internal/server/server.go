// Package server exposes the dashboard data layer over HTTP: REST
// endpoints for metrics, charts, drill-down tables and preferences, plus
// the WebSocket push endpoint.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"rollup-dashboard/internal/api"
	"rollup-dashboard/internal/cache"
	"rollup-dashboard/internal/charts"
	"rollup-dashboard/internal/coordinator"
	"rollup-dashboard/internal/logging"
	"rollup-dashboard/internal/prefs"
	"rollup-dashboard/internal/tables"
	"rollup-dashboard/internal/ws"
	"rollup-dashboard/models"
)

// Config holds server configuration.
type Config struct {
	Addr            string        `json:"addr"`
	ShutdownTimeout time.Duration `json:"shutdownTimeout"`
}

// DefaultConfig returns default server configuration.
func DefaultConfig() Config {
	return Config{
		Addr:            ":8080",
		ShutdownTimeout: 10 * time.Second,
	}
}

// Server wires the data-layer components behind the HTTP surface.
type Server struct {
	cfg         Config
	coordinator *coordinator.Coordinator
	caches      *cache.Manager
	charts      *charts.Store
	prefs       *prefs.Store
	hub         *ws.Hub
	wsHandler   *ws.Handler
	log         zerolog.Logger

	blocks       *tables.Pager[models.Block]
	transactions *tables.Pager[models.Transaction]
	distribution *tables.Pager[models.DistributionSlice]
}

// New creates the server and its table pagers. Table fetches go through
// the table cache before hitting the backend.
func New(cfg Config, coord *coordinator.Coordinator, backend api.Backend, caches *cache.Manager, chartStore *charts.Store, prefStore *prefs.Store) *Server {
	s := &Server{
		cfg:         cfg,
		coordinator: coord,
		caches:      caches,
		charts:      chartStore,
		prefs:       prefStore,
		log:         logging.Component("server"),
	}

	s.hub = ws.NewHub(func(count int) {
		coord.SetVisible(count > 0)
	})
	s.wsHandler = ws.NewHandler(s.hub, coord)

	timeRange := coord.TimeRange()
	s.blocks = tables.NewPager(cachedTableFetch(caches, models.TableBlocks, backend.FetchBlocks), timeRange)
	s.transactions = tables.NewPager(cachedTableFetch(caches, models.TableTransactions, backend.FetchTransactions), timeRange)
	s.distribution = tables.NewPager(cachedTableFetch(caches, models.TableDistribution, backend.FetchDistribution), timeRange)

	return s
}

// cachedTableFetch wraps a backend page fetch with the table cache. Pages
// are keyed by range, kind and cursor so invalidating a range drops every
// cached page under it.
func cachedTableFetch[T tables.Record](caches *cache.Manager, kind string, fetch func(context.Context, api.PageQuery) (api.Result[[]T], error)) tables.FetchFunc[T] {
	return func(ctx context.Context, q api.PageQuery) (api.Result[[]T], error) {
		key := cache.TableKey(q.Range, kind)
		params := map[string]string{
			"address": q.Address,
			"after":   q.StartingAfter,
			"before":  q.EndingBefore,
		}
		if page, ok := caches.Tables.Get(key, params); ok {
			if rows, ok := page.Rows.([]T); ok {
				return api.Result[[]T]{Data: &rows}, nil
			}
		}

		result, err := fetch(ctx, q)
		if err == nil && result.Data != nil {
			caches.Tables.Set(key, models.TablePage{
				Kind:      kind,
				Range:     q.Range,
				Rows:      *result.Data,
				Count:     len(*result.Data),
				FetchedAt: time.Now().UnixMilli(),
			}, params)
		}
		return result, err
	}
}

// Hub returns the WebSocket hub, used during shutdown.
func (s *Server) Hub() *ws.Hub { return s.hub }

// Routes builds the HTTP mux.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/dashboard", s.handleDashboard)
	mux.HandleFunc("/api/charts", s.handleCharts)
	mux.HandleFunc("/api/blocks", s.handleBlocks)
	mux.HandleFunc("/api/transactions", s.handleTransactions)
	mux.HandleFunc("/api/distribution", s.handleDistribution)
	mux.HandleFunc("/api/drilldown", s.handleDrilldown)
	mux.HandleFunc("/api/refresh", s.handleRefresh)
	mux.HandleFunc("/api/quality", s.handleQuality)
	mux.HandleFunc("/api/cache/stats", s.handleCacheStats)
	mux.HandleFunc("/api/preferences/refresh-rate", s.handleRefreshRate)
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/ws", s.wsHandler)

	return mux
}

// Start serves HTTP until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:    s.cfg.Addr,
		Handler: s.Routes(),
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.cfg.Addr).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info().Msg("shutting down http server")
	s.hub.CloseAll()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
