package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"rollup-dashboard/config"
	"rollup-dashboard/internal/api"
	"rollup-dashboard/internal/cache"
	"rollup-dashboard/internal/channels"
	"rollup-dashboard/internal/charts"
	"rollup-dashboard/internal/coordinator"
	"rollup-dashboard/internal/logging"
	"rollup-dashboard/internal/prefs"
	"rollup-dashboard/internal/server"
	"rollup-dashboard/internal/ws"
	"rollup-dashboard/models"
)

var version = "dev"

type serveFlags struct {
	addr            string
	backendURL      string
	refreshInterval time.Duration
	mock            bool
}

func main() {
	flags := serveFlags{}

	root := &cobra.Command{
		Use:   "rollup-dashboard",
		Short: "Observability dashboard data layer for a rollup network",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, flags)
		},
	}
	root.Flags().StringVar(&flags.addr, "addr", "", "listen address (default :8080)")
	root.Flags().StringVar(&flags.backendURL, "backend-url", "", "upstream metrics API base URL")
	root.Flags().DurationVar(&flags.refreshInterval, "refresh-interval", 0, "auto-refresh interval (default 30s)")
	root.Flags().BoolVar(&flags.mock, "mock", false, "serve generated data instead of calling upstream")

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version)
		},
	})

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, flags serveFlags) error {
	log := logging.Component("main")
	log.Info().Str("version", version).Msg("starting rollup dashboard")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := config.DefaultConfig()
	if flags.addr != "" {
		cfg.Server.Addr = flags.addr
	}
	if flags.backendURL != "" {
		cfg.API.BaseURL = flags.backendURL
	}
	if flags.refreshInterval > 0 {
		cfg.Coordinator.RefreshInterval = flags.refreshInterval
	}
	if cmd.Flags().Changed("mock") {
		cfg.MockBackend = flags.mock
	}

	var backend api.Backend
	if cfg.MockBackend {
		log.Warn().Msg("serving generated data, upstream calls disabled")
		backend = seededMockBackend()
	} else {
		backend = api.NewClient(cfg.API)
	}

	caches := cache.NewManager(cfg.Cache)
	chartStore := charts.NewStore()
	chans := channels.New()

	coord := coordinator.New(cfg.Coordinator, backend, caches, chartStore, chans)

	prefStore := prefs.NewStore(cfg.PrefsDir)
	coord.SetRefreshIntervalSeconds(prefStore.LoadRefreshRate())

	srv := server.New(cfg.Server, coord, backend, caches, chartStore, prefStore)
	broadcaster := ws.NewBroadcaster(srv.Hub(), chans)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		coord.Start(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		broadcaster.Run(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := srv.Start(ctx); err != nil {
			log.Error().Err(err).Msg("server error")
		}
	}()

	log.Info().Str("addr", cfg.Server.Addr).Msg("rollup dashboard started")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	log.Info().Msg("shutdown signal received")

	cancel()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info().Msg("graceful shutdown completed")
	case <-time.After(10 * time.Second):
		log.Warn().Msg("shutdown timeout reached")
	}
	return nil
}

// seededMockBackend fills the mock with enough data to drive every
// dashboard surface locally.
func seededMockBackend() *api.MockBackend {
	backend := api.NewMockBackend()
	nowMs := time.Now().UnixMilli()

	for _, r := range models.PresetRanges() {
		backend.Metrics[r] = models.DashboardMetrics{
			Range:             r,
			LatestBlock:       1_842_775,
			TotalTransactions: 96_412,
			AvgTps:            14.2,
			AvgBlockTimeMs:    2100,
			AvgGasPriceWei:    1.6e9,
			SuccessRate:       0.993,
			ActiveAddresses:   5_812,
			LastUpdated:       nowMs,
		}

		points := make([]models.MetricPoint, 60)
		for i := range points {
			points[i] = models.MetricPoint{
				Timestamp: nowMs - int64(len(points)-i)*60_000,
				Value:     10 + float64(i%7),
			}
		}
		backend.Series[r] = models.SeriesSet{
			Range: r,
			Series: []models.Series{
				{Metric: models.MetricTps, Range: r, Points: points},
				{Metric: models.MetricGasPrice, Range: r, Points: points},
				{Metric: models.MetricBlockTime, Range: r, Points: points},
			},
			LastUpdated: nowMs,
		}
	}

	for i := 1; i <= 200; i++ {
		backend.Blocks = append(backend.Blocks, models.Block{
			Number:    uint64(1_842_775 - i),
			Hash:      fmt.Sprintf("0xb%064d", i),
			Timestamp: nowMs - int64(i)*2100,
			TxCount:   12 + i%9,
			GasUsed:   8_000_000,
			GasLimit:  30_000_000,
			Proposer:  fmt.Sprintf("0xproposer%02d", i%7),
		})
		backend.Transactions = append(backend.Transactions, models.Transaction{
			Hash:        fmt.Sprintf("0xt%064d", i),
			BlockNumber: uint64(1_842_775 - i/4),
			Index:       i % 4,
			Timestamp:   nowMs - int64(i)*500,
			From:        fmt.Sprintf("0xsender%03d", i%40),
			To:          fmt.Sprintf("0xcontract%02d", i%6),
			ValueWei:    "1000000000000000",
			GasUsed:     21_000,
			Success:     i%25 != 0,
			SortOrder:   fmt.Sprintf("%08d", 100_000_000-i),
		})
	}

	labels := []string{"transfers", "swaps", "bridges", "deployments", "other"}
	for i, label := range labels {
		backend.Distribution = append(backend.Distribution, models.DistributionSlice{
			Label:       label,
			Count:       int64(5000 / (i + 1)),
			TotalFeeWei: "42000000000000000",
			Share:       0.4 / float64(i+1),
			SortOrder:   fmt.Sprintf("%02d", i),
		})
	}
	return backend
}
