// Package coordinator owns the dashboard fetch cycle: it derives a fetch
// key from the current time range and filter, consults the cache manager,
// deduplicates concurrent fetches for the same key, drives the auto-refresh
// timer, and hands fresh datasets to the chart store and validator.
package coordinator

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"rollup-dashboard/internal/api"
	"rollup-dashboard/internal/cache"
	"rollup-dashboard/internal/channels"
	"rollup-dashboard/internal/charts"
	"rollup-dashboard/internal/logging"
	"rollup-dashboard/internal/utils"
	"rollup-dashboard/internal/validator"
	"rollup-dashboard/models"
)

// Config holds coordinator configuration.
type Config struct {
	// RefreshInterval is the auto-refresh period. Clamped to MinRefreshInterval.
	RefreshInterval time.Duration `json:"refreshInterval"`
	// MinRefreshInterval is the polling floor; user configuration can never
	// push the interval below it.
	MinRefreshInterval time.Duration `json:"minRefreshInterval"`
}

// DefaultConfig returns default coordinator configuration.
func DefaultConfig() Config {
	return Config{
		RefreshInterval:    30 * time.Second,
		MinRefreshInterval: 5 * time.Second,
	}
}

// DrilldownRefresher is the refresh callback a drill-down table registers;
// manual refresh delegates here so cursor position survives.
type DrilldownRefresher func(ctx context.Context) bool

// Coordinator coordinates dashboard data fetching for one session.
type Coordinator struct {
	cfg     Config
	backend api.Backend
	caches  *cache.Manager
	charts  *charts.Store
	valid   *validator.Validator
	quality *validator.QualityTracker
	chans   *channels.Channels
	log     zerolog.Logger

	group singleflight.Group

	mu               sync.Mutex
	timeRange        models.TimeRange
	filter           string
	interval         time.Duration
	visible          bool
	drilldownActive  bool
	drilldownRefresh DrilldownRefresher
	lastRefreshed    int64 // milliseconds since epoch, 0 if never
	lastError        string
	lastWarning      string
	tableCounts      map[string]int // dataset name -> last reported table count

	kick chan struct{}
	now  func() time.Time
}

// New creates a coordinator. All collaborators are injected; nothing here
// is a package-level singleton.
func New(cfg Config, backend api.Backend, caches *cache.Manager, chartStore *charts.Store, chans *channels.Channels) *Coordinator {
	if cfg.RefreshInterval < cfg.MinRefreshInterval {
		cfg.RefreshInterval = cfg.MinRefreshInterval
	}
	return &Coordinator{
		cfg:         cfg,
		backend:     backend,
		caches:      caches,
		charts:      chartStore,
		valid:       validator.New(),
		quality:     validator.NewQualityTracker(),
		chans:       chans,
		log:         logging.Component("coordinator"),
		timeRange:   models.DefaultRange,
		interval:    cfg.RefreshInterval,
		visible:     true,
		tableCounts: make(map[string]int),
		kick:        make(chan struct{}, 1),
		now:         time.Now,
	}
}

// Quality returns the tracker feeding the UI quality indicator.
func (c *Coordinator) Quality() *validator.QualityTracker { return c.quality }

// FetchKey derives the dedup key for the current time range and filter.
func (c *Coordinator) FetchKey() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fetchKeyLocked()
}

func (c *Coordinator) fetchKeyLocked() string {
	return cache.BuildKey("dashboard", map[string]string{
		"range":  string(c.timeRange),
		"filter": c.filter,
	})
}

// SetTimeRange switches the dashboard window. An unchanged range is a
// no-op; a change triggers an immediate fetch.
func (c *Coordinator) SetTimeRange(r models.TimeRange) {
	c.mu.Lock()
	if r == c.timeRange || !r.IsValid() {
		c.mu.Unlock()
		return
	}
	c.timeRange = r
	c.mu.Unlock()
	c.wake()
}

// SetFilter switches the address filter. An unchanged filter is a no-op; a
// change derives a new fetch key and triggers an immediate fetch.
func (c *Coordinator) SetFilter(address string) {
	c.mu.Lock()
	if address == c.filter {
		c.mu.Unlock()
		return
	}
	c.filter = address
	c.mu.Unlock()
	c.wake()
}

// TimeRange returns the current window.
func (c *Coordinator) TimeRange() models.TimeRange {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timeRange
}

// SetVisible tracks whether any UI client is attached. Auto-refresh is
// suspended while invisible; regaining visibility triggers an immediate
// catch-up fetch.
func (c *Coordinator) SetVisible(visible bool) {
	c.mu.Lock()
	wasVisible := c.visible
	c.visible = visible
	c.mu.Unlock()

	if visible && !wasVisible {
		c.wake()
	}
}

// SetDrilldown marks a drill-down table as active and registers its refresh
// callback. Auto-refresh stays suspended while the drill-down is open so
// pagination and scroll state are not disrupted.
func (c *Coordinator) SetDrilldown(active bool, refresh DrilldownRefresher) {
	c.mu.Lock()
	c.drilldownActive = active
	c.drilldownRefresh = refresh
	c.mu.Unlock()
}

// SetRefreshIntervalSeconds applies a user-chosen refresh rate, clamped to
// the configured floor.
func (c *Coordinator) SetRefreshIntervalSeconds(seconds int) {
	interval := time.Duration(seconds) * time.Second
	if interval < c.cfg.MinRefreshInterval {
		interval = c.cfg.MinRefreshInterval
	}
	c.mu.Lock()
	c.interval = interval
	c.mu.Unlock()
	c.wake()
}

// ReportTableCount feeds a drill-down page's record count into the next
// consistency pass, cross-checking it against the chart series.
func (c *Coordinator) ReportTableCount(dataset string, count int) {
	c.mu.Lock()
	c.tableCounts[dataset] = count
	c.mu.Unlock()
	c.quality.ObserveDataset(dataset+"_table", count)
}

// Status reports the refresh state consumed by the UI countdown.
func (c *Coordinator) Status() models.RefreshStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return models.RefreshStatus{
		LastRefreshed:   c.lastRefreshed,
		IntervalSeconds: int(c.interval / time.Second),
		Suspended:       c.drilldownActive || !c.visible,
		LastError:       c.lastError,
		LastWarning:     c.lastWarning,
	}
}

// Start runs the auto-refresh loop until ctx is cancelled. Ticks are
// skipped while refresh is suspended; wake signals (range change, manual
// interval change, visibility regained) reset the timer and fetch at once.
func (c *Coordinator) Start(ctx context.Context) {
	c.log.Info().Dur("interval", c.currentInterval()).Msg("starting refresh loop")

	ticker := time.NewTicker(c.currentInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.log.Info().Msg("stopping refresh loop")
			return

		case <-c.kick:
			c.refreshIfActive(ctx)
			ticker.Reset(c.currentInterval())

		case <-ticker.C:
			c.refreshIfActive(ctx)
		}
	}
}

func (c *Coordinator) currentInterval() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.interval
}

func (c *Coordinator) wake() {
	select {
	case c.kick <- struct{}{}:
	default:
	}
}

func (c *Coordinator) refreshIfActive(ctx context.Context) {
	c.mu.Lock()
	suspended := c.drilldownActive || !c.visible
	c.mu.Unlock()
	if suspended {
		return
	}
	c.RefreshData(ctx)
}

// HandleManualRefresh serves the refresh button. When a drill-down table is
// active and has registered its own refresh callback, that callback wins so
// table-specific semantics (cursor position) take precedence.
func (c *Coordinator) HandleManualRefresh(ctx context.Context) {
	c.mu.Lock()
	drilldown := c.drilldownActive
	refresh := c.drilldownRefresh
	c.mu.Unlock()

	if drilldown && refresh != nil {
		refresh(ctx)
		return
	}
	c.RefreshData(ctx)
}

// RefreshData fetches the dashboard metrics and chart series for the
// current key, deduplicating concurrent callers. Results land in the named
// caches; fresh series are pushed to the chart store and validated. A
// failure leaves previously cached data in place.
func (c *Coordinator) RefreshData(ctx context.Context) {
	c.mu.Lock()
	key := c.fetchKeyLocked()
	timeRange := c.timeRange
	filter := c.filter
	c.mu.Unlock()

	_, err, _ := c.group.Do(key, func() (any, error) {
		return nil, c.doRefresh(ctx, timeRange, filter)
	})
	if err != nil {
		c.log.Warn().Err(err).
			Str("key", key).
			Str("errorType", string(utils.GetErrorType(err))).
			Bool("retryable", utils.IsRetryable(err)).
			Msg("refresh failed, keeping stale data")
	}
}

func (c *Coordinator) doRefresh(ctx context.Context, timeRange models.TimeRange, filter string) error {
	params := map[string]string{"filter": filter}

	warning := ""

	metrics, hit := c.caches.Metrics.Get(cache.MetricsKey(timeRange), params)
	if !hit {
		result, err := c.backend.FetchDashboardMetrics(ctx, timeRange, filter)
		if err != nil {
			c.recordFailure("failed to load dashboard metrics")
			return err
		}
		if result.BadRequest {
			warning = "some data may be unavailable"
		} else if result.Data != nil {
			metrics = *result.Data
			c.caches.Metrics.Set(cache.MetricsKey(timeRange), metrics, params)
		}
	}

	series, hit := c.caches.Charts.Get(cache.ChartKey(timeRange), params)
	if !hit {
		result, err := c.backend.FetchChartSeries(ctx, timeRange, filter)
		if err != nil {
			c.recordFailure("failed to load chart data")
			return err
		}
		if result.BadRequest {
			warning = "some data may be unavailable"
		} else if result.Data != nil {
			series = *result.Data
			if series.LastUpdated == 0 {
				series.LastUpdated = c.now().UnixMilli()
			}
			c.caches.Charts.Set(cache.ChartKey(timeRange), series, params)

			update := c.charts.Update(series)
			c.publishChartUpdate(update)
		}
	}

	c.validate(timeRange, series)

	c.mu.Lock()
	c.lastRefreshed = c.now().UnixMilli()
	c.lastError = ""
	c.lastWarning = warning
	c.mu.Unlock()
	return nil
}

func (c *Coordinator) recordFailure(message string) {
	c.mu.Lock()
	c.lastError = message
	c.mu.Unlock()
}

// publishChartUpdate hands the frame to the broadcaster without ever
// blocking the refresh path; a full channel drops the frame.
func (c *Coordinator) publishChartUpdate(update models.ChartUpdate) {
	if c.chans == nil {
		return
	}
	select {
	case c.chans.ChartUpdates <- update:
	default:
		c.log.Debug().Uint64("version", update.Version).Msg("chart update channel full, dropping frame")
	}
}

func (c *Coordinator) publishQualityUpdate(update models.QualityUpdate) {
	if c.chans == nil {
		return
	}
	select {
	case c.chans.QualityUpdates <- update:
	default:
	}
}

// validate runs the consistency pass over the freshly observed datasets and
// publishes the resulting quality signal.
func (c *Coordinator) validate(timeRange models.TimeRange, series models.SeriesSet) {
	checks := make([]validator.ConsistencyCheck, 0, len(series.Series))

	c.mu.Lock()
	tableCounts := make(map[string]int, len(c.tableCounts))
	for name, count := range c.tableCounts {
		tableCounts[name] = count
	}
	c.mu.Unlock()

	errorsSeen := []string{}
	for _, s := range series.Series {
		c.quality.ObserveDataset(s.Metric, len(s.Points))

		timestamps := make([]int64, len(s.Points))
		for i, p := range s.Points {
			timestamps[i] = p.Timestamp
		}
		if order := validator.ValidateTimeSeriesOrder(timestamps); !order.IsValid {
			errorsSeen = append(errorsSeen, order.Errors...)
		}

		check := validator.ConsistencyCheck{
			TimeRange:      string(timeRange),
			ChartDataCount: len(s.Points),
			DataSource:     s.Metric,
			LastUpdated:    series.LastUpdated,
		}
		if count, ok := tableCounts[s.Metric]; ok {
			check.TableDataCount = &count
		}
		checks = append(checks, check)
	}

	result := c.valid.ValidateDataConsistency(checks)
	result.Errors = append(result.Errors, errorsSeen...)
	if len(result.Errors) > 0 {
		result.IsValid = false
	}
	c.quality.RecordResult(result)

	c.publishQualityUpdate(models.QualityUpdate{
		Type:      "quality_update",
		Score:     c.quality.QualityScore(),
		Warnings:  warningList(result.Warning),
		Errors:    result.Errors,
		Timestamp: c.now().UnixMilli(),
	})
}

func warningList(warning string) []string {
	if warning == "" {
		return nil
	}
	return []string{warning}
}
