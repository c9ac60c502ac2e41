package cache

import (
	"time"

	"rollup-dashboard/models"
)

// Base key prefixes for the named caches. Range-scoped keys put the time
// range directly after the prefix so InvalidateTimeRange can match on
// prefix alone.
const (
	metricsPrefix = "metrics:"
	chartPrefix   = "chart:"
	tablePrefix   = "table:"
)

// Config holds TTLs and capacities for the named caches. Table pages change
// least per time range and are the most expensive to refetch, so they get
// the longest TTL and the smallest capacity.
type Config struct {
	MetricsTTL      time.Duration `json:"metricsTtl"`
	MetricsCapacity int           `json:"metricsCapacity"`
	ChartTTL        time.Duration `json:"chartTtl"`
	ChartCapacity   int           `json:"chartCapacity"`
	TableTTL        time.Duration `json:"tableTtl"`
	TableCapacity   int           `json:"tableCapacity"`
}

// DefaultConfig returns the default cache tuning.
func DefaultConfig() Config {
	return Config{
		MetricsTTL:      2 * time.Minute,
		MetricsCapacity: 200,
		ChartTTL:        30 * time.Second,
		ChartCapacity:   100,
		TableTTL:        5 * time.Minute,
		TableCapacity:   40,
	}
}

// Manager owns the named cache instances for one dashboard session. It is
// constructed explicitly and injected into the request layer; there are no
// package-level cache singletons.
type Manager struct {
	Metrics *SmartCache[models.DashboardMetrics]
	Charts  *SmartCache[models.SeriesSet]
	Tables  *SmartCache[models.TablePage]
}

// NewManager creates the three named caches from config.
func NewManager(cfg Config) *Manager {
	return &Manager{
		Metrics: New[models.DashboardMetrics](cfg.MetricsCapacity, cfg.MetricsTTL),
		Charts:  New[models.SeriesSet](cfg.ChartCapacity, cfg.ChartTTL),
		Tables:  New[models.TablePage](cfg.TableCapacity, cfg.TableTTL),
	}
}

// MetricsKey returns the base key for dashboard metrics in a time range.
func MetricsKey(r models.TimeRange) string { return metricsPrefix + string(r) }

// ChartKey returns the base key for chart series in a time range.
func ChartKey(r models.TimeRange) string { return chartPrefix + string(r) }

// TableKey returns the base key for a table kind in a time range. The range
// precedes the kind so a whole range can be invalidated by prefix.
func TableKey(r models.TimeRange, kind string) string {
	return tablePrefix + string(r) + ":" + kind
}

// InvalidateAll clears all three caches.
func (m *Manager) InvalidateAll() {
	m.Metrics.Clear()
	m.Charts.Clear()
	m.Tables.Clear()
}

// InvalidateTimeRange drops every cached metrics, chart and table entry
// scoped to the given range, leaving other ranges intact. Metrics and chart
// keys end at the range, so they go through InvalidateBase to keep a custom
// range like "100-200" from matching "100-2000"; table keys have a ":"
// terminator after the range, so a plain prefix cannot cross. Returns the
// total number of entries removed.
func (m *Manager) InvalidateTimeRange(r models.TimeRange) int {
	removed := m.Metrics.InvalidateBase(MetricsKey(r))
	removed += m.Charts.InvalidateBase(ChartKey(r))
	removed += m.Tables.Invalidate(tablePrefix+string(r)+":", nil)
	return removed
}

// InvalidateTables drops every cached table page across all ranges, used
// when a drill-down forces a reload. Returns the number of entries removed.
func (m *Manager) InvalidateTables() int {
	return m.Tables.Invalidate(tablePrefix, nil)
}

// OverallStats aggregates counters across the three caches. The combined
// hit rate is 0 when no requests have been recorded.
func (m *Manager) OverallStats() Stats {
	combined := Stats{}
	for _, stats := range []Stats{m.Metrics.GetStats(), m.Charts.GetStats(), m.Tables.GetStats()} {
		combined.Hits += stats.Hits
		combined.Misses += stats.Misses
		combined.Evictions += stats.Evictions
		combined.TotalEntries += stats.TotalEntries
	}
	if total := combined.Hits + combined.Misses; total > 0 {
		combined.HitRate = float64(combined.Hits) / float64(total)
	}
	return combined
}

// StatsByCache returns per-cache stats for the diagnostics endpoint.
func (m *Manager) StatsByCache() map[string]Stats {
	return map[string]Stats{
		"metrics": m.Metrics.GetStats(),
		"charts":  m.Charts.GetStats(),
		"tables":  m.Tables.GetStats(),
	}
}
