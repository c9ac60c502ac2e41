package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rollup-dashboard/models"
)

func newTestManager() *Manager {
	return NewManager(DefaultConfig())
}

func seedRange(m *Manager, r models.TimeRange) {
	m.Metrics.Set(MetricsKey(r), models.DashboardMetrics{Range: r}, map[string]string{"filter": "all"})
	m.Charts.Set(ChartKey(r), models.SeriesSet{Range: r}, map[string]string{"metric": models.MetricTps})
	m.Tables.Set(TableKey(r, models.TableBlocks), models.TablePage{Kind: models.TableBlocks, Range: r}, nil)
}

func TestInvalidateTimeRangeLeavesOtherRangesIntact(t *testing.T) {
	m := newTestManager()
	seedRange(m, models.Range1h)
	seedRange(m, models.Range24h)

	removed := m.InvalidateTimeRange(models.Range1h)
	assert.Equal(t, 3, removed)

	_, ok := m.Metrics.Get(MetricsKey(models.Range1h), map[string]string{"filter": "all"})
	assert.False(t, ok)
	_, ok = m.Metrics.Get(MetricsKey(models.Range24h), map[string]string{"filter": "all"})
	assert.True(t, ok)
	_, ok = m.Tables.Get(TableKey(models.Range24h, models.TableBlocks), nil)
	assert.True(t, ok)
}

func TestInvalidateTimeRangeCustomRangesDoNotCross(t *testing.T) {
	m := newTestManager()
	seedRange(m, models.TimeRange("100-200"))
	seedRange(m, models.TimeRange("100-2000"))

	removed := m.InvalidateTimeRange(models.TimeRange("100-200"))
	assert.Equal(t, 3, removed)

	_, ok := m.Metrics.Get(MetricsKey("100-2000"), map[string]string{"filter": "all"})
	assert.True(t, ok, "prefix-sharing custom range must survive")
	_, ok = m.Charts.Get(ChartKey("100-2000"), map[string]string{"metric": models.MetricTps})
	assert.True(t, ok)
	_, ok = m.Tables.Get(TableKey("100-2000", models.TableBlocks), nil)
	assert.True(t, ok)
}

func TestInvalidateAllClearsEveryCache(t *testing.T) {
	m := newTestManager()
	seedRange(m, models.Range1h)

	m.InvalidateAll()

	assert.Zero(t, m.Metrics.Len())
	assert.Zero(t, m.Charts.Len())
	assert.Zero(t, m.Tables.Len())
}

func TestOverallStatsAggregates(t *testing.T) {
	m := newTestManager()
	seedRange(m, models.Range1h)

	m.Metrics.Get(MetricsKey(models.Range1h), map[string]string{"filter": "all"}) // hit
	m.Charts.Get(ChartKey(models.Range24h), nil)                                  // miss

	stats := m.OverallStats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, 3, stats.TotalEntries)
	assert.InDelta(t, 0.5, stats.HitRate, 1e-9)
}

func TestOverallStatsZeroWhenNoRequests(t *testing.T) {
	m := newTestManager()
	assert.Zero(t, m.OverallStats().HitRate)
}

func TestInvalidateTablesDropsEveryRange(t *testing.T) {
	m := newTestManager()
	seedRange(m, models.Range1h)
	seedRange(m, models.Range24h)

	removed := m.InvalidateTables()
	assert.Equal(t, 2, removed)
	assert.Zero(t, m.Tables.Len())
	assert.Equal(t, 2, m.Metrics.Len(), "metrics cache untouched")
}

func TestTableKeysAreRangeScoped(t *testing.T) {
	key := TableKey(models.Range1h, models.TableTransactions)
	require.Equal(t, "table:1h:transactions", key)
}
