package charts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rollup-dashboard/models"
)

func TestUpdateBumpsVersionAndStoresSet(t *testing.T) {
	store := NewStore()
	require.Equal(t, uint64(0), store.Version())

	update := store.Update(models.SeriesSet{
		Range:       models.Range1h,
		Series:      []models.Series{{Metric: models.MetricTps}},
		LastUpdated: 1234,
	})

	assert.Equal(t, "chart_update", update.Type)
	assert.Equal(t, uint64(1), update.Version)
	assert.Equal(t, int64(1234), update.Timestamp)

	set, ok := store.Get(models.Range1h)
	require.True(t, ok)
	assert.Len(t, set.Series, 1)
}

func TestUpdateReplacesExistingRange(t *testing.T) {
	store := NewStore()
	store.Update(models.SeriesSet{Range: models.Range1h, Series: []models.Series{{Metric: models.MetricTps}}})
	store.Update(models.SeriesSet{Range: models.Range1h, Series: []models.Series{
		{Metric: models.MetricTps}, {Metric: models.MetricGasPrice},
	}})

	set, ok := store.Get(models.Range1h)
	require.True(t, ok)
	assert.Len(t, set.Series, 2)
	assert.Equal(t, uint64(2), store.Version())
}

func TestRangesListsHeldRanges(t *testing.T) {
	store := NewStore()
	assert.Empty(t, store.Ranges())

	store.Update(models.SeriesSet{Range: models.Range1h})
	store.Update(models.SeriesSet{Range: models.Range24h})
	assert.ElementsMatch(t, []models.TimeRange{models.Range1h, models.Range24h}, store.Ranges())
}

func TestGetMissingRange(t *testing.T) {
	store := NewStore()
	_, ok := store.Get(models.Range7d)
	assert.False(t, ok)
}
