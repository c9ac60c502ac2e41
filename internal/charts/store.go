// Package charts holds the latest chart-ready series per time range, fed by
// the request coordinator and consumed by the HTTP/WebSocket surface.
package charts

import (
	"sync"

	"rollup-dashboard/models"
)

// Store is the in-memory chart-data store. Each update bumps a version
// counter so clients can detect missed frames after a reconnect.
type Store struct {
	mu      sync.RWMutex
	sets    map[models.TimeRange]models.SeriesSet
	version uint64
}

// NewStore creates an empty chart store.
func NewStore() *Store {
	return &Store{
		sets: make(map[models.TimeRange]models.SeriesSet),
	}
}

// Update replaces the series set for its range and returns the broadcast
// frame describing the change.
func (s *Store) Update(set models.SeriesSet) models.ChartUpdate {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.version++
	s.sets[set.Range] = set

	return models.ChartUpdate{
		Type:      "chart_update",
		Range:     set.Range,
		Series:    set.Series,
		Version:   s.version,
		Timestamp: set.LastUpdated,
	}
}

// Get returns the current series set for a range.
func (s *Store) Get(r models.TimeRange) (models.SeriesSet, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	set, ok := s.sets[r]
	return set, ok
}

// Version returns the current update counter.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Ranges returns the ranges currently held, for the diagnostics endpoint.
func (s *Store) Ranges() []models.TimeRange {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ranges := make([]models.TimeRange, 0, len(s.sets))
	for r := range s.sets {
		ranges = append(ranges, r)
	}
	return ranges
}
