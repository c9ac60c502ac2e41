package validator

import (
	"sync"

	"github.com/axiomhq/hyperloglog"
)

// QualityTracker aggregates validation outcomes across refresh cycles into
// the coarse quality signal the UI shows. Unique-address cardinality is
// estimated with HyperLogLog sketches, so memory stays flat no matter how
// many table pages scroll past.
type QualityTracker struct {
	mu sync.RWMutex

	datasets map[string]int // dataset name -> last observed record count

	uniqueSenders   *hyperloglog.Sketch
	uniqueProposers *hyperloglog.Sketch

	lastResult Result
}

// NewQualityTracker creates an empty tracker.
func NewQualityTracker() *QualityTracker {
	return &QualityTracker{
		datasets:        make(map[string]int),
		uniqueSenders:   hyperloglog.New14(),
		uniqueProposers: hyperloglog.New14(),
	}
}

// ObserveDataset records the latest record count for a named dataset.
func (t *QualityTracker) ObserveDataset(name string, recordCount int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.datasets[name] = recordCount
}

// ObserveSender feeds a transaction sender into the cardinality estimate.
func (t *QualityTracker) ObserveSender(address string) {
	if address == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.uniqueSenders.Insert([]byte(address))
}

// ObserveProposer feeds a block proposer into the cardinality estimate.
func (t *QualityTracker) ObserveProposer(address string) {
	if address == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.uniqueProposers.Insert([]byte(address))
}

// RecordResult stores the outcome of the latest validation pass.
func (t *QualityTracker) RecordResult(result Result) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastResult = result
}

// QualityScore returns the percentage of tracked datasets that are
// non-empty, 0-100. A tracker with no datasets scores 100: nothing has been
// observed to be wrong yet.
func (t *QualityTracker) QualityScore() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if len(t.datasets) == 0 {
		return 100
	}
	nonEmpty := 0
	for _, count := range t.datasets {
		if count > 0 {
			nonEmpty++
		}
	}
	return float64(nonEmpty) / float64(len(t.datasets)) * 100
}

// HasWarnings reports whether the last pass produced a warning.
func (t *QualityTracker) HasWarnings() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.lastResult.Warning != ""
}

// HasErrors reports whether the last pass produced errors.
func (t *QualityTracker) HasErrors() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.lastResult.Errors) > 0
}

// LastResult returns the most recent validation outcome.
func (t *QualityTracker) LastResult() Result {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.lastResult
}

// UniqueSenders returns the estimated unique sender count.
func (t *QualityTracker) UniqueSenders() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.uniqueSenders.Estimate()
}

// UniqueProposers returns the estimated unique proposer count.
func (t *QualityTracker) UniqueProposers() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.uniqueProposers.Estimate()
}
