// Package validator cross-checks the datasets the dashboard has observed:
// chart vs table record counts for the same window, time-series ordering,
// staleness, and a coarse data-quality score for the UI indicator.
//
// Validation failures never block rendering. Errors and warnings surface
// through the quality indicator while stale data stays on screen.
package validator

import (
	"fmt"
	"time"
)

const (
	// StalenessThreshold marks datasets older than this as stale (warning).
	StalenessThreshold = 5 * time.Minute

	// countTolerancePct is the allowed chart/table count divergence.
	countTolerancePct = 0.10
	// countToleranceMin is the minimum absolute divergence tolerated.
	countToleranceMin = 1
)

// ConsistencyCheck is one per-validation-pass snapshot of a dataset pair.
// TableDataCount is nil when no table view exists for the source.
type ConsistencyCheck struct {
	TimeRange      string `json:"timeRange"`
	ChartDataCount int    `json:"chartDataCount"`
	TableDataCount *int   `json:"tableDataCount,omitempty"`
	DataSource     string `json:"dataSource"`
	LastUpdated    int64  `json:"lastUpdated"` // milliseconds since epoch
}

// Result is the derived outcome of a validation pass.
type Result struct {
	IsValid bool     `json:"isValid"`
	Warning string   `json:"warning,omitempty"`
	Errors  []string `json:"errors"`
}

// Validator runs consistency passes. The clock is injectable for tests.
type Validator struct {
	now func() time.Time
}

// New creates a validator using the wall clock.
func New() *Validator {
	return &Validator{now: time.Now}
}

// ValidateDataConsistency inspects each check for staleness, empty
// datasets, and chart/table count divergence beyond the tolerance.
func (v *Validator) ValidateDataConsistency(checks []ConsistencyCheck) Result {
	result := Result{IsValid: true, Errors: []string{}}
	nowMs := v.now().UnixMilli()

	for _, check := range checks {
		if age := nowMs - check.LastUpdated; age > StalenessThreshold.Milliseconds() {
			result.Warning = fmt.Sprintf("%s data is stale (last updated %s ago)",
				check.DataSource, (time.Duration(age) * time.Millisecond).Round(time.Second))
		}

		if check.ChartDataCount == 0 {
			result.Errors = append(result.Errors,
				fmt.Sprintf("%s has no data for range %s", check.DataSource, check.TimeRange))
			result.IsValid = false
			continue
		}

		if check.TableDataCount != nil {
			diff := check.ChartDataCount - *check.TableDataCount
			if diff < 0 {
				diff = -diff
			}
			tolerance := int(float64(check.ChartDataCount) * countTolerancePct)
			if tolerance < countToleranceMin {
				tolerance = countToleranceMin
			}
			if diff > tolerance {
				result.Errors = append(result.Errors,
					fmt.Sprintf("%s chart/table counts diverge for range %s: chart=%d table=%d",
						check.DataSource, check.TimeRange, check.ChartDataCount, *check.TableDataCount))
				result.IsValid = false
			}
		}
	}
	return result
}

// ValidateDataCompleteness errors when a dataset is empty or below the
// minimum record count for its range.
func (v *Validator) ValidateDataCompleteness(timeRange string, recordCount, minRecords int) Result {
	if minRecords < 1 {
		minRecords = 1
	}
	result := Result{IsValid: true, Errors: []string{}}
	if recordCount < minRecords {
		result.Errors = append(result.Errors,
			fmt.Sprintf("range %s returned %d records, expected at least %d", timeRange, recordCount, minRecords))
		result.IsValid = false
	}
	return result
}

// ValidateTimeSeriesOrder errors on the first strict timestamp decrease.
// Duplicate timestamps are allowed; the scan stops at the first violation.
func ValidateTimeSeriesOrder(timestamps []int64) Result {
	result := Result{IsValid: true, Errors: []string{}}
	for i := 1; i < len(timestamps); i++ {
		if timestamps[i] < timestamps[i-1] {
			result.Errors = append(result.Errors,
				fmt.Sprintf("time series out of order at index %d: %d < %d", i, timestamps[i], timestamps[i-1]))
			result.IsValid = false
			break
		}
	}
	return result
}
