package models

// MetricPoint is a single sample in a chart series.
type MetricPoint struct {
	Timestamp int64   `json:"timestamp"` // milliseconds since epoch
	Value     float64 `json:"value"`
}

// Series is one chart-ready metric series for a time range.
type Series struct {
	Metric string        `json:"metric"`
	Range  TimeRange     `json:"range"`
	Points []MetricPoint `json:"points"`
}

// SeriesSet bundles the chart series returned for one dashboard fetch.
type SeriesSet struct {
	Range       TimeRange `json:"range"`
	Series      []Series  `json:"series"`
	LastUpdated int64     `json:"lastUpdated"` // milliseconds since epoch
}

// TotalPoints returns the record count across all series in the set.
func (s SeriesSet) TotalPoints() int {
	total := 0
	for _, series := range s.Series {
		total += len(series.Points)
	}
	return total
}

// SeriesByMetric returns the series for the named metric, or nil.
func (s SeriesSet) SeriesByMetric(metric string) *Series {
	for i := range s.Series {
		if s.Series[i].Metric == metric {
			return &s.Series[i]
		}
	}
	return nil
}

// DashboardMetrics is the headline card payload for one time range.
type DashboardMetrics struct {
	Range             TimeRange `json:"range"`
	LatestBlock       uint64    `json:"latestBlock"`
	TotalTransactions int64     `json:"totalTransactions"`
	AvgTps            float64   `json:"avgTps"`
	AvgBlockTimeMs    float64   `json:"avgBlockTimeMs"`
	AvgGasPriceWei    float64   `json:"avgGasPriceWei"`
	SuccessRate       float64   `json:"successRate"`
	ActiveAddresses   int64     `json:"activeAddresses"`
	LastUpdated       int64     `json:"lastUpdated"` // milliseconds since epoch
}

// Metric names used by chart series and the chart store.
const (
	MetricTps        = "tps"
	MetricGasPrice   = "gas_price"
	MetricBlockTime  = "block_time"
	MetricTxCount    = "tx_count"
	MetricFeeRevenue = "fee_revenue"
)
