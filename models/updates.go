package models

// ChartUpdate is pushed to dashboard clients when fresh series arrive.
type ChartUpdate struct {
	Type      string    `json:"type"` // always "chart_update"
	Range     TimeRange `json:"range"`
	Series    []Series  `json:"series"`
	Version   uint64    `json:"version"`
	Timestamp int64     `json:"timestamp"` // milliseconds since epoch
}

// QualityUpdate is pushed to dashboard clients after a validation pass.
type QualityUpdate struct {
	Type      string   `json:"type"` // always "quality_update"
	Score     float64  `json:"score"`
	Warnings  []string `json:"warnings,omitempty"`
	Errors    []string `json:"errors,omitempty"`
	Timestamp int64    `json:"timestamp"` // milliseconds since epoch
}

// RefreshStatus describes the coordinator's refresh state for the UI countdown.
type RefreshStatus struct {
	LastRefreshed   int64  `json:"lastRefreshed"` // milliseconds since epoch, 0 if never
	IntervalSeconds int    `json:"intervalSeconds"`
	Suspended       bool   `json:"suspended"`
	LastError       string `json:"lastError,omitempty"`
	LastWarning     string `json:"lastWarning,omitempty"`
}
