// Package api provides the HTTP client for the rollup metrics backend.
package api

import (
	"context"
	"fmt"

	"rollup-dashboard/models"
)

// Result wraps an upstream response. BadRequest marks malformed-parameter
// responses (HTTP 400): the caller surfaces a "some data may be unavailable"
// warning instead of a hard failure, and Data stays nil.
type Result[T any] struct {
	Data       *T
	BadRequest bool
}

// PageQuery selects one table page inside a time-range window. At most one
// cursor is set at a time; setting one side clears the other.
type PageQuery struct {
	Range         models.TimeRange
	Address       string
	Limit         int
	StartingAfter string
	EndingBefore  string
}

// Backend is the upstream API surface consumed by the data layer. The real
// implementation is Client; tests use MockBackend.
type Backend interface {
	FetchDashboardMetrics(ctx context.Context, r models.TimeRange, address string) (Result[models.DashboardMetrics], error)
	FetchChartSeries(ctx context.Context, r models.TimeRange, address string) (Result[models.SeriesSet], error)
	FetchBlocks(ctx context.Context, q PageQuery) (Result[[]models.Block], error)
	FetchTransactions(ctx context.Context, q PageQuery) (Result[[]models.Transaction], error)
	FetchDistribution(ctx context.Context, q PageQuery) (Result[[]models.DistributionSlice], error)
}

// APIError is returned for non-retryable upstream error responses.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("upstream error (HTTP %d): %s", e.StatusCode, e.Message)
}
