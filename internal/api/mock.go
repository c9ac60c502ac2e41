package api

import (
	"context"
	"sync"
	"time"

	"rollup-dashboard/models"
)

// MockBackend is an in-memory simulation of the rollup metrics backend,
// sufficient for exercising the cache, coordinator and pager without a
// network. Every call is recorded for assertions.
type MockBackend struct {
	mu sync.Mutex

	Metrics      map[models.TimeRange]models.DashboardMetrics
	Series       map[models.TimeRange]models.SeriesSet
	Blocks       []models.Block
	Transactions []models.Transaction
	Distribution []models.DistributionSlice

	// Fault injection.
	Err        error
	BadRequest bool
	Delay      time.Duration

	Calls []string
}

// NewMockBackend creates an empty mock backend.
func NewMockBackend() *MockBackend {
	return &MockBackend{
		Metrics: make(map[models.TimeRange]models.DashboardMetrics),
		Series:  make(map[models.TimeRange]models.SeriesSet),
	}
}

// CallCount returns how many upstream calls have been made.
func (m *MockBackend) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

func (m *MockBackend) record(ctx context.Context, name string) error {
	m.mu.Lock()
	m.Calls = append(m.Calls, name)
	delay := m.Delay
	err := m.Err
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func (m *MockBackend) FetchDashboardMetrics(ctx context.Context, r models.TimeRange, address string) (Result[models.DashboardMetrics], error) {
	if err := m.record(ctx, "metrics:"+string(r)); err != nil {
		return Result[models.DashboardMetrics]{}, err
	}
	if m.BadRequest {
		return Result[models.DashboardMetrics]{BadRequest: true}, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	metrics := m.Metrics[r]
	return Result[models.DashboardMetrics]{Data: &metrics}, nil
}

func (m *MockBackend) FetchChartSeries(ctx context.Context, r models.TimeRange, address string) (Result[models.SeriesSet], error) {
	if err := m.record(ctx, "series:"+string(r)); err != nil {
		return Result[models.SeriesSet]{}, err
	}
	if m.BadRequest {
		return Result[models.SeriesSet]{BadRequest: true}, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	series := m.Series[r]
	return Result[models.SeriesSet]{Data: &series}, nil
}

func (m *MockBackend) FetchBlocks(ctx context.Context, q PageQuery) (Result[[]models.Block], error) {
	if err := m.record(ctx, "blocks"); err != nil {
		return Result[[]models.Block]{}, err
	}
	if m.BadRequest {
		return Result[[]models.Block]{BadRequest: true}, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	page := pageOf(m.Blocks, q, func(b models.Block) string { return b.Cursor() })
	return Result[[]models.Block]{Data: &page}, nil
}

func (m *MockBackend) FetchTransactions(ctx context.Context, q PageQuery) (Result[[]models.Transaction], error) {
	if err := m.record(ctx, "transactions"); err != nil {
		return Result[[]models.Transaction]{}, err
	}
	if m.BadRequest {
		return Result[[]models.Transaction]{BadRequest: true}, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	page := pageOf(m.Transactions, q, func(t models.Transaction) string { return t.Cursor() })
	return Result[[]models.Transaction]{Data: &page}, nil
}

func (m *MockBackend) FetchDistribution(ctx context.Context, q PageQuery) (Result[[]models.DistributionSlice], error) {
	if err := m.record(ctx, "distribution"); err != nil {
		return Result[[]models.DistributionSlice]{}, err
	}
	if m.BadRequest {
		return Result[[]models.DistributionSlice]{BadRequest: true}, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	page := pageOf(m.Distribution, q, func(d models.DistributionSlice) string { return d.Cursor() })
	return Result[[]models.DistributionSlice]{Data: &page}, nil
}

// pageOf slices stored rows by cursor the way the real backend does:
// starting_after takes rows after the cursor, ending_before takes the rows
// immediately before it.
func pageOf[T any](rows []T, q PageQuery, cursor func(T) string) []T {
	limit := q.Limit
	if limit <= 0 {
		limit = len(rows)
	}

	start, end := 0, len(rows)
	if q.StartingAfter != "" {
		for i, row := range rows {
			if cursor(row) == q.StartingAfter {
				start = i + 1
				break
			}
		}
		end = min(start+limit, len(rows))
	} else if q.EndingBefore != "" {
		for i, row := range rows {
			if cursor(row) == q.EndingBefore {
				end = i
				break
			}
		}
		start = max(end-limit, 0)
	} else {
		end = min(limit, len(rows))
	}

	page := make([]T, end-start)
	copy(page, rows[start:end])
	return page
}
