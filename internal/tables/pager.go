// Package tables implements cursor pagination over time-windowed drill-down
// collections (blocks, transactions, distribution breakdowns).
//
// Rapid navigation is made race-free with generation tokens instead of
// request cancellation: every load bumps a counter and captures it, and a
// response is applied only if its captured token still matches when it
// resolves. A response that lost the race is computed but discarded.
package tables

import (
	"context"
	"sync"

	"rollup-dashboard/internal/api"
	"rollup-dashboard/models"
)

// PageSize is the fixed drill-down page size.
const PageSize = 50

// Record is any table row that can produce its pagination cursor value.
type Record interface {
	Cursor() string
}

// FetchFunc fetches one page from the upstream backend.
type FetchFunc[T Record] func(ctx context.Context, q api.PageQuery) (api.Result[[]T], error)

// Pager tracks pagination state for one drill-down table.
type Pager[T Record] struct {
	mu    sync.Mutex
	fetch FetchFunc[T]

	timeRange models.TimeRange
	address   string
	pageSize  int

	generation    int64
	page          int
	startingAfter string
	endingBefore  string

	rows      []T
	shortPage bool
	loaded    bool

	lastError   string
	lastWarning string
}

// NewPager creates a pager over the given fetch function, positioned on the
// first page of the range.
func NewPager[T Record](fetch FetchFunc[T], timeRange models.TimeRange) *Pager[T] {
	return &Pager[T]{
		fetch:     fetch,
		timeRange: timeRange,
		pageSize:  PageSize,
	}
}

// SetFilter replaces the address filter. An unchanged filter is a no-op so
// navigation requests that echo the current filter keep their page position.
// A change resets to the first page and invalidates any in-flight load.
func (p *Pager[T]) SetFilter(address string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if address == p.address {
		return
	}
	p.address = address
	p.resetLocked()
}

// SetRange replaces the time range. An unchanged range is a no-op so
// navigation requests that echo the current range keep their page position.
// A change resets to the first page and invalidates any in-flight load.
func (p *Pager[T]) SetRange(timeRange models.TimeRange) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if timeRange == p.timeRange {
		return
	}
	p.timeRange = timeRange
	p.resetLocked()
}

func (p *Pager[T]) resetLocked() {
	p.generation++
	p.page = 0
	p.startingAfter = ""
	p.endingBefore = ""
	p.rows = nil
	p.shortPage = false
	p.loaded = false
}

// Load fetches the current page. Returns true if the response was applied,
// false if it was discarded as stale or failed. A failure keeps previously
// displayed rows in place.
func (p *Pager[T]) Load(ctx context.Context) bool {
	p.mu.Lock()
	p.generation++
	captured := p.generation
	query := api.PageQuery{
		Range:         p.timeRange,
		Address:       p.address,
		Limit:         p.pageSize,
		StartingAfter: p.startingAfter,
		EndingBefore:  p.endingBefore,
	}
	p.mu.Unlock()

	result, err := p.fetch(ctx, query)

	p.mu.Lock()
	defer p.mu.Unlock()

	// A newer load or navigation superseded this response.
	if captured != p.generation {
		return false
	}

	if err != nil {
		p.lastError = "failed to load table data"
		return false
	}
	if result.BadRequest {
		p.lastWarning = "some data may be unavailable"
		return false
	}

	rows := []T{}
	if result.Data != nil {
		rows = *result.Data
	}
	p.rows = rows
	p.shortPage = len(rows) < p.pageSize
	p.loaded = true
	p.lastError = ""
	p.lastWarning = ""
	return true
}

// Refresh re-fetches the current page, preserving the cursor position. This
// is the drill-down manual-refresh callback the coordinator delegates to.
func (p *Pager[T]) Refresh(ctx context.Context) bool {
	return p.Load(ctx)
}

// OnNext advances to the next page: the cursor starts after the last record
// of the current page, and the backward cursor is cleared so the two range
// constraints cannot conflict. No-op when the next page is disabled.
func (p *Pager[T]) OnNext(ctx context.Context) bool {
	p.mu.Lock()
	if p.disableNextLocked() {
		p.mu.Unlock()
		return false
	}
	p.page++
	p.startingAfter = p.rows[len(p.rows)-1].Cursor()
	p.endingBefore = ""
	p.mu.Unlock()

	return p.Load(ctx)
}

// OnPrev steps back one page: the cursor ends before the first record of
// the current page, and the forward cursor is cleared. No-op on page 0.
func (p *Pager[T]) OnPrev(ctx context.Context) bool {
	p.mu.Lock()
	if p.page == 0 {
		p.mu.Unlock()
		return false
	}
	p.page--
	if len(p.rows) > 0 {
		p.endingBefore = p.rows[0].Cursor()
	}
	p.startingAfter = ""
	p.mu.Unlock()

	return p.Load(ctx)
}

// DisablePrev reports whether backward navigation is possible.
func (p *Pager[T]) DisablePrev() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.page == 0
}

// DisableNext reports whether forward navigation is possible. A short page
// is the authoritative signal for the final page.
func (p *Pager[T]) DisableNext() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.disableNextLocked()
}

func (p *Pager[T]) disableNextLocked() bool {
	return !p.loaded || p.shortPage || len(p.rows) == 0
}

// Rows returns a copy of the currently displayed page.
func (p *Pager[T]) Rows() []T {
	p.mu.Lock()
	defer p.mu.Unlock()
	rows := make([]T, len(p.rows))
	copy(rows, p.rows)
	return rows
}

// Page returns the zero-based page index.
func (p *Pager[T]) Page() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.page
}

// LastError returns the user-visible error from the most recent failed
// load, empty once a load succeeds again.
func (p *Pager[T]) LastError() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastError
}

// LastWarning returns the partial-data warning, if any.
func (p *Pager[T]) LastWarning() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastWarning
}
