package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock lets tests step time deterministically.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.UnixMilli(1_700_000_000_000)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func newTestCache[T any](maxSize int, defaultTTL time.Duration) (*SmartCache[T], *fakeClock) {
	clock := newFakeClock()
	c := New[T](maxSize, defaultTTL)
	c.now = clock.Now
	return c, clock
}

func TestGetReturnsValueBeforeExpiry(t *testing.T) {
	c, clock := newTestCache[string](10, time.Minute)

	c.Set("k", "v", nil)
	clock.Advance(59 * time.Second)

	got, ok := c.Get("k", nil)
	require.True(t, ok)
	assert.Equal(t, "v", got)
}

func TestGetMissesAtExactExpiry(t *testing.T) {
	c, clock := newTestCache[string](10, time.Minute)

	c.Set("k", "v", nil)
	clock.Advance(time.Minute)

	_, ok := c.Get("k", nil)
	assert.False(t, ok)

	stats := c.GetStats()
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(1), stats.Evictions)
	assert.Equal(t, 0, stats.TotalEntries)
}

func TestZeroTTLExpiresOnNextRead(t *testing.T) {
	c, _ := newTestCache[int](10, time.Minute)

	c.SetWithTTL("k", 42, nil, 0)

	_, ok := c.Get("k", nil)
	assert.False(t, ok)
}

func TestKeyDerivationIsParamOrderIndependent(t *testing.T) {
	c, _ := newTestCache[int](10, time.Minute)

	c.Set("k", 7, map[string]string{"a": "1", "b": "2"})

	got, ok := c.Get("k", map[string]string{"b": "2", "a": "1"})
	require.True(t, ok)
	assert.Equal(t, 7, got)
}

func TestDistinctParamsAreDistinctEntries(t *testing.T) {
	c, _ := newTestCache[int](10, time.Minute)

	c.Set("k", 1, map[string]string{"range": "1h"})
	c.Set("k", 2, map[string]string{"range": "24h"})

	got, ok := c.Get("k", map[string]string{"range": "1h"})
	require.True(t, ok)
	assert.Equal(t, 1, got)
	assert.Equal(t, 2, c.Len())
}

func TestCapacityNeverExceededAndLRUEvicted(t *testing.T) {
	c, clock := newTestCache[int](2, time.Minute)

	c.Set("a", 1, nil)
	clock.Advance(time.Millisecond)
	c.Set("b", 2, nil)
	clock.Advance(time.Millisecond)
	c.Set("c", 3, nil) // "a" never read, so it is the LRU victim

	assert.Equal(t, 2, c.Len())

	_, ok := c.Get("a", nil)
	assert.False(t, ok, "a should have been evicted")

	got, ok := c.Get("b", nil)
	require.True(t, ok)
	assert.Equal(t, 2, got)

	got, ok = c.Get("c", nil)
	require.True(t, ok)
	assert.Equal(t, 3, got)
}

func TestAccessProtectsFromEviction(t *testing.T) {
	c, clock := newTestCache[int](2, time.Minute)

	c.Set("a", 1, nil)
	clock.Advance(time.Millisecond)
	c.Set("b", 2, nil)
	clock.Advance(time.Millisecond)

	// Touch "a" so "b" becomes the oldest by last access.
	_, ok := c.Get("a", nil)
	require.True(t, ok)
	clock.Advance(time.Millisecond)

	c.Set("c", 3, nil)

	_, ok = c.Get("b", nil)
	assert.False(t, ok, "b should have been evicted")
	_, ok = c.Get("a", nil)
	assert.True(t, ok)
}

func TestSetSweepsExpiredBeforeEvicting(t *testing.T) {
	c, clock := newTestCache[int](2, time.Minute)

	c.SetWithTTL("short", 1, nil, time.Second)
	c.Set("long", 2, nil)
	clock.Advance(2 * time.Second)

	// The expired entry frees a slot, so "long" survives the insert.
	c.Set("new", 3, nil)

	_, ok := c.Get("long", nil)
	assert.True(t, ok)
	_, ok = c.Get("new", nil)
	assert.True(t, ok)

	stats := c.GetStats()
	assert.Equal(t, int64(1), stats.Evictions)
}

func TestHitRateZeroWithoutRequests(t *testing.T) {
	c, _ := newTestCache[int](10, time.Minute)

	assert.Zero(t, c.GetStats().HitRate)
}

func TestHitRateTracksHistory(t *testing.T) {
	c, _ := newTestCache[int](10, time.Minute)

	c.Set("k", 1, nil)
	c.Get("k", nil)            // hit
	c.Get("k", nil)            // hit
	c.Get("missing", nil)      // miss
	c.Get("also-missing", nil) // miss

	stats := c.GetStats()
	assert.Equal(t, int64(2), stats.Hits)
	assert.Equal(t, int64(2), stats.Misses)
	assert.InDelta(t, 0.5, stats.HitRate, 1e-9)
}

func TestHasDoesNotAffectHitMissCounters(t *testing.T) {
	c, clock := newTestCache[int](10, time.Second)

	c.Set("k", 1, nil)
	assert.True(t, c.Has("k", nil))
	assert.False(t, c.Has("missing", nil))

	stats := c.GetStats()
	assert.Zero(t, stats.Hits)
	assert.Zero(t, stats.Misses)

	entry := c.GetEntries()[BuildKey("k", nil)]
	assert.Equal(t, int64(1), entry.AccessCount, "Has must not bump access tracking")

	clock.Advance(2 * time.Second)
	assert.False(t, c.Has("k", nil))
	assert.Equal(t, int64(1), c.GetStats().Evictions)
}

func TestInvalidateExactKey(t *testing.T) {
	c, _ := newTestCache[int](10, time.Minute)

	params := map[string]string{"range": "1h"}
	c.Set("chart:1h", 1, params)
	c.Set("chart:1h", 2, map[string]string{"range": "24h"})

	removed := c.Invalidate("chart:1h", params)
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, c.Len())
}

func TestInvalidatePrefixRemovesAllParameterizations(t *testing.T) {
	c, _ := newTestCache[int](10, time.Minute)

	c.Set("chart:1h", 1, map[string]string{"metric": "tps"})
	c.Set("chart:1h", 2, map[string]string{"metric": "gas_price"})
	c.Set("chart:24h", 3, map[string]string{"metric": "tps"})

	removed := c.Invalidate("chart:1h", nil)
	assert.Equal(t, 2, removed)

	_, ok := c.Get("chart:24h", map[string]string{"metric": "tps"})
	assert.True(t, ok, "other base keys must survive prefix invalidation")
}

func TestInvalidateBaseDoesNotCrossLongerBaseKeys(t *testing.T) {
	c, _ := newTestCache[int](10, time.Minute)

	c.Set("metrics:100-200", 1, nil)
	c.Set("metrics:100-200", 2, map[string]string{"filter": "all"})
	c.Set("metrics:100-2000", 3, nil)
	c.Set("metrics:100-2000", 4, map[string]string{"filter": "all"})

	removed := c.InvalidateBase("metrics:100-200")
	assert.Equal(t, 2, removed)

	_, ok := c.Get("metrics:100-2000", nil)
	assert.True(t, ok, "longer base key sharing the prefix must survive")
	_, ok = c.Get("metrics:100-2000", map[string]string{"filter": "all"})
	assert.True(t, ok)
}

func TestClearCountsPriorSizeAsEvictions(t *testing.T) {
	c, _ := newTestCache[int](10, time.Minute)

	c.Set("a", 1, nil)
	c.Set("b", 2, nil)
	c.Clear()

	stats := c.GetStats()
	assert.Equal(t, int64(2), stats.Evictions)
	assert.Equal(t, 0, stats.TotalEntries)
}

func TestGetOrSetCachesFactoryResult(t *testing.T) {
	c, _ := newTestCache[int](10, time.Minute)

	calls := 0
	factory := func(context.Context) (int, error) {
		calls++
		return 99, nil
	}

	got, err := c.GetOrSet(context.Background(), "k", nil, factory)
	require.NoError(t, err)
	assert.Equal(t, 99, got)

	got, err = c.GetOrSet(context.Background(), "k", nil, factory)
	require.NoError(t, err)
	assert.Equal(t, 99, got)
	assert.Equal(t, 1, calls)
}

func TestGetOrSetColdCountsSingleMiss(t *testing.T) {
	c, _ := newTestCache[int](10, time.Minute)

	factory := func(context.Context) (int, error) { return 5, nil }

	_, err := c.GetOrSet(context.Background(), "k", nil, factory)
	require.NoError(t, err)

	stats := c.GetStats()
	assert.Equal(t, int64(1), stats.Misses, "the in-flight re-check must not count a second miss")
	assert.Zero(t, stats.Hits)

	_, err = c.GetOrSet(context.Background(), "k", nil, factory)
	require.NoError(t, err)

	stats = c.GetStats()
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(1), stats.Hits)
	assert.InDelta(t, 0.5, stats.HitRate, 1e-9)
}

func TestGetOrSetDeduplicatesConcurrentColdCallers(t *testing.T) {
	c, _ := newTestCache[int](10, time.Minute)

	var calls atomic.Int64
	release := make(chan struct{})
	factory := func(context.Context) (int, error) {
		calls.Add(1)
		<-release
		return 7, nil
	}

	var wg sync.WaitGroup
	results := make([]int, 4)
	errs := make([]error, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = c.GetOrSet(context.Background(), "cold", nil, factory)
		}(i)
	}

	// Let the goroutines pile onto the in-flight fetch before releasing it.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int64(1), calls.Load(), "concurrent cold callers must share one factory call")
	for i := range results {
		require.NoError(t, errs[i])
		assert.Equal(t, 7, results[i])
	}
}

func TestBuildKey(t *testing.T) {
	assert.Equal(t, "base", BuildKey("base", nil))
	assert.Equal(t, "base?a=1&b=2", BuildKey("base", map[string]string{"b": "2", "a": "1"}))
}
