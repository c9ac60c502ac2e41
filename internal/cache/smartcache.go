// Package cache implements the TTL/LRU caches backing the dashboard data
// layer: a generic SmartCache plus a Manager owning the named instances for
// dashboard metrics, chart series and table pages.
package cache

import (
	"container/list"
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Entry holds one cached value with its expiry and access bookkeeping.
// All timestamps are milliseconds since epoch.
type Entry[T any] struct {
	Data         T     `json:"data"`
	Timestamp    int64 `json:"timestamp"` // creation time
	TTL          int64 `json:"ttl"`       // milliseconds; 0 expires on the next read
	AccessCount  int64 `json:"accessCount"`
	LastAccessed int64 `json:"lastAccessed"`
}

func (e Entry[T]) expired(nowMs int64) bool {
	return nowMs-e.Timestamp >= e.TTL
}

// Stats is a point-in-time snapshot of cache effectiveness counters.
type Stats struct {
	Hits         int64   `json:"hits"`
	Misses       int64   `json:"misses"`
	Evictions    int64   `json:"evictions"`
	TotalEntries int     `json:"totalEntries"`
	HitRate      float64 `json:"hitRate"` // 0 when no requests recorded
}

type record[T any] struct {
	key   string
	entry Entry[T]
}

// SmartCache is a capacity-bounded TTL cache with LRU eviction.
//
// The recency order is tracked with an intrusive list (front = most recently
// accessed), so eviction picks the entry with the oldest LastAccessed in
// O(1), with insertion order breaking ties. Capacity is enforced before
// insertion, so size never exceeds maxSize.
type SmartCache[T any] struct {
	mu      sync.Mutex
	entries map[string]*list.Element
	order   *list.List // of *record[T]

	maxSize    int
	defaultTTL time.Duration

	hits      int64
	misses    int64
	evictions int64

	group singleflight.Group
	now   func() time.Time
}

// New creates a SmartCache holding at most maxSize entries, each expiring
// defaultTTL after creation unless an explicit TTL is set.
func New[T any](maxSize int, defaultTTL time.Duration) *SmartCache[T] {
	return &SmartCache[T]{
		entries:    make(map[string]*list.Element),
		order:      list.New(),
		maxSize:    maxSize,
		defaultTTL: defaultTTL,
		now:        time.Now,
	}
}

// Get returns the cached value for key+params. An absent or expired entry
// counts as a miss; expired entries are removed and counted as evictions.
// A hit bumps the entry's access bookkeeping.
func (c *SmartCache[T]) Get(key string, params map[string]string) (T, bool) {
	var zero T
	derived := BuildKey(key, params)
	nowMs := c.now().UnixMilli()

	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[derived]
	if !ok {
		c.misses++
		return zero, false
	}

	rec := elem.Value.(*record[T])
	if rec.entry.expired(nowMs) {
		c.removeLocked(elem)
		c.evictions++
		c.misses++
		return zero, false
	}

	rec.entry.AccessCount++
	rec.entry.LastAccessed = nowMs
	c.order.MoveToFront(elem)
	c.hits++
	return rec.entry.Data, true
}

// Set stores data under key+params with the default TTL.
func (c *SmartCache[T]) Set(key string, data T, params map[string]string) {
	c.SetWithTTL(key, data, params, c.defaultTTL)
}

// SetWithTTL stores data with an explicit TTL. Before inserting it sweeps
// all expired entries, then evicts the least recently accessed entry if the
// cache is still at capacity.
func (c *SmartCache[T]) SetWithTTL(key string, data T, params map[string]string, ttl time.Duration) {
	derived := BuildKey(key, params)
	nowMs := c.now().UnixMilli()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.sweepExpiredLocked(nowMs)

	if existing, ok := c.entries[derived]; ok {
		c.removeLocked(existing)
	}

	for len(c.entries) >= c.maxSize {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		c.removeLocked(oldest)
		c.evictions++
	}

	rec := &record[T]{
		key: derived,
		entry: Entry[T]{
			Data:         data,
			Timestamp:    nowMs,
			TTL:          ttl.Milliseconds(),
			AccessCount:  1,
			LastAccessed: nowMs,
		},
	}
	c.entries[derived] = c.order.PushFront(rec)
}

// Has reports whether an unexpired entry exists, without touching hit/miss
// counters or access tracking. An expired entry is removed and counted as
// an eviction, same as on Get.
func (c *SmartCache[T]) Has(key string, params map[string]string) bool {
	derived := BuildKey(key, params)
	nowMs := c.now().UnixMilli()

	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[derived]
	if !ok {
		return false
	}
	if elem.Value.(*record[T]).entry.expired(nowMs) {
		c.removeLocked(elem)
		c.evictions++
		return false
	}
	return true
}

// peek returns the cached value without counting a hit or miss and without
// bumping access tracking. Expired entries are removed and counted as
// evictions, same as on Get.
func (c *SmartCache[T]) peek(key string, params map[string]string) (T, bool) {
	var zero T
	derived := BuildKey(key, params)
	nowMs := c.now().UnixMilli()

	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[derived]
	if !ok {
		return zero, false
	}
	rec := elem.Value.(*record[T])
	if rec.entry.expired(nowMs) {
		c.removeLocked(elem)
		c.evictions++
		return zero, false
	}
	return rec.entry.Data, true
}

// Invalidate removes entries for the base key. With params it removes
// exactly that derived key; without params it removes every entry whose key
// starts with the base key, covering all parameterizations. Each removal
// counts as an eviction. Returns the number of entries removed.
func (c *SmartCache[T]) Invalidate(key string, params map[string]string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if params != nil {
		derived := BuildKey(key, params)
		if elem, ok := c.entries[derived]; ok {
			c.removeLocked(elem)
			c.evictions++
			return 1
		}
		return 0
	}

	removed := 0
	for derived, elem := range c.entries {
		if strings.HasPrefix(derived, key) {
			c.removeLocked(elem)
			c.evictions++
			removed++
		}
	}
	return removed
}

// InvalidateBase removes the base key's entry and every parameterization of
// it. Unlike a bare prefix Invalidate it cannot cross into a longer base key
// that shares the prefix, such as a custom range "100-200" versus "100-2000":
// only the exact key and keys extending it with a "?" parameter suffix match.
// Returns the number of entries removed.
func (c *SmartCache[T]) InvalidateBase(key string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	paramPrefix := key + "?"
	removed := 0
	for derived, elem := range c.entries {
		if derived == key || strings.HasPrefix(derived, paramPrefix) {
			c.removeLocked(elem)
			c.evictions++
			removed++
		}
	}
	return removed
}

// Clear removes everything, counting the prior size as evictions.
func (c *SmartCache[T]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.evictions += int64(len(c.entries))
	c.entries = make(map[string]*list.Element)
	c.order.Init()
}

// GetOrSet returns the cached value if present, otherwise invokes factory,
// stores the result with the default TTL and returns it. Concurrent callers
// on the same cold key share a single factory invocation.
func (c *SmartCache[T]) GetOrSet(ctx context.Context, key string, params map[string]string, factory func(context.Context) (T, error)) (T, error) {
	if data, ok := c.Get(key, params); ok {
		return data, nil
	}

	derived := BuildKey(key, params)
	result, err, _ := c.group.Do(derived, func() (any, error) {
		// Re-check under the flight: another caller may have stored the
		// value between our miss and this callback running. The outer Get
		// already counted this request, so the re-check stays off the books.
		if data, ok := c.peek(key, params); ok {
			return data, nil
		}
		data, err := factory(ctx)
		if err != nil {
			return nil, err
		}
		c.Set(key, data, params)
		return data, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result.(T), nil
}

// GetStats returns a snapshot of the effectiveness counters.
func (c *SmartCache[T]) GetStats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := Stats{
		Hits:         c.hits,
		Misses:       c.misses,
		Evictions:    c.evictions,
		TotalEntries: len(c.entries),
	}
	if total := c.hits + c.misses; total > 0 {
		stats.HitRate = float64(c.hits) / float64(total)
	}
	return stats
}

// GetEntries returns a snapshot of all entries keyed by derived key, for
// diagnostics endpoints.
func (c *SmartCache[T]) GetEntries() map[string]Entry[T] {
	c.mu.Lock()
	defer c.mu.Unlock()

	snapshot := make(map[string]Entry[T], len(c.entries))
	for derived, elem := range c.entries {
		snapshot[derived] = elem.Value.(*record[T]).entry
	}
	return snapshot
}

// Len returns the current entry count.
func (c *SmartCache[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *SmartCache[T]) sweepExpiredLocked(nowMs int64) {
	for elem := c.order.Front(); elem != nil; {
		next := elem.Next()
		if elem.Value.(*record[T]).entry.expired(nowMs) {
			c.removeLocked(elem)
			c.evictions++
		}
		elem = next
	}
}

func (c *SmartCache[T]) removeLocked(elem *list.Element) {
	rec := c.order.Remove(elem).(*record[T])
	delete(c.entries, rec.key)
}
