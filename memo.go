package lazyinit

import (
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// MemoCache is a bounded, per-instance cache of memoized values keyed by
// call site (or any caller-chosen string). Entries track creation time,
// access count, and last access time; an optional TTL expires entries
// independently and a capacity bound evicts the coldest quarter in one pass.
//
// Unlike LazyValue, a failing computation is never cached: it is retried on
// every call. That asymmetry is deliberate.
type MemoCache struct {
	mu         sync.Mutex
	entries    map[string]*memoEntry
	maxEntries int
	ttl        time.Duration
	seq        uint64
	group      singleflight.Group
	timeNow    func() time.Time // swappable for tests
}

type memoEntry struct {
	value        any
	createdAt    time.Time
	lastAccessed time.Time
	accessCount  int64
	seq          uint64
}

// MemoOption adjusts a single GetOrCompute call.
type MemoOption func(*memoSettings)

type memoSettings struct {
	ttl        time.Duration
	maxEntries int
}

// WithTTL overrides the cache's default TTL for this call's entry.
func WithTTL(ttl time.Duration) MemoOption {
	return func(s *memoSettings) {
		s.ttl = ttl
	}
}

// WithMaxEntries overrides the cache's capacity bound from this call on.
func WithMaxEntries(n int) MemoOption {
	return func(s *memoSettings) {
		s.maxEntries = n
	}
}

// DefaultMaxEntries bounds a MemoCache when no capacity is configured.
const DefaultMaxEntries = 1000

// NewMemoCache creates a memo cache. maxEntries <= 0 falls back to
// DefaultMaxEntries; ttl <= 0 disables expiry.
func NewMemoCache(maxEntries int, ttl time.Duration) *MemoCache {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &MemoCache{
		entries:    make(map[string]*memoEntry),
		maxEntries: maxEntries,
		ttl:        ttl,
		timeNow:    time.Now,
	}
}

// GetOrCompute returns the cached value for key, computing and storing it
// via fn when absent or expired. Concurrent callers racing on the same
// missing key share exactly one invocation of fn. Errors from fn are
// returned to every waiting caller but never stored, so a failing
// computation is retried on the next call.
func (c *MemoCache) GetOrCompute(key string, fn func() (any, error), opts ...MemoOption) (any, error) {
	settings := memoSettings{ttl: c.ttlSnapshot()}
	for _, opt := range opts {
		opt(&settings)
	}
	if settings.maxEntries > 0 {
		c.resize(settings.maxEntries)
	}

	if val, ok := c.lookup(key, settings.ttl); ok {
		return val, nil
	}

	val, err, _ := c.group.Do(key, func() (any, error) {
		// A racing caller may have stored the entry while this one waited
		// for the flight.
		if val, ok := c.lookup(key, settings.ttl); ok {
			return val, nil
		}

		val, err := fn()
		if err != nil {
			return nil, err
		}

		c.store(key, val)
		return val, nil
	})
	return val, err
}

// lookup returns the live value for key, bumping its access bookkeeping.
// Expired entries are removed and reported as misses.
func (c *MemoCache) lookup(key string, ttl time.Duration) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}

	now := c.timeNow()
	if ttl > 0 && now.Sub(e.createdAt) > ttl {
		delete(c.entries, key)
		return nil, false
	}

	e.accessCount++
	e.lastAccessed = now
	return e.value, true
}

func (c *MemoCache) store(key string, val any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxEntries {
		c.evictLocked()
	}

	now := c.timeNow()
	c.seq++
	c.entries[key] = &memoEntry{
		value:        val,
		createdAt:    now,
		lastAccessed: now,
		accessCount:  1,
		seq:          c.seq,
	}
}

// evictLocked removes roughly a quarter of the entries in one pass. Victims
// are the coldest by last access when a TTL keeps access times meaningful,
// otherwise the oldest by insertion. Batch eviction trades brief overshoot
// tolerance for not thrashing one entry per insert at the boundary.
func (c *MemoCache) evictLocked() {
	count := (len(c.entries) + 3) / 4
	if count == 0 {
		return
	}

	type victim struct {
		key string
		e   *memoEntry
	}
	candidates := make([]victim, 0, len(c.entries))
	for key, e := range c.entries {
		candidates = append(candidates, victim{key: key, e: e})
	}

	byAccessTime := c.ttl > 0
	sort.Slice(candidates, func(i, j int) bool {
		if byAccessTime {
			return candidates[i].e.lastAccessed.Before(candidates[j].e.lastAccessed)
		}
		return candidates[i].e.seq < candidates[j].e.seq
	})

	for _, v := range candidates[:count] {
		delete(c.entries, v.key)
	}
}

func (c *MemoCache) ttlSnapshot() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ttl
}

func (c *MemoCache) resize(maxEntries int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.maxEntries = maxEntries
}

// Clear removes every entry.
func (c *MemoCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*memoEntry)
}

// Len returns the current number of entries.
func (c *MemoCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// EntryInfo describes one cached entry.
type EntryInfo struct {
	CreatedAt    time.Time `json:"created_at"`
	LastAccessed time.Time `json:"last_accessed"`
	AccessCount  int64     `json:"access_count"`
}

// Info returns per-key metadata for every live entry.
func (c *MemoCache) Info() map[string]EntryInfo {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(map[string]EntryInfo, len(c.entries))
	for key, e := range c.entries {
		out[key] = EntryInfo{
			CreatedAt:    e.createdAt,
			LastAccessed: e.lastAccessed,
			AccessCount:  e.accessCount,
		}
	}
	return out
}

// Statistics aggregates cache-wide metadata. ComputedEntries always equals
// TotalEntries because failed computations are never stored.
type Statistics struct {
	TotalEntries    int       `json:"total_entries"`
	ComputedEntries int       `json:"computed_entries"`
	OldestEntry     time.Time `json:"oldest_entry,omitempty"`
	NewestEntry     time.Time `json:"newest_entry,omitempty"`
	TotalAccesses   int64     `json:"total_accesses"`
	AverageAccesses float64   `json:"average_accesses"`
}

// String encodes the statistics as JSON.
func (s Statistics) String() string {
	sb := &strings.Builder{}
	if err := json.NewEncoder(sb).Encode(s); err != nil {
		return "{}"
	}
	return sb.String()
}

// Statistics reports aggregate metadata across all entries.
func (c *MemoCache) Statistics() Statistics {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := Statistics{
		TotalEntries:    len(c.entries),
		ComputedEntries: len(c.entries),
	}

	for _, e := range c.entries {
		if stats.OldestEntry.IsZero() || e.createdAt.Before(stats.OldestEntry) {
			stats.OldestEntry = e.createdAt
		}
		if e.createdAt.After(stats.NewestEntry) {
			stats.NewestEntry = e.createdAt
		}
		stats.TotalAccesses += e.accessCount
	}

	if stats.TotalEntries > 0 {
		stats.AverageAccesses = float64(stats.TotalAccesses) / float64(stats.TotalEntries)
	}
	return stats
}

// SetTimeNowFunc replaces the clock, primarily for TTL tests. Passing nil
// resets to time.Now.
func (c *MemoCache) SetTimeNowFunc(f func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if f == nil {
		f = time.Now
	}
	c.timeNow = f
}
