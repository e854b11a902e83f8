// Package cache implements the bounded in-memory store that backs preloaded
// resources.
//
// The store maps a resource key to a single entry and keeps per-entry access
// metadata (insertion time, last access time, access count). When the store is
// full it evicts by access frequency rather than strict recency: preload
// targets are re-requested over and over, so the entries worth keeping are the
// ones that are read the most.
//
// Key Design Principles:
//   - At most one entry per key (insert-or-replace)
//   - Size never exceeds capacity; eviction runs synchronously inside Set
//   - All operations are total: no error returns
//   - Thread-safe for concurrent use; a single mutex guards the map
//   - Metrics are optional; a nil Metrics costs nothing
package cache

import (
	"sort"
	"sync"
	"time"
)

// DefaultCapacity is used when New is called with a non-positive capacity.
const DefaultCapacity = 100

// Store is a bounded key/value store with access-frequency eviction.
//
// The zero value is not usable; create stores with New.
type Store[V any] struct {
	mu      sync.Mutex
	entries map[string]*Entry[V]

	capacity      int
	evictionBatch int
	now           func() time.Time
	metrics       Metrics

	hits      uint64
	misses    uint64
	evictions uint64
}

// Option configures a Store.
type Option func(*options)

type options struct {
	evictionBatch int
	now           func() time.Time
	metrics       Metrics
}

// WithEvictionBatch sets how many entries are evicted when Set needs room for
// a new key. The default is 1. Values larger than the capacity are clamped.
func WithEvictionBatch(n int) Option {
	return func(o *options) {
		o.evictionBatch = n
	}
}

// WithClock overrides the time source. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// WithMetrics attaches a metrics sink. Passing nil disables metrics.
func WithMetrics(m Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// New creates a store holding at most capacity entries.
func New[V any](capacity int, opts ...Option) *Store[V] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	o := options{evictionBatch: 1, now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if o.evictionBatch < 1 {
		o.evictionBatch = 1
	}
	if o.evictionBatch > capacity {
		o.evictionBatch = capacity
	}

	return &Store[V]{
		entries:       make(map[string]*Entry[V], capacity),
		capacity:      capacity,
		evictionBatch: o.evictionBatch,
		now:           o.now,
		metrics:       o.metrics,
	}
}

// Get returns a copy of the entry stored under key.
//
// A hit refreshes LastAccessedAt and increments AccessCount. A miss, including
// a TTL-expired entry, leaves the store untouched.
func (s *Store[V]) Get(key string) (Entry[V], bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	e, ok := s.entries[key]
	if !ok || e.expired(now) {
		s.misses++
		if s.metrics != nil {
			s.metrics.RecordMiss()
		}
		return Entry[V]{}, false
	}

	e.LastAccessedAt = now
	e.AccessCount++
	s.hits++
	if s.metrics != nil {
		s.metrics.RecordHit()
	}
	return *e, true
}

// Peek returns the entry without touching its access metadata.
// Expired entries are returned as well; callers can check Expired.
func (s *Store[V]) Peek(key string) (Entry[V], bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return Entry[V]{}, false
	}
	return *e, true
}

// Set inserts or replaces the entry for key.
//
// The entry starts with AccessCount 1 and LastAccessedAt equal to InsertedAt.
// A ttl of zero means the entry never expires. If key is new and the store is
// full, eviction runs before the insert.
func (s *Store[V]) Set(key string, value V, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[key]; !exists && len(s.entries) >= s.capacity {
		s.evictLocked(s.capacity - s.evictionBatch)
	}

	now := s.now()
	s.entries[key] = &Entry[V]{
		Key:            key,
		Value:          value,
		InsertedAt:     now,
		LastAccessedAt: now,
		AccessCount:    1,
		TTL:            ttl,
	}

	s.recordSizeLocked()
}

// Delete removes key. Deleting a missing key is a no-op.
func (s *Store[V]) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[key]; !ok {
		return
	}
	delete(s.entries, key)
	s.recordSizeLocked()
}

// Clear removes every entry. Counters in Stats are preserved.
func (s *Store[V]) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	clear(s.entries)
	s.recordSizeLocked()
}

// EvictIfNeeded removes entries until the store is within capacity and
// returns how many were removed. Set already keeps the store bounded; this is
// exposed for callers that shrink the capacity with Resize.
func (s *Store[V]) EvictIfNeeded() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.evictLocked(s.capacity)
}

// Resize changes the capacity and evicts down to it immediately.
func (s *Store[V]) Resize(capacity int) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.capacity = capacity
	if s.evictionBatch > capacity {
		s.evictionBatch = capacity
	}
	s.evictLocked(capacity)
}

// Purge removes entries whose TTL has elapsed and returns how many were
// removed.
func (s *Store[V]) Purge() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for key, e := range s.entries {
		if e.expired(now) {
			delete(s.entries, key)
			removed++
		}
	}
	if removed > 0 {
		if s.metrics != nil {
			s.metrics.RecordEviction(ReasonExpired, removed)
		}
		s.recordSizeLocked()
	}
	return removed
}

// Len returns the number of stored entries, expired ones included.
func (s *Store[V]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Cap returns the configured capacity.
func (s *Store[V]) Cap() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.capacity
}

// Keys returns the stored keys in sorted order.
func (s *Store[V]) Keys() []string {
	s.mu.Lock()
	keys := make([]string, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	s.mu.Unlock()

	sort.Strings(keys)
	return keys
}

// Stats returns a point-in-time view of the store counters.
func (s *Store[V]) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Stats{
		Size:      len(s.entries),
		Capacity:  s.capacity,
		Hits:      s.hits,
		Misses:    s.misses,
		Evictions: s.evictions,
	}
}

// recordSizeLocked reports the current size. Caller must hold s.mu.
func (s *Store[V]) recordSizeLocked() {
	if s.metrics != nil {
		s.metrics.RecordSize(len(s.entries))
	}
}
