package cache

import "time"

// Entry is a single cached value plus its access metadata.
//
// Entries handed out by the store are copies; mutating them has no effect on
// the store.
type Entry[V any] struct {
	Key            string
	Value          V
	InsertedAt     time.Time
	LastAccessedAt time.Time
	AccessCount    uint64

	// TTL is the entry lifetime measured from InsertedAt. Zero means no expiry.
	TTL time.Duration
}

// Expired reports whether the entry's TTL has elapsed at now.
func (e Entry[V]) Expired(now time.Time) bool {
	return e.expired(now)
}

func (e *Entry[V]) expired(now time.Time) bool {
	return e.TTL > 0 && now.Sub(e.InsertedAt) >= e.TTL
}

// Stats is a snapshot of store counters.
type Stats struct {
	Size      int    `json:"size"`
	Capacity  int    `json:"capacity"`
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	Evictions uint64 `json:"evictions"`
}

// HitRate returns hits / (hits + misses), or 0 before any lookup.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}
