package cache

import "sort"

// ============================================================================
// Eviction (access frequency)
// ============================================================================
//
// Victims are chosen by lowest AccessCount. Ties go to the entry that was
// accessed longest ago, then to the smaller key so the order is deterministic.
// Expired entries are always evicted first regardless of their counts.

// evictLocked removes entries until len(entries) <= target and returns the
// number removed. Caller must hold s.mu.
func (s *Store[V]) evictLocked(target int) int {
	if target < 0 {
		target = 0
	}
	excess := len(s.entries) - target
	if excess <= 0 {
		return 0
	}

	victims := s.victimsLocked(excess)
	for _, key := range victims {
		delete(s.entries, key)
	}

	s.evictions += uint64(len(victims))
	if s.metrics != nil {
		s.metrics.RecordEviction(ReasonCapacity, len(victims))
	}
	s.recordSizeLocked()

	return len(victims)
}

// victimsLocked returns the n keys that eviction should remove, in eviction
// order. Caller must hold s.mu.
func (s *Store[V]) victimsLocked(n int) []string {
	now := s.now()
	candidates := make([]*Entry[V], 0, len(s.entries))
	for _, e := range s.entries {
		candidates = append(candidates, e)
	}

	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if ae, be := a.expired(now), b.expired(now); ae != be {
			return ae
		}
		if a.AccessCount != b.AccessCount {
			return a.AccessCount < b.AccessCount
		}
		if !a.LastAccessedAt.Equal(b.LastAccessedAt) {
			return a.LastAccessedAt.Before(b.LastAccessedAt)
		}
		return a.Key < b.Key
	})

	if n > len(candidates) {
		n = len(candidates)
	}
	keys := make([]string, n)
	for i := 0; i < n; i++ {
		keys[i] = candidates[i].Key
	}
	return keys
}
