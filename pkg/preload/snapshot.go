package preload

import (
	"time"

	"github.com/localix/preloadd/pkg/fetch"
	"github.com/localix/preloadd/pkg/source"
)

// PreloadedData is the consumer view of one resource.
type PreloadedData struct {
	Key         string           `json:"key"`
	Status      fetch.Status     `json:"status"`
	Priority    fetch.Priority   `json:"priority"`
	Data        *source.Records  `json:"data,omitempty"`
	IsLoading   bool             `json:"is_loading"`
	Error       *fetch.ErrorInfo `json:"error,omitempty"`
	IsStale     bool             `json:"is_stale"`
	LastUpdated *time.Time       `json:"last_updated,omitempty"`
}

// GetPreloadedData returns the current view of key. A resource that never
// loaded is not stale; staleness applies only to data that exists.
func (s *Scheduler) GetPreloadedData(key string) PreloadedData {
	s.mu.Lock()
	interval := s.cfg.RefreshInterval
	priority := s.priorityLocked(key)
	s.mu.Unlock()

	return s.view(key, priority, s.coord.State(key), interval)
}

// priorityLocked returns the effective priority of key. Caller must hold s.mu.
func (s *Scheduler) priorityLocked(key string) fetch.Priority {
	if p, ok := s.cfg.Priorities[key]; ok {
		return p
	}
	if r, ok := s.resources[key]; ok {
		return r.Priority
	}
	return fetch.PriorityMedium
}

func (s *Scheduler) view(key string, priority fetch.Priority, st *fetch.ResourceState[source.Records], interval time.Duration) PreloadedData {
	return PreloadedData{
		Key:         key,
		Status:      st.Status,
		Priority:    priority,
		Data:        st.Data,
		IsLoading:   st.IsLoading(),
		Error:       st.Err,
		IsStale:     st.LastUpdated != nil && fetch.IsStale(st.LastUpdated, interval, s.now()),
		LastUpdated: st.LastUpdated,
	}
}

// Snapshot returns the view of every registered resource in execution order.
func (s *Scheduler) Snapshot() []PreloadedData {
	plan, _ := s.plan(nil)
	interval := s.Config().RefreshInterval
	states := s.coord.States()

	out := make([]PreloadedData, 0, len(plan))
	for _, p := range plan {
		st, ok := states[p.res.Key]
		if !ok {
			st = s.coord.State(p.res.Key)
		}
		out = append(out, s.view(p.res.Key, p.priority, st, interval))
	}
	return out
}

// Resources returns the registered resources in execution order, with
// configured priority overrides applied.
func (s *Scheduler) Resources() []Resource {
	plan, _ := s.plan(nil)
	out := make([]Resource, len(plan))
	for i, p := range plan {
		r := p.res
		r.Priority = p.priority
		r.Params = r.Params.Clone()
		out[i] = r
	}
	return out
}

// Has reports whether key is registered.
func (s *Scheduler) Has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.resources[key]
	return ok
}

// Subscribe calls fn with the new view of key on every transition. Use
// AllResources to observe every key. fn runs outside the coordinator lock
// and must not block for long.
func (s *Scheduler) Subscribe(key string, fn func(PreloadedData)) (unsubscribe func()) {
	listener := func(tr fetch.Transition[source.Records]) {
		s.mu.Lock()
		interval := s.cfg.RefreshInterval
		priority := s.priorityLocked(tr.Key)
		s.mu.Unlock()
		fn(s.view(tr.Key, priority, tr.Next, interval))
	}

	if key == AllResources {
		return s.coord.SubscribeAll(listener)
	}
	return s.coord.Subscribe(key, listener)
}
