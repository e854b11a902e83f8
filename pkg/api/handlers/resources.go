package handlers

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/localix/preloadd/internal/logger"
	"github.com/localix/preloadd/pkg/fetch"
	"github.com/localix/preloadd/pkg/preload"
)

const (
	// eventWriteTimeout bounds each event write on a stream.
	eventWriteTimeout = 10 * time.Second

	// heartbeatInterval keeps idle streams open through proxies.
	heartbeatInterval = 15 * time.Second
)

// ResourceHandler serves resource state and fetch control.
type ResourceHandler struct {
	scheduler *preload.Scheduler
}

// NewResourceHandler creates a resource handler.
func NewResourceHandler(scheduler *preload.Scheduler) *ResourceHandler {
	return &ResourceHandler{scheduler: scheduler}
}

// ResourceSummary is a resource without its data payload.
type ResourceSummary struct {
	Key         string           `json:"key"`
	Status      fetch.Status     `json:"status"`
	Priority    fetch.Priority   `json:"priority"`
	IsLoading   bool             `json:"is_loading"`
	IsStale     bool             `json:"is_stale"`
	Items       int              `json:"items"`
	Error       *fetch.ErrorInfo `json:"error,omitempty"`
	LastUpdated *time.Time       `json:"last_updated,omitempty"`
}

func summarize(d preload.PreloadedData) ResourceSummary {
	s := ResourceSummary{
		Key:         d.Key,
		Status:      d.Status,
		Priority:    d.Priority,
		IsLoading:   d.IsLoading,
		IsStale:     d.IsStale,
		Error:       d.Error,
		LastUpdated: d.LastUpdated,
	}
	if d.Data != nil {
		s.Items = d.Data.Count
	}
	return s
}

// RefreshResponse lists the keys a refresh or preload requested.
type RefreshResponse struct {
	Requested []string `json:"requested"`
}

// List handles GET /api/v1/resources.
func (h *ResourceHandler) List(w http.ResponseWriter, r *http.Request) {
	snapshot := h.scheduler.Snapshot()
	out := make([]ResourceSummary, len(snapshot))
	for i, d := range snapshot {
		out[i] = summarize(d)
	}
	writeJSON(w, http.StatusOK, out)
}

// Get handles GET /api/v1/resources/{key}.
func (h *ResourceHandler) Get(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if !h.scheduler.Has(key) {
		ResourceNotFound(w, key)
		return
	}
	writeJSON(w, http.StatusOK, h.scheduler.GetPreloadedData(key))
}

// Refresh handles POST /api/v1/resources/{key}/refresh. The key "all"
// refreshes every resource.
func (h *ResourceHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	requested, err := h.scheduler.ForceRefresh(r.Context(), key)
	if err != nil {
		writeSchedulerError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, RefreshResponse{Requested: requested})
}

// CancelFetch handles DELETE /api/v1/resources/{key}/fetch.
//
// Returns 204 when an in-flight fetch was cancelled and 409 when the
// resource was not loading.
func (h *ResourceHandler) CancelFetch(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if !h.scheduler.Has(key) {
		ResourceNotFound(w, key)
		return
	}
	if !h.scheduler.Coordinator().Cancel(key) {
		NotLoading(w, key)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Events handles GET /api/v1/resources/{key}/events as a server-sent event
// stream. The current state is sent first, then every transition. The key
// "all" streams every resource.
func (h *ResourceHandler) Events(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if key != preload.AllResources && !h.scheduler.Has(key) {
		ResourceNotFound(w, key)
		return
	}

	rc := http.NewResponseController(w)
	q := newEventQueue()
	unsubscribe := h.scheduler.Subscribe(key, q.push)
	defer unsubscribe()

	if key == preload.AllResources {
		for _, d := range h.scheduler.Snapshot() {
			q.push(d)
		}
	} else {
		q.push(h.scheduler.GetPreloadedData(key))
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		logger.Debug("Event stream not flushable", logger.KeyError, err)
		return
	}

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return

		case <-heartbeat.C:
			_ = rc.SetWriteDeadline(time.Now().Add(eventWriteTimeout))
			if _, err := w.Write([]byte(": ping\n\n")); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}

		case <-q.ready:
			for _, d := range q.drain() {
				payload, err := json.Marshal(d)
				if err != nil {
					logger.Error("Failed to encode event", logger.KeyResource, d.Key, logger.KeyError, err)
					continue
				}
				_ = rc.SetWriteDeadline(time.Now().Add(eventWriteTimeout))
				if _, err := w.Write(formatEvent(payload)); err != nil {
					return
				}
			}
			if err := rc.Flush(); err != nil {
				return
			}
		}
	}
}

func formatEvent(payload []byte) []byte {
	buf := make([]byte, 0, len(payload)+20)
	buf = append(buf, "event: state\ndata: "...)
	buf = append(buf, payload...)
	return append(buf, "\n\n"...)
}

// eventQueue coalesces transitions per key, so a slow client sees the latest
// view of every resource instead of blocking the coordinator.
type eventQueue struct {
	mu      sync.Mutex
	order   []string
	pending map[string]preload.PreloadedData
	ready   chan struct{}
}

func newEventQueue() *eventQueue {
	return &eventQueue{
		pending: make(map[string]preload.PreloadedData),
		ready:   make(chan struct{}, 1),
	}
}

func (q *eventQueue) push(d preload.PreloadedData) {
	q.mu.Lock()
	if _, ok := q.pending[d.Key]; !ok {
		q.order = append(q.order, d.Key)
	}
	q.pending[d.Key] = d
	q.mu.Unlock()

	select {
	case q.ready <- struct{}{}:
	default:
	}
}

func (q *eventQueue) drain() []preload.PreloadedData {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]preload.PreloadedData, 0, len(q.order))
	for _, k := range q.order {
		out = append(out, q.pending[k])
	}
	q.order = q.order[:0]
	clear(q.pending)
	return out
}
