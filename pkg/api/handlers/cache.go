package handlers

import (
	"net/http"

	"github.com/localix/preloadd/internal/logger"
	"github.com/localix/preloadd/pkg/preload"
)

// CacheHandler exposes the data cache counters and maintenance.
type CacheHandler struct {
	scheduler *preload.Scheduler
}

// NewCacheHandler creates a cache handler.
func NewCacheHandler(scheduler *preload.Scheduler) *CacheHandler {
	return &CacheHandler{scheduler: scheduler}
}

// CacheStatsResponse is the body of GET /api/v1/cache.
type CacheStatsResponse struct {
	Size      int      `json:"size"`
	Capacity  int      `json:"capacity"`
	Hits      uint64   `json:"hits"`
	Misses    uint64   `json:"misses"`
	Evictions uint64   `json:"evictions"`
	HitRate   float64  `json:"hit_rate"`
	Keys      []string `json:"keys"`
}

// PurgeResponse reports how many expired entries were removed.
type PurgeResponse struct {
	Purged int `json:"purged"`
}

// Stats handles GET /api/v1/cache.
func (h *CacheHandler) Stats(w http.ResponseWriter, r *http.Request) {
	store := h.scheduler.Coordinator().Store()
	stats := store.Stats()
	writeJSON(w, http.StatusOK, CacheStatsResponse{
		Size:      stats.Size,
		Capacity:  stats.Capacity,
		Hits:      stats.Hits,
		Misses:    stats.Misses,
		Evictions: stats.Evictions,
		HitRate:   stats.HitRate(),
		Keys:      store.Keys(),
	})
}

// Purge handles POST /api/v1/cache/purge.
func (h *CacheHandler) Purge(w http.ResponseWriter, r *http.Request) {
	n := h.scheduler.Coordinator().Store().Purge()
	logger.InfoCtx(r.Context(), "Cache purged via API", logger.KeyEvicted, n)
	writeJSON(w, http.StatusOK, PurgeResponse{Purged: n})
}

// Clear handles DELETE /api/v1/cache. Resource states keep their last data;
// the next non-forced request fetches again.
func (h *CacheHandler) Clear(w http.ResponseWriter, r *http.Request) {
	h.scheduler.Coordinator().Store().Clear()
	logger.InfoCtx(r.Context(), "Cache cleared via API")
	w.WriteHeader(http.StatusNoContent)
}
