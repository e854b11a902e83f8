package handlers

import (
	"net/http"

	"github.com/localix/preloadd/pkg/fetch"
	"github.com/localix/preloadd/pkg/preload"
)

// PreloadHandler triggers preload batches.
type PreloadHandler struct {
	scheduler *preload.Scheduler
}

// NewPreloadHandler creates a preload handler.
func NewPreloadHandler(scheduler *preload.Scheduler) *PreloadHandler {
	return &PreloadHandler{scheduler: scheduler}
}

// PreloadRequest is the optional body of POST /api/v1/preload.
type PreloadRequest struct {
	// Priority replaces every resource's priority for this batch.
	Priority *fetch.Priority `json:"priority,omitempty"`
}

// PreloadAll handles POST /api/v1/preload.
//
// The batch is issued before the response is written; fetches complete in
// the background. Returns 409 when a fetch or another batch is in progress.
func (h *PreloadHandler) PreloadAll(w http.ResponseWriter, r *http.Request) {
	var req PreloadRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	result, err := h.scheduler.PreloadAll(r.Context(), req.Priority)
	if err != nil {
		writeSchedulerError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, RefreshResponse{Requested: result.Requested})
}
