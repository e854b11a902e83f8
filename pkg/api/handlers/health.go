package handlers

import (
	"net/http"

	"github.com/localix/preloadd/pkg/fetch"
	"github.com/localix/preloadd/pkg/preload"
)

// HealthHandler handles health check endpoints.
//
// Health endpoints are unauthenticated.
type HealthHandler struct {
	scheduler *preload.Scheduler
}

// NewHealthHandler creates a new health handler. scheduler may be nil, in
// which case readiness reports unhealthy.
func NewHealthHandler(scheduler *preload.Scheduler) *HealthHandler {
	return &HealthHandler{scheduler: scheduler}
}

// Liveness handles GET /health - simple liveness probe.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthyResponse(map[string]string{
		"service": "preloadd",
	}))
}

// ReadinessData summarizes resource states for the readiness probe.
type ReadinessData struct {
	Resources int `json:"resources"`
	Loaded    int `json:"loaded"`
	Loading   int `json:"loading"`
	Failed    int `json:"failed"`
	Cached    int `json:"cached"`
}

// Readiness handles GET /health/ready - readiness probe.
//
// Ready means resources are registered. A failed fetch does not make the
// daemon unready: the last good data keeps being served.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	if h.scheduler == nil {
		writeJSON(w, http.StatusServiceUnavailable, unhealthyResponse("scheduler not initialized"))
		return
	}

	snapshot := h.scheduler.Snapshot()
	if len(snapshot) == 0 {
		writeJSON(w, http.StatusServiceUnavailable, unhealthyResponse("no resources registered"))
		return
	}

	data := ReadinessData{
		Resources: len(snapshot),
		Cached:    h.scheduler.Coordinator().Store().Len(),
	}
	for _, d := range snapshot {
		switch d.Status {
		case fetch.StatusSuccess:
			data.Loaded++
		case fetch.StatusLoading:
			data.Loading++
		case fetch.StatusError:
			data.Failed++
		}
	}

	writeJSON(w, http.StatusOK, healthyResponse(data))
}
