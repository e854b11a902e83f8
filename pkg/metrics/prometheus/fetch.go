package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/localix/preloadd/pkg/fetch"
	"github.com/localix/preloadd/pkg/metrics"
)

var allStatuses = []fetch.Status{
	fetch.StatusIdle,
	fetch.StatusLoading,
	fetch.StatusSuccess,
	fetch.StatusError,
}

// FetchMetrics is the Prometheus implementation of fetch.Metrics.
type FetchMetrics struct {
	started  *prometheus.CounterVec
	finished *prometheus.CounterVec
	duration *prometheus.HistogramVec
	state    *prometheus.GaugeVec
}

// NewFetchMetrics creates a new Prometheus-backed fetch metrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewFetchMetrics() *FetchMetrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &FetchMetrics{
		started: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "preloadd_fetch_started_total",
				Help: "Total number of fetches started by resource and priority",
			},
			[]string{"resource", "priority"},
		),
		finished: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "preloadd_fetch_finished_total",
				Help: "Total number of fetches finished by resource and outcome",
			},
			[]string{"resource", "outcome"}, // success, error, canceled, superseded
		),
		duration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "preloadd_fetch_duration_milliseconds",
				Help: "Duration of fetches in milliseconds",
				Buckets: []float64{
					10,    // warm backend
					50,    //
					100,   //
					250,   //
					500,   //
					1000,  // 1s
					2500,  //
					5000,  //
					10000, // default transport timeout
				},
			},
			[]string{"resource"},
		),
		state: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "preloadd_resource_state",
				Help: "Current resource status (1 for the active status, 0 otherwise)",
			},
			[]string{"resource", "status"},
		),
	}
}

func (m *FetchMetrics) RecordFetchStarted(key string, priority fetch.Priority) {
	if m == nil {
		return
	}
	m.started.WithLabelValues(key, priority.String()).Inc()
}

func (m *FetchMetrics) RecordFetchFinished(key string, outcome fetch.Outcome, duration time.Duration) {
	if m == nil {
		return
	}
	m.finished.WithLabelValues(key, string(outcome)).Inc()
	m.duration.WithLabelValues(key).Observe(duration.Seconds() * 1000)
}

func (m *FetchMetrics) RecordState(key string, status fetch.Status) {
	if m == nil {
		return
	}
	for _, s := range allStatuses {
		v := 0.0
		if s == status {
			v = 1
		}
		m.state.WithLabelValues(key, string(s)).Set(v)
	}
}

func newFetchMetricsIface() fetch.Metrics {
	if m := NewFetchMetrics(); m != nil {
		return m
	}
	return nil
}

var _ fetch.Metrics = (*FetchMetrics)(nil)
