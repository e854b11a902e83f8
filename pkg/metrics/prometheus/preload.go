package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/localix/preloadd/pkg/metrics"
	"github.com/localix/preloadd/pkg/preload"
)

// PreloadMetrics is the Prometheus implementation of preload.Metrics.
type PreloadMetrics struct {
	batches   *prometheus.CounterVec
	requested prometheus.Counter
	duration  prometheus.Histogram
}

// NewPreloadMetrics creates a new Prometheus-backed preload metrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewPreloadMetrics() *PreloadMetrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &PreloadMetrics{
		batches: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "preloadd_preload_batches_total",
				Help: "Total number of preload batch attempts by result",
			},
			[]string{"result"}, // completed, skipped, aborted
		),
		requested: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "preloadd_preload_requests_total",
				Help: "Total number of resource requests issued by preload batches",
			},
		),
		duration: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "preloadd_preload_batch_duration_milliseconds",
				Help:    "Time to issue a preload batch, including cooldown pauses",
				Buckets: []float64{1, 10, 50, 100, 250, 500, 1000, 5000},
			},
		),
	}
}

func (m *PreloadMetrics) RecordBatch(result preload.BatchResult, requested int, duration time.Duration) {
	if m == nil {
		return
	}
	m.batches.WithLabelValues(string(result)).Inc()
	if requested > 0 {
		m.requested.Add(float64(requested))
	}
	if result != preload.BatchSkipped {
		m.duration.Observe(duration.Seconds() * 1000)
	}
}

func newPreloadMetricsIface() preload.Metrics {
	if m := NewPreloadMetrics(); m != nil {
		return m
	}
	return nil
}

var _ preload.Metrics = (*PreloadMetrics)(nil)
