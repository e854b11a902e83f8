package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/localix/preloadd/pkg/fetch"
	"github.com/localix/preloadd/pkg/metrics"
	"github.com/localix/preloadd/pkg/source"
)

func init() {
	metrics.RegisterSourceMetricsConstructor(newSourceMetricsIface)
}

// SourceMetrics is the Prometheus implementation of source.Metrics.
type SourceMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	items    *prometheus.GaugeVec
}

// NewSourceMetrics creates a new Prometheus-backed source metrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewSourceMetrics() *SourceMetrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &SourceMetrics{
		requests: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "preloadd_backend_requests_total",
				Help: "Total number of backend calls by source, resource and result",
			},
			[]string{"source", "resource", "result"}, // success, canceled, transport, validation, unknown
		),
		duration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "preloadd_backend_request_duration_milliseconds",
				Help:    "Duration of backend calls in milliseconds",
				Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
			},
			[]string{"source", "resource"},
		),
		items: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "preloadd_backend_items",
				Help: "Number of records returned by the last successful backend call",
			},
			[]string{"source", "resource"},
		),
	}
}

// ObserveFetch records one backend call.
func (m *SourceMetrics) ObserveFetch(src source.Type, key string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(string(src), key, resultLabel(err)).Inc()
	m.duration.WithLabelValues(string(src), key).Observe(duration.Seconds() * 1000)
}

// RecordItems records the size of a successful result.
func (m *SourceMetrics) RecordItems(src source.Type, key string, items int) {
	if m == nil {
		return
	}
	m.items.WithLabelValues(string(src), key).Set(float64(items))
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "success"
	case fetch.IsCanceled(err):
		return "canceled"
	default:
		return string(fetch.Classify(err).Kind)
	}
}

func newSourceMetricsIface() source.Metrics {
	if m := NewSourceMetrics(); m != nil {
		return m
	}
	return nil
}

var _ source.Metrics = (*SourceMetrics)(nil)
