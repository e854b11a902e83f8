package prometheus

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/localix/preloadd/pkg/cache"
	"github.com/localix/preloadd/pkg/fetch"
	"github.com/localix/preloadd/pkg/metrics"
	"github.com/localix/preloadd/pkg/preload"
	"github.com/localix/preloadd/pkg/source"
)

func TestConstructorsNilWhenDisabled(t *testing.T) {
	metrics.Disable()

	assert.Nil(t, NewCacheMetrics())
	assert.Nil(t, NewFetchMetrics())
	assert.Nil(t, NewPreloadMetrics())
	assert.Nil(t, NewSourceMetrics())

	// The registered constructors must hand out an untyped nil.
	assert.Nil(t, metrics.NewCacheMetrics())
	assert.Nil(t, metrics.NewFetchMetrics())
	assert.Nil(t, metrics.NewPreloadMetrics())
	assert.Nil(t, metrics.NewSourceMetrics())

	// Nil receivers are no-ops.
	var m *CacheMetrics
	m.RecordHit()
	m.RecordEviction(cache.ReasonCapacity, 3)
}

func TestCacheMetrics(t *testing.T) {
	metrics.InitRegistry()
	t.Cleanup(metrics.Disable)

	m := NewCacheMetrics()
	require.NotNil(t, m)

	m.RecordHit()
	m.RecordHit()
	m.RecordMiss()
	m.RecordEviction(cache.ReasonCapacity, 2)
	m.RecordEviction(cache.ReasonExpired, 0)
	m.RecordSize(7)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.lookups.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.lookups.WithLabelValues("miss")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.evictions.WithLabelValues("capacity")))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.size))
}

func TestCacheMetricsWiredIntoStore(t *testing.T) {
	metrics.InitRegistry()
	t.Cleanup(metrics.Disable)

	sink := metrics.NewCacheMetrics()
	require.NotNil(t, sink)

	s := cache.New[int](1, cache.WithMetrics(sink))
	s.Set("a", 1, 0)
	s.Set("b", 2, 0)
	_, _ = s.Get("b")
	_, _ = s.Get("a")

	m := sink.(*CacheMetrics)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.lookups.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.lookups.WithLabelValues("miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.evictions.WithLabelValues("capacity")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.size))
}

func TestFetchMetrics(t *testing.T) {
	metrics.InitRegistry()
	t.Cleanup(metrics.Disable)

	m := NewFetchMetrics()
	require.NotNil(t, m)

	m.RecordFetchStarted("products", fetch.PriorityHigh)
	m.RecordFetchFinished("products", fetch.OutcomeSuccess, 120*time.Millisecond)
	m.RecordState("products", fetch.StatusLoading)
	m.RecordState("products", fetch.StatusSuccess)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.started.WithLabelValues("products", "high")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.finished.WithLabelValues("products", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.state.WithLabelValues("products", "success")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.state.WithLabelValues("products", "loading")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.duration))
}

func TestPreloadMetrics(t *testing.T) {
	metrics.InitRegistry()
	t.Cleanup(metrics.Disable)

	m := NewPreloadMetrics()
	require.NotNil(t, m)

	m.RecordBatch(preload.BatchCompleted, 3, 250*time.Millisecond)
	m.RecordBatch(preload.BatchSkipped, 0, 0)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.batches.WithLabelValues("completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.batches.WithLabelValues("skipped")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.requested))
}

func TestSourceMetrics(t *testing.T) {
	metrics.InitRegistry()
	t.Cleanup(metrics.Disable)

	sink := metrics.NewSourceMetrics()
	require.NotNil(t, sink)

	calls := 0
	f := source.Instrument(source.FetcherFunc(func(ctx context.Context, key string, _ source.Params) (source.Records, error) {
		calls++
		switch calls {
		case 1:
			return source.Records{Items: []map[string]any{{"id": 1}}, Count: 1}, nil
		case 2:
			return source.Records{}, &source.TransportError{Op: "GET", StatusCode: 503}
		default:
			return source.Records{}, context.Canceled
		}
	}), source.TypeHTTP, sink)

	_, _ = f.Fetch(context.Background(), "products", nil)
	_, _ = f.Fetch(context.Background(), "products", nil)
	_, _ = f.Fetch(context.Background(), "products", nil)

	m := sink.(*SourceMetrics)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("http", "products", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("http", "products", "transport")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("http", "products", "canceled")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.items.WithLabelValues("http", "products")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.duration))
}
