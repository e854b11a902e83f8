package source

import (
	"context"
	"time"
)

// Metrics observes backend fetches. Optional; pass nil to Instrument to
// disable collection.
type Metrics interface {
	// ObserveFetch records one backend call with its duration and error,
	// nil on success.
	ObserveFetch(source Type, key string, duration time.Duration, err error)

	// RecordItems records the number of records a successful call returned.
	RecordItems(source Type, key string, items int)
}

// Instrument wraps f so every call is reported to m. Returns f unchanged
// when m is nil.
func Instrument(f Fetcher, typ Type, m Metrics) Fetcher {
	if m == nil {
		return f
	}
	return &instrumented{next: f, typ: typ, metrics: m}
}

type instrumented struct {
	next    Fetcher
	typ     Type
	metrics Metrics
}

func (i *instrumented) Fetch(ctx context.Context, key string, params Params) (Records, error) {
	start := time.Now()
	rec, err := i.next.Fetch(ctx, key, params)
	i.metrics.ObserveFetch(i.typ, key, time.Since(start), err)
	if err == nil {
		i.metrics.RecordItems(i.typ, key, rec.Count)
	}
	return rec, err
}

// Close closes the wrapped fetcher if it has a Close method.
func (i *instrumented) Close() error {
	if c, ok := i.next.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
