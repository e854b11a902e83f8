package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys for preload operations.
const (
	// ========================================================================
	// Resource attributes
	// ========================================================================
	AttrResource = "preload.resource" // Resource key (products, categories, ...)
	AttrPriority = "preload.priority" // critical, high, medium, low
	AttrForce    = "preload.force"    // ForceRefresh requested
	AttrFetchID  = "fetch.id"         // Cancellation token id
	AttrOutcome  = "fetch.outcome"    // success, error, canceled, superseded
	AttrItems    = "fetch.items"      // Number of records returned

	// ========================================================================
	// Batch attributes
	// ========================================================================
	AttrBatchSize    = "preload.batch.size"
	AttrBatchSkipped = "preload.batch.skipped"

	// ========================================================================
	// Cache attributes
	// ========================================================================
	AttrCacheHit  = "cache.hit"
	AttrCacheSize = "cache.size"

	// ========================================================================
	// Source attributes
	// ========================================================================
	AttrSourceType = "source.type" // http, sql, s3
	AttrHTTPStatus = "http.status_code"
	AttrBucket     = "storage.bucket"
	AttrKey        = "storage.key"
)

// Span names.
// Format: <component>.<operation>
const (
	SpanFetch        = "fetch.run"
	SpanPreloadBatch = "preload.batch"
	SpanPreloadTick  = "preload.tick"
	SpanForceRefresh = "preload.force_refresh"
	SpanSourceHTTP   = "source.http"
	SpanSourceSQL    = "source.sql"
	SpanSourceS3     = "source.s3"
)

// Resource returns an attribute for the resource key
func Resource(key string) attribute.KeyValue {
	return attribute.String(AttrResource, key)
}

// Priority returns an attribute for the request priority
func Priority(p string) attribute.KeyValue {
	return attribute.String(AttrPriority, p)
}

// Force returns an attribute marking a forced refresh
func Force(force bool) attribute.KeyValue {
	return attribute.Bool(AttrForce, force)
}

// FetchID returns an attribute for the token id
func FetchID(id string) attribute.KeyValue {
	return attribute.String(AttrFetchID, id)
}

// Outcome returns an attribute for the fetch outcome
func Outcome(outcome string) attribute.KeyValue {
	return attribute.String(AttrOutcome, outcome)
}

// Items returns an attribute for the number of records fetched
func Items(n int) attribute.KeyValue {
	return attribute.Int(AttrItems, n)
}

// BatchSize returns an attribute for the number of resources in a batch
func BatchSize(n int) attribute.KeyValue {
	return attribute.Int(AttrBatchSize, n)
}

// CacheHit returns an attribute for cache hit indicator
func CacheHit(hit bool) attribute.KeyValue {
	return attribute.Bool(AttrCacheHit, hit)
}

// SourceType returns an attribute for the backend type
func SourceType(t string) attribute.KeyValue {
	return attribute.String(AttrSourceType, t)
}

// HTTPStatus returns an attribute for an HTTP status code
func HTTPStatus(code int) attribute.KeyValue {
	return attribute.Int(AttrHTTPStatus, code)
}

// Bucket returns an attribute for S3 bucket name
func Bucket(name string) attribute.KeyValue {
	return attribute.String(AttrBucket, name)
}

// StorageKey returns an attribute for S3 object key
func StorageKey(key string) attribute.KeyValue {
	return attribute.String(AttrKey, key)
}

// StartFetchSpan starts a span around a single resource fetch.
func StartFetchSpan(ctx context.Context, resource, fetchID string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{
		Resource(resource),
		FetchID(fetchID),
	}
	allAttrs = append(allAttrs, attrs...)

	return StartSpan(ctx, SpanFetch, trace.WithAttributes(allAttrs...))
}

// StartPreloadSpan starts a span for a scheduler operation.
func StartPreloadSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return StartSpan(ctx, name, trace.WithAttributes(attrs...))
}

// StartSourceSpan starts a span for a backend read.
func StartSourceSpan(ctx context.Context, name, resource string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{
		Resource(resource),
	}
	allAttrs = append(allAttrs, attrs...)

	return StartSpan(ctx, name, trace.WithAttributes(allAttrs...))
}
