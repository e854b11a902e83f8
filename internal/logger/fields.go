package logger

import (
	"log/slog"
	"time"
)

// Standard field keys for structured logging.
// Use these keys consistently across all log statements for log aggregation and querying.
const (
	// ========================================================================
	// Distributed Tracing
	// ========================================================================
	KeyTraceID   = "trace_id"
	KeySpanID    = "span_id"
	KeyRequestID = "request_id"

	// ========================================================================
	// Preload
	// ========================================================================
	KeyResource = "resource" // Resource key
	KeyPriority = "priority" // critical, high, medium, low
	KeyFetchID  = "fetch_id" // Cancellation token id
	KeyStatus   = "status"   // idle, loading, success, error
	KeyForce    = "force"    // ForceRefresh requested
	KeyItems    = "items"    // Number of records fetched
	KeyBatch    = "batch"    // Number of resources in a preload batch
	KeyInterval = "interval" // Refresh interval
	KeyDelay    = "delay"    // Initial delay

	// ========================================================================
	// Source
	// ========================================================================
	KeySourceType = "source_type" // http, sql, s3
	KeyURL        = "url"
	KeyHTTPStatus = "http_status"
	KeyBucket     = "bucket"
	KeyKey        = "key"

	// ========================================================================
	// Cache Layer
	// ========================================================================
	KeyCacheHit      = "cache_hit"
	KeyCacheSize     = "cache_size"
	KeyCacheCapacity = "cache_capacity"
	KeyEvicted       = "evicted"

	// ========================================================================
	// Operation Metadata
	// ========================================================================
	KeyDurationMs = "duration_ms"
	KeyError      = "error"
	KeyErrorKind  = "error_kind"
	KeyOperation  = "operation"
	KeyAddr       = "addr"
)

// Resource returns a slog.Attr for the resource key
func Resource(key string) slog.Attr {
	return slog.String(KeyResource, key)
}

// Priority returns a slog.Attr for the request priority
func Priority(p string) slog.Attr {
	return slog.String(KeyPriority, p)
}

// FetchID returns a slog.Attr for the cancellation token id
func FetchID(id string) slog.Attr {
	return slog.String(KeyFetchID, id)
}

// Status returns a slog.Attr for a resource status
func Status(s string) slog.Attr {
	return slog.String(KeyStatus, s)
}

// Items returns a slog.Attr for the number of fetched records
func Items(n int) slog.Attr {
	return slog.Int(KeyItems, n)
}

// Interval returns a slog.Attr for a refresh interval
func Interval(d time.Duration) slog.Attr {
	return slog.Duration(KeyInterval, d)
}

// SourceType returns a slog.Attr for the backend type
func SourceType(t string) slog.Attr {
	return slog.String(KeySourceType, t)
}

// HTTPStatus returns a slog.Attr for an HTTP status code
func HTTPStatus(code int) slog.Attr {
	return slog.Int(KeyHTTPStatus, code)
}

// Evicted returns a slog.Attr for number of entries evicted
func Evicted(n int) slog.Attr {
	return slog.Int(KeyEvicted, n)
}

// DurationMs returns a slog.Attr for duration in milliseconds
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}

// Err returns a slog.Attr for an error
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// ErrorKind returns a slog.Attr for a classified error kind
func ErrorKind(kind string) slog.Attr {
	return slog.String(KeyErrorKind, kind)
}
