package cache

// EvictionReason labels why entries left the store.
type EvictionReason string

const (
	// ReasonCapacity means the store needed room for a new key.
	ReasonCapacity EvictionReason = "capacity"

	// ReasonExpired means Purge removed entries whose TTL had elapsed.
	ReasonExpired EvictionReason = "expired"
)

// Metrics provides observability for store operations.
//
// This is optional - if not provided, metrics collection is skipped.
// Implementations must be safe for concurrent use; they are called while the
// store lock is held, so they must not call back into the store.
type Metrics interface {
	// RecordHit is called on every Get that finds a live entry.
	RecordHit()

	// RecordMiss is called on every Get that finds nothing or an expired entry.
	RecordMiss()

	// RecordEviction is called after count entries were removed for reason.
	RecordEviction(reason EvictionReason, count int)

	// RecordSize reports the number of entries after a mutation.
	RecordSize(size int)
}
