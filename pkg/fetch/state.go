package fetch

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Status is the lifecycle status of one resource.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Priority orders preload requests. Lower values run first. The zero value
// is unset and is treated as PriorityMedium.
type Priority int

const (
	PriorityCritical Priority = iota + 1
	PriorityHigh
	PriorityMedium
	PriorityLow
)

// Valid reports whether p is one of the defined priorities.
func (p Priority) Valid() bool {
	return p >= PriorityCritical && p <= PriorityLow
}

// OrDefault returns p, or PriorityMedium when p is unset.
func (p Priority) OrDefault() Priority {
	if p == 0 {
		return PriorityMedium
	}
	return p
}

// Priorities lists every priority in execution order.
var Priorities = []Priority{PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow}

func (p Priority) String() string {
	switch p {
	case PriorityCritical:
		return "critical"
	case PriorityHigh:
		return "high"
	case PriorityMedium:
		return "medium"
	case PriorityLow:
		return "low"
	case 0:
		return "unset"
	default:
		return fmt.Sprintf("priority(%d)", int(p))
	}
}

// ParsePriority parses a priority name, case-insensitively.
func ParsePriority(s string) (Priority, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "critical":
		return PriorityCritical, nil
	case "high":
		return PriorityHigh, nil
	case "medium", "":
		return PriorityMedium, nil
	case "low":
		return PriorityLow, nil
	default:
		return PriorityMedium, fmt.Errorf("unknown priority %q (want critical, high, medium or low)", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (p Priority) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Priority) UnmarshalText(text []byte) error {
	parsed, err := ParsePriority(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// ResourceState is the immutable state of one resource key.
//
// A new value is created on every transition, so listeners can detect change
// by comparing pointers. Callers must not mutate a state they received.
type ResourceState[V any] struct {
	Status Status

	// Data is the last successfully fetched value, nil if none yet.
	Data *V

	// Err describes the last failure while Status is StatusError.
	Err *ErrorInfo

	// LastUpdated is the time of the last successful fetch, nil if none.
	LastUpdated *time.Time

	// Token is the active cancellation token while Status is StatusLoading.
	Token *Token
}

// HasData reports whether the state carries a value.
func (s *ResourceState[V]) HasData() bool {
	return s.Data != nil
}

// IsLoading reports whether a fetch is in flight.
func (s *ResourceState[V]) IsLoading() bool {
	return s.Status == StatusLoading
}

// MarshalJSON renders the state without the token internals.
func (s *ResourceState[V]) MarshalJSON() ([]byte, error) {
	out := struct {
		Status      Status     `json:"status"`
		Data        *V         `json:"data,omitempty"`
		Error       *ErrorInfo `json:"error,omitempty"`
		LastUpdated *time.Time `json:"last_updated,omitempty"`
		FetchID     string     `json:"fetch_id,omitempty"`
	}{
		Status:      s.Status,
		Data:        s.Data,
		Error:       s.Err,
		LastUpdated: s.LastUpdated,
	}
	if s.Token != nil {
		out.FetchID = s.Token.ID()
	}
	return json.Marshal(out)
}

// clone returns a shallow copy used as the base of the next transition.
func (s *ResourceState[V]) clone() *ResourceState[V] {
	next := *s
	return &next
}

// Transition is delivered to listeners for every state change.
type Transition[V any] struct {
	Key  string
	Prev *ResourceState[V]
	Next *ResourceState[V]
}

// Listener receives transitions. It runs on the goroutine that caused the
// transition, after the coordinator lock is released. A listener must not
// call Request, Cancel or CancelAll synchronously.
type Listener[V any] func(Transition[V])
