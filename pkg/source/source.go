// Package source provides the fetchers that load resources from a backend.
//
// Every fetcher returns Records, the single normalized shape the rest of the
// daemon works with. Backends differ only in where the JSON comes from:
//   - HTTP: the storefront REST API (bearer-token authenticated)
//   - SQL: a read-only query against the shop database (gorm)
//   - S3: nightly JSON exports in a bucket
package source

import (
	"context"
	"sort"
)

// Type identifies a backend implementation.
type Type string

const (
	TypeHTTP Type = "http"
	TypeSQL  Type = "sql"
	TypeS3   Type = "s3"
)

// Params are per-resource backend parameters: query parameters for HTTP,
// named arguments for SQL. Values are strings as they come from config.
type Params map[string]string

// Clone returns an independent copy of p.
func (p Params) Clone() Params {
	if p == nil {
		return nil
	}
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Keys returns the parameter names in sorted order.
func (p Params) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Fetcher loads one resource. Implementations must honor ctx cancellation
// and return an error satisfying errors.Is(err, context.Canceled) when it
// fires.
type Fetcher interface {
	Fetch(ctx context.Context, key string, params Params) (Records, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, key string, params Params) (Records, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context, key string, params Params) (Records, error) {
	return f(ctx, key, params)
}

// Records is the normalized result of a fetch.
//
// A collection fills Items (and Count, which may exceed len(Items) for
// paginated responses). A single document, such as a dashboard summary,
// fills Object instead.
type Records struct {
	Items  []map[string]any `json:"items,omitempty"`
	Object map[string]any   `json:"object,omitempty"`
	Count  int              `json:"count"`
}

// IsCollection reports whether the records hold a list of items.
func (r Records) IsCollection() bool {
	return r.Object == nil
}

// Len returns the number of items held, 1 for a single document.
func (r Records) Len() int {
	if r.Object != nil {
		return 1
	}
	return len(r.Items)
}
