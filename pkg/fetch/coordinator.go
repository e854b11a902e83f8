// Package fetch coordinates fetches of keyed resources.
//
// The Coordinator owns one ResourceState per key and guarantees that at most
// one fetch per key is in flight. Requests are fire-and-forget; results are
// observed through State and Subscribe.
//
// Concurrency model:
//   - All state lives behind a single mutex. The decision to fetch and the
//     transition to Loading happen under the same lock, so two concurrent
//     Request calls for one key can never both start a fetch.
//   - Each fetch runs on its own goroutine with a fresh Token. A result is
//     applied only if its token is still the key's active token; anything
//     else is a late result and is dropped.
//   - Transitions are queued under the lock and delivered to listeners after
//     it is released, in the order they happened.
package fetch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/localix/preloadd/internal/logger"
	"github.com/localix/preloadd/internal/telemetry"
	"github.com/localix/preloadd/pkg/cache"
)

// Default timing used when options are not given.
const (
	DefaultRefreshInterval = 5 * time.Minute
	DefaultCacheTTL        = 5 * time.Minute
)

// FetchFunc loads the value for one key. ctx is derived from token and is
// done once the fetch is cancelled; implementations should return ctx.Err()
// or ErrCanceled in that case.
type FetchFunc[V any] func(ctx context.Context, token *Token) (V, error)

// RequestOptions tunes a single Request.
type RequestOptions struct {
	// ForceRefresh fetches even when fresh cached data exists.
	ForceRefresh bool

	// Priority is informational for the coordinator (logs, spans, metrics);
	// ordering is the caller's job. Unset means medium.
	Priority Priority
}

// Outcome labels how a fetch ended.
type Outcome string

const (
	OutcomeSuccess    Outcome = "success"
	OutcomeError      Outcome = "error"
	OutcomeCanceled   Outcome = "canceled"
	OutcomeSuperseded Outcome = "superseded"
)

// Metrics provides observability for fetches. Optional.
type Metrics interface {
	RecordFetchStarted(key string, priority Priority)
	RecordFetchFinished(key string, outcome Outcome, duration time.Duration)
	RecordState(key string, status Status)
}

// Option configures a Coordinator.
type Option func(*options)

type options struct {
	refreshInterval time.Duration
	cacheTTL        time.Duration
	fetchTimeout    time.Duration
	now             func() time.Time
	metrics         Metrics
	baseCtx         context.Context
}

// WithRefreshInterval sets the age after which data is considered stale.
func WithRefreshInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.refreshInterval = d
		}
	}
}

// WithCacheTTL sets the TTL of values written to the cache. Zero disables
// expiry.
func WithCacheTTL(d time.Duration) Option {
	return func(o *options) {
		if d >= 0 {
			o.cacheTTL = d
		}
	}
}

// WithFetchTimeout bounds every fetch with a deadline. Zero (the default)
// leaves timeouts to the fetcher.
func WithFetchTimeout(d time.Duration) Option {
	return func(o *options) {
		o.fetchTimeout = d
	}
}

// WithClock overrides the time source used for staleness and LastUpdated.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// WithMetrics attaches a metrics sink.
func WithMetrics(m Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithBaseContext sets the parent of every token context. Cancelling it
// cancels all fetches started afterwards as well as those in flight.
func WithBaseContext(ctx context.Context) Option {
	return func(o *options) {
		o.baseCtx = ctx
	}
}

type subscription[V any] struct {
	id uint64
	fn Listener[V]
}

// Coordinator deduplicates and tracks fetches per key.
type Coordinator[V any] struct {
	opts  options
	store *cache.Store[V]
	idle  *ResourceState[V]

	mu       sync.Mutex
	states   map[string]*ResourceState[V]
	previous map[string]*ResourceState[V] // state held right before Loading
	subs     map[string][]subscription[V]
	allSubs  []subscription[V]
	nextSub  uint64
	pending  []Transition[V]

	// notifyMu is held by the goroutine currently delivering transitions.
	notifyMu sync.Mutex

	wg sync.WaitGroup
}

// NewCoordinator creates a coordinator that caches successful results in store.
func NewCoordinator[V any](store *cache.Store[V], opts ...Option) *Coordinator[V] {
	o := options{
		refreshInterval: DefaultRefreshInterval,
		cacheTTL:        DefaultCacheTTL,
		now:             time.Now,
		baseCtx:         context.Background(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	return &Coordinator[V]{
		opts:     o,
		store:    store,
		idle:     &ResourceState[V]{Status: StatusIdle},
		states:   make(map[string]*ResourceState[V]),
		previous: make(map[string]*ResourceState[V]),
		subs:     make(map[string][]subscription[V]),
	}
}

// Store returns the cache backing the coordinator.
func (c *Coordinator[V]) Store() *cache.Store[V] {
	return c.store
}

// RefreshInterval returns the configured staleness interval.
func (c *Coordinator[V]) RefreshInterval() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.opts.refreshInterval
}

// SetRefreshInterval changes the staleness interval for future requests.
func (c *Coordinator[V]) SetRefreshInterval(d time.Duration) {
	if d <= 0 {
		return
	}
	c.mu.Lock()
	c.opts.refreshInterval = d
	c.mu.Unlock()
}

// Request asks for key to be fetched with fn.
//
// If a fetch for key is already in flight the call does nothing. Otherwise a
// fetch starts when ForceRefresh is set, when the state is Error, when the
// cache has no live entry, or when the state is stale. When none of those hold and the state has no data
// yet, the cached value is adopted as Success without fetching.
func (c *Coordinator[V]) Request(key string, fn FetchFunc[V], opts RequestOptions) {
	opts.Priority = opts.Priority.OrDefault()

	c.mu.Lock()

	cur := c.stateLocked(key)
	if cur.Status == StatusLoading {
		c.mu.Unlock()
		logger.Debug("fetch already in flight", logger.KeyResource, key)
		return
	}

	entry, cached := c.store.Get(key)

	// A state that never loaded is aged by the cache entry, so a store
	// warmed elsewhere is adopted instead of refetched.
	lastUpdated := cur.LastUpdated
	if lastUpdated == nil && cached {
		lastUpdated = &entry.InsertedAt
	}

	// An Error state always refetches; fresh cached data must not pin it.
	if !opts.ForceRefresh && cur.Status != StatusError && cached && !IsStale(lastUpdated, c.opts.refreshInterval, c.opts.now()) {
		if cur.Data == nil {
			value := entry.Value
			next := cur.clone()
			next.Status = StatusSuccess
			next.Data = &value
			next.Err = nil
			next.LastUpdated = lastUpdated
			c.setLocked(key, next)
		}
		c.mu.Unlock()
		c.drain()
		return
	}

	tok := NewToken(c.opts.baseCtx)
	next := cur.clone()
	next.Status = StatusLoading
	next.Err = nil
	next.Token = tok

	c.previous[key] = cur
	c.setLocked(key, next)
	c.wg.Add(1)
	c.mu.Unlock()
	c.drain()

	go c.run(key, fn, tok, opts)
}

func (c *Coordinator[V]) run(key string, fn FetchFunc[V], tok *Token, opts RequestOptions) {
	defer c.wg.Done()
	defer tok.release()

	ctx, span := telemetry.StartFetchSpan(tok.Context(), key, tok.ID(),
		telemetry.Priority(opts.Priority.String()),
		telemetry.Force(opts.ForceRefresh),
	)
	defer span.End()

	lc := logger.NewLogContext(key).
		WithFetch(tok.ID(), opts.Priority.String()).
		WithTrace(telemetry.TraceID(ctx), telemetry.SpanID(ctx))
	ctx = logger.WithContext(ctx, lc)

	if c.opts.fetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.fetchTimeout)
		defer cancel()
	}

	if c.opts.metrics != nil {
		c.opts.metrics.RecordFetchStarted(key, opts.Priority)
	}
	logger.DebugCtx(ctx, "fetch started", logger.KeyForce, opts.ForceRefresh)

	start := time.Now()
	value, err := invoke(ctx, fn, tok)
	elapsed := time.Since(start)

	outcome := c.complete(key, tok, value, err)

	span.SetAttributes(telemetry.Outcome(string(outcome)))
	if c.opts.metrics != nil {
		c.opts.metrics.RecordFetchFinished(key, outcome, elapsed)
	}

	ms := float64(elapsed.Microseconds()) / 1000.0
	switch outcome {
	case OutcomeSuccess:
		logger.DebugCtx(ctx, "fetch completed", logger.KeyDurationMs, ms)
	case OutcomeError:
		info := Classify(err)
		telemetry.RecordError(ctx, err)
		logger.WarnCtx(ctx, "fetch failed",
			logger.KeyDurationMs, ms,
			logger.KeyErrorKind, string(info.Kind),
			logger.KeyError, info.Message,
		)
	case OutcomeCanceled:
		logger.DebugCtx(ctx, "fetch canceled", logger.KeyDurationMs, ms)
	case OutcomeSuperseded:
		logger.DebugCtx(ctx, "late fetch result ignored", logger.KeyDurationMs, ms)
	}
}

// invoke calls fn, turning a panic into an error.
func invoke[V any](ctx context.Context, fn FetchFunc[V], tok *Token) (value V, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("fetch panicked: %v", r)
		}
	}()
	return fn(ctx, tok)
}

// complete applies the result of the fetch identified by tok.
func (c *Coordinator[V]) complete(key string, tok *Token, value V, err error) Outcome {
	c.mu.Lock()

	active := c.stateLocked(key)
	if active.Token != tok {
		c.mu.Unlock()
		return OutcomeSuperseded
	}

	prev := c.previous[key]
	delete(c.previous, key)
	if prev == nil {
		prev = c.idle
	}

	var (
		next    *ResourceState[V]
		outcome Outcome
	)
	switch {
	case tok.IsCanceled() || IsCanceled(err):
		next, outcome = prev, OutcomeCanceled
	case err != nil:
		next = active.clone()
		next.Status = StatusError
		next.Err = Classify(err)
		next.Token = nil
		outcome = OutcomeError
	default:
		c.store.Set(key, value, c.opts.cacheTTL)
		now := c.opts.now()
		next = &ResourceState[V]{
			Status:      StatusSuccess,
			Data:        &value,
			LastUpdated: &now,
		}
		outcome = OutcomeSuccess
	}

	c.setLocked(key, next)
	c.mu.Unlock()
	c.drain()
	return outcome
}

// Cancel aborts the in-flight fetch for key, restoring the state held before
// it started. It does not wait for the fetch to stop. Returns false when
// nothing was loading.
func (c *Coordinator[V]) Cancel(key string) bool {
	c.mu.Lock()
	tok := c.cancelLocked(key)
	c.mu.Unlock()

	if tok == nil {
		return false
	}
	c.drain()
	tok.Cancel()
	logger.Debug("fetch cancel requested", logger.KeyResource, key, logger.KeyFetchID, tok.ID())
	return true
}

// CancelAll cancels every in-flight fetch and returns how many were cancelled.
func (c *Coordinator[V]) CancelAll() int {
	c.mu.Lock()
	var tokens []*Token
	for key, st := range c.states {
		if st.Status != StatusLoading {
			continue
		}
		if tok := c.cancelLocked(key); tok != nil {
			tokens = append(tokens, tok)
		}
	}
	c.mu.Unlock()

	c.drain()
	for _, tok := range tokens {
		tok.Cancel()
	}
	return len(tokens)
}

// cancelLocked restores the pre-Loading state of key and returns the token
// that must be triggered once the lock is released. Caller must hold c.mu.
func (c *Coordinator[V]) cancelLocked(key string) *Token {
	cur, ok := c.states[key]
	if !ok || cur.Status != StatusLoading {
		return nil
	}

	prev := c.previous[key]
	delete(c.previous, key)
	if prev == nil {
		prev = c.idle
	}
	c.setLocked(key, prev)
	return cur.Token
}

// Wait blocks until every started fetch goroutine has returned.
func (c *Coordinator[V]) Wait() {
	c.wg.Wait()
}

// State returns the current state of key. Never nil; unknown keys are Idle.
func (c *Coordinator[V]) State(key string) *ResourceState[V] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked(key)
}

// States returns the current state of every key that has been requested.
func (c *Coordinator[V]) States() map[string]*ResourceState[V] {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(map[string]*ResourceState[V], len(c.states))
	for k, v := range c.states {
		out[k] = v
	}
	return out
}

// AnyLoading reports whether any of keys is loading. With no keys it checks
// every known key.
func (c *Coordinator[V]) AnyLoading(keys ...string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(keys) == 0 {
		for _, st := range c.states {
			if st.Status == StatusLoading {
				return true
			}
		}
		return false
	}
	for _, k := range keys {
		if st, ok := c.states[k]; ok && st.Status == StatusLoading {
			return true
		}
	}
	return false
}

// Subscribe registers l for transitions of key. The returned function removes
// the subscription and is safe to call more than once.
func (c *Coordinator[V]) Subscribe(key string, l Listener[V]) (unsubscribe func()) {
	c.mu.Lock()
	c.nextSub++
	id := c.nextSub
	c.subs[key] = append(c.subs[key], subscription[V]{id: id, fn: l})
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.subs[key] = removeSub(c.subs[key], id)
		if len(c.subs[key]) == 0 {
			delete(c.subs, key)
		}
	}
}

// SubscribeAll registers l for transitions of every key.
func (c *Coordinator[V]) SubscribeAll(l Listener[V]) (unsubscribe func()) {
	c.mu.Lock()
	c.nextSub++
	id := c.nextSub
	c.allSubs = append(c.allSubs, subscription[V]{id: id, fn: l})
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.allSubs = removeSub(c.allSubs, id)
	}
}

func removeSub[V any](subs []subscription[V], id uint64) []subscription[V] {
	for i, s := range subs {
		if s.id == id {
			return append(subs[:i:i], subs[i+1:]...)
		}
	}
	return subs
}

// stateLocked returns the state of key. Caller must hold c.mu.
func (c *Coordinator[V]) stateLocked(key string) *ResourceState[V] {
	if st, ok := c.states[key]; ok {
		return st
	}
	return c.idle
}

// setLocked installs next as the state of key and queues the transition.
// Caller must hold c.mu and call drain after releasing it.
func (c *Coordinator[V]) setLocked(key string, next *ResourceState[V]) {
	prev := c.stateLocked(key)
	c.states[key] = next
	c.pending = append(c.pending, Transition[V]{Key: key, Prev: prev, Next: next})
}

// drain delivers queued transitions. Only one goroutine delivers at a time;
// others return immediately and leave their transitions to the active
// deliverer, which re-checks the queue before giving up the role.
func (c *Coordinator[V]) drain() {
	for {
		if !c.notifyMu.TryLock() {
			return
		}
		for {
			c.mu.Lock()
			batch := c.pending
			c.pending = nil
			c.mu.Unlock()

			if len(batch) == 0 {
				break
			}
			for _, tr := range batch {
				c.deliver(tr)
			}
		}
		c.notifyMu.Unlock()

		c.mu.Lock()
		more := len(c.pending) > 0
		c.mu.Unlock()
		if !more {
			return
		}
	}
}

func (c *Coordinator[V]) deliver(tr Transition[V]) {
	c.mu.Lock()
	keySubs := c.subs[tr.Key]
	listeners := make([]Listener[V], 0, len(keySubs)+len(c.allSubs))
	for _, s := range keySubs {
		listeners = append(listeners, s.fn)
	}
	for _, s := range c.allSubs {
		listeners = append(listeners, s.fn)
	}
	c.mu.Unlock()

	if c.opts.metrics != nil {
		c.opts.metrics.RecordState(tr.Key, tr.Next.Status)
	}
	for _, l := range listeners {
		l(tr)
	}
}
