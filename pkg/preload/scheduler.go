// Package preload drives one-shot and periodic preloading of registered
// resources through a fetch.Coordinator.
//
// A batch requests every registered resource in priority order (critical,
// high, medium, low, then key name) with a cooldown pause between requests.
// A batch is skipped as a whole when any of its resources is already
// loading or another batch is running, so batches never overlap.
//
// Lifecycle:
//
//	s := preload.NewScheduler(coord, preload.DefaultSchedulerConfig())
//	_ = s.Register(preload.Resource{Key: "products", Priority: fetch.PriorityMedium, Fetcher: f})
//	_ = s.Start(ctx) // initial batch after InitialDelay, then every RefreshInterval
//	defer s.Shutdown()
//
// Timers run on one loop goroutine per enable generation. Disabling stops the
// loop and keeps the cache; enabling again starts a new loop with the initial
// delay.
package preload

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/localix/preloadd/internal/logger"
	"github.com/localix/preloadd/internal/telemetry"
	"github.com/localix/preloadd/pkg/fetch"
	"github.com/localix/preloadd/pkg/source"
)

// AllResources selects every registered resource in ForceRefresh and Subscribe.
const AllResources = "all"

var (
	// ErrPreloadSkipped is returned when a batch was not run because a
	// resource is loading or another batch is in progress.
	ErrPreloadSkipped = errors.New("preload skipped: a fetch is already in progress")

	// ErrUnknownResource is returned for keys that were never registered.
	ErrUnknownResource = errors.New("unknown resource")

	// ErrDuplicateResource is returned when registering a key twice.
	ErrDuplicateResource = errors.New("resource already registered")

	// ErrSchedulerClosed is returned after Shutdown.
	ErrSchedulerClosed = errors.New("scheduler is shut down")

	// ErrInvalidConfig wraps configuration validation failures.
	ErrInvalidConfig = errors.New("invalid scheduler configuration")
)

// Resource is a preload target.
type Resource struct {
	Key      string
	Priority fetch.Priority
	Fetcher  source.Fetcher
	Params   source.Params
}

// PreloadResult describes one batch.
type PreloadResult struct {
	// Requested lists the keys handed to the coordinator, in order.
	Requested []string

	Duration time.Duration
}

// Coordinator is the fetch.Coordinator specialised to source records.
type Coordinator = fetch.Coordinator[source.Records]

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithMetrics attaches a batch metrics sink.
func WithMetrics(m Metrics) Option {
	return func(s *Scheduler) {
		s.metrics = m
	}
}

// WithClock overrides the time source used for staleness in snapshots.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

// Scheduler orders and times preload requests.
type Scheduler struct {
	coord   *Coordinator
	metrics Metrics
	now     func() time.Time

	// life is cancelled by Shutdown and aborts running batches.
	life       context.Context
	cancelLife context.CancelFunc

	batchRunning atomic.Bool

	mu             sync.Mutex
	cfg            SchedulerConfig
	resources      map[string]Resource
	parent         context.Context
	started        bool
	closed         bool
	loopCancel     context.CancelFunc
	loopDone       chan struct{}
	initialPending bool
}

// NewScheduler creates a scheduler. Invalid timing values in cfg are
// replaced with defaults.
func NewScheduler(coord *Coordinator, cfg SchedulerConfig, opts ...Option) *Scheduler {
	def := DefaultSchedulerConfig()
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = def.RefreshInterval
	}
	if cfg.InitialDelay < 0 {
		cfg.InitialDelay = def.InitialDelay
	}
	if cfg.Cooldown < 0 {
		cfg.Cooldown = def.Cooldown
	}

	life, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		coord:      coord,
		now:        time.Now,
		life:       life,
		cancelLife: cancel,
		cfg:        cfg.clone(),
		resources:  make(map[string]Resource),
	}
	for _, opt := range opts {
		opt(s)
	}

	coord.SetRefreshInterval(cfg.RefreshInterval)
	return s
}

// Coordinator returns the underlying coordinator.
func (s *Scheduler) Coordinator() *Coordinator {
	return s.coord
}

// Register declares a preload target. Keys must be unique; an unset priority
// becomes medium.
func (s *Scheduler) Register(r Resource) error {
	switch {
	case r.Key == "":
		return errors.New("resource key is required")
	case r.Key == AllResources:
		return fmt.Errorf("resource key %q is reserved", AllResources)
	case r.Fetcher == nil:
		return fmt.Errorf("resource %q has no fetcher", r.Key)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.resources[r.Key]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateResource, r.Key)
	}
	r.Priority = r.Priority.OrDefault()
	r.Params = r.Params.Clone()
	s.resources[r.Key] = r
	return nil
}

// Start begins scheduled preloading if the configuration enables it. The
// timers stop when ctx is cancelled or Shutdown is called. Calling Start
// twice is a no-op.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSchedulerClosed
	}
	if s.started {
		return nil
	}
	s.started = true
	s.parent = ctx

	logger.Info("Preload scheduler started",
		"enabled", s.cfg.Enabled,
		"auto_refresh", s.cfg.AutoRefresh,
		logger.KeyDelay, s.cfg.InitialDelay,
		logger.KeyInterval, s.cfg.RefreshInterval,
		"resources", len(s.resources))

	if s.cfg.Enabled {
		s.startLoopLocked(true)
	}
	return nil
}

// Shutdown stops the timers, waits for the loop goroutine and cancels every
// in-flight fetch. It is idempotent.
func (s *Scheduler) Shutdown() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	done := s.stopLoopLocked()
	s.cancelLife()
	s.mu.Unlock()

	if done != nil {
		<-done
	}

	canceled := s.coord.CancelAll()
	logger.Info("Preload scheduler stopped", "canceled_fetches", canceled)
}

// Config returns a copy of the current configuration.
func (s *Scheduler) Config() SchedulerConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.clone()
}

// UpdateConfig merges patch into the configuration and returns the result.
//
// Disabling stops the timers without touching the cache. Enabling again
// restarts the initial-delay sequence. Changing AutoRefresh or
// RefreshInterval while enabled rebuilds the ticker without a new initial
// delay.
func (s *Scheduler) UpdateConfig(patch ConfigPatch) (SchedulerConfig, error) {
	s.mu.Lock()

	if s.closed {
		s.mu.Unlock()
		return SchedulerConfig{}, ErrSchedulerClosed
	}

	for key := range patch.Priorities {
		if _, ok := s.resources[key]; !ok {
			s.mu.Unlock()
			return SchedulerConfig{}, fmt.Errorf("%w: %s", ErrUnknownResource, key)
		}
	}

	old := s.cfg
	next := patch.apply(old)
	if err := next.Validate(); err != nil {
		s.mu.Unlock()
		return SchedulerConfig{}, err
	}
	s.cfg = next
	s.coord.SetRefreshInterval(next.RefreshInterval)

	var done chan struct{}
	if s.started {
		switch {
		case old.Enabled && !next.Enabled:
			done = s.stopLoopLocked()
			logger.Info("Scheduled preloading disabled")
		case !old.Enabled && next.Enabled:
			s.startLoopLocked(true)
			logger.Info("Scheduled preloading enabled", logger.KeyDelay, next.InitialDelay)
		case next.Enabled && timingChanged(old, next):
			done = s.stopLoopLocked()
			s.startLoopLocked(s.initialPending)
			logger.Info("Preload timing changed",
				"auto_refresh", next.AutoRefresh,
				logger.KeyInterval, next.RefreshInterval)
		}
	}
	out := next.clone()
	s.mu.Unlock()

	// The old loop may be blocked on s.mu inside a batch; wait unlocked.
	if done != nil {
		<-done
	}
	return out, nil
}

// PreloadAll requests every registered resource in priority order. override,
// when non-nil, replaces every resource's priority for this batch.
//
// Returns ErrPreloadSkipped without requesting anything when a resource is
// already loading or another batch is running. A batch stops early when ctx
// is cancelled or the scheduler shuts down; the keys requested so far are
// returned with the context error.
func (s *Scheduler) PreloadAll(ctx context.Context, override *fetch.Priority) (PreloadResult, error) {
	return s.preloadBatch(ctx, override, false, nil, telemetry.SpanPreloadBatch)
}

// ForceRefresh refetches key, or every resource when key is AllResources,
// with critical priority. It bypasses the overlap check; resources already
// loading keep their in-flight fetch.
func (s *Scheduler) ForceRefresh(ctx context.Context, key string) ([]string, error) {
	if s.isClosed() {
		return nil, ErrSchedulerClosed
	}

	ctx, span := telemetry.StartPreloadSpan(ctx, telemetry.SpanForceRefresh, telemetry.Resource(key))
	defer span.End()

	if key != AllResources {
		s.mu.Lock()
		r, ok := s.resources[key]
		s.mu.Unlock()
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownResource, key)
		}
		logger.InfoCtx(ctx, "Force refresh", logger.KeyResource, key)
		s.request(r, fetch.PriorityCritical, true)
		return []string{key}, nil
	}

	logger.InfoCtx(ctx, "Force refresh", logger.KeyResource, AllResources)
	ctx, stop := s.bind(ctx)
	defer stop()

	critical := fetch.PriorityCritical
	plan, cooldown := s.plan(&critical)
	requested, err := s.issue(ctx, plan, cooldown, true)
	return requested, err
}

// preloadBatch requests the planned resources in order. When due is non-nil
// only the keys it accepts are requested.
func (s *Scheduler) preloadBatch(ctx context.Context, override *fetch.Priority, force bool, due func(key string) bool, spanName string) (PreloadResult, error) {
	if s.isClosed() {
		return PreloadResult{}, ErrSchedulerClosed
	}

	if !s.batchRunning.CompareAndSwap(false, true) {
		s.recordBatch(BatchSkipped, 0, 0)
		return PreloadResult{}, ErrPreloadSkipped
	}
	defer s.batchRunning.Store(false)

	plan, cooldown := s.plan(override)
	if due != nil {
		plan = filterPlan(plan, due)
	}
	keys := make([]string, len(plan))
	for i, p := range plan {
		keys[i] = p.res.Key
	}

	if s.coord.AnyLoading(keys...) {
		logger.DebugCtx(ctx, "Preload batch skipped, fetch in progress")
		s.recordBatch(BatchSkipped, 0, 0)
		return PreloadResult{}, ErrPreloadSkipped
	}

	ctx, span := telemetry.StartPreloadSpan(ctx, spanName,
		telemetry.BatchSize(len(plan)),
		telemetry.Force(force))
	defer span.End()

	ctx, stop := s.bind(ctx)
	defer stop()

	start := time.Now()
	logger.DebugCtx(ctx, "Preload batch started", logger.KeyBatch, len(plan), logger.KeyForce, force)

	requested, err := s.issue(ctx, plan, cooldown, force)
	result := PreloadResult{Requested: requested, Duration: time.Since(start)}

	if err != nil {
		s.recordBatch(BatchAborted, len(requested), result.Duration)
		logger.DebugCtx(ctx, "Preload batch aborted",
			logger.KeyItems, len(requested),
			logger.KeyError, err)
		return result, err
	}

	s.recordBatch(BatchCompleted, len(requested), result.Duration)
	logger.DebugCtx(ctx, "Preload batch issued",
		logger.KeyItems, len(requested),
		logger.KeyDurationMs, float64(result.Duration.Microseconds())/1000.0)
	return result, nil
}

type planned struct {
	res      Resource
	priority fetch.Priority
}

// plan returns the registered resources in execution order, and the current
// cooldown.
func (s *Scheduler) plan(override *fetch.Priority) ([]planned, time.Duration) {
	s.mu.Lock()
	out := make([]planned, 0, len(s.resources))
	for key, r := range s.resources {
		p := s.priorityLocked(key)
		if override != nil {
			p = *override
		}
		out = append(out, planned{res: r, priority: p})
	}
	cooldown := s.cfg.Cooldown
	s.mu.Unlock()

	sortPlan(out)
	return out, cooldown
}

func filterPlan(plan []planned, keep func(key string) bool) []planned {
	out := plan[:0]
	for _, p := range plan {
		if keep(p.res.Key) {
			out = append(out, p)
		}
	}
	return out
}

func sortPlan(p []planned) {
	sort.Slice(p, func(i, j int) bool {
		if p[i].priority != p[j].priority {
			return p[i].priority < p[j].priority
		}
		return p[i].res.Key < p[j].res.Key
	})
}

// issue requests each planned resource, pausing cooldown between requests.
func (s *Scheduler) issue(ctx context.Context, plan []planned, cooldown time.Duration, force bool) ([]string, error) {
	requested := make([]string, 0, len(plan))
	for i, p := range plan {
		if i > 0 && cooldown > 0 {
			timer := time.NewTimer(cooldown)
			select {
			case <-ctx.Done():
				timer.Stop()
				return requested, ctx.Err()
			case <-timer.C:
			}
		}
		if err := ctx.Err(); err != nil {
			return requested, err
		}
		s.request(p.res, p.priority, force)
		requested = append(requested, p.res.Key)
	}
	return requested, nil
}

func (s *Scheduler) request(r Resource, priority fetch.Priority, force bool) {
	fn := func(ctx context.Context, _ *fetch.Token) (source.Records, error) {
		return r.Fetcher.Fetch(ctx, r.Key, r.Params)
	}
	s.coord.Request(r.Key, fn, fetch.RequestOptions{
		ForceRefresh: force,
		Priority:     priority,
	})
}

// bind derives a context that is also cancelled by Shutdown.
func (s *Scheduler) bind(ctx context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancel(ctx)
	stopAfter := context.AfterFunc(s.life, cancel)
	return ctx, func() {
		stopAfter()
		cancel()
	}
}

func (s *Scheduler) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Scheduler) recordBatch(result BatchResult, requested int, d time.Duration) {
	if s.metrics != nil {
		s.metrics.RecordBatch(result, requested, d)
	}
}

// startLoopLocked launches a loop generation. Caller must hold s.mu.
func (s *Scheduler) startLoopLocked(withInitial bool) {
	ctx, cancel := context.WithCancel(s.parent)
	done := make(chan struct{})
	s.loopCancel = cancel
	s.loopDone = done
	s.initialPending = withInitial

	go s.loop(ctx, s.cfg.clone(), withInitial, done)
}

// stopLoopLocked cancels the running generation and returns a channel that
// closes when it has exited, or nil if none was running. Caller must hold
// s.mu and must wait on the channel only after releasing it.
func (s *Scheduler) stopLoopLocked() chan struct{} {
	if s.loopCancel == nil {
		return nil
	}
	s.loopCancel()
	done := s.loopDone
	s.loopCancel = nil
	s.loopDone = nil
	return done
}

func (s *Scheduler) loop(ctx context.Context, cfg SchedulerConfig, withInitial bool, done chan struct{}) {
	defer close(done)

	if withInitial {
		timer := time.NewTimer(cfg.InitialDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		s.mu.Lock()
		if s.loopDone == done {
			s.initialPending = false
		}
		s.mu.Unlock()

		s.runBatch(ctx, false, nil, telemetry.SpanPreloadBatch)
	}

	if !cfg.AutoRefresh {
		return
	}

	ticker := time.NewTicker(cfg.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick purges expired cache entries and force-refreshes every resource
// that is due, unless a fetch is in flight. See dueForTick.
func (s *Scheduler) tick(ctx context.Context) {
	if purged := s.coord.Store().Purge(); purged > 0 {
		logger.Debug("Purged expired cache entries", logger.KeyEvicted, purged)
	}

	if s.coord.AnyLoading() {
		logger.Debug("Periodic preload skipped, fetch in progress")
		s.recordBatch(BatchSkipped, 0, 0)
		return
	}
	s.runBatch(ctx, true, s.dueForTick, telemetry.SpanPreloadTick)
}

// dueForTick reports whether key needs a fetch on this tick: it has no data,
// last failed, lost its cache entry, or is within tickMargin of going stale.
// A resource refreshed shortly before the tick is left for the next one.
func (s *Scheduler) dueForTick(key string) bool {
	st := s.coord.State(key)
	if st.LastUpdated == nil || st.Status == fetch.StatusError {
		return true
	}
	if _, ok := s.coord.Store().Peek(key); !ok {
		return true
	}
	interval := s.coord.RefreshInterval()
	return fetch.IsStale(st.LastUpdated, interval-tickMargin(interval), s.now())
}

// tickMargin is how far ahead of staleness a tick refreshes, covering the
// time between a tick firing and the previous batch's fetches completing.
func tickMargin(interval time.Duration) time.Duration {
	return interval / 4
}

func (s *Scheduler) runBatch(ctx context.Context, force bool, due func(key string) bool, spanName string) {
	_, err := s.preloadBatch(ctx, nil, force, due, spanName)
	switch {
	case err == nil:
	case errors.Is(err, ErrPreloadSkipped):
		logger.Debug("Scheduled preload skipped")
	case errors.Is(err, context.Canceled), errors.Is(err, ErrSchedulerClosed):
		logger.Debug("Scheduled preload interrupted")
	default:
		logger.Warn("Scheduled preload failed", logger.KeyError, err)
	}
}
