// Package daemon runs the preloadd components as one process: the preload
// scheduler, the management API, the metrics endpoint and the configuration
// watcher.
//
// Serve starts everything, blocks until the context is cancelled or a
// server fails, then shuts down in reverse order: servers first, then the
// scheduler (cancelling in-flight fetches), then backend connections.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/localix/preloadd/internal/logger"
	"github.com/localix/preloadd/pkg/api"
	"github.com/localix/preloadd/pkg/config"
	"github.com/localix/preloadd/pkg/metrics"
	"github.com/localix/preloadd/pkg/preload"
)

// DefaultShutdownTimeout bounds how long Serve waits for in-flight fetches
// to unwind after they were cancelled.
const DefaultShutdownTimeout = 30 * time.Second

// ErrAlreadyServed is returned by a second call to Serve.
var ErrAlreadyServed = errors.New("daemon already served")

type closer struct {
	name string
	fn   func() error
}

// Daemon owns the running components.
type Daemon struct {
	scheduler       *preload.Scheduler
	shutdownTimeout time.Duration

	apiServer     *api.Server
	metricsServer *metrics.Server
	watcher       *config.Watcher
	closers       []closer

	serveOnce sync.Once
}

// New creates a daemon around scheduler. A non-positive shutdownTimeout
// uses DefaultShutdownTimeout.
func New(scheduler *preload.Scheduler, shutdownTimeout time.Duration) *Daemon {
	if shutdownTimeout <= 0 {
		shutdownTimeout = DefaultShutdownTimeout
	}
	return &Daemon{
		scheduler:       scheduler,
		shutdownTimeout: shutdownTimeout,
	}
}

// SetAPIServer sets the management API server. Must be called before Serve.
func (d *Daemon) SetAPIServer(s *api.Server) { d.apiServer = s }

// SetMetricsServer sets the Prometheus endpoint. Must be called before Serve.
func (d *Daemon) SetMetricsServer(s *metrics.Server) { d.metricsServer = s }

// SetConfigWatcher sets the configuration file watcher. Must be called
// before Serve.
func (d *Daemon) SetConfigWatcher(w *config.Watcher) { d.watcher = w }

// AddCloser registers fn to run after the scheduler stopped, e.g. to close
// database connections. Closers run in reverse registration order.
func (d *Daemon) AddCloser(name string, fn func() error) {
	d.closers = append(d.closers, closer{name: name, fn: fn})
}

// Serve runs until ctx is cancelled or a component fails. It returns nil on
// a clean shutdown and the first component error otherwise.
func (d *Daemon) Serve(ctx context.Context) error {
	err := ErrAlreadyServed
	d.serveOnce.Do(func() {
		err = d.serve(ctx)
	})
	return err
}

func (d *Daemon) serve(ctx context.Context) error {
	logger.Info("Starting preloadd")

	g, gctx := errgroup.WithContext(ctx)

	if err := d.scheduler.Start(gctx); err != nil {
		d.shutdown()
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	// Keeps the group alive when no server is configured.
	g.Go(func() error {
		<-gctx.Done()
		return nil
	})

	if d.apiServer != nil {
		g.Go(func() error { return d.apiServer.Start(gctx) })
	}
	if d.metricsServer != nil {
		g.Go(func() error { return d.metricsServer.Start(gctx) })
	}
	if d.watcher != nil {
		g.Go(func() error { return d.watcher.Run(gctx) })
	}

	err := g.Wait()
	if err != nil {
		logger.Error("Component failed, shutting down", logger.KeyError, err)
	} else {
		logger.Info("Shutdown signal received", "reason", context.Cause(ctx))
	}

	d.shutdown()
	logger.Info("preloadd stopped")
	return err
}

func (d *Daemon) shutdown() {
	d.scheduler.Shutdown()

	done := make(chan struct{})
	go func() {
		d.scheduler.Coordinator().Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(d.shutdownTimeout):
		logger.Warn("Timed out waiting for fetches to stop", "timeout", d.shutdownTimeout)
	}

	for i := len(d.closers) - 1; i >= 0; i-- {
		c := d.closers[i]
		if err := c.fn(); err != nil {
			logger.Warn("Close failed", "component", c.name, logger.KeyError, err)
		}
	}
}
