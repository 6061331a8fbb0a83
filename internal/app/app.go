// Package app assembles the store, snapshot, bus and TCP server into one
// runnable application.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/arpanpaul-gh/InMemory-DB/internal/adapter/metrics"
	"github.com/arpanpaul-gh/InMemory-DB/internal/adapter/pubsub"
	"github.com/arpanpaul-gh/InMemory-DB/internal/adapter/snapshot"
	"github.com/arpanpaul-gh/InMemory-DB/internal/adapter/store"
	"github.com/arpanpaul-gh/InMemory-DB/internal/app/handlers"
	"github.com/arpanpaul-gh/InMemory-DB/internal/config"
	"github.com/arpanpaul-gh/InMemory-DB/internal/core/domain"
)

// Application wires the components and runs the background loops: the
// per-second expiry sweeper and the periodic snapshotter.
type Application struct {
	config    *config.Config
	logger    *slog.Logger
	store     *store.Store
	snapshot  *snapshot.FileSnapshot
	bus       *pubsub.Bus
	metrics   *metrics.Metrics
	server    *Server
	metricsrv *http.Server
	unobserve func()
	cancel    context.CancelFunc
	saveMu    sync.Mutex
	loops     sync.WaitGroup
}

// New creates the application from configuration.
func New(cfg *config.Config, logger *slog.Logger) (*Application, error) {
	if logger == nil {
		logger = slog.Default()
	}

	m := metrics.New()
	st := store.New(logger)
	bus := pubsub.New(logger)
	snap := snapshot.New(cfg.Storage.Path, logger)

	m.RegisterKeysGauge(func() float64 { return float64(st.Len()) })
	m.RegisterDroppedSubscribersCounter(func() float64 { return float64(bus.Dropped()) })

	a := &Application{
		config:   cfg,
		logger:   logger,
		store:    st,
		snapshot: snap,
		bus:      bus,
		metrics:  m,
	}

	var onMutation func()
	if cfg.Storage.SaveOnMutation {
		onMutation = a.saveData
	}
	handler := handlers.New(st, bus, m, logger, onMutation)
	a.server = NewServer(cfg.Server, handler, bus, m, logger)

	return a, nil
}

// Start loads the snapshot, starts the listener and launches the
// background loops. The loops stop when ctx is cancelled.
func (a *Application) Start(ctx context.Context) error {
	loaded, err := a.snapshot.Load()
	if err != nil {
		return fmt.Errorf("loading snapshot: %w", err)
	}
	for key, value := range loaded {
		a.store.Set(key, value)
	}
	if len(loaded) > 0 {
		a.logger.Info("restored snapshot", "path", a.snapshot.Path(), "entries", len(loaded))
	}

	// The store tells us about expirations; the bus is not involved
	// (automatic notifications cover client mutations only).
	a.unobserve = a.store.Observe(func(op domain.Operation, key, value string) {
		if op == domain.OperationExpire {
			a.metrics.ExpirationsTotal.Inc()
		}
	})

	if err := a.server.Start(ctx); err != nil {
		return err
	}

	loopCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	a.loops.Add(2)
	go a.sweepLoop(loopCtx)
	go a.saveLoop(loopCtx)

	if a.config.Telemetry.Metrics.Enabled {
		a.startMetricsServer()
	}

	a.logger.Info("started", "bind", a.server.Addr().String(),
		"snapshot", a.snapshot.Path(), "save_on_mutation", a.config.Storage.SaveOnMutation)
	return nil
}

// Stop performs a final save and tears everything down.
func (a *Application) Stop(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, a.config.Server.ShutdownTimeout)
	defer cancel()

	if a.cancel != nil {
		a.cancel()
	}
	a.loops.Wait()

	a.saveData()
	if a.unobserve != nil {
		a.unobserve()
	}

	if a.metricsrv != nil {
		if err := a.metricsrv.Shutdown(shutdownCtx); err != nil {
			a.logger.Warn("metrics listener shutdown", "error", err)
		}
	}

	if err := a.server.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("stopping server: %w", err)
	}
	a.logger.Info("stopped")
	return nil
}

// Server exposes the transport for tests that need the bound address.
func (a *Application) Server() *Server {
	return a.server
}

// saveData snapshots the non-TTL entries. Serialized by saveMu so the
// inline mutation saves and the periodic saver never interleave writes.
func (a *Application) saveData() {
	a.saveMu.Lock()
	defer a.saveMu.Unlock()

	start := time.Now()
	items := a.store.PersistentItems()
	a.metrics.SnapshotSaves.Inc()
	if err := a.snapshot.Save(items); err != nil {
		a.metrics.SnapshotFailures.Inc()
		a.logger.Error("snapshot save failed", "path", a.snapshot.Path(), "error", err)
		return
	}
	a.metrics.SnapshotDuration.Observe(time.Since(start).Seconds())
}

func (a *Application) sweepLoop(ctx context.Context) {
	defer a.loops.Done()

	interval := a.config.Storage.SweepInterval
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := a.store.Sweep(); removed > 0 {
				a.logger.Debug("sweep removed expired keys", "count", removed)
			}
		}
	}
}

func (a *Application) saveLoop(ctx context.Context) {
	defer a.loops.Done()

	interval := a.config.Storage.SaveInterval
	if interval <= 0 {
		interval = config.DefaultSaveInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.saveData()
			a.logger.Debug("periodic snapshot complete")
		}
	}
}

func (a *Application) startMetricsServer() {
	a.metricsrv = &http.Server{
		Addr:    a.config.Telemetry.Metrics.Address,
		Handler: a.metricsHandler(),
	}
	go func() {
		if err := a.metricsrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("metrics listener error", "error", err)
		}
	}()
	a.logger.Info("metrics exposed", "addr", a.config.Telemetry.Metrics.Address)
}

func (a *Application) metricsHandler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", a.metrics.Handler())
	return mux
}
