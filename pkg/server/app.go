package server

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"PersonalQT/internal/store"
	"PersonalQT/internal/usecase"
	"PersonalQT/pkg/config"
	xhttp "PersonalQT/pkg/http"
	applogger "PersonalQT/pkg/logger"
	"PersonalQT/pkg/scheduler"
)

// Syncer loads every collection into the store.
type Syncer interface {
	FetchAll(ctx context.Context, opts ...usecase.FetchOption) error
	SyncJob() scheduler.Job
}

// CloserFunc adapts a func to io.Closer.
type CloserFunc func() error

func (f CloserFunc) Close() error { return f() }

type namedCloser struct {
	name string
	c    io.Closer
}

// Worker is a background component started with the app and stopped
// before the HTTP server.
type Worker interface {
	Start() error
	Stop(ctx context.Context) error
}

type namedWorker struct {
	name string
	w    Worker
}

// Option configures App.
type Option func(*App)

// WithCloser registers a resource released at shutdown, after the HTTP
// server and the store. Closers run in registration order.
func WithCloser(name string, c io.Closer) Option {
	return func(a *App) {
		if c != nil {
			a.closers = append(a.closers, namedCloser{name: name, c: c})
		}
	}
}

// WithWorker registers a background worker.
func WithWorker(name string, w Worker) Option {
	return func(a *App) {
		if w != nil {
			a.workers = append(a.workers, namedWorker{name: name, w: w})
		}
	}
}

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	log        *applogger.Logger
	store      *store.Store
	syncer     Syncer
	scheduler  *scheduler.Scheduler
	httpServer *xhttp.Server
	workers    []namedWorker
	closers    []namedCloser
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	l *applogger.Logger,
	st *store.Store,
	syncer Syncer,
	sched *scheduler.Scheduler,
	httpServer *xhttp.Server,
	opts ...Option,
) *App {
	if l == nil {
		l = applogger.Nop()
	}
	a := &App{
		cfg:        cfg,
		log:        l.Named("app"),
		store:      st,
		syncer:     syncer,
		scheduler:  sched,
		httpServer: httpServer,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Store returns the state container owned by the app.
func (a *App) Store() *store.Store { return a.store }

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := a.Start(ctx); err != nil {
		_ = a.Shutdown(ctx)
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	sig := <-sigCh

	a.log.Info("shutdown signal received", applogger.String("signal", sig.String()))
	return a.Shutdown(ctx)
}

// Start performs the initial sync, schedules the periodic one and starts
// the HTTP server. A failed initial sync is logged, not fatal: whatever
// loaded is served and the scheduler retries.
func (a *App) Start(ctx context.Context) error {
	if a.cfg.Sync.OnStart && a.syncer != nil {
		syncCtx, cancel := context.WithTimeout(ctx, a.cfg.API.Timeout*2)
		err := a.syncer.FetchAll(syncCtx)
		cancel()
		if err != nil {
			a.log.Warn("initial sync incomplete", applogger.Error(err))
		}
	}

	if a.scheduler != nil {
		if a.cfg.Sync.Schedule != "" && a.syncer != nil {
			if err := a.scheduler.AddJob(a.cfg.Sync.Schedule, a.syncer.SyncJob()); err != nil {
				return fmt.Errorf("schedule sync: %w", err)
			}
			a.log.Info("sync scheduled", applogger.String("schedule", a.cfg.Sync.Schedule))
		}
		a.scheduler.Start()
	}

	for _, nw := range a.workers {
		if err := nw.w.Start(); err != nil {
			return fmt.Errorf("start %s: %w", nw.name, err)
		}
	}

	if a.httpServer != nil {
		if err := a.httpServer.Start(); err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	a.log.Info("app started",
		applogger.String("env", a.cfg.Environment),
		applogger.String("base_path", a.cfg.Server.BasePath),
		applogger.String("api", a.cfg.API.BaseURL),
	)
	return nil
}

// Shutdown stops the scheduler, the workers and the HTTP server, then
// closes the store and every registered closer.
func (a *App) Shutdown(ctx context.Context) error {
	a.log.Info("shutting down...")

	if a.scheduler != nil {
		a.scheduler.Stop()
	}

	timeout := a.cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	for _, nw := range a.workers {
		stopCtx, cancel := context.WithTimeout(ctx, timeout)
		if err := nw.w.Stop(stopCtx); err != nil {
			a.log.Warn("worker stop error", applogger.String("worker", nw.name), applogger.Error(err))
		}
		cancel()
	}

	if a.httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		if err := a.httpServer.Stop(shutdownCtx); err != nil {
			a.log.Error("http shutdown error", applogger.Error(err))
		}
	}

	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn("store close error", applogger.Error(err))
		}
	}

	for _, nc := range a.closers {
		if err := nc.c.Close(); err != nil {
			a.log.Warn("close error", applogger.String("resource", nc.name), applogger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
	return nil
}
