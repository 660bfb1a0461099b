package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"FinBrief/pkg/config"
	applogger "FinBrief/pkg/logger"
)

// HTTPServer is the request-serving half of the application.
type HTTPServer interface {
	Start() error
	Stop(ctx context.Context) error
}

// Worker is a background loop started with the application, such as a
// Kafka consumer.
type Worker interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Closer releases an infrastructure client on shutdown.
type Closer = io.Closer

// App encapsulates the entire application lifecycle.
type App struct {
	cfg     *config.Config
	log     *applogger.Logger
	http    HTTPServer
	worker  Worker
	closers []Closer
}

// New creates a new App. worker may be nil. Closers are closed in reverse
// order on shutdown.
func New(cfg *config.Config, l *applogger.Logger, srv HTTPServer, worker Worker, closers ...Closer) *App {
	if l == nil {
		l = applogger.Nop()
	}
	return &App{
		cfg:     cfg,
		log:     l,
		http:    srv,
		worker:  worker,
		closers: closers,
	}
}

// Run starts the application and blocks until SIGINT or SIGTERM.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.RunContext(ctx)
}

// RunContext starts the application and blocks until ctx is done, then
// shuts everything down.
func (a *App) RunContext(ctx context.Context) error {
	if a.worker != nil {
		if err := a.worker.Start(ctx); err != nil {
			a.closeAll()
			return fmt.Errorf("start worker: %w", err)
		}
		a.log.Info("background worker started")
	}

	if err := a.http.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		if a.worker != nil {
			_ = a.worker.Stop(context.Background())
		}
		a.closeAll()
		return err
	}

	<-ctx.Done()
	a.log.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout())
	defer cancel()
	return a.Shutdown(shutdownCtx)
}

// Shutdown stops the HTTP server first so no new briefs start, then the
// worker, then closes infrastructure clients.
func (a *App) Shutdown(ctx context.Context) error {
	var errs []error

	if err := a.http.Stop(ctx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
		errs = append(errs, err)
	}

	if a.worker != nil {
		if err := a.worker.Stop(ctx); err != nil {
			a.log.Warn("worker stop error", applogger.Error(err))
			errs = append(errs, err)
		}
	}

	// Flush pending error digests while the producer is still open.
	a.log.RemoveCollector()

	if err := a.closeAll(); err != nil {
		errs = append(errs, err)
	}

	a.log.Info("shutdown complete")
	return errors.Join(errs...)
}

func (a *App) closeAll() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			a.log.Warn("close error", applogger.Error(err))
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) shutdownTimeout() time.Duration {
	if a.cfg != nil && a.cfg.Server.ShutdownTimeout > 0 {
		return a.cfg.Server.ShutdownTimeout
	}
	return 10 * time.Second
}
