// Package server provides application lifecycle management including
// graceful startup and shutdown with signal handling.
package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// Service represents a long-running component that can be started and stopped.
type Service interface {
	// Start begins the service. It should block until the service is stopped
	// or an error occurs.
	Start() error
	// Stop gracefully stops the service.
	Stop()
}

// ContextService adapts a function that runs until its context is cancelled,
// such as a watcher or ticker loop.
type ContextService struct {
	run     func(ctx context.Context) error
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	started atomic.Bool
}

// NewContextService wraps run.
//
// Precondition: run must return once ctx is cancelled.
func NewContextService(run func(ctx context.Context) error) *ContextService {
	ctx, cancel := context.WithCancel(context.Background())
	return &ContextService{run: run, ctx: ctx, cancel: cancel, done: make(chan struct{})}
}

// Start calls run and blocks until it returns.
//
// Precondition: Start is called at most once.
func (c *ContextService) Start() error {
	c.started.Store(true)
	defer close(c.done)
	return c.run(c.ctx)
}

// Stop cancels the context. If Start was called it waits for run to return.
func (c *ContextService) Stop() {
	c.cancel()
	if c.started.Load() {
		<-c.done
	}
}

// DefaultStopTimeout bounds how long shutdown waits on one service.
const DefaultStopTimeout = 10 * time.Second

// Lifecycle manages the startup and shutdown of multiple services.
// Services are started in order and stopped in reverse order.
type Lifecycle struct {
	logger   *zap.Logger
	services []namedService
	mu       sync.Mutex

	// StopTimeout is how long shutdown waits for each Stop before moving on.
	StopTimeout time.Duration
}

type namedService struct {
	name    string
	service Service
}

// NewLifecycle creates a new Lifecycle manager.
//
// Precondition: logger must be non-nil.
func NewLifecycle(logger *zap.Logger) *Lifecycle {
	return &Lifecycle{
		logger:      logger,
		StopTimeout: DefaultStopTimeout,
	}
}

// Add registers a named service for lifecycle management.
// Services are started in the order they are added.
//
// Precondition: name must be non-empty; svc must be non-nil.
func (l *Lifecycle) Add(name string, svc Service) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.services = append(l.services, namedService{name: name, service: svc})
}

// Run starts all services and blocks until a termination signal is received
// (SIGINT or SIGTERM), ctx is cancelled, or a service fails. Services are then
// stopped in reverse order.
//
// Postcondition: All services are stopped when this method returns. The
// returned error is the first service failure, or nil.
func (l *Lifecycle) Run(ctx context.Context) error {
	start := time.Now()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	l.mu.Lock()
	services := append([]namedService(nil), l.services...)
	l.mu.Unlock()

	errCh := make(chan error, len(services))
	for _, ns := range services {
		go func() {
			l.logger.Info("starting service",
				zap.String("service", ns.name),
			)
			svcStart := time.Now()
			if err := ns.service.Start(); err != nil {
				l.logger.Error("service failed",
					zap.String("service", ns.name),
					zap.Error(err),
					zap.Duration("uptime", time.Since(svcStart)),
				)
				errCh <- fmt.Errorf("service %s: %w", ns.name, err)
			}
		}()
	}

	l.logger.Info("all services started",
		zap.Int("count", len(services)),
		zap.Duration("startup", time.Since(start)),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	var runErr error
	select {
	case sig := <-sigCh:
		l.logger.Info("received signal, shutting down",
			zap.String("signal", sig.String()),
		)
	case runErr = <-errCh:
		l.logger.Error("service error, shutting down",
			zap.Error(runErr),
		)
	case <-ctx.Done():
		l.logger.Info("context cancelled, shutting down")
	}

	l.shutdown(services)

	l.logger.Info("shutdown complete",
		zap.Duration("total_uptime", time.Since(start)),
	)
	return runErr
}

func (l *Lifecycle) shutdown(services []namedService) {
	shutdownStart := time.Now()
	for i := len(services) - 1; i >= 0; i-- {
		ns := services[i]
		svcStart := time.Now()
		l.logger.Info("stopping service",
			zap.String("service", ns.name),
		)
		if !l.stopWithin(ns.service, l.StopTimeout) {
			l.logger.Warn("service did not stop in time, abandoning",
				zap.String("service", ns.name),
				zap.Duration("timeout", l.StopTimeout),
			)
			continue
		}
		l.logger.Info("service stopped",
			zap.String("service", ns.name),
			zap.Duration("elapsed", time.Since(svcStart)),
		)
	}
	l.logger.Info("all services stopped",
		zap.Duration("shutdown_elapsed", time.Since(shutdownStart)),
	)
}

// stopWithin calls svc.Stop and reports whether it returned within timeout.
// A non-positive timeout waits forever.
func (l *Lifecycle) stopWithin(svc Service, timeout time.Duration) bool {
	if timeout <= 0 {
		svc.Stop()
		return true
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		svc.Stop()
	}()
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-done:
		return true
	case <-timer.C:
		return false
	}
}
