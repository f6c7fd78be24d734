package observability

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

// ShutdownFunc releases a resource during shutdown. It receives a context
// carrying the shutdown deadline.
type ShutdownFunc func(context.Context) error

// ShutdownManager coordinates graceful shutdown: on SIGINT or SIGTERM it
// stops the HTTP server, then runs the registered shutdown functions in
// registration order, all under a single deadline.
type ShutdownManager struct {
	logger  *Logger
	server  *http.Server
	timeout time.Duration

	mu    sync.Mutex
	funcs []ShutdownFunc
}

// NewShutdownManager creates a shutdown manager for the given server. A zero
// timeout defaults to 30 seconds.
func NewShutdownManager(logger *Logger, server *http.Server, timeout time.Duration) *ShutdownManager {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &ShutdownManager{
		logger:  logger,
		server:  server,
		timeout: timeout,
	}
}

// RegisterShutdownFunc adds a function to run during shutdown. Functions run
// in the order they were registered, so register dependents before the
// resources they depend on (stop the sweeper before closing the database).
func (sm *ShutdownManager) RegisterShutdownFunc(fn ShutdownFunc) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.funcs = append(sm.funcs, fn)
}

// WaitForShutdown blocks until SIGINT or SIGTERM arrives, then performs the
// shutdown. It returns the combined errors of any steps that failed.
func (sm *ShutdownManager) WaitForShutdown() error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	sig := <-sigCh
	sm.logger.WithField("signal", sig.String()).Info("shutting down")

	return sm.Shutdown()
}

// Shutdown drains the server and runs the registered shutdown functions
// under the configured deadline. It is exported so callers can trigger the
// same sequence without a signal.
func (sm *ShutdownManager) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), sm.timeout)
	defer cancel()

	var errs []error

	if sm.server != nil {
		if err := sm.server.Shutdown(ctx); err != nil {
			sm.logger.WithError(err).Error("http server shutdown failed")
			errs = append(errs, err)
		}
	}

	sm.mu.Lock()
	funcs := sm.funcs
	sm.mu.Unlock()

	for _, fn := range funcs {
		if err := ctx.Err(); err != nil {
			sm.logger.Warn("shutdown deadline reached before all cleanup ran")
			errs = append(errs, err)
			break
		}
		if err := fn(ctx); err != nil {
			sm.logger.WithError(err).Error("shutdown step failed")
			errs = append(errs, err)
		}
	}

	if len(errs) == 0 {
		sm.logger.Info("shutdown complete")
	}
	return errors.Join(errs...)
}
