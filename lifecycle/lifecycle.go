// Package lifecycle wires startup and teardown for a gateway process: one
// connectivity probe before the transport binds, signal-driven shutdown, and
// idempotent resource release.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

// Hook releases one resource during shutdown. Hooks run LIFO; hook errors
// are logged, never thrown.
type Hook struct {
	Name  string
	Close func(ctx context.Context) error
}

// ManagerConfig configures a process lifecycle manager.
type ManagerConfig struct {
	// Probe is the single startup connectivity check. Required.
	Probe func(ctx context.Context) error
	// Serve binds the transport channel and blocks until the peer closes it
	// or ctx is canceled. It runs only after Probe succeeds. Required.
	Serve func(ctx context.Context) error
	// ProbeTimeout bounds the startup probe. Defaults to 15s.
	ProbeTimeout time.Duration
	// ShutdownTimeout bounds hook execution. Defaults to 10s.
	ShutdownTimeout time.Duration
	Logger          *slog.Logger
}

// Manager owns the probe/serve/shutdown sequence for one process. Shutdown
// may be invoked from any signal path any number of times; hooks run once.
type Manager struct {
	probe           func(ctx context.Context) error
	serve           func(ctx context.Context) error
	probeTimeout    time.Duration
	shutdownTimeout time.Duration
	logger          *slog.Logger

	mu    sync.Mutex
	hooks []Hook
	once  sync.Once
}

// ErrProbeFailed wraps a failed startup connectivity probe. Processes seeing
// it must exit non-zero without binding the transport.
var ErrProbeFailed = errors.New("lifecycle: startup probe failed")

// NewManager builds a lifecycle manager.
func NewManager(cfg ManagerConfig) (*Manager, error) {
	if cfg.Probe == nil {
		return nil, errors.New("lifecycle: probe is required")
	}
	if cfg.Serve == nil {
		return nil, errors.New("lifecycle: serve is required")
	}
	probeTimeout := cfg.ProbeTimeout
	if probeTimeout <= 0 {
		probeTimeout = 15 * time.Second
	}
	shutdownTimeout := cfg.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Manager{
		probe:           cfg.Probe,
		serve:           cfg.Serve,
		probeTimeout:    probeTimeout,
		shutdownTimeout: shutdownTimeout,
		logger:          logger,
	}, nil
}

// OnShutdown registers a resource-release hook. Hooks registered first run
// last.
func (m *Manager) OnShutdown(name string, close func(ctx context.Context) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hooks = append(m.hooks, Hook{Name: name, Close: close})
}

// Run executes the startup sequence and serves until a termination signal or
// the serve function returns. Shutdown hooks run on every exit path.
func (m *Manager) Run(ctx context.Context) error {
	probeCtx, cancel := context.WithTimeout(ctx, m.probeTimeout)
	err := m.probe(probeCtx)
	cancel()
	if err != nil {
		m.logger.Error("startup probe failed", "error", err.Error())
		m.Shutdown(context.Background())
		return fmt.Errorf("%w: %v", ErrProbeFailed, err)
	}
	m.logger.Info("startup probe succeeded")

	serveCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = m.serve(serveCtx)
	m.Shutdown(context.Background())

	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("lifecycle: serve: %w", err)
	}
	return nil
}

// Shutdown releases registered resources exactly once. Later invocations,
// including from a second termination signal, return immediately and never
// panic.
func (m *Manager) Shutdown(ctx context.Context) {
	m.once.Do(func() {
		shutdownCtx, cancel := context.WithTimeout(ctx, m.shutdownTimeout)
		defer cancel()

		m.mu.Lock()
		hooks := make([]Hook, len(m.hooks))
		copy(hooks, m.hooks)
		m.mu.Unlock()

		for i := len(hooks) - 1; i >= 0; i-- {
			hook := hooks[i]
			if hook.Close == nil {
				continue
			}
			if err := hook.Close(shutdownCtx); err != nil {
				m.logger.Warn("shutdown hook failed", "hook", hook.Name, "error", err.Error())
				continue
			}
			m.logger.Debug("shutdown hook completed", "hook", hook.Name)
		}
	})
}
