package covey

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultGracePeriod bounds how long a graceful shutdown may take before the
// remaining work is force-canceled.
const DefaultGracePeriod = 20 * time.Second

// LifecycleManager binds exactly one pool's shutdown to an application-wide
// stop signal. On the signal it stops admission, lets queued and in-flight
// work drain for up to the grace period, and force-cancels whatever is left.
type LifecycleManager struct {
	pool  *Pool
	grace time.Duration
	log   *zap.Logger

	once sync.Once
	err  error
}

// LifecycleOption configures a LifecycleManager.
type LifecycleOption func(*LifecycleManager)

// WithGracePeriod overrides DefaultGracePeriod.
func WithGracePeriod(d time.Duration) LifecycleOption {
	return func(m *LifecycleManager) {
		if d > 0 {
			m.grace = d
		}
	}
}

// WithLifecycleLogger sets the manager's logger. Defaults to a no-op logger.
func WithLifecycleLogger(log *zap.Logger) LifecycleOption {
	return func(m *LifecycleManager) {
		if log != nil {
			m.log = log
		}
	}
}

// NewLifecycleManager binds p for shutdown. The pool is fully usable before
// the stop signal ever fires.
func NewLifecycleManager(p *Pool, opts ...LifecycleOption) *LifecycleManager {
	m := &LifecycleManager{
		pool:  p,
		grace: DefaultGracePeriod,
		log:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Run blocks until stopCtx is canceled, then performs the shutdown sequence.
// Typically run on its own goroutine with the application's root context.
func (m *LifecycleManager) Run(stopCtx context.Context) error {
	<-stopCtx.Done()
	return m.Shutdown(context.Background())
}

// Shutdown performs the bounded-grace stop sequence. It is idempotent: the
// sequence runs once, its duration is recorded once, and later calls return
// the first outcome.
func (m *LifecycleManager) Shutdown(ctx context.Context) error {
	m.once.Do(func() {
		m.err = m.stop(ctx)
	})
	return m.err
}

func (m *LifecycleManager) stop(ctx context.Context) error {
	start := time.Now()
	m.pool.Shutdown()

	forced := false
	drained, err := m.pool.AwaitTermination(ctx, m.grace)
	switch {
	case err != nil:
		// Interrupted while waiting: force-cancel and hand the interruption
		// back to the caller rather than swallowing it.
		forced = true
		m.pool.ShutdownNow()
		m.log.Warn("interrupted while awaiting pool termination",
			zap.String("pool", m.pool.Name()),
			zap.Error(err))
	case !drained:
		forced = true
		m.pool.ShutdownNow()
		m.log.Error("pool did not drain within the grace period, forcing cancellation",
			zap.String("pool", m.pool.Name()),
			zap.Duration("grace", m.grace))
	}

	m.log.Info("pool shut down",
		zap.String("pool", m.pool.Name()),
		zap.Duration("elapsed", time.Since(start)),
		zap.Bool("forced", forced))
	return err
}
