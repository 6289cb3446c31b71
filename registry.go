package covey

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Registry maps pool names to lazily constructed pools. Each name is built at
// most once, on first acquisition; concurrent first accesses do not
// double-construct. A construction failure is cached and returned on every
// later acquisition of that name.
type Registry struct {
	log    *zap.Logger
	source ConfigSource

	mu     sync.Mutex
	pools  map[string]*registration
	closed bool
}

type registration struct {
	defaults   Config
	decorators []Decorator

	once sync.Once
	pool *Pool
	err  error
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithSource sets the external configuration provider consulted for override
// records when a pool is first built.
func WithSource(s ConfigSource) RegistryOption {
	return func(r *Registry) { r.source = s }
}

// WithRegistryLogger sets the logger handed to every pool the registry
// builds. Defaults to a no-op logger.
func WithRegistryLogger(log *zap.Logger) RegistryOption {
	return func(r *Registry) {
		if log != nil {
			r.log = log
		}
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		log:   zap.NewNop(),
		pools: make(map[string]*registration),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register declares a named pool with its caller-supplied defaults and
// decorator set. The decorator set is fixed here: registering again, or
// registering decorators after the pool has been built, has no effect. The
// pool itself is not constructed until the first Pool call.
func (r *Registry) Register(name string, defaults Config, decorators ...Decorator) {
	defaults.Name = name
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.pools[name]; ok {
		return
	}
	r.pools[name] = &registration{defaults: defaults, decorators: decorators}
}

// Pool returns the named pool, constructing it on first access by merging the
// registered defaults with the configuration source's override record.
// Acquiring a pool that failed to start, or one already stopped, fails with
// an error naming the pool rather than returning a dead handle.
func (r *Registry) Pool(name string) (*Pool, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, poolError(name, ErrRegistryClosed)
	}
	reg, ok := r.pools[name]
	r.mu.Unlock()
	if !ok {
		return nil, poolError(name, ErrNotRegistered)
	}

	reg.once.Do(func() {
		pool, err := r.build(name, reg)
		r.mu.Lock()
		reg.pool, reg.err = pool, err
		stray := r.closed && pool != nil
		r.mu.Unlock()
		if stray {
			// Built after Shutdown collected its pools; nothing else will
			// ever stop it.
			pool.ShutdownNow()
		}
	})
	if reg.err != nil {
		return nil, reg.err
	}
	r.mu.Lock()
	closed := r.closed
	r.mu.Unlock()
	if closed {
		return nil, poolError(name, ErrRegistryClosed)
	}
	if s := reg.pool.State(); s != Running {
		return nil, poolError(name, ErrPoolStopped)
	}
	return reg.pool, nil
}

func (r *Registry) build(name string, reg *registration) (*Pool, error) {
	cfg := reg.defaults
	if r.source != nil {
		if o, ok := r.source.Overrides(name); ok {
			cfg = o.apply(cfg)
		}
	}
	return NewPool(cfg,
		WithLogger(r.log),
		WithDecorators(reg.decorators...),
	)
}

// Snapshots returns a snapshot per constructed pool, sorted by name, for
// monitoring sinks to export.
func (r *Registry) Snapshots() []Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Snapshot, 0, len(r.pools))
	for _, reg := range r.pools {
		if reg.pool != nil {
			out = append(out, reg.pool.Monitor().Snapshot())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Pool < out[j].Pool })
	return out
}

// Shutdown stops every constructed pool with the bounded grace sequence:
// graceful stop, wait up to grace, forced cancellation for stragglers. Later
// acquisitions fail with ErrRegistryClosed. Calling Shutdown again is a
// no-op.
func (r *Registry) Shutdown(ctx context.Context, grace time.Duration) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	var pools []*Pool
	for _, reg := range r.pools {
		if reg.pool != nil {
			pools = append(pools, reg.pool)
		}
	}
	r.mu.Unlock()

	var errs []error
	for _, p := range pools {
		m := NewLifecycleManager(p,
			WithGracePeriod(grace),
			WithLifecycleLogger(r.log),
		)
		if err := m.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
