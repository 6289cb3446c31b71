package covey

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"go.uber.org/zap"
)

// Pool is the executor-facing facade over one named worker pool. Every
// submitted unit of work passes through the pool's decorator chain exactly
// once before it reaches the underlying execution strategy.
type Pool struct {
	cfg   Config
	exec  executor
	chain Decorator
	log   *zap.Logger
}

// Option configures a Pool beyond its Config.
type Option func(*poolOptions)

type poolOptions struct {
	log        *zap.Logger
	decorators []Decorator
}

// WithLogger sets the pool's logger. Defaults to a no-op logger.
func WithLogger(log *zap.Logger) Option {
	return func(o *poolOptions) {
		if log != nil {
			o.log = log
		}
	}
}

// WithDecorators sets the pool's decorator set, in registration order: the
// first decorator wraps outermost. The set is fixed for the pool's lifetime.
func WithDecorators(ds ...Decorator) Option {
	return func(o *poolOptions) {
		o.decorators = append(o.decorators, ds...)
	}
}

// NewPool builds a pool from a resolved configuration. It validates the
// configuration and fails fast with a *ConfigError on violation.
//
// Example:
//
//	pool, err := covey.NewPool(covey.DefaultConfig("indexer"),
//	    covey.WithLogger(logger),
//	    covey.WithDecorators(covey.Timing(logger)),
//	)
func NewPool(cfg Config, opts ...Option) (*Pool, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	o := poolOptions{log: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Pool{
		cfg:   cfg,
		exec:  newExecutor(cfg, o.log),
		chain: Combine(o.decorators...),
		log:   o.log,
	}, nil
}

// Name returns the pool's configured name.
func (p *Pool) Name() string {
	return p.cfg.Name
}

// State returns the pool's lifecycle state.
func (p *Pool) State() State {
	return p.exec.state()
}

// Monitor returns the pool's read-only monitoring handle. The handle stays
// valid after the pool stops.
func (p *Pool) Monitor() Monitor {
	return p.exec
}

// Execute submits a fire-and-forget task. A panic in the task is recovered
// and logged, never propagated.
func (p *Pool) Execute(r Runnable) error {
	if r == nil {
		return poolError(p.cfg.Name, ErrNilTask)
	}
	return p.exec.execute(p.chain.Wrap(func(ctx context.Context) {
		if ctx.Err() != nil {
			return
		}
		r(ctx)
	}))
}

// Submit hands c to the pool and returns a handle to its eventual result.
// The task's own failure, error or panic, is captured in the future and never
// affects the pool or other tasks. Submit itself returns an error only when
// the pool refuses the task.
func Submit[T any](p *Pool, c Callable[T]) (*Future[T], error) {
	if c == nil {
		return nil, poolError(p.cfg.Name, ErrNilTask)
	}
	f := newFuture[T]()
	if err := p.exec.execute(p.chain.Wrap(futureTask(f, c))); err != nil {
		return nil, err
	}
	return f, nil
}

// futureTask binds a callable to its future, mapping cancellation, errors and
// panics into the result.
func futureTask[T any](f *Future[T], c Callable[T]) Runnable {
	return func(ctx context.Context) {
		var zero T
		if ctx.Err() != nil {
			f.complete(zero, cancelCause(ctx))
			return
		}
		defer func() {
			if p := recover(); p != nil {
				f.complete(zero, &PanicError{Value: p, Stack: string(debug.Stack())})
			}
		}()
		v, err := c(ctx)
		f.complete(v, err)
	}
}

// cancelCause prefers the cancellation cause over the bare context error.
func cancelCause(ctx context.Context) error {
	if cause := context.Cause(ctx); cause != nil {
		return cause
	}
	return ctx.Err()
}

// SubmitAll submits every callable in cs and returns one future per task,
// preserving input order. A nil collection or a nil task fails the whole
// call. If the pool refuses a task partway through, the error is returned and
// the already-submitted tasks keep running.
func SubmitAll[T any](p *Pool, cs []Callable[T]) ([]*Future[T], error) {
	if cs == nil {
		return nil, poolError(p.cfg.Name, ErrNilTaskSet)
	}
	for i, c := range cs {
		if c == nil {
			return nil, poolError(p.cfg.Name, fmt.Errorf("task %d: %w", i, ErrNilTask))
		}
	}
	futures := make([]*Future[T], 0, len(cs))
	for _, c := range cs {
		f, err := Submit(p, c)
		if err != nil {
			return nil, err
		}
		futures = append(futures, f)
	}
	return futures, nil
}

// SubmitAny submits every callable in cs and returns the result of whichever
// completes successfully first, canceling the rest through their task
// contexts. If every task fails, the joined failures are returned.
func SubmitAny[T any](ctx context.Context, p *Pool, cs []Callable[T]) (T, error) {
	var zero T
	if cs == nil {
		return zero, poolError(p.cfg.Name, ErrNilTaskSet)
	}
	if len(cs) == 0 {
		return zero, poolError(p.cfg.Name, ErrNoTasks)
	}

	raceCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	type outcome struct {
		val T
		err error
	}
	results := make(chan outcome, len(cs))

	for _, c := range cs {
		if c == nil {
			return zero, poolError(p.cfg.Name, ErrNilTask)
		}
		f, err := Submit(p, raced(raceCtx, c))
		if err != nil {
			cancel(err)
			return zero, err
		}
		go func() {
			v, err := f.Wait(context.Background())
			results <- outcome{val: v, err: err}
		}()
	}

	var errs []error
	for range cs {
		out := <-results
		if out.err == nil {
			cancel(context.Canceled)
			return out.val, nil
		}
		errs = append(errs, out.err)
	}
	return zero, errors.Join(errs...)
}

// raced derives each task's context from both the pool-provided context and
// the race context, so the first winner cancels the losers.
func raced[T any](raceCtx context.Context, c Callable[T]) Callable[T] {
	return func(taskCtx context.Context) (T, error) {
		runCtx, stop := context.WithCancelCause(taskCtx)
		defer stop(nil)
		detach := context.AfterFunc(raceCtx, func() {
			stop(context.Cause(raceCtx))
		})
		defer detach()
		return c(runCtx)
	}
}

// Shutdown stops admission of new work and lets queued and in-flight work
// drain. Safe to call more than once.
func (p *Pool) Shutdown() {
	p.exec.shutdown()
}

// ShutdownNow stops admission and cancels queued and in-flight work through
// each task's context. Safe to call more than once.
func (p *Pool) ShutdownNow() {
	p.exec.shutdownNow()
}

// AwaitTermination reports whether the pool finished draining within timeout
// after a shutdown was requested. A timeout is not an error; the only error
// returned is ctx.Err() when the wait itself is interrupted, and that
// interruption is always handed back to the caller rather than swallowed.
func (p *Pool) AwaitTermination(ctx context.Context, timeout time.Duration) (bool, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-p.exec.terminated():
		return true, nil
	case <-timer.C:
		return false, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}
