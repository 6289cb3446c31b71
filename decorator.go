package covey

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Decorator transforms a unit of work before it reaches the underlying
// executor, typically for cross-cutting concerns such as timing or context
// propagation. Wrap must not execute the task itself, must not alter the
// task's semantics beyond measurement and propagation, and must be safe to
// call concurrently from many submitting goroutines.
type Decorator interface {
	Wrap(Runnable) Runnable
}

// DecoratorFunc adapts an ordinary function to the Decorator interface.
type DecoratorFunc func(Runnable) Runnable

// Wrap implements Decorator.
func (f DecoratorFunc) Wrap(r Runnable) Runnable {
	return f(r)
}

// identity leaves the task untouched.
var identity = DecoratorFunc(func(r Runnable) Runnable { return r })

// Combine builds a single decorator from ds. The first decorator wraps
// outermost and the last wraps closest to the task, so at run time the
// decorators are visited in registration order: a timing decorator registered
// first measures everything the later decorators add.
//
// Combining zero decorators yields the identity transform. Combining a single
// decorator returns that decorator unchanged. Duplicate decorator instances
// are permitted.
func Combine(ds ...Decorator) Decorator {
	switch len(ds) {
	case 0:
		return identity
	case 1:
		return ds[0]
	}
	chain := make([]Decorator, len(ds))
	copy(chain, ds)
	return DecoratorFunc(func(r Runnable) Runnable {
		for i := len(chain) - 1; i >= 0; i-- {
			r = chain[i].Wrap(r)
		}
		return r
	})
}

// Timing returns a decorator that logs each task's execution time at debug
// level, tagged with a per-execution correlation id.
//
// Example:
//
//	pool, err := covey.NewPool(cfg, covey.WithDecorators(covey.Timing(logger)))
func Timing(log *zap.Logger) Decorator {
	return DecoratorFunc(func(r Runnable) Runnable {
		return func(ctx context.Context) {
			id := uuid.NewString()
			start := time.Now()
			r(ctx)
			log.Debug("task finished",
				zap.String("task_id", id),
				zap.Duration("elapsed", time.Since(start)))
		}
	})
}

// WithValue returns a decorator that installs a key/value pair on the context
// of every task it wraps, so pool-scoped request metadata reaches the task
// without threading it through each submission.
func WithValue(key, val any) Decorator {
	return DecoratorFunc(func(r Runnable) Runnable {
		return func(ctx context.Context) {
			r(context.WithValue(ctx, key, val))
		}
	})
}
