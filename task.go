package covey

import "context"

// Runnable is a unit of work. The context passed to it carries cancellation
// from forced shutdown and any values installed by decorators. Work handed to
// a pool that is force-canceled or discarded may be invoked with an
// already-canceled context, so tasks that must not run in that case should
// check ctx.Err before doing anything.
type Runnable func(ctx context.Context)

// Callable is a value-producing unit of work.
type Callable[T any] func(ctx context.Context) (T, error)

// Future is the handle to a Callable's eventual result. A future completes
// exactly once, with either the task's value, its error, a *PanicError if the
// task panicked, or a cancellation cause if the task was discarded or
// force-canceled before it could run.
type Future[T any] struct {
	done chan struct{}
	val  T
	err  error
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// complete must be called exactly once.
func (f *Future[T]) complete(val T, err error) {
	f.val, f.err = val, err
	close(f.done)
}

// Done returns a channel that is closed once the result is available.
//
// Example:
//
//	select {
//	case <-f.Done():
//	    v, err := f.Wait(ctx)
//	case <-time.After(time.Second):
//	    // still running
//	}
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the task finishes or ctx is canceled. On cancellation it
// returns ctx.Err(); the task itself keeps running.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
