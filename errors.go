package covey

import (
	"errors"
	"fmt"
)

// Common errors returned by the pool.
var (
	// ErrPoolStopped is returned when attempting to submit a task to a pool
	// that has begun stopping. Once a pool stops, it cannot accept new work;
	// the handle is retained only for monitoring queries.
	ErrPoolStopped = errors.New("pool is stopped")

	// ErrQueueFull is returned under the Reject overflow policy when a
	// submission cannot be accepted immediately. The caller can implement its
	// own backpressure or retry logic.
	ErrQueueFull = errors.New("queue is full")

	// ErrTaskDiscarded completes the future of a task dropped by the Discard
	// or DiscardOldest overflow policies. The task never ran.
	ErrTaskDiscarded = errors.New("task discarded")

	// ErrNilTask is returned when a nil task function is submitted.
	ErrNilTask = errors.New("task is nil")

	// ErrNilTaskSet is returned by SubmitAll and SubmitAny when the task
	// collection itself is nil.
	ErrNilTaskSet = errors.New("task collection is nil")

	// ErrNoTasks is returned by SubmitAny when the task collection is empty.
	ErrNoTasks = errors.New("no tasks to run")

	// ErrNotRegistered is returned when acquiring a pool name that was never
	// registered.
	ErrNotRegistered = errors.New("pool is not registered")

	// ErrRegistryClosed is returned when acquiring a pool from a registry
	// that has already been shut down.
	ErrRegistryClosed = errors.New("registry is shut down")
)

// poolError wraps err with the name of the pool it concerns.
func poolError(name string, err error) error {
	return fmt.Errorf("covey: pool %q: %w", name, err)
}

// ConfigError reports an invalid pool configuration. Configuration errors are
// fatal: pool construction fails and is never retried.
type ConfigError struct {
	Pool   string // name of the pool being configured
	Field  string // offending field
	Reason string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("covey: invalid config for pool %q: %s %s", e.Pool, e.Field, e.Reason)
}

// PanicError wraps a panic recovered from a task, together with the stack
// trace captured at the point of the panic. It completes the future of a
// value-producing task that panicked.
type PanicError struct {
	Value any
	Stack string
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("covey: task panic: %v", e.Value)
}
