// Package covey provisions and manages named worker pools with externally
// supplied configuration, composable task decorators, and orderly,
// lifecycle-bound shutdown.
//
// Each named pool is built once, lazily, from a resolved configuration: the
// caller's defaults merged field by field with an override record from a
// configuration source. The resolved configuration picks one of three
// execution strategies: inline (MaxWorkers 0, tasks run synchronously on the
// submitter), direct handoff (QueueCapacity 0, a submitter waits for a worker
// to take the task), or a bounded FIFO queue governed by an overflow policy
// when full.
//
// # Quick Start
//
//	registry := covey.NewRegistry(
//	    covey.WithSource(source),
//	    covey.WithRegistryLogger(logger),
//	)
//	registry.Register("indexer", covey.DefaultConfig("indexer"),
//	    covey.Timing(logger),
//	)
//
//	pool, err := registry.Pool("indexer")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	f, err := covey.Submit(pool, func(ctx context.Context) (int, error) {
//	    return countDocuments(ctx)
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	n, err := f.Wait(ctx)
//
// # Decorators
//
// Decorators wrap every submitted task before it reaches the executor,
// typically for timing or context propagation. The first registered decorator
// wraps outermost, so it observes everything later decorators add. Decorators
// are fixed at pool construction; registering more later has no effect.
//
// # Overflow Policies
//
// When a pool cannot accept a task immediately, the configured policy
// decides: Block waits for room, Reject fails the submission with
// ErrQueueFull, CallerRuns executes the task on the submitting goroutine,
// DiscardOldest evicts the oldest queued task, and Discard drops the new one.
// The two Discard policies are deliberately lossy; dropped tasks resolve
// their futures with ErrTaskDiscarded.
//
// # Shutdown
//
// A LifecycleManager binds a pool to an application stop signal. On the
// signal it stops admission, waits up to a grace period for work to drain,
// and force-cancels the rest through each task's context. Registry.Shutdown
// applies the same sequence to every pool it built. Stopped pools refuse new
// work with ErrPoolStopped but keep answering monitoring queries.
//
// # Monitoring
//
// Pool.Monitor returns a read-only handle whose Snapshot reports live worker
// count, queue depth, and task counters. Exporter adapts a registry's
// snapshots to a prometheus.Collector.
package covey
