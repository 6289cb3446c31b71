package covey

import "go.uber.org/zap"

// executor is one of the execution strategies behind a Pool.
type executor interface {
	Monitor

	// execute runs or enqueues a task. It may block, depending on the
	// strategy and overflow policy.
	execute(Runnable) error
	// shutdown stops admission and lets queued and in-flight work drain.
	shutdown()
	// shutdownNow stops admission and cancels queued and in-flight work.
	shutdownNow()
	// terminated is closed once all work has finished or been canceled.
	terminated() <-chan struct{}
	state() State
}

// newExecutor picks the execution strategy for a resolved configuration:
// MaxWorkers <= 0 runs inline on the submitter, QueueCapacity 0 hands tasks
// directly to workers, and anything else queues up to QueueCapacity tasks.
func newExecutor(cfg Config, log *zap.Logger) executor {
	if cfg.MaxWorkers <= 0 {
		return newInlineExecutor(cfg, log)
	}
	return newWorkerExecutor(cfg, log)
}
