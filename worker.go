package covey

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// discardedCtx is pre-canceled with ErrTaskDiscarded. A dropped task is
// invoked with it instead of never being invoked at all, so future-backed
// tasks resolve with a cancellation cause rather than hanging forever.
var discardedCtx = func() context.Context {
	ctx, cancel := context.WithCancelCause(context.Background())
	cancel(ErrTaskDiscarded)
	return ctx
}()

// workerExecutor runs tasks on a dynamically sized set of worker goroutines
// scaling between MinWorkers and MaxWorkers. QueueCapacity 0 gives direct
// handoff on an unbuffered channel; greater gives a bounded FIFO queue with
// the configured overflow policy.
type workerExecutor struct {
	cfg Config
	log *zap.Logger

	tasks chan Runnable
	slots *semaphore.Weighted // caps live workers at MaxWorkers

	ctx    context.Context // canceled with ErrPoolStopped by shutdownNow
	cancel context.CancelCauseFunc
	drain  chan struct{} // closed by shutdown; workers finish the queue and exit

	st       atomic.Uint32 // State
	stopOnce sync.Once
	wg       sync.WaitGroup
	done     chan struct{}

	workers atomic.Int64
	active  atomic.Int64
	seq     atomic.Uint64 // worker name sequence

	submitted atomic.Uint64
	completed atomic.Uint64
	rejected  atomic.Uint64
	discarded atomic.Uint64
}

func newWorkerExecutor(cfg Config, log *zap.Logger) *workerExecutor {
	ctx, cancel := context.WithCancelCause(context.Background())
	e := &workerExecutor{
		cfg:    cfg,
		log:    log,
		tasks:  make(chan Runnable, cfg.QueueCapacity),
		slots:  semaphore.NewWeighted(int64(cfg.MaxWorkers)),
		ctx:    ctx,
		cancel: cancel,
		drain:  make(chan struct{}),
		done:   make(chan struct{}),
	}
	for i := 0; i < cfg.MinWorkers; i++ {
		if e.slots.TryAcquire(1) {
			e.startWorker(nil)
		}
	}
	return e
}

func (e *workerExecutor) execute(r Runnable) error {
	e.submitted.Add(1)
	if State(e.st.Load()) != Running {
		e.rejected.Add(1)
		return poolError(e.cfg.Name, ErrPoolStopped)
	}

	// Fast path: an idle worker is waiting on the channel, or the queue has
	// room.
	select {
	case e.tasks <- r:
		e.ensureWorker()
		return nil
	default:
	}

	// Scale up to MaxWorkers before applying the overflow policy.
	if e.slots.TryAcquire(1) {
		e.startWorker(r)
		return nil
	}

	return e.overflow(r)
}

// ensureWorker guarantees a queued task has at least one live worker to pick
// it up. The spin covers the window where a retiring worker has decremented
// the count but not yet released its slot.
func (e *workerExecutor) ensureWorker() {
	for e.workers.Load() == 0 {
		if e.slots.TryAcquire(1) {
			e.startWorker(nil)
			return
		}
		runtime.Gosched()
	}
}

// overflow applies the configured policy to a task the pool could not accept
// immediately.
func (e *workerExecutor) overflow(r Runnable) error {
	switch e.cfg.Overflow {
	case Block:
		select {
		case e.tasks <- r:
			return nil
		case <-e.drain:
		case <-e.ctx.Done():
		}
		e.rejected.Add(1)
		return poolError(e.cfg.Name, ErrPoolStopped)

	case Reject:
		e.rejected.Add(1)
		return poolError(e.cfg.Name, ErrQueueFull)

	case CallerRuns:
		e.active.Add(1)
		e.runTask("caller", r)
		e.active.Add(-1)
		return nil

	case DiscardOldest:
		if e.cfg.QueueCapacity == 0 {
			// A handoff pool has nothing queued to evict.
			e.discard(r)
			return nil
		}
		for {
			if State(e.st.Load()) != Running {
				e.rejected.Add(1)
				return poolError(e.cfg.Name, ErrPoolStopped)
			}
			select {
			case e.tasks <- r:
				return nil
			default:
			}
			select {
			case oldest := <-e.tasks:
				e.discard(oldest)
			default:
			}
		}

	case Discard:
		e.discard(r)
		return nil
	}
	e.rejected.Add(1)
	return poolError(e.cfg.Name, fmt.Errorf("unknown overflow policy %v", e.cfg.Overflow))
}

// discard drops a task without running its payload. The decorated runnable is
// still invoked, with a pre-canceled context, so its future resolves.
func (e *workerExecutor) discard(r Runnable) {
	e.discarded.Add(1)
	r(discardedCtx)
}

func (e *workerExecutor) startWorker(first Runnable) {
	e.workers.Add(1)
	e.wg.Add(1)
	name := fmt.Sprintf("%s-%d", e.cfg.Name, e.seq.Add(1))
	go e.runWorker(name, first)
}

// runWorker is the main worker loop. Workers beyond MinWorkers retire after
// IdleTimeout without work.
func (e *workerExecutor) runWorker(name string, first Runnable) {
	defer e.wg.Done()
	defer e.slots.Release(1)

	e.log.Debug("worker started",
		zap.String("pool", e.cfg.Name),
		zap.String("worker", name))

	if first != nil {
		e.active.Add(1)
		e.runTask(name, first)
		e.active.Add(-1)
	}

	var idle *time.Timer
	var idleC <-chan time.Time
	if e.cfg.IdleTimeout > 0 {
		idle = time.NewTimer(e.cfg.IdleTimeout)
		defer idle.Stop()
		idleC = idle.C
	}

	for {
		select {
		case r := <-e.tasks:
			e.active.Add(1)
			e.runTask(name, r)
			e.active.Add(-1)
			if idle != nil {
				if !idle.Stop() {
					select {
					case <-idle.C:
					default:
					}
				}
				idle.Reset(e.cfg.IdleTimeout)
			}

		case <-idleC:
			if e.tryRetire() {
				// A submitter that queued a task after seeing this worker
				// alive skipped spawning a replacement; a non-empty queue
				// must never be left without a worker.
				if len(e.tasks) > 0 {
					e.workers.Add(1)
					idle.Reset(e.cfg.IdleTimeout)
					continue
				}
				e.log.Debug("idle worker retired",
					zap.String("pool", e.cfg.Name),
					zap.String("worker", name))
				return
			}
			idle.Reset(e.cfg.IdleTimeout)

		case <-e.drain:
			// Graceful shutdown: run whatever is still queued, then exit.
			for {
				select {
				case r := <-e.tasks:
					e.active.Add(1)
					e.runTask(name, r)
					e.active.Add(-1)
				default:
					e.workers.Add(-1)
					return
				}
			}

		case <-e.ctx.Done():
			// Forced shutdown; the sweep in finish handles leftovers.
			e.workers.Add(-1)
			return
		}
	}
}

// tryRetire decrements the worker count if it is still above MinWorkers. The
// CAS keeps concurrent retirements from dropping the pool below its floor.
func (e *workerExecutor) tryRetire() bool {
	for {
		cur := e.workers.Load()
		if cur <= int64(e.cfg.MinWorkers) {
			return false
		}
		if e.workers.CompareAndSwap(cur, cur-1) {
			return true
		}
	}
}

// runTask executes one task with panic recovery. A panic is logged against
// the worker that hit it and never takes down the pool.
func (e *workerExecutor) runTask(worker string, r Runnable) {
	defer func() {
		if p := recover(); p != nil {
			e.log.Error("task panic recovered",
				zap.String("pool", e.cfg.Name),
				zap.String("worker", worker),
				zap.Any("panic", p),
				zap.Stack("stack"))
		}
	}()
	r(e.ctx)
	e.completed.Add(1)
}

func (e *workerExecutor) shutdown() {
	e.stopOnce.Do(func() {
		e.st.Store(uint32(Stopping))
		close(e.drain)
		go e.finish()
	})
}

func (e *workerExecutor) shutdownNow() {
	e.shutdown()
	e.cancel(ErrPoolStopped)
}

// finish waits for the workers to exit, sweeps anything a racing submitter
// slipped into the queue after they left, and marks the pool stopped.
func (e *workerExecutor) finish() {
	e.wg.Wait()
	for {
		select {
		case r := <-e.tasks:
			if e.ctx.Err() != nil {
				e.discarded.Add(1)
				r(e.ctx)
			} else {
				e.runTask("shutdown", r)
			}
		default:
			e.st.Store(uint32(Stopped))
			close(e.done)
			return
		}
	}
}

func (e *workerExecutor) terminated() <-chan struct{} {
	return e.done
}

func (e *workerExecutor) state() State {
	return State(e.st.Load())
}

// Snapshot implements Monitor.
func (e *workerExecutor) Snapshot() Snapshot {
	return Snapshot{
		Pool:          e.cfg.Name,
		State:         e.state(),
		Workers:       int(e.workers.Load()),
		Active:        int(e.active.Load()),
		QueueDepth:    len(e.tasks),
		QueueCapacity: cap(e.tasks),
		Submitted:     e.submitted.Load(),
		Completed:     e.completed.Load(),
		Rejected:      e.rejected.Load(),
		Discarded:     e.discarded.Load(),
	}
}
