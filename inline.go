package covey

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// inlineExecutor runs every task synchronously on the submitting goroutine.
// Selected when MaxWorkers <= 0. It keeps the same counters and lifecycle as
// a real pool so monitoring and shutdown behave uniformly.
type inlineExecutor struct {
	name string
	log  *zap.Logger

	ctx    context.Context
	cancel context.CancelCauseFunc

	// mu gates admission against the state transition: execute registers
	// in-flight work under the read lock, shutdown flips the state under the
	// write lock, so inflight.Wait never races an Add.
	mu       sync.RWMutex
	st       atomic.Uint32 // State
	inflight sync.WaitGroup
	stopOnce sync.Once
	done     chan struct{}

	submitted atomic.Uint64
	completed atomic.Uint64
	rejected  atomic.Uint64
	active    atomic.Int64
}

func newInlineExecutor(cfg Config, log *zap.Logger) *inlineExecutor {
	ctx, cancel := context.WithCancelCause(context.Background())
	return &inlineExecutor{
		name:   cfg.Name,
		log:    log,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

func (e *inlineExecutor) execute(r Runnable) error {
	e.submitted.Add(1)
	e.mu.RLock()
	if State(e.st.Load()) != Running {
		e.mu.RUnlock()
		e.rejected.Add(1)
		return poolError(e.name, ErrPoolStopped)
	}
	e.inflight.Add(1)
	e.mu.RUnlock()
	e.active.Add(1)
	defer func() {
		e.active.Add(-1)
		e.inflight.Done()
	}()
	defer func() {
		if p := recover(); p != nil {
			e.log.Error("task panic recovered",
				zap.String("pool", e.name),
				zap.Any("panic", p),
				zap.Stack("stack"))
		}
	}()
	r(e.ctx)
	e.completed.Add(1)
	return nil
}

func (e *inlineExecutor) shutdown() {
	e.stopOnce.Do(func() {
		e.mu.Lock()
		e.st.Store(uint32(Stopping))
		e.mu.Unlock()
		go func() {
			e.inflight.Wait()
			e.st.Store(uint32(Stopped))
			close(e.done)
		}()
	})
}

func (e *inlineExecutor) shutdownNow() {
	e.shutdown()
	e.cancel(ErrPoolStopped)
}

func (e *inlineExecutor) terminated() <-chan struct{} {
	return e.done
}

func (e *inlineExecutor) state() State {
	return State(e.st.Load())
}

// Snapshot reports zero capacity and an always-empty queue view; only the
// task counters move.
func (e *inlineExecutor) Snapshot() Snapshot {
	return Snapshot{
		Pool:      e.name,
		State:     e.state(),
		Active:    int(e.active.Load()),
		Submitted: e.submitted.Load(),
		Completed: e.completed.Load(),
		Rejected:  e.rejected.Load(),
	}
}
