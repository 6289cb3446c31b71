package covey

// State is the lifecycle state of a pool. A pool transitions
// Running → Stopping → Stopped exactly once.
type State uint32

const (
	Running State = iota
	Stopping
	Stopped
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Stopping:
		return "stopping"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Snapshot is a point-in-time, read-only view of a pool's occupancy and
// counters. Counters are read without locks, so values may be slightly
// inconsistent during concurrent operations. Snapshots stay available after
// the pool has stopped.
type Snapshot struct {
	// Pool is the pool's configured name.
	Pool string

	// State is the pool's lifecycle state at snapshot time.
	State State

	// Workers is the number of live worker goroutines. Zero for inline pools.
	Workers int

	// Active is the number of tasks currently executing.
	Active int

	// QueueDepth is the number of tasks waiting for a worker.
	QueueDepth int

	// QueueCapacity is the queue's fixed capacity. Zero for handoff and
	// inline pools.
	QueueCapacity int

	// Submitted counts every submission attempt, accepted or not.
	Submitted uint64

	// Completed counts tasks that ran to completion.
	Completed uint64

	// Rejected counts submissions refused under the Reject policy or because
	// the pool had stopped.
	Rejected uint64

	// Discarded counts tasks dropped by the Discard and DiscardOldest
	// policies and tasks canceled by a forced shutdown before running.
	Discarded uint64
}

// Monitor is a read-only view over a pool's occupancy and counters. It never
// exposes a way to mutate the pool, and it remains valid for the life of the
// pool handle, including after shutdown.
type Monitor interface {
	Snapshot() Snapshot
}
