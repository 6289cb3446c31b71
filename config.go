package covey

import (
	"fmt"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"
)

// Overflow defines what happens when a pool cannot accept a task immediately:
// for a bounded-queue pool, when the queue is full; for a direct-handoff pool
// (QueueCapacity 0), when every worker is busy and the pool is at MaxWorkers.
type Overflow int

const (
	// Block waits until a queue slot frees up or, on a handoff pool, until a
	// worker becomes available to take the task.
	Block Overflow = iota
	// Reject fails the submission with ErrQueueFull.
	Reject
	// CallerRuns executes the task on the submitting goroutine, providing
	// natural backpressure.
	CallerRuns
	// DiscardOldest evicts the oldest queued task to make room for the new
	// one. The evicted task never runs; its future completes with
	// ErrTaskDiscarded. On a handoff pool there is nothing queued to evict,
	// so DiscardOldest behaves like Discard.
	DiscardOldest
	// Discard silently drops the incoming task. Its future completes with
	// ErrTaskDiscarded.
	Discard
)

var overflowNames = map[Overflow]string{
	Block:         "block",
	Reject:        "reject",
	CallerRuns:    "caller_runs",
	DiscardOldest: "discard_oldest",
	Discard:       "discard",
}

func (o Overflow) String() string {
	if s, ok := overflowNames[o]; ok {
		return s
	}
	return fmt.Sprintf("overflow(%d)", int(o))
}

func parseOverflow(s string) (Overflow, error) {
	for o, name := range overflowNames {
		if s == name {
			return o, nil
		}
	}
	return 0, fmt.Errorf("covey: unknown overflow policy %q", s)
}

// UnmarshalYAML accepts the policy names accepted by parseOverflow.
func (o *Overflow) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := parseOverflow(s)
	if err != nil {
		return err
	}
	*o = parsed
	return nil
}

// Duration wraps time.Duration so override records can use "250ms" notation
// in YAML.
type Duration time.Duration

// UnmarshalYAML parses time.ParseDuration notation.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Config is the resolved configuration for one named pool. It is immutable
// once resolved: a pool is built from it exactly once, and reconfiguration
// requires a fresh pool.
type Config struct {
	// Name identifies the pool. Worker names, errors and log entries derive
	// from it.
	Name string

	// MinWorkers is the number of workers kept alive even when idle.
	MinWorkers int

	// MaxWorkers caps the number of workers. Zero or less selects the inline
	// strategy: every task executes synchronously on the submitting
	// goroutine, with no background workers and no queue.
	MaxWorkers int

	// QueueCapacity is the number of tasks that may wait for a worker. Zero
	// selects direct handoff: no buffering, a submitter waits for a worker to
	// take the task directly.
	QueueCapacity int

	// IdleTimeout is how long a worker beyond MinWorkers may sit idle before
	// it is reclaimed. Zero disables reclamation.
	IdleTimeout time.Duration

	// Overflow governs submissions the pool cannot accept immediately.
	Overflow Overflow
}

// DefaultConfig returns a sensible default configuration for the named pool.
func DefaultConfig(name string) Config {
	gomaxprocs := runtime.GOMAXPROCS(0)
	return Config{
		Name:          name,
		MinWorkers:    1,
		MaxWorkers:    gomaxprocs * 2,
		QueueCapacity: 64,
		IdleTimeout:   10 * time.Second,
		Overflow:      Block,
	}
}

// Overrides is an externally supplied override record for one named pool.
// Any field left nil falls back to the caller-supplied default: resolution is
// a per-field first-non-nil merge, override winning.
type Overrides struct {
	MinWorkers    *int      `yaml:"min_workers"`
	MaxWorkers    *int      `yaml:"max_workers"`
	QueueCapacity *int      `yaml:"queue_capacity"`
	IdleTimeout   *Duration `yaml:"idle_timeout"`
	Overflow      *Overflow `yaml:"overflow"`
}

// apply merges o over base field by field.
func (o Overrides) apply(base Config) Config {
	if o.MinWorkers != nil {
		base.MinWorkers = *o.MinWorkers
	}
	if o.MaxWorkers != nil {
		base.MaxWorkers = *o.MaxWorkers
	}
	if o.QueueCapacity != nil {
		base.QueueCapacity = *o.QueueCapacity
	}
	if o.IdleTimeout != nil {
		base.IdleTimeout = time.Duration(*o.IdleTimeout)
	}
	if o.Overflow != nil {
		base.Overflow = *o.Overflow
	}
	return base
}

// validate checks the resolved configuration and returns a *ConfigError
// naming the pool and the offending field if it is invalid.
func (c Config) validate() error {
	if c.Name == "" {
		return &ConfigError{Pool: c.Name, Field: "Name", Reason: "must not be empty"}
	}
	if c.MinWorkers < 0 {
		return &ConfigError{Pool: c.Name, Field: "MinWorkers", Reason: "must be >= 0"}
	}
	if c.QueueCapacity < 0 {
		return &ConfigError{Pool: c.Name, Field: "QueueCapacity", Reason: "must be >= 0"}
	}
	if c.IdleTimeout < 0 {
		return &ConfigError{Pool: c.Name, Field: "IdleTimeout", Reason: "must be >= 0"}
	}
	if c.MaxWorkers > 0 && c.MinWorkers > c.MaxWorkers {
		return &ConfigError{
			Pool:   c.Name,
			Field:  "MinWorkers",
			Reason: fmt.Sprintf("must be <= MaxWorkers (%d)", c.MaxWorkers),
		}
	}
	return nil
}
