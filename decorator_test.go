package covey

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// recordingDecorator appends its name to a shared log when the wrapped task
// runs, exposing the runtime visitation order.
type recordingDecorator struct {
	name string
	mu   *sync.Mutex
	log  *[]string
}

func (d *recordingDecorator) Wrap(r Runnable) Runnable {
	return func(ctx context.Context) {
		d.mu.Lock()
		*d.log = append(*d.log, d.name)
		d.mu.Unlock()
		r(ctx)
	}
}

func newRecorder(mu *sync.Mutex, log *[]string, name string) *recordingDecorator {
	return &recordingDecorator{name: name, mu: mu, log: log}
}

func TestCombineOrder(t *testing.T) {
	var mu sync.Mutex
	var log []string

	d1 := newRecorder(&mu, &log, "d1")
	d2 := newRecorder(&mu, &log, "d2")
	d3 := newRecorder(&mu, &log, "d3")

	task := Combine(d1, d2, d3).Wrap(func(ctx context.Context) {
		mu.Lock()
		log = append(log, "task")
		mu.Unlock()
	})
	task(context.Background())

	// First registered wraps outermost, so runtime order follows
	// registration order.
	require.Equal(t, []string{"d1", "d2", "d3", "task"}, log)
}

func TestCombineZeroIsIdentity(t *testing.T) {
	ran := false
	task := Combine().Wrap(func(ctx context.Context) { ran = true })
	task(context.Background())
	require.True(t, ran)
}

func TestCombineSingleUnwrapped(t *testing.T) {
	var mu sync.Mutex
	var log []string
	d := newRecorder(&mu, &log, "d")

	// One decorator composes to itself, with no extra layer.
	require.Same(t, d, Combine(d))
}

func TestCombineAllowsDuplicates(t *testing.T) {
	var mu sync.Mutex
	var log []string
	d := newRecorder(&mu, &log, "d")

	task := Combine(d, d).Wrap(func(ctx context.Context) {})
	task(context.Background())

	require.Equal(t, []string{"d", "d"}, log)
}

func TestWithValue(t *testing.T) {
	type ctxKey struct{}

	var got any
	task := WithValue(ctxKey{}, "tenant-7").Wrap(func(ctx context.Context) {
		got = ctx.Value(ctxKey{})
	})
	task(context.Background())

	require.Equal(t, "tenant-7", got)
}

func TestTimingLogsElapsed(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)

	ran := false
	task := Timing(zap.New(core)).Wrap(func(ctx context.Context) { ran = true })
	task(context.Background())

	require.True(t, ran)
	entries := logs.FilterMessage("task finished").All()
	require.Len(t, entries, 1)
	require.Contains(t, entries[0].ContextMap(), "task_id")
	require.Contains(t, entries[0].ContextMap(), "elapsed")
}
