package covey

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func intp(v int) *int { return &v }

func TestRegistryLazySingleton(t *testing.T) {
	r := NewRegistry()
	r.Register("shared", Config{MinWorkers: 1, MaxWorkers: 2, QueueCapacity: 4})
	defer r.Shutdown(context.Background(), time.Second)

	var (
		mu    sync.Mutex
		first *Pool
	)
	var g errgroup.Group
	for i := 0; i < 16; i++ {
		g.Go(func() error {
			p, err := r.Pool("shared")
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			if first == nil {
				first = p
			} else {
				require.Same(t, first, p)
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
	require.NotNil(t, first)
	require.Equal(t, "shared", first.Name())
}

func TestRegistryAppliesOverrides(t *testing.T) {
	src := StaticSource{
		"tuned": {QueueCapacity: intp(3)},
	}
	r := NewRegistry(WithSource(src))
	r.Register("tuned", Config{MinWorkers: 1, MaxWorkers: 2, QueueCapacity: 8})
	r.Register("plain", Config{MinWorkers: 1, MaxWorkers: 2, QueueCapacity: 8})
	defer r.Shutdown(context.Background(), time.Second)

	tuned, err := r.Pool("tuned")
	require.NoError(t, err)
	require.Equal(t, 3, tuned.Monitor().Snapshot().QueueCapacity)

	plain, err := r.Pool("plain")
	require.NoError(t, err)
	require.Equal(t, 8, plain.Monitor().Snapshot().QueueCapacity)
}

func TestRegistryCachesConstructionError(t *testing.T) {
	r := NewRegistry()
	r.Register("broken", Config{MinWorkers: 4, MaxWorkers: 2})

	_, err1 := r.Pool("broken")
	var cfgErr *ConfigError
	require.ErrorAs(t, err1, &cfgErr)

	_, err2 := r.Pool("broken")
	require.Same(t, err1, err2)
}

func TestRegistryUnknownPool(t *testing.T) {
	r := NewRegistry()
	_, err := r.Pool("nobody")
	require.ErrorIs(t, err, ErrNotRegistered)
	require.Contains(t, err.Error(), "nobody")
}

func TestRegistryDuplicateRegisterIgnored(t *testing.T) {
	r := NewRegistry()
	r.Register("dup", Config{MinWorkers: 1, MaxWorkers: 2, QueueCapacity: 3})
	r.Register("dup", Config{MinWorkers: 1, MaxWorkers: 2, QueueCapacity: 9})
	defer r.Shutdown(context.Background(), time.Second)

	p, err := r.Pool("dup")
	require.NoError(t, err)
	require.Equal(t, 3, p.Monitor().Snapshot().QueueCapacity)
}

func TestRegistryDecoratorsApplied(t *testing.T) {
	var mu sync.Mutex
	var log []string

	r := NewRegistry()
	r.Register("decorated", Config{}, newRecorder(&mu, &log, "hit"))
	defer r.Shutdown(context.Background(), time.Second)

	p, err := r.Pool("decorated")
	require.NoError(t, err)
	require.NoError(t, p.Execute(func(ctx context.Context) {}))
	require.Equal(t, []string{"hit"}, log)
}

func TestRegistrySnapshots(t *testing.T) {
	r := NewRegistry()
	r.Register("zeta", Config{MinWorkers: 1, MaxWorkers: 2, QueueCapacity: 4})
	r.Register("alpha", Config{MinWorkers: 1, MaxWorkers: 2, QueueCapacity: 4})
	r.Register("never-built", Config{MinWorkers: 1, MaxWorkers: 2})
	defer r.Shutdown(context.Background(), time.Second)

	_, err := r.Pool("zeta")
	require.NoError(t, err)
	_, err = r.Pool("alpha")
	require.NoError(t, err)

	snaps := r.Snapshots()
	require.Len(t, snaps, 2)
	require.Equal(t, "alpha", snaps[0].Pool)
	require.Equal(t, "zeta", snaps[1].Pool)
}

func TestRegistryShutdownRacingAcquisition(t *testing.T) {
	// A pool built while the registry shuts down is never handed out live and
	// unstopped: the acquisition either gets a pool the registry will stop or
	// fails, and the stray build is stopped either way.
	for round := 0; round < 50; round++ {
		r := NewRegistry()
		r.Register("racy", Config{MinWorkers: 1, MaxWorkers: 2, QueueCapacity: 4})

		var got atomic.Pointer[Pool]
		start := make(chan struct{})
		var g errgroup.Group
		g.Go(func() error {
			<-start
			p, err := r.Pool("racy")
			if err != nil {
				if errors.Is(err, ErrRegistryClosed) || errors.Is(err, ErrPoolStopped) {
					return nil
				}
				return err
			}
			got.Store(p)
			return nil
		})
		g.Go(func() error {
			<-start
			return r.Shutdown(context.Background(), time.Second)
		})

		close(start)
		require.NoError(t, g.Wait())

		if p := got.Load(); p != nil {
			require.Eventually(t, func() bool {
				return p.State() == Stopped
			}, 2*time.Second, time.Millisecond)
		}
	}
}

func TestRegistryShutdown(t *testing.T) {
	r := NewRegistry()
	r.Register("worker", Config{MinWorkers: 1, MaxWorkers: 2, QueueCapacity: 4})

	p, err := r.Pool("worker")
	require.NoError(t, err)
	require.NoError(t, p.Execute(func(ctx context.Context) {}))

	require.NoError(t, r.Shutdown(context.Background(), time.Second))
	require.Equal(t, Stopped, p.State())

	_, err = r.Pool("worker")
	require.ErrorIs(t, err, ErrRegistryClosed)

	// Shutting down again is a no-op.
	require.NoError(t, r.Shutdown(context.Background(), time.Second))
}
