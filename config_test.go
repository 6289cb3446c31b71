package covey

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestOverridesApply(t *testing.T) {
	base := Config{
		Name:          "indexer",
		MinWorkers:    1,
		MaxWorkers:    4,
		QueueCapacity: 16,
		IdleTimeout:   10 * time.Second,
		Overflow:      Block,
	}

	t.Run("EmptyOverridesKeepDefaults", func(t *testing.T) {
		require.Equal(t, base, Overrides{}.apply(base))
	})

	t.Run("SetFieldsWin", func(t *testing.T) {
		max := 8
		idle := Duration(time.Minute)
		policy := CallerRuns
		got := Overrides{MaxWorkers: &max, IdleTimeout: &idle, Overflow: &policy}.apply(base)

		require.Equal(t, 8, got.MaxWorkers)
		require.Equal(t, time.Minute, got.IdleTimeout)
		require.Equal(t, CallerRuns, got.Overflow)
		// Unset fields fall back to the defaults.
		require.Equal(t, 1, got.MinWorkers)
		require.Equal(t, 16, got.QueueCapacity)
	})
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		cfg       Config
		wantField string
	}{
		{"Valid", Config{Name: "p", MinWorkers: 1, MaxWorkers: 2}, ""},
		{"InlineWithMinWorkers", Config{Name: "p", MinWorkers: 5, MaxWorkers: 0}, ""},
		{"EmptyName", Config{}, "Name"},
		{"NegativeMin", Config{Name: "p", MinWorkers: -1}, "MinWorkers"},
		{"NegativeQueue", Config{Name: "p", QueueCapacity: -1}, "QueueCapacity"},
		{"NegativeIdle", Config{Name: "p", IdleTimeout: -time.Second}, "IdleTimeout"},
		{"MinAboveMax", Config{Name: "p", MinWorkers: 3, MaxWorkers: 2}, "MinWorkers"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.validate()
			if tt.wantField == "" {
				require.NoError(t, err)
				return
			}
			var cfgErr *ConfigError
			require.ErrorAs(t, err, &cfgErr)
			require.Equal(t, tt.wantField, cfgErr.Field)
			require.Equal(t, tt.cfg.Name, cfgErr.Pool)
		})
	}
}

func TestParseOverrides(t *testing.T) {
	doc := []byte(`
pools:
  indexer:
    min_workers: 2
    max_workers: 8
    queue_capacity: 256
    idle_timeout: 30s
    overflow: caller_runs
  mailer:
    max_workers: 1
`)
	src, err := ParseOverrides(doc)
	require.NoError(t, err)

	o, ok := src.Overrides("indexer")
	require.True(t, ok)
	require.Equal(t, 2, *o.MinWorkers)
	require.Equal(t, 8, *o.MaxWorkers)
	require.Equal(t, 256, *o.QueueCapacity)
	require.Equal(t, Duration(30*time.Second), *o.IdleTimeout)
	require.Equal(t, CallerRuns, *o.Overflow)

	o, ok = src.Overrides("mailer")
	require.True(t, ok)
	require.Equal(t, 1, *o.MaxWorkers)
	require.Nil(t, o.MinWorkers)

	_, ok = src.Overrides("unknown")
	require.False(t, ok)
}

func TestParseOverridesRejectsUnknownPolicy(t *testing.T) {
	_, err := ParseOverrides([]byte("pools:\n  p:\n    overflow: banana\n"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "banana")
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pools.yaml")
	require.NoError(t, os.WriteFile(path, []byte("pools:\n  p:\n    max_workers: 3\n"), 0o600))

	src, err := LoadFile(path)
	require.NoError(t, err)
	o, ok := src.Overrides("p")
	require.True(t, ok)
	require.Equal(t, 3, *o.MaxWorkers)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.True(t, errors.Is(err, os.ErrNotExist))
}

func TestOverflowStrings(t *testing.T) {
	for _, o := range []Overflow{Block, Reject, CallerRuns, DiscardOldest, Discard} {
		parsed, err := parseOverflow(o.String())
		require.NoError(t, err)
		require.Equal(t, o, parsed)
	}
	_, err := parseOverflow("nope")
	require.Error(t, err)
}
