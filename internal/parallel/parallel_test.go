package parallel

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForEach(t *testing.T) {
	cfg := Config{Enabled: true, NumWorkers: 4, MinChunkSize: 2}

	var counter int64
	seen := make([]bool, 1000)

	err := ForEach(context.Background(), len(seen), func(_ context.Context, i int) error {
		atomic.AddInt64(&counter, 1)
		seen[i] = true
		return nil
	}, cfg)
	require.NoError(t, err)

	assert.Equal(t, int64(len(seen)), counter)
	for i, ok := range seen {
		assert.True(t, ok, "item %d not visited", i)
	}
}

func TestForEach_Sequential(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		n    int
	}{
		{name: "disabled", cfg: Config{Enabled: false, NumWorkers: 8}, n: 100},
		{name: "one worker", cfg: Config{Enabled: true, NumWorkers: 1}, n: 100},
		{name: "below minimum", cfg: Config{Enabled: true, NumWorkers: 8, MinChunkSize: 64}, n: 63},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.cfg.Sequential(tt.n))

			var order []int
			err := ForEach(context.Background(), tt.n, func(_ context.Context, i int) error {
				order = append(order, i)
				return nil
			}, tt.cfg)
			require.NoError(t, err)
			require.Len(t, order, tt.n)
			for i, v := range order {
				assert.Equal(t, i, v)
			}
		})
	}
}

func TestForEach_Error(t *testing.T) {
	boom := errors.New("boom")

	for _, cfg := range []Config{{Enabled: false}, {Enabled: true, NumWorkers: 4, MinChunkSize: 2}} {
		err := ForEach(context.Background(), 100, func(_ context.Context, i int) error {
			if i == 10 {
				return boom
			}
			return nil
		}, cfg)
		assert.ErrorIs(t, err, boom)
	}
}

func TestForEach_Canceled(t *testing.T) {
	for _, cfg := range []Config{{Enabled: false}, {Enabled: true, NumWorkers: 4, MinChunkSize: 2}} {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		var started int64
		err := ForEach(ctx, 100, func(context.Context, int) error {
			atomic.AddInt64(&started, 1)
			return nil
		}, cfg)

		assert.ErrorIs(t, err, context.Canceled)
		assert.Zero(t, atomic.LoadInt64(&started))
	}
}

func TestForEach_CanceledMidway(t *testing.T) {
	cfg := Config{Enabled: true, NumWorkers: 2, MinChunkSize: 2}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var started int64
	err := ForEach(ctx, 10_000, func(_ context.Context, i int) error {
		if atomic.AddInt64(&started, 1) == 5 {
			cancel()
		}
		return nil
	}, cfg)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, atomic.LoadInt64(&started), int64(10_000))
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Positive(t, cfg.NumWorkers)
	assert.Equal(t, cfg.NumWorkers > 1, cfg.Enabled)
}

func BenchmarkForEach(b *testing.B) {
	cfg := DefaultConfig()
	n := 10000

	b.Run("parallel", func(b *testing.B) {
		for range b.N {
			var sum int64
			_ = ForEach(context.Background(), n, func(_ context.Context, i int) error {
				atomic.AddInt64(&sum, int64(i))
				return nil
			}, cfg)
		}
	})

	b.Run("sequential", func(b *testing.B) {
		cfgSeq := cfg
		cfgSeq.Enabled = false
		for range b.N {
			var sum int64
			_ = ForEach(context.Background(), n, func(_ context.Context, i int) error {
				atomic.AddInt64(&sum, int64(i))
				return nil
			}, cfgSeq)
		}
	})
}
