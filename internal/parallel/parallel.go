// Package parallel fans independent work items out over a bounded set of
// goroutines.
package parallel

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Config controls parallel execution behavior.
type Config struct {
	Enabled      bool `mapstructure:"enabled"`        // Whether parallel execution is enabled.
	NumWorkers   int  `mapstructure:"workers"`        // Upper bound on concurrently running items.
	MinChunkSize int  `mapstructure:"min_batch_size"` // Fewer items than this run sequentially.
}

// DefaultConfig returns defaults based on CPU count.
func DefaultConfig() Config {
	n := runtime.NumCPU()
	return Config{
		Enabled:      n > 1,
		NumWorkers:   n,
		MinChunkSize: 2,
	}
}

// Sequential reports whether n items would run on the calling goroutine.
func (c Config) Sequential(n int) bool {
	return !c.Enabled || c.NumWorkers < 2 || n < c.MinChunkSize
}

// ForEach calls f(ctx, i) for i in [0, n).
//
// The context is checked before each item starts; once it is done no
// further items start and its error is returned. The first error returned
// by f cancels the remaining items and is returned.
func ForEach(ctx context.Context, n int, f func(ctx context.Context, i int) error, cfg Config) error {
	if cfg.Sequential(n) {
		for i := range n {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := f(ctx, i); err != nil {
				return err
			}
		}
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.NumWorkers)
	for i := range n {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return f(gctx, i)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}
