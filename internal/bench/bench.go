// Package bench times the rasterizer over a grid of resolutions and worker
// counts.
package bench

import (
	"context"
	"fmt"
	"time"

	"github.com/san-kum/mandelscope/internal/fractal"
	"github.com/san-kum/mandelscope/internal/palette"
	"github.com/san-kum/mandelscope/internal/raster"
)

type Config struct {
	View        fractal.View
	Scheme      palette.Scheme
	Resolutions []int
	Workers     []int
	// Runs per grid point; the fastest run is reported.
	Runs int
}

type Result struct {
	Resolution int
	Workers    int
	Elapsed    time.Duration
	// Speedup is relative to the single-worker run at the same resolution,
	// or zero when the grid has no such run.
	Speedup float64
}

// PixelsPerSecond is the throughput of the run.
func (r Result) PixelsPerSecond() float64 {
	if r.Elapsed <= 0 {
		return 0
	}
	return float64(r.Resolution*r.Resolution) / r.Elapsed.Seconds()
}

type Sweep struct {
	cfg    Config
	render func(fractal.View, palette.Scheme, int, int) (*raster.Buffer, error)
	clamp  func(workers, resolution int) int
}

func New(cfg Config) *Sweep {
	if cfg.Runs < 1 {
		cfg.Runs = 1
	}
	return &Sweep{cfg: cfg, render: raster.Render, clamp: raster.ClampWorkers}
}

// Run renders every resolution with every worker count, in grid order. It
// stops early when ctx is cancelled. Worker counts are reported as the
// renderer clamps them; a count that clamps onto one already timed at the
// same resolution is skipped.
func (s *Sweep) Run(ctx context.Context) ([]Result, error) {
	if len(s.cfg.Resolutions) == 0 || len(s.cfg.Workers) == 0 {
		return nil, fmt.Errorf("bench: %w", fractal.InvalidParameter("grid", "empty"))
	}

	results := make([]Result, 0, len(s.cfg.Resolutions)*len(s.cfg.Workers))
	for _, res := range s.cfg.Resolutions {
		var single time.Duration
		seen := make(map[int]bool)
		for _, requested := range s.cfg.Workers {
			if err := ctx.Err(); err != nil {
				return results, err
			}
			w := s.clamp(requested, res)
			if seen[w] {
				continue
			}
			seen[w] = true

			best, err := s.time(res, w)
			if err != nil {
				return results, fmt.Errorf("bench res=%d workers=%d: %w", res, w, err)
			}
			if w == 1 {
				single = best
			}
			results = append(results, Result{Resolution: res, Workers: w, Elapsed: best})
		}

		if single > 0 {
			for i := range results {
				if results[i].Resolution == res && results[i].Elapsed > 0 {
					results[i].Speedup = single.Seconds() / results[i].Elapsed.Seconds()
				}
			}
		}
	}
	return results, nil
}

func (s *Sweep) time(res, workers int) (time.Duration, error) {
	var best time.Duration
	for i := 0; i < s.cfg.Runs; i++ {
		start := time.Now()
		if _, err := s.render(s.cfg.View, s.cfg.Scheme, res, workers); err != nil {
			return 0, err
		}
		if d := time.Since(start); i == 0 || d < best {
			best = d
		}
	}
	return best, nil
}

// Best returns the fastest worker count for each resolution.
func Best(results []Result) map[int]Result {
	best := make(map[int]Result)
	for _, r := range results {
		if cur, ok := best[r.Resolution]; !ok || r.Elapsed < cur.Elapsed {
			best[r.Resolution] = r
		}
	}
	return best
}

// WorkerCounts returns 1, 2, 4, ... up to and including max.
func WorkerCounts(max int) []int {
	if max < 1 {
		max = 1
	}
	var counts []int
	for n := 1; n < max; n *= 2 {
		counts = append(counts, n)
	}
	return append(counts, max)
}
