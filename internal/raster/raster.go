package raster

import (
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/san-kum/mandelscope/internal/fractal"
	"github.com/san-kum/mandelscope/internal/palette"
)

// Band is the half-open column range [Start, End) owned by one worker.
type Band struct {
	Start, End int
}

func (b Band) Width() int { return b.End - b.Start }

// Bands splits [0, resolution) into workers contiguous column bands of
// resolution/workers columns each. The last band always ends at resolution
// so the integer-division remainder is never dropped.
func Bands(resolution, workers int) []Band {
	if workers < 1 {
		workers = 1
	}
	size := resolution / workers
	bands := make([]Band, workers)
	for i := range bands {
		bands[i] = Band{Start: i * size, End: (i + 1) * size}
	}
	bands[workers-1].End = resolution
	return bands
}

// ClampWorkers bounds a requested worker count to [1, min(NumCPU, resolution)].
func ClampWorkers(n, resolution int) int {
	limit := runtime.NumCPU()
	if resolution < limit {
		limit = resolution
	}
	if n > limit {
		n = limit
	}
	if n < 1 {
		n = 1
	}
	return n
}

// run calls work once per band, each on its own goroutine, and returns after
// every band finished. A panicking worker is turned into an ErrInvariant
// error so one bad band fails the whole call.
func run(bands []Band, work func(idx int, b Band) error) error {
	var g errgroup.Group
	for i, b := range bands {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("%w: band [%d,%d): %v", fractal.ErrInvariant, b.Start, b.End, r)
				}
			}()
			return work(i, b)
		})
	}
	return g.Wait()
}

func validate(v fractal.View, resolution int) error {
	if resolution < 1 {
		return fractal.InvalidParameter("resolution", resolution)
	}
	return v.Validate()
}

// Render draws a resolution×resolution image of v colored by s.
//
// The image is split into column bands, one goroutine each; a worker only
// writes the bytes of its own columns so the buffer needs no locking. The
// result is identical for every worker count. Render returns either the
// complete buffer or an error, never a partial image.
func Render(v fractal.View, s palette.Scheme, resolution, workers int) (*Buffer, error) {
	if err := validate(v, resolution); err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}

	workers = ClampWorkers(workers, resolution)
	start := time.Now()

	buf, err := renderBands(v, s, resolution, Bands(resolution, workers))
	if err != nil {
		logger().Warn("render failed", "resolution", resolution, "workers", workers, "err", err)
		return nil, err
	}

	logger().Debug("render complete",
		"resolution", resolution,
		"workers", workers,
		"scheme", s.Kind().String(),
		"elapsed", time.Since(start))
	return buf, nil
}

func renderBands(v fractal.View, s palette.Scheme, resolution int, bands []Band) (*Buffer, error) {
	buf := NewBuffer(resolution, resolution)
	err := run(bands, func(_ int, b Band) error {
		for x := b.Start; x < b.End; x++ {
			for y := 0; y < resolution; y++ {
				re, im := fractal.ToComplex(float64(x), float64(y), resolution, v)
				n := fractal.Sample(re, im, v)
				buf.set(x, y, s.Color(n, v.MaxIterations))
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return buf, nil
}
