package raster

import (
	"github.com/san-kum/mandelscope/internal/fractal"
)

// Histogram counts how many pixels of a view escaped after each iteration
// count. Counts ends at the largest escape count seen, so it stays short
// for views with a huge iteration cap; bounded pixels are tallied apart.
type Histogram struct {
	Counts  []int
	Bounded int
	Total   int
}

// EscapedFraction is the share of pixels that left the set.
func (h *Histogram) EscapedFraction() float64 {
	if h.Total == 0 {
		return 0
	}
	return float64(h.Total-h.Bounded) / float64(h.Total)
}

// Max returns the largest escape count that occurred, or -1 if none did.
func (h *Histogram) Max() int {
	for i := len(h.Counts) - 1; i >= 0; i-- {
		if h.Counts[i] > 0 {
			return i
		}
	}
	return -1
}

// ComputeHistogram samples the same pixel grid as Render. Each worker fills
// its own local counts, merged after all bands finish.
func ComputeHistogram(v fractal.View, resolution, workers int) (*Histogram, error) {
	if err := validate(v, resolution); err != nil {
		return nil, err
	}

	workers = ClampWorkers(workers, resolution)
	bands := Bands(resolution, workers)
	local := make([]Histogram, len(bands))

	err := run(bands, func(idx int, b Band) error {
		var h Histogram
		for x := b.Start; x < b.End; x++ {
			for y := 0; y < resolution; y++ {
				re, im := fractal.ToComplex(float64(x), float64(y), resolution, v)
				n := fractal.Sample(re, im, v)
				if n.Escaped() {
					h.Counts = grow(h.Counts, int(n)+1)
					h.Counts[n]++
				} else {
					h.Bounded++
				}
				h.Total++
			}
		}
		local[idx] = h
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := &Histogram{}
	for _, h := range local {
		out.Counts = grow(out.Counts, len(h.Counts))
		for i, c := range h.Counts {
			out.Counts[i] += c
		}
		out.Bounded += h.Bounded
		out.Total += h.Total
	}
	return out, nil
}

// grow extends counts with zeros to at least n entries.
func grow(counts []int, n int) []int {
	if n <= len(counts) {
		return counts
	}
	return append(counts, make([]int, n-len(counts))...)
}
