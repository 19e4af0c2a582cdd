package viz

import (
	"fmt"
	"math"

	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/mandelscope/internal/raster"
)

// HistogramPlot charts how many pixels escaped at each iteration count,
// folded into at most width buckets. Counts are shown as log10(1+n) since a
// handful of low counts usually dominate.
func HistogramPlot(h *raster.Histogram, width, height int) string {
	if h == nil || h.Max() < 0 {
		return Subtle.Render("no escaping pixels")
	}

	n := h.Max() + 1
	if width < 2 {
		width = 2
	}
	buckets := min(width, n)
	series := make([]float64, max(buckets, 2))
	for i := 0; i < n; i++ {
		series[i*buckets/n] += float64(h.Counts[i])
	}
	for i, v := range series {
		series[i] = math.Log10(1 + v)
	}

	caption := fmt.Sprintf("log10 pixels by escape count (0..%d), %.1f%% escaped",
		h.Max(), 100*h.EscapedFraction())
	return asciigraph.Plot(series,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(caption))
}
