// Package palette turns escape counts into colors.
//
// A Scheme is one of five variants selected by its Kind. Schemes are
// immutable values; switching modes means replacing the whole Scheme.
package palette

import (
	"fmt"
	"math"
	"strings"

	"github.com/san-kum/mandelscope/internal/fractal"
)

// Kind tags a Scheme variant. The numeric values are the preset wire ids.
type Kind uint8

const (
	Grayscale Kind = iota
	Hue
	Lerp
	FlipFlop
	Triangle
)

var kindNames = [...]string{
	Grayscale: "grayscale",
	Hue:       "hue",
	Lerp:      "lerp",
	FlipFlop:  "flipflop",
	Triangle:  "triangle",
}

func (k Kind) String() string {
	if k.Valid() {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

func (k Kind) Valid() bool {
	return k <= Triangle
}

// Kinds lists every variant in wire-id order.
func Kinds() []Kind {
	return []Kind{Grayscale, Hue, Lerp, FlipFlop, Triangle}
}

func ParseKind(name string) (Kind, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	n = strings.ReplaceAll(n, "-", "")
	n = strings.ReplaceAll(n, "_", "")
	for k, kn := range kindNames {
		if kn == n {
			return Kind(k), nil
		}
	}
	return 0, fmt.Errorf("unknown color scheme: %s", name)
}

// Pair is one Triangle stop: the ramp from Start to End.
type Pair struct {
	Start, End RGB
}

// Scheme maps iteration counts to colors. The zero value is Grayscale.
type Scheme struct {
	kind   Kind
	a, b   RGB // Lerp start/end, FlipFlop even/odd
	stops  []Pair
	band   int
	repeat int
}

func NewGrayscale() Scheme { return Scheme{kind: Grayscale} }

func NewHue() Scheme { return Scheme{kind: Hue} }

func NewLerp(start, end RGB) Scheme {
	return Scheme{kind: Lerp, a: start, b: end}
}

func NewFlipFlop(even, odd RGB) Scheme {
	return Scheme{kind: FlipFlop, a: even, b: odd}
}

// NewTriangle builds a banded scheme. Each stop is ramped over bandWidth
// consecutive counts, repeat times, before moving to the next stop.
func NewTriangle(stops []Pair, bandWidth, repeat int) (Scheme, error) {
	if len(stops) == 0 || len(stops) > math.MaxInt32 {
		return Scheme{}, fractal.InvalidParameter("triangle.stops", len(stops))
	}
	if bandWidth < 2 || bandWidth > math.MaxInt32 {
		return Scheme{}, fractal.InvalidParameter("triangle.band_width", bandWidth)
	}
	if repeat < 1 || repeat > math.MaxInt32 {
		return Scheme{}, fractal.InvalidParameter("triangle.repeat", repeat)
	}
	cp := make([]Pair, len(stops))
	copy(cp, stops)
	return Scheme{kind: Triangle, stops: cp, band: bandWidth, repeat: repeat}, nil
}

func (s Scheme) Kind() Kind { return s.kind }

// Colors returns the two fixed colors of a Lerp or FlipFlop scheme.
func (s Scheme) Colors() (RGB, RGB) { return s.a, s.b }

// Stops returns a copy of the Triangle stops.
func (s Scheme) Stops() []Pair {
	cp := make([]Pair, len(s.stops))
	copy(cp, s.stops)
	return cp
}

func (s Scheme) BandWidth() int { return s.band }

func (s Scheme) Repeat() int { return s.repeat }

// Validate catches schemes that were not built through a constructor.
func (s Scheme) Validate() error {
	if !s.kind.Valid() {
		return fractal.InvalidParameter("scheme.kind", uint8(s.kind))
	}
	if s.kind == Triangle {
		_, err := NewTriangle(s.stops, s.band, s.repeat)
		return err
	}
	return nil
}

// Equal compares kind and every parameter the kind uses.
func (s Scheme) Equal(o Scheme) bool {
	if s.kind != o.kind {
		return false
	}
	switch s.kind {
	case Lerp, FlipFlop:
		return s.a == o.a && s.b == o.b
	case Triangle:
		if s.band != o.band || s.repeat != o.repeat || len(s.stops) != len(o.stops) {
			return false
		}
		for i := range s.stops {
			if s.stops[i] != o.stops[i] {
				return false
			}
		}
	}
	return true
}

func (s Scheme) String() string {
	switch s.kind {
	case Lerp, FlipFlop:
		return fmt.Sprintf("%s(%s, %s)", s.kind, s.a, s.b)
	case Triangle:
		return fmt.Sprintf("%s(%d stops, band %d, repeat %d)", s.kind, len(s.stops), s.band, s.repeat)
	}
	return s.kind.String()
}

// Color maps an escape count to a color. Bounded points are black for every
// variant. n is expected in [0, maxIterations).
func (s Scheme) Color(n fractal.Iterations, maxIterations int) RGB {
	if !n.Escaped() {
		return Black
	}
	if maxIterations < 1 {
		maxIterations = 1
	}
	it := int(n)

	switch s.kind {
	case Grayscale:
		v := channel(float64(it) / (float64(maxIterations) / 255.0))
		return RGB{v, v, v}
	case Hue:
		return hue(float64(it) / float64(maxIterations))
	case Lerp:
		return mix(s.a, s.b, float64(it)/float64(maxIterations))
	case FlipFlop:
		if it%2 == 0 {
			return s.a
		}
		return s.b
	case Triangle:
		idx := int(int64(it) / (int64(s.repeat) * int64(s.band)) % int64(len(s.stops)))
		level := it % s.band
		t := float64(level) / (float64(s.band) - 1)
		return mix(s.stops[idx].Start, s.stops[idx].End, t)
	}
	panic(fmt.Errorf("%w: unknown color scheme %s", fractal.ErrInvariant, s.kind))
}

// hue walks the six segments red→yellow→green→cyan→blue→magenta→red. Each
// segment is 1/6 wide and ramps one channel across 255 (1530 = 6*255).
func hue(h float64) RGB {
	const (
		s1 = 1.0 / 6
		s2 = 2.0 / 6
		s3 = 3.0 / 6
		s4 = 4.0 / 6
		s5 = 5.0 / 6
	)
	switch {
	case h >= 0 && h < s1:
		return RGB{255, ramp(h), 0}
	case h >= s1 && h < s2:
		return RGB{255 - ramp(h-s1), 255, 0}
	case h >= s2 && h < s3:
		return RGB{0, 255, ramp(h - s2)}
	case h >= s3 && h < s4:
		return RGB{0, 255 - ramp(h-s3), 255}
	case h >= s4 && h < s5:
		return RGB{ramp(h - s4), 0, 255}
	case h >= s5 && h <= 1:
		return RGB{255, 0, 255 - ramp(h-s5)}
	}
	panic(fmt.Errorf("%w: hue %v outside [0,1]", fractal.ErrInvariant, h))
}

// ramp scales an offset within one hue segment to [0,255].
func ramp(d float64) uint8 {
	return channel(d * 1530)
}
