package palette

import (
	"fmt"
	"sort"
)

var rainbowStops = []Pair{
	{Black, RGB{255, 0, 0}},
	{Black, RGB{255, 128, 0}},
	{Black, RGB{255, 255, 0}},
	{Black, RGB{128, 255, 0}},
	{Black, RGB{0, 255, 0}},
	{Black, RGB{0, 255, 128}},
	{Black, RGB{0, 255, 255}},
	{Black, RGB{0, 128, 255}},
	{Black, RGB{0, 0, 255}},
	{Black, RGB{128, 0, 255}},
	{Black, RGB{255, 0, 255}},
	{Black, RGB{255, 0, 128}},
}

// Rainbow ramps black into twelve hues, ten counts per band.
func Rainbow() Scheme {
	s, _ := NewTriangle(rainbowStops, 10, 1)
	return s
}

// Default returns the scheme a kind starts with when the user switches to it.
func Default(k Kind) Scheme {
	switch k {
	case Hue:
		return NewHue()
	case Lerp:
		return NewLerp(RGB{0, 7, 100}, RGB{255, 170, 0})
	case FlipFlop:
		return NewFlipFlop(Black, White)
	case Triangle:
		return Rainbow()
	}
	return NewGrayscale()
}

// Next cycles to the default scheme of the following kind.
func Next(s Scheme) Scheme {
	return Default((s.kind + 1) % (Triangle + 1))
}

var named = map[string]func() Scheme{
	"grayscale": NewGrayscale,
	"hue":       NewHue,
	"lerp":      func() Scheme { return Default(Lerp) },
	"flipflop":  func() Scheme { return Default(FlipFlop) },
	"triangle":  func() Scheme { return Default(Triangle) },
	"rainbow":   Rainbow,
	"sunset":    func() Scheme { return NewLerp(RGB{20, 0, 40}, RGB{255, 120, 40}) },
	"ice":       func() Scheme { return NewLerp(Black, RGB{160, 220, 255}) },
	"zebra":     func() Scheme { return NewFlipFlop(White, Black) },
}

func ByName(name string) (Scheme, error) {
	fn, ok := named[name]
	if !ok {
		if k, err := ParseKind(name); err == nil {
			return Default(k), nil
		}
		return Scheme{}, fmt.Errorf("unknown color scheme: %s", name)
	}
	return fn(), nil
}

func Names() []string {
	names := make([]string, 0, len(named))
	for name := range named {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
