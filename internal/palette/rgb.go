package palette

import (
	"fmt"
	"strconv"
	"strings"
)

// RGB is an opaque 24-bit color.
type RGB struct {
	R, G, B uint8
}

var (
	Black = RGB{}
	White = RGB{255, 255, 255}
)

// RGBA implements color.Color. Alpha is always fully opaque.
func (c RGB) RGBA() (r, g, b, a uint32) {
	r = uint32(c.R)
	r |= r << 8
	g = uint32(c.G)
	g |= g << 8
	b = uint32(c.B)
	b |= b << 8
	return r, g, b, 0xffff
}

func (c RGB) String() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// ParseRGB accepts "#rrggbb" or "rrggbb".
func ParseRGB(s string) (RGB, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) != 6 {
		return RGB{}, fmt.Errorf("invalid color %q: want #rrggbb", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return RGB{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return RGB{uint8(v >> 16), uint8(v >> 8), uint8(v)}, nil
}

// mix returns (1-t)*a + t*b per channel, truncated toward zero.
func mix(a, b RGB, t float64) RGB {
	return RGB{
		R: channel((1-t)*float64(a.R) + t*float64(b.R)),
		G: channel((1-t)*float64(a.G) + t*float64(b.G)),
		B: channel((1-t)*float64(a.B) + t*float64(b.B)),
	}
}

func channel(f float64) uint8 {
	switch {
	case f <= 0:
		return 0
	case f >= 255:
		return 255
	}
	return uint8(f)
}
