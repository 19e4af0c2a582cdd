package fractal

import "math"

// The unzoomed view is the square [-2,2]×[-2,2]: pixel 0 maps to -2 and
// pixel resolution maps to +2 on both axes.
const (
	planeSpan   = 4.0
	planeOffset = 2.0
)

// ToComplex maps a pixel of a resolution×resolution image to the plane.
// Pixel coordinates are floats so callers can address sub-pixel positions.
func ToComplex(px, py float64, resolution int, v View) (re, im float64) {
	scale := math.Exp(-v.Zoom)
	res := float64(resolution)
	re = scale*(planeSpan*px/res-planeOffset) + v.CenterX
	im = scale*(planeSpan*py/res-planeOffset) + v.CenterY
	return re, im
}

// ToPixel is the inverse of ToComplex.
func ToPixel(re, im float64, resolution int, v View) (px, py float64) {
	inv := math.Exp(v.Zoom)
	res := float64(resolution)
	px = ((re-v.CenterX)*inv + planeOffset) * res / planeSpan
	py = ((im-v.CenterY)*inv + planeOffset) * res / planeSpan
	return px, py
}

// Recentered returns v moved so the pixel (px, py) becomes the new center.
func (v View) Recentered(px, py float64, resolution int) View {
	v.CenterX, v.CenterY = ToComplex(px, py, resolution, v)
	return v
}

// Panned returns v shifted by a fraction of its half-width on each axis.
func (v View) Panned(fx, fy float64) View {
	hw := v.HalfWidth()
	v.CenterX += fx * hw
	v.CenterY += fy * hw
	return v
}
