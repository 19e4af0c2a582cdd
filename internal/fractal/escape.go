package fractal

// Iterations is the outcome of one escape-time run: the number of steps taken
// before |z| left the radius-2 disc, or Bounded.
type Iterations int

// Bounded marks a point that did not escape within the iteration cap.
const Bounded Iterations = -1

func (n Iterations) Escaped() bool {
	return n >= 0
}

// Iterate runs z ← z² + c starting at z0 and counts the steps until
// re²+im² exceeds 4. If the counter reaches maxIterations first the point is
// Bounded, so an escaped count is always below maxIterations. A cap below 1
// is treated as 1.
func Iterate(z0, c complex128, maxIterations int) Iterations {
	if maxIterations < 1 {
		maxIterations = 1
	}

	zr, zi := real(z0), imag(z0)
	cr, ci := real(c), imag(c)

	n := 0
	for zr*zr+zi*zi <= 4 {
		zr, zi = zr*zr-zi*zi+cr, 2*zr*zi+ci
		n++
		if n == maxIterations {
			return Bounded
		}
	}
	return Iterations(n)
}

// Sample iterates the plane point (re, im) the way v asks for: as c with
// z0 = 0 for the Mandelbrot set, or as z0 with c = seed for a Julia set.
func Sample(re, im float64, v View) Iterations {
	if v.Julia {
		return Iterate(complex(re, im), v.Seed(), v.MaxIterations)
	}
	return Iterate(0, complex(re, im), v.MaxIterations)
}
