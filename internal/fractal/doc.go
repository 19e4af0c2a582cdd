// Package fractal provides the escape-time primitives shared by every
// renderer in mandelscope.
//
// The package defines:
//
//   - [View]: the pan/zoom/iteration state of a render
//   - [Iterate]: the quadratic escape-time recurrence z ← z² + c
//   - [ToComplex] and [ToPixel]: the pixel ↔ complex-plane transform
//
// # Example
//
//	v := fractal.DefaultView()
//	re, im := fractal.ToComplex(400, 400, 800, v)
//	n := fractal.Sample(re, im, v)
//	if n.Escaped() {
//		fmt.Println("escaped after", int(n))
//	}
//
// # Thread Safety
//
// Everything here is a pure function of its arguments. [View] is a value
// type; copy it before handing it to concurrent workers.
package fractal
