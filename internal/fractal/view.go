package fractal

import (
	"math"
)

const (
	DefaultCenterX       = -0.5
	DefaultCenterY       = 0.0
	DefaultZoom          = 0.0
	DefaultMaxIterations = 256

	// MaxIterationsLimit is the largest cap a preset can carry (int32 on disk).
	MaxIterationsLimit = math.MaxInt32
)

// View is the state a single render reads: where the camera is, how far it
// is zoomed in and which set is drawn.
//
// Zoom is logarithmic; the visible half-width of the plane is 2*exp(-Zoom).
type View struct {
	CenterX       float64 `yaml:"center_x" json:"center_x"`
	CenterY       float64 `yaml:"center_y" json:"center_y"`
	Zoom          float64 `yaml:"zoom" json:"zoom"`
	MaxIterations int     `yaml:"max_iterations" json:"max_iterations"`
	Julia         bool    `yaml:"julia" json:"julia"`
	JuliaX        float64 `yaml:"julia_x" json:"julia_x"`
	JuliaY        float64 `yaml:"julia_y" json:"julia_y"`
}

func DefaultView() View {
	return View{
		CenterX:       DefaultCenterX,
		CenterY:       DefaultCenterY,
		Zoom:          DefaultZoom,
		MaxIterations: DefaultMaxIterations,
	}
}

// Validate reports the first field that would make a render meaningless.
func (v View) Validate() error {
	if v.MaxIterations < 1 || v.MaxIterations > MaxIterationsLimit {
		return InvalidParameter("max_iterations", v.MaxIterations)
	}
	fields := []struct {
		name string
		val  float64
	}{
		{"center_x", v.CenterX},
		{"center_y", v.CenterY},
		{"zoom", v.Zoom},
		{"julia_x", v.JuliaX},
		{"julia_y", v.JuliaY},
	}
	for _, f := range fields {
		if math.IsNaN(f.val) || math.IsInf(f.val, 0) {
			return InvalidParameter(f.name, f.val)
		}
	}
	return nil
}

// Seed returns the Julia constant as a complex number.
func (v View) Seed() complex128 {
	return complex(v.JuliaX, v.JuliaY)
}

// HalfWidth is the distance from the center to the edge of the view.
func (v View) HalfWidth() float64 {
	return 2 * math.Exp(-v.Zoom)
}
