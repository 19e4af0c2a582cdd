package config

import (
	"math"
	"sort"

	"github.com/san-kum/mandelscope/internal/fractal"
)

// Region is a rectangle of the complex plane.
type Region struct {
	Xmin, Xmax float64
	Ymin, Ymax float64
}

// View centers on the region and zooms until its width fills the image.
func (r Region) View(iterations int) fractal.View {
	return fractal.View{
		CenterX:       (r.Xmin + r.Xmax) / 2,
		CenterY:       (r.Ymin + r.Ymax) / 2,
		Zoom:          math.Log(4 / (r.Xmax - r.Xmin)),
		MaxIterations: iterations,
	}
}

func julia(cx, cy, zoom float64, iterations int, jx, jy float64) fractal.View {
	return fractal.View{
		CenterX: cx, CenterY: cy, Zoom: zoom, MaxIterations: iterations,
		Julia: true, JuliaX: jx, JuliaY: jy,
	}
}

// Classic landmarks of the Mandelbrot set.
var (
	SeahorseValley       = Region{Xmin: -0.8, Xmax: -0.7, Ymin: 0.05, Ymax: 0.15}
	ElephantValley       = Region{Xmin: -1.85, Xmax: -1.75, Ymin: -0.10, Ymax: -0.02}
	SpiralMinibrot       = Region{Xmin: -0.7435, Xmax: -0.7420, Ymin: 0.1310, Ymax: 0.1325}
	TripleSpiral         = Region{Xmin: -0.7480, Xmax: -0.7450, Ymin: 0.0950, Ymax: 0.0980}
	ValleyOfTheDragon    = Region{Xmin: -0.7400, Xmax: -0.7350, Ymin: 0.1800, Ymax: 0.1850}
	MinibrotInMiniSpiral = Region{Xmin: -1.7390, Xmax: -1.7375, Ymin: -0.0235, Ymax: -0.0220}
)

var Presets = map[string]fractal.View{
	"welcome":       fractal.DefaultView(),
	"seahorse":      SeahorseValley.View(512),
	"elephant":      ElephantValley.View(512),
	"spiral":        SpiralMinibrot.View(1500),
	"triple-spiral": TripleSpiral.View(1200),
	"dragon":        ValleyOfTheDragon.View(1200),
	"mini-spiral":   MinibrotInMiniSpiral.View(1500),
	"dendrite":      julia(0, 0, 0, 256, 0, 1),
	"douady":        julia(0, 0, 0.2, 300, -0.123, 0.745),
	"san-marco":     julia(0, 0, 0, 256, -0.75, 0),
}

func GetPreset(name string) (fractal.View, bool) {
	v, ok := Presets[name]
	return v, ok
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
