package palette

import "math/rand/v2"

// Random ranges for generated Triangle schemes, half-open like rand.IntN.
const (
	minRandomStops  = 2
	maxRandomStops  = 5
	minRandomBand   = 3
	maxRandomBand   = 32
	minRandomRepeat = 1
	maxRandomRepeat = 5
)

// RandomRGB draws each channel uniformly from [0,255].
func RandomRGB(rng *rand.Rand) RGB {
	return RGB{uint8(rng.IntN(256)), uint8(rng.IntN(256)), uint8(rng.IntN(256))}
}

func RandomLerp(rng *rand.Rand) Scheme {
	return NewLerp(RandomRGB(rng), RandomRGB(rng))
}

func RandomFlipFlop(rng *rand.Rand) Scheme {
	return NewFlipFlop(RandomRGB(rng), RandomRGB(rng))
}

func RandomTriangle(rng *rand.Rand) Scheme {
	n := minRandomStops + rng.IntN(maxRandomStops-minRandomStops)
	stops := make([]Pair, n)
	for i := range stops {
		stops[i] = Pair{Start: RandomRGB(rng), End: RandomRGB(rng)}
	}
	band := minRandomBand + rng.IntN(maxRandomBand-minRandomBand)
	repeat := minRandomRepeat + rng.IntN(maxRandomRepeat-minRandomRepeat)
	return Scheme{kind: Triangle, stops: stops, band: band, repeat: repeat}
}

// Randomize re-rolls the colors of s and keeps its kind. Grayscale and Hue
// have nothing to roll and come back unchanged.
func Randomize(s Scheme, rng *rand.Rand) Scheme {
	switch s.kind {
	case Lerp:
		return RandomLerp(rng)
	case FlipFlop:
		return RandomFlipFlop(rng)
	case Triangle:
		return RandomTriangle(rng)
	}
	return s
}
