// Package preset reads and writes the .mandel binary format: a view plus the
// color scheme used to draw it.
//
// Layout, little-endian:
//
//	magic          6 bytes   "MANDEL"
//	centerX        float64
//	centerY        float64
//	zoom           float64
//	maxIterations  int32
//	julia          1 byte    0 or 1 (absent in the first revision)
//	schemeID       1 byte    palette.Kind
//	payload        Lerp, FlipFlop: two RGB triples
//	               Triangle: int32 count, int32 bandWidth, int32 repeat,
//	               count × (start RGB, end RGB)
//	juliaX, juliaY float64   only when julia is 1, optional on read
//
// Old writers put a length byte (0x06) in front of the magic. Decode accepts
// both forms and Encode writes it only when asked with WithLegacyPrefix.
package preset

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/san-kum/mandelscope/internal/fractal"
	"github.com/san-kum/mandelscope/internal/palette"
)

const (
	Magic        = "MANDEL"
	legacyPrefix = byte(len(Magic))

	// fixed header after the magic: three float64 and an int32
	headerSize = 3*8 + 4
	rgbSize    = 3
)

// FormatError reports why a blob could not be decoded and where.
type FormatError struct {
	Offset int
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("%v: offset %d: %s", fractal.ErrFormat, e.Offset, e.Reason)
}

func (e *FormatError) Unwrap() error {
	return fractal.ErrFormat
}

type options struct {
	legacy bool
}

// Option changes how Encode lays out a blob.
type Option func(*options)

// WithLegacyPrefix writes the 0x06 length byte before the magic, for readers
// that expect it.
func WithLegacyPrefix() Option {
	return func(o *options) { o.legacy = true }
}

// Encode serializes v and s. Invalid inputs are rejected before any bytes
// are produced.
func Encode(v fractal.View, s palette.Scheme, opts ...Option) ([]byte, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if err := v.Validate(); err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if o.legacy {
		buf.WriteByte(legacyPrefix)
	}
	buf.WriteString(Magic)

	w := writer{buf: &buf}
	w.float(v.CenterX)
	w.float(v.CenterY)
	w.float(v.Zoom)
	w.int32(int32(v.MaxIterations))
	w.bool(v.Julia)
	buf.WriteByte(byte(s.Kind()))

	switch s.Kind() {
	case palette.Lerp, palette.FlipFlop:
		a, b := s.Colors()
		w.rgb(a)
		w.rgb(b)
	case palette.Triangle:
		stops := s.Stops()
		w.int32(int32(len(stops)))
		w.int32(int32(s.BandWidth()))
		w.int32(int32(s.Repeat()))
		for _, p := range stops {
			w.rgb(p.Start)
			w.rgb(p.End)
		}
	}

	if v.Julia {
		w.float(v.JuliaX)
		w.float(v.JuliaY)
	}
	return buf.Bytes(), nil
}

// Write encodes v and s to w.
func Write(w io.Writer, v fractal.View, s palette.Scheme, opts ...Option) error {
	data, err := Encode(v, s, opts...)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("%w: write preset: %w", fractal.ErrIO, err)
	}
	return nil
}

// Read decodes a whole preset from r.
func Read(r io.Reader) (fractal.View, palette.Scheme, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return fractal.View{}, palette.Scheme{}, fmt.Errorf("%w: read preset: %w", fractal.ErrIO, err)
	}
	return Decode(data)
}

// Decode parses a blob written by Encode or by an older writer. It never
// panics on malformed input; every failure is a *FormatError.
func Decode(data []byte) (fractal.View, palette.Scheme, error) {
	start := 0
	if len(data) > len(Magic) && data[0] == legacyPrefix && string(data[1:1+len(Magic)]) == Magic {
		start = 1
	}
	if len(data)-start < len(Magic) || string(data[start:start+len(Magic)]) != Magic {
		return fractal.View{}, palette.Scheme{}, &FormatError{Offset: start, Reason: "bad magic"}
	}

	v, s, err := decodeRevision(data, start+len(Magic), true)
	if err == nil {
		return v, s, nil
	}
	// The first revision had no julia byte. Only accept it if that layout
	// accounts for every byte.
	if v1, s1, err1 := decodeRevision(data, start+len(Magic), false); err1 == nil {
		return v1, s1, nil
	}
	return fractal.View{}, palette.Scheme{}, err
}

func decodeRevision(data []byte, off int, hasJulia bool) (fractal.View, palette.Scheme, error) {
	r := reader{data: data, off: off}
	var v fractal.View

	v.CenterX = r.float()
	v.CenterY = r.float()
	v.Zoom = r.float()
	v.MaxIterations = int(r.int32())
	if hasJulia {
		v.Julia = r.bool()
	}
	kind := palette.Kind(r.byte())
	if r.err != nil {
		return v, palette.Scheme{}, r.err
	}

	if v.MaxIterations < 1 {
		return v, palette.Scheme{}, &FormatError{Offset: off + headerSize - 4, Reason: fmt.Sprintf("max iterations %d", v.MaxIterations)}
	}
	for _, f := range []float64{v.CenterX, v.CenterY, v.Zoom} {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return v, palette.Scheme{}, &FormatError{Offset: off, Reason: "non-finite view coordinate"}
		}
	}

	s, err := r.scheme(kind)
	if err != nil {
		return v, palette.Scheme{}, err
	}

	if v.Julia && r.remaining() > 0 {
		seedOff := r.off
		v.JuliaX = r.float()
		v.JuliaY = r.float()
		if r.err != nil {
			return v, palette.Scheme{}, r.err
		}
		for _, f := range []float64{v.JuliaX, v.JuliaY} {
			if math.IsNaN(f) || math.IsInf(f, 0) {
				return v, palette.Scheme{}, &FormatError{Offset: seedOff, Reason: "non-finite julia seed"}
			}
		}
	}
	if r.remaining() != 0 {
		return v, palette.Scheme{}, &FormatError{Offset: r.off, Reason: fmt.Sprintf("%d trailing bytes", r.remaining())}
	}
	return v, s, nil
}

type writer struct {
	buf *bytes.Buffer
	tmp [8]byte
}

func (w *writer) float(f float64) {
	binary.LittleEndian.PutUint64(w.tmp[:], math.Float64bits(f))
	w.buf.Write(w.tmp[:8])
}

func (w *writer) int32(n int32) {
	binary.LittleEndian.PutUint32(w.tmp[:], uint32(n))
	w.buf.Write(w.tmp[:4])
}

func (w *writer) bool(b bool) {
	if b {
		w.buf.WriteByte(1)
	} else {
		w.buf.WriteByte(0)
	}
}

func (w *writer) rgb(c palette.RGB) {
	w.buf.Write([]byte{c.R, c.G, c.B})
}

// reader records the first failure and turns every later read into a no-op,
// so decoding code can check r.err once per section.
type reader struct {
	data []byte
	off  int
	err  error
}

func (r *reader) remaining() int { return len(r.data) - r.off }

func (r *reader) take(n int, what string) []byte {
	if r.err != nil {
		return nil
	}
	if r.remaining() < n {
		r.err = &FormatError{Offset: r.off, Reason: "truncated " + what}
		return nil
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b
}

func (r *reader) float() float64 {
	b := r.take(8, "float64")
	if b == nil {
		return 0
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(b))
}

func (r *reader) int32() int32 {
	b := r.take(4, "int32")
	if b == nil {
		return 0
	}
	return int32(binary.LittleEndian.Uint32(b))
}

func (r *reader) byte() byte {
	b := r.take(1, "byte")
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *reader) bool() bool {
	at := r.off
	switch b := r.byte(); {
	case r.err != nil:
		return false
	case b > 1:
		r.err = &FormatError{Offset: at, Reason: fmt.Sprintf("invalid bool %d", b)}
		return false
	default:
		return b == 1
	}
}

func (r *reader) rgb() palette.RGB {
	b := r.take(rgbSize, "rgb")
	if b == nil {
		return palette.RGB{}
	}
	return palette.RGB{R: b[0], G: b[1], B: b[2]}
}

func (r *reader) scheme(kind palette.Kind) (palette.Scheme, error) {
	at := r.off - 1
	switch kind {
	case palette.Grayscale:
		return palette.NewGrayscale(), nil
	case palette.Hue:
		return palette.NewHue(), nil
	case palette.Lerp, palette.FlipFlop:
		a, b := r.rgb(), r.rgb()
		if r.err != nil {
			return palette.Scheme{}, r.err
		}
		if kind == palette.Lerp {
			return palette.NewLerp(a, b), nil
		}
		return palette.NewFlipFlop(a, b), nil
	case palette.Triangle:
		count := r.int32()
		band := r.int32()
		repeat := r.int32()
		if r.err != nil {
			return palette.Scheme{}, r.err
		}
		if count < 1 || int64(count)*2*rgbSize > int64(r.remaining()) {
			return palette.Scheme{}, &FormatError{Offset: at + 1, Reason: fmt.Sprintf("triangle stop count %d", count)}
		}
		stops := make([]palette.Pair, count)
		for i := range stops {
			stops[i] = palette.Pair{Start: r.rgb(), End: r.rgb()}
		}
		s, err := palette.NewTriangle(stops, int(band), int(repeat))
		if err != nil {
			return palette.Scheme{}, &FormatError{Offset: at + 1, Reason: err.Error()}
		}
		return s, nil
	default:
		return palette.Scheme{}, &FormatError{Offset: at, Reason: fmt.Sprintf("unknown color scheme id %d", uint8(kind))}
	}
}
