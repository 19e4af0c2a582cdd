package preset_test

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/mandelscope/internal/fractal"
	"github.com/san-kum/mandelscope/internal/palette"
	"github.com/san-kum/mandelscope/internal/preset"
)

// header is the size of magic plus the fixed view fields.
const header = 6 + 3*8 + 4

type rawPreset struct {
	prefix  bool
	julia   []byte // nil for the first revision
	tag     byte
	iter    int32
	payload []byte
}

func (r rawPreset) bytes() []byte {
	var buf bytes.Buffer
	if r.prefix {
		buf.WriteByte(6)
	}
	buf.WriteString("MANDEL")
	iter := r.iter
	if iter == 0 {
		iter = 100
	}
	_ = binary.Write(&buf, binary.LittleEndian, []float64{-0.75, 0.1, 2.5})
	_ = binary.Write(&buf, binary.LittleEndian, iter)
	buf.Write(r.julia)
	buf.WriteByte(r.tag)
	buf.Write(r.payload)
	return buf.Bytes()
}

func triangleBody(count, band, repeat int32, pairs ...byte) []byte {
	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.LittleEndian, []int32{count, band, repeat})
	buf.Write(pairs)
	return buf.Bytes()
}

func expectFormatError(err error) *preset.FormatError {
	GinkgoHelper()
	Expect(err).To(MatchError(fractal.ErrFormat))
	var fe *preset.FormatError
	Expect(errors.As(err, &fe)).To(BeTrue())
	return fe
}

var _ = Describe("Codec", func() {
	tri, _ := palette.NewTriangle([]palette.Pair{
		{Start: palette.Black, End: palette.RGB{R: 255}},
		{Start: palette.RGB{G: 40}, End: palette.RGB{G: 255, B: 90}},
		{Start: palette.White, End: palette.RGB{B: 200}},
	}, 7, 3)

	deep := fractal.View{CenterX: -0.743643887037151, CenterY: 0.13182590420533, Zoom: 17.25, MaxIterations: 4096}
	julia := fractal.View{CenterX: 0.1, CenterY: -0.2, Zoom: 1, MaxIterations: 300, Julia: true, JuliaX: -0.8, JuliaY: 0.156}

	DescribeTable("round trips every scheme",
		func(v fractal.View, s palette.Scheme) {
			data, err := preset.Encode(v, s)
			Expect(err).NotTo(HaveOccurred())

			gotView, gotScheme, err := preset.Decode(data)
			Expect(err).NotTo(HaveOccurred())
			Expect(gotView).To(Equal(v))
			Expect(gotScheme.Equal(s)).To(BeTrue(), "decoded %s, want %s", gotScheme, s)
		},
		Entry("grayscale", fractal.DefaultView(), palette.NewGrayscale()),
		Entry("hue", deep, palette.NewHue()),
		Entry("lerp", deep, palette.NewLerp(palette.RGB{R: 1, G: 2, B: 3}, palette.RGB{R: 250, G: 251, B: 252})),
		Entry("flipflop", fractal.DefaultView(), palette.NewFlipFlop(palette.Black, palette.White)),
		Entry("triangle", deep, tri),
		Entry("rainbow julia", julia, palette.Rainbow()),
		Entry("lerp julia", julia, palette.Default(palette.Lerp)),
	)

	It("writes the magic first without a length byte", func() {
		data, err := preset.Encode(fractal.DefaultView(), palette.NewHue())
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data[:6])).To(Equal("MANDEL"))
		Expect(data).To(HaveLen(header + 2))
	})

	It("lays the fields out little-endian", func() {
		v := fractal.View{CenterX: 1.5, CenterY: -2, Zoom: 3, MaxIterations: 513}
		data, err := preset.Encode(v, palette.NewFlipFlop(palette.RGB{R: 1, G: 2, B: 3}, palette.RGB{R: 4, G: 5, B: 6}))
		Expect(err).NotTo(HaveOccurred())

		Expect(binary.LittleEndian.Uint32(data[30:34])).To(Equal(uint32(513)))
		Expect(data[34]).To(Equal(byte(0)), "julia")
		Expect(data[35]).To(Equal(byte(palette.FlipFlop)))
		Expect(data[36:]).To(Equal([]byte{1, 2, 3, 4, 5, 6}))
	})

	Context("legacy files", func() {
		It("writes and reads the length-prefixed magic", func() {
			data, err := preset.Encode(deep, tri, preset.WithLegacyPrefix())
			Expect(err).NotTo(HaveOccurred())
			Expect(data[0]).To(Equal(byte(6)))
			Expect(string(data[1:7])).To(Equal("MANDEL"))

			v, s, err := preset.Decode(data)
			Expect(err).NotTo(HaveOccurred())
			Expect(v).To(Equal(deep))
			Expect(s.Equal(tri)).To(BeTrue())
		})

		It("reads julia presets that carry no seed", func() {
			data := rawPreset{prefix: true, julia: []byte{1}, tag: byte(palette.Hue)}.bytes()
			v, s, err := preset.Decode(data)
			Expect(err).NotTo(HaveOccurred())
			Expect(v.Julia).To(BeTrue())
			Expect(v.Seed()).To(Equal(complex(0, 0)))
			Expect(s.Kind()).To(Equal(palette.Hue))
		})

		DescribeTable("reads the revision without a julia byte",
			func(tag byte, payload []byte) {
				data := rawPreset{tag: tag, payload: payload}.bytes()
				v, s, err := preset.Decode(data)
				Expect(err).NotTo(HaveOccurred())
				Expect(v.Julia).To(BeFalse())
				Expect(v.CenterX).To(Equal(-0.75))
				Expect(v.MaxIterations).To(Equal(100))
				Expect(s.Kind()).To(Equal(palette.Kind(tag)))
			},
			Entry("hue", byte(1), []byte(nil)),
			Entry("lerp", byte(2), []byte{9, 9, 9, 8, 8, 8}),
			Entry("flipflop", byte(3), []byte{0, 0, 0, 255, 255, 255}),
			Entry("triangle", byte(4), triangleBody(1, 4, 2, 0, 0, 0, 255, 0, 0)),
		)
	})

	Context("malformed input", func() {
		It("rejects corrupted magic", func() {
			data, _ := preset.Encode(fractal.DefaultView(), palette.NewHue())
			data[2] = 'X'
			_, _, err := preset.Decode(data)
			fe := expectFormatError(err)
			Expect(fe.Reason).To(ContainSubstring("magic"))
		})

		It("rejects empty and short input", func() {
			for _, data := range [][]byte{nil, {}, []byte("MAND"), {6}} {
				_, _, err := preset.Decode(data)
				expectFormatError(err)
			}
		})

		It("rejects an unknown scheme id", func() {
			data := rawPreset{julia: []byte{0}, tag: 99}.bytes()
			_, _, err := preset.Decode(data)
			fe := expectFormatError(err)
			Expect(fe.Reason).To(ContainSubstring("99"))
			Expect(fe.Offset).To(Equal(header + 1))
		})

		It("rejects every truncation of a triangle preset", func() {
			data, err := preset.Encode(deep, tri)
			Expect(err).NotTo(HaveOccurred())
			for n := 0; n < len(data); n++ {
				// A header cut right after the julia byte is a complete
				// first-revision grayscale preset.
				if n == header+1 {
					continue
				}
				_, _, err := preset.Decode(data[:n])
				Expect(err).To(MatchError(fractal.ErrFormat), "prefix of %d bytes", n)
			}
		})

		It("rejects trailing garbage", func() {
			data, _ := preset.Encode(deep, palette.Default(palette.Lerp))
			_, _, err := preset.Decode(append(data, 0xff))
			fe := expectFormatError(err)
			Expect(fe.Reason).To(ContainSubstring("trailing"))
		})

		It("rejects a julia byte that is not a bool", func() {
			data := rawPreset{julia: []byte{2}, tag: byte(palette.Hue)}.bytes()
			_, _, err := preset.Decode(data)
			fe := expectFormatError(err)
			Expect(fe.Reason).To(ContainSubstring("bool"))
		})

		DescribeTable("rejects non-finite julia seeds",
			func(x, y float64) {
				data, err := preset.Encode(julia, palette.NewHue())
				Expect(err).NotTo(HaveOccurred())
				seed := len(data) - 16
				binary.LittleEndian.PutUint64(data[seed:], math.Float64bits(x))
				binary.LittleEndian.PutUint64(data[seed+8:], math.Float64bits(y))

				_, _, err = preset.Decode(data)
				fe := expectFormatError(err)
				Expect(fe.Reason).To(ContainSubstring("julia seed"))
				Expect(fe.Offset).To(Equal(seed))
			},
			Entry("NaN real part", math.NaN(), 0.1),
			Entry("infinite imaginary part", 0.1, math.Inf(1)),
			Entry("negative infinity", math.Inf(-1), math.Inf(-1)),
		)

		It("rejects non-positive iteration caps", func() {
			data := rawPreset{julia: []byte{0}, tag: 1, iter: -5}.bytes()
			_, _, err := preset.Decode(data)
			expectFormatError(err)
		})

		DescribeTable("rejects invalid triangle parameters",
			func(body []byte) {
				data := rawPreset{julia: []byte{0}, tag: byte(palette.Triangle), payload: body}.bytes()
				_, _, err := preset.Decode(data)
				expectFormatError(err)
			},
			Entry("no stops", triangleBody(0, 10, 1)),
			Entry("band of one", triangleBody(1, 1, 1, 0, 0, 0, 1, 1, 1)),
			Entry("zero repeat", triangleBody(1, 10, 0, 0, 0, 0, 1, 1, 1)),
			Entry("negative count", triangleBody(-3, 10, 1)),
			Entry("count past the end", triangleBody(1<<30, 10, 1, 0, 0, 0, 1, 1, 1)),
		)
	})

	Context("encoding", func() {
		It("refuses views that cannot be rendered", func() {
			bad := fractal.DefaultView()
			bad.MaxIterations = 0
			_, err := preset.Encode(bad, palette.NewHue())
			Expect(err).To(MatchError(fractal.ErrInvalidParameter))
		})

		It("refuses non-finite seeds", func() {
			bad := julia
			bad.JuliaX = math.NaN()
			_, err := preset.Encode(bad, palette.NewHue())
			Expect(err).To(MatchError(fractal.ErrInvalidParameter))
		})
	})

	Context("streams and files", func() {
		It("round trips through Write and Read", func() {
			var buf bytes.Buffer
			Expect(preset.Write(&buf, julia, tri)).To(Succeed())
			v, s, err := preset.Read(&buf)
			Expect(err).NotTo(HaveOccurred())
			Expect(v).To(Equal(julia))
			Expect(s.Equal(tri)).To(BeTrue())
		})

		It("wraps writer failures as i/o errors", func() {
			err := preset.Write(failingWriter{}, deep, tri)
			Expect(err).To(MatchError(fractal.ErrIO))
		})

		It("saves, loads and lists presets", func() {
			dir := filepath.Join(GinkgoT().TempDir(), "presets")
			Expect(preset.SaveFile(preset.Path(dir, "zeta"), deep, tri)).To(Succeed())
			Expect(preset.SaveFile(preset.Path(dir, "alpha.mandel"), julia, palette.NewHue())).To(Succeed())
			Expect(os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644)).To(Succeed())

			names, err := preset.List(dir)
			Expect(err).NotTo(HaveOccurred())
			Expect(names).To(Equal([]string{"alpha", "zeta"}))

			v, s, err := preset.LoadFile(preset.Path(dir, "zeta"))
			Expect(err).NotTo(HaveOccurred())
			Expect(v).To(Equal(deep))
			Expect(s.Equal(tri)).To(BeTrue())
		})

		It("reports missing files as i/o errors", func() {
			_, _, err := preset.LoadFile(filepath.Join(GinkgoT().TempDir(), "none.mandel"))
			Expect(err).To(MatchError(fractal.ErrIO))
			Expect(err).NotTo(MatchError(fractal.ErrFormat))
		})

		It("lists nothing for a missing directory", func() {
			names, err := preset.List(filepath.Join(GinkgoT().TempDir(), "missing"))
			Expect(err).NotTo(HaveOccurred())
			Expect(names).To(BeEmpty())
		})
	})
})

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }
