package raster

import (
	"image"
	"image/color"

	"github.com/san-kum/mandelscope/internal/palette"
)

// Buffer is a packed 24-bit RGB image, row-major, three bytes per pixel in
// R, G, B order.
type Buffer struct {
	Width  int
	Height int
	Pix    []byte
}

func NewBuffer(width, height int) *Buffer {
	return &Buffer{
		Width:  width,
		Height: height,
		Pix:    make([]byte, width*height*3),
	}
}

// Stride is the number of bytes between vertically adjacent pixels.
func (b *Buffer) Stride() int {
	return 3 * b.Width
}

func (b *Buffer) offset(x, y int) int {
	return y*b.Stride() + 3*x
}

func (b *Buffer) set(x, y int, c palette.RGB) {
	i := b.offset(x, y)
	b.Pix[i] = c.R
	b.Pix[i+1] = c.G
	b.Pix[i+2] = c.B
}

func (b *Buffer) RGBAt(x, y int) palette.RGB {
	if x < 0 || y < 0 || x >= b.Width || y >= b.Height {
		return palette.Black
	}
	i := b.offset(x, y)
	return palette.RGB{R: b.Pix[i], G: b.Pix[i+1], B: b.Pix[i+2]}
}

// ColorModel, Bounds and At make Buffer an image.Image, so it can be handed
// straight to an encoder.
func (b *Buffer) ColorModel() color.Model { return color.RGBAModel }

func (b *Buffer) Bounds() image.Rectangle { return image.Rect(0, 0, b.Width, b.Height) }

func (b *Buffer) At(x, y int) color.Color { return b.RGBAt(x, y) }

// RGBA copies the buffer into an image.RGBA with full opacity.
func (b *Buffer) RGBA() *image.RGBA {
	img := image.NewRGBA(b.Bounds())
	for y := 0; y < b.Height; y++ {
		src := b.Pix[y*b.Stride() : (y+1)*b.Stride()]
		dst := img.Pix[y*img.Stride : y*img.Stride+4*b.Width]
		for x := 0; x < b.Width; x++ {
			dst[4*x] = src[3*x]
			dst[4*x+1] = src[3*x+1]
			dst[4*x+2] = src[3*x+2]
			dst[4*x+3] = 0xff
		}
	}
	return img
}
