// Package export writes rendered images to disk in the formats the CLI and
// the explorer offer.
package export

import (
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/tiff"

	"github.com/san-kum/mandelscope/internal/fractal"
)

type Format string

const (
	PNG  Format = "png"
	BMP  Format = "bmp"
	TIFF Format = "tiff"
)

// Formats lists the supported formats, PNG first.
func Formats() []Format {
	return []Format{PNG, BMP, TIFF}
}

func (f Format) Ext() string {
	return "." + string(f)
}

// ParseFormat accepts a format name with or without a leading dot.
func ParseFormat(name string) (Format, error) {
	n := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(name)), ".")
	switch n {
	case "png", "":
		return PNG, nil
	case "bmp":
		return BMP, nil
	case "tif", "tiff":
		return TIFF, nil
	}
	return "", fmt.Errorf("unknown image format: %s", name)
}

// FormatFromPath picks the format from the file extension. Unknown or
// missing extensions fall back to PNG.
func FormatFromPath(path string) Format {
	f, err := ParseFormat(filepath.Ext(path))
	if err != nil {
		return PNG
	}
	return f
}

// Encode writes img to w in format f.
func Encode(w io.Writer, img image.Image, f Format) error {
	switch f {
	case PNG:
		return png.Encode(w, img)
	case BMP:
		return bmp.Encode(w, img)
	case TIFF:
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate, Predictor: true})
	}
	return fmt.Errorf("unknown image format: %s", f)
}

// Save writes img to path, choosing the format by extension. Filesystem
// failures are wrapped with fractal.ErrIO.
func Save(path string, img image.Image) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("%w: %w", fractal.ErrIO, err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: %w", fractal.ErrIO, err)
	}
	defer func() {
		_ = f.Close()
	}()

	if err := Encode(f, img, FormatFromPath(path)); err != nil {
		return fmt.Errorf("%w: encode %s: %w", fractal.ErrIO, path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: %w", fractal.ErrIO, err)
	}
	return nil
}

// Thumbnail scales img so its longer side is size pixels.
func Thumbnail(img image.Image, size int) *image.RGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if size < 1 || w == 0 || h == 0 {
		return image.NewRGBA(image.Rect(0, 0, 0, 0))
	}
	tw, th := size, size
	if w > h {
		th = max(1, h*size/w)
	} else if h > w {
		tw = max(1, w*size/h)
	}
	dst := image.NewRGBA(image.Rect(0, 0, tw, th))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
	return dst
}

// TimestampedName builds names like render_2006-01-02-150405.png.
func TimestampedName(prefix, ext string, t time.Time) string {
	return fmt.Sprintf("%s_%s%s", prefix, t.Format("2006-01-02-150405"), ext)
}
