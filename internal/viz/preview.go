package viz

import (
	"image"
	"image/color"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const halfBlock = "▀"

func hexOf(c color.Color) lipgloss.Color {
	r, g, b, _ := c.RGBA()
	return lipgloss.Color(hexColor(int(r>>8), int(g>>8), int(b>>8)))
}

// Preview renders img with one terminal cell per two vertical pixels: the
// upper pixel is the foreground of "▀", the lower one the background. An odd
// last row is drawn over black.
func Preview(img image.Image) string {
	b := img.Bounds()
	var sb strings.Builder
	for y := b.Min.Y; y < b.Max.Y; y += 2 {
		for x := b.Min.X; x < b.Max.X; x++ {
			style := lipgloss.NewStyle().Foreground(hexOf(img.At(x, y)))
			if y+1 < b.Max.Y {
				style = style.Background(hexOf(img.At(x, y+1)))
			} else {
				style = style.Background(lipgloss.Color("#000000"))
			}
			sb.WriteString(style.Render(halfBlock))
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
