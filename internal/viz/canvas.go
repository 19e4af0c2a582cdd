package viz

import (
	"strings"

	"github.com/san-kum/mandelscope/internal/fractal"
)

// Braille Patterns: 2x4 dots
// 1 4
// 2 5
// 3 6
// 7 8
//
// Unicode offset 0x2800
const brailleBlank = 0x2800

var pixelMap = [4][2]int{
	{0x1, 0x8},
	{0x2, 0x10},
	{0x4, 0x20},
	{0x40, 0x80},
}

type Canvas struct {
	Width, Height int
	Grid          [][]rune
}

func NewCanvas(w, h int) *Canvas {
	c := &Canvas{
		Width:  w,
		Height: h,
		Grid:   make([][]rune, h),
	}
	for i := range c.Grid {
		c.Grid[i] = make([]rune, w)
	}
	c.Clear()
	return c
}

// Set lights the dot at sub-pixel (x, y). The canvas is Width*2 dots wide
// and Height*4 dots tall.
func (c *Canvas) Set(x, y int) {
	row, col, bit, ok := c.locate(x, y)
	if ok {
		c.Grid[row][col] |= bit
	}
}

func (c *Canvas) locate(x, y int) (row, col int, bit rune, ok bool) {
	if x < 0 || y < 0 {
		return 0, 0, 0, false
	}
	col, row = x/2, y/4
	if col >= c.Width || row >= c.Height {
		return 0, 0, 0, false
	}
	return row, col, rune(pixelMap[y%4][x%2]), true
}

func (c *Canvas) Clear() {
	for i := range c.Grid {
		for j := range c.Grid[i] {
			c.Grid[i][j] = brailleBlank
		}
	}
}

func (c *Canvas) String() string {
	var b strings.Builder
	for _, row := range c.Grid {
		b.WriteString(string(row) + "\n")
	}
	return b.String()
}

// Outline plots the points of v that never escape on a cols×rows canvas.
// The view is sampled on a square grid, so rows should be about cols/2 for
// a square result.
func Outline(v fractal.View, cols, rows int) *Canvas {
	c := NewCanvas(cols, rows)
	w, h := cols*2, rows*4
	res := max(w, h)
	// center the dot grid inside the square plane
	ox, oy := float64(res-w)/2, float64(res-h)/2
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			re, im := fractal.ToComplex(float64(x)+ox+0.5, float64(y)+oy+0.5, res, v)
			if !fractal.Sample(re, im, v).Escaped() {
				c.Set(x, y)
			}
		}
	}
	return c
}
