package viz

import "strings"

// Braille cells pack 2x4 subpixels:
//
//	1 4
//	2 5
//	3 6
//	7 8
//
// offset from 0x2800.
var brailleDots = [4][2]rune{
	{0x1, 0x8},
	{0x2, 0x10},
	{0x4, 0x20},
	{0x40, 0x80},
}

// Canvas is a braille subpixel grid with a square world viewport mapped
// onto it: world (0,0) is the canvas center, +y up.
type Canvas struct {
	width, height int
	extent        float64
	grid          [][]rune
}

// NewCanvas builds a w x h cell canvas covering world coordinates
// [-extent, extent] on the longer axis.
func NewCanvas(w, h int, extent float64) *Canvas {
	c := &Canvas{width: w, height: h, extent: extent}
	c.grid = make([][]rune, h)
	for i := range c.grid {
		c.grid[i] = make([]rune, w)
	}
	c.Clear()
	return c
}

func (c *Canvas) Clear() {
	for i := range c.grid {
		for j := range c.grid[i] {
			c.grid[i][j] = 0x2800
		}
	}
}

// Resize adjusts the cell grid, dropping current content.
func (c *Canvas) Resize(w, h int) {
	if w == c.width && h == c.height {
		return
	}
	c.width, c.height = w, h
	c.grid = make([][]rune, h)
	for i := range c.grid {
		c.grid[i] = make([]rune, w)
	}
	c.Clear()
}

// subpixel maps world coordinates to the 2w x 4h subpixel grid.
func (c *Canvas) subpixel(x, y float64) (int, int) {
	sw := float64(c.width * 2)
	sh := float64(c.height * 4)
	// keep the aspect ratio square-ish: terminal cells are roughly twice
	// as tall as wide, and braille cells are 2x4, which cancels out
	scale := sh / (2 * c.extent)
	if sw/(2*c.extent) < scale {
		scale = sw / (2 * c.extent)
	}
	px := int(sw/2 + x*scale)
	py := int(sh/2 - y*scale)
	return px, py
}

// Plot sets the subpixel nearest to the world point (x, y).
func (c *Canvas) Plot(x, y float64) {
	c.set(c.subpixel(x, y))
}

// Dot draws a small filled disc, for bobs.
func (c *Canvas) Dot(x, y float64) {
	px, py := c.subpixel(x, y)
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			c.set(px+dx, py+dy)
		}
	}
}

// Segment draws a world-space line, for rods.
func (c *Canvas) Segment(x0, y0, x1, y1 float64) {
	px0, py0 := c.subpixel(x0, y0)
	px1, py1 := c.subpixel(x1, y1)
	c.line(px0, py0, px1, py1)
}

func (c *Canvas) set(x, y int) {
	if x < 0 || y < 0 {
		return
	}
	col, row := x/2, y/4
	if col >= c.width || row >= c.height {
		return
	}
	c.grid[row][col] |= brailleDots[y%4][x%2]
}

func (c *Canvas) line(x0, y0, x1, y1 int) {
	dx, dy := abs(x1-x0), -abs(y1-y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy
	for {
		c.set(x0, y0)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func (c *Canvas) String() string {
	var b strings.Builder
	b.Grow((c.width + 1) * c.height)
	for _, row := range c.grid {
		b.WriteString(string(row))
		b.WriteByte('\n')
	}
	return b.String()
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
