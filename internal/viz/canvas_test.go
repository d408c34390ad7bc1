package viz

import (
	"strings"
	"testing"

	"github.com/avasko/laglab/internal/tensor"
)

func TestCanvasPlotsWithinBounds(t *testing.T) {
	c := NewCanvas(10, 10, 1)
	c.Plot(0, 0)
	c.Plot(2, 2)   // outside the viewport, must be dropped
	c.Plot(-5, -5) // ditto

	out := c.String()
	if !strings.ContainsFunc(out, func(r rune) bool { return r > 0x2800 && r <= 0x28FF }) {
		t.Error("center plot left no braille dots")
	}
	if len(strings.Split(strings.TrimRight(out, "\n"), "\n")) != 10 {
		t.Error("canvas height changed")
	}
}

func TestCanvasSegmentDrawsLine(t *testing.T) {
	c := NewCanvas(20, 10, 1)
	c.Segment(-0.9, 0, 0.9, 0)

	lit := 0
	for _, r := range c.String() {
		if r > 0x2800 && r <= 0x28FF {
			lit++
		}
	}
	if lit < 5 {
		t.Errorf("horizontal segment lit only %d cells", lit)
	}
}

func TestPointsShapes(t *testing.T) {
	single := Points(tensor.FromFloats(1.5))
	if len(single) != 1 || single[0] != [2]float64{1.5, 0} {
		t.Errorf("one-leaf points = %v", single)
	}

	pair := Points(tensor.FromFloats(3, 4))
	if len(pair) != 1 || pair[0] != [2]float64{3, 4} {
		t.Errorf("pair points = %v", pair)
	}

	chain := Points(tensor.UpOf(tensor.FromFloats(0, 1), tensor.FromFloats(2, 3)))
	if len(chain) != 2 || chain[1] != [2]float64{2, 3} {
		t.Errorf("chain points = %v", chain)
	}
}
