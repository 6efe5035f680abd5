package seqplay

import (
	"image"

	"github.com/gdamore/tcell/v2"
)

// upperHalfBlock shows the upper pixel of a cell in the foreground color
// and the lower pixel in the background color.
const upperHalfBlock = '▀'

// TerminalPaintEngine paints frames into a terminal screen, two pixels per cell.
type TerminalPaintEngine struct {
	*ImagePaintEngine

	screen tcell.Screen
	cols   int
	rows   int
}

// NewTerminalPaintEngine creates a paint engine drawing into screen, which
// must already be initialised.
func NewTerminalPaintEngine(screen tcell.Screen) *TerminalPaintEngine {
	cols, rows := screen.Size()
	return &TerminalPaintEngine{
		ImagePaintEngine: NewImagePaintEngine(cols, rows*2),
		screen:           screen,
		cols:             cols,
		rows:             rows,
	}
}

func (p *TerminalPaintEngine) Begin() error {
	if cols, rows := p.screen.Size(); cols != p.cols || rows != p.rows {
		p.ImagePaintEngine = NewImagePaintEngine(cols, rows*2)
		p.cols, p.rows = cols, rows
	}
	return p.ImagePaintEngine.Begin()
}

func (p *TerminalPaintEngine) End() error {
	if err := p.ImagePaintEngine.End(); err != nil {
		return err
	}

	p.withCanvas(func(canvas *image.RGBA) {
		for y := 0; y < p.rows; y++ {
			for x := 0; x < p.cols; x++ {
				style := tcell.StyleDefault.
					Foreground(cellColor(canvas, x, 2*y)).
					Background(cellColor(canvas, x, 2*y+1))
				p.screen.SetContent(x, y, upperHalfBlock, nil, style)
			}
		}
	})
	p.screen.Show()
	return nil
}

func cellColor(canvas *image.RGBA, x, y int) tcell.Color {
	c := canvas.RGBAAt(x, y)
	return tcell.NewRGBColor(int32(c.R), int32(c.G), int32(c.B))
}
