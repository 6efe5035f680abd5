package seqplay

import (
	"image"
	"image/color"
)

type nullPaintEngine struct {
}

// NullPaintEngine returns null paint engine
func NullPaintEngine() PaintEngine {
	return nullPaintEngine{}
}

func (nullPaintEngine) Begin() error {
	return nil
}

func (nullPaintEngine) Clear(c color.Color) error {
	return nil
}

func (nullPaintEngine) DrawImage(img image.Image, opacity float64) error {
	return nil
}

func (nullPaintEngine) End() error {
	return nil
}
