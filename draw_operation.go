package seqplay

import (
	"image"
	"image/color"
)

// DrawOperation is interface to encapsulate the drawing operation
type DrawOperation interface {
	Draw(paintEngine PaintEngine) error
}

type clearOperation struct {
	color color.Color
}

func (o *clearOperation) Draw(paintEngine PaintEngine) error {
	return paintEngine.Clear(o.color)
}

// NewClearDrawOperation creates an operation to fill the surface with c.
func NewClearDrawOperation(c color.Color) DrawOperation {
	return &clearOperation{c}
}

type drawImageOperation struct {
	img     image.Image
	opacity float64
}

func (o *drawImageOperation) Draw(paintEngine PaintEngine) error {
	return paintEngine.DrawImage(o.img, o.opacity)
}

// NewDrawImageOperation creates an operation to draw img with the given opacity.
func NewDrawImageOperation(img image.Image, opacity float64) DrawOperation {
	return &drawImageOperation{
		img:     img,
		opacity: clampOpacity(opacity),
	}
}
