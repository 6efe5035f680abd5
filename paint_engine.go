package seqplay

import (
	"image"
	"image/color"
)

// PaintEngine is the interface definition for drawing
//
// A frame is painted between Begin and End. Images are fitted into the
// surface keeping their aspect ratio and centred.
type PaintEngine interface {
	Begin() error
	Clear(c color.Color) error
	DrawImage(img image.Image, opacity float64) error
	End() error
}

// fitRect returns the largest rectangle with the aspect ratio of src that
// fits centred into dst.
func fitRect(src, dst image.Rectangle) image.Rectangle {
	sw, sh := src.Dx(), src.Dy()
	dw, dh := dst.Dx(), dst.Dy()
	if sw <= 0 || sh <= 0 || dw <= 0 || dh <= 0 {
		return image.Rectangle{}
	}

	w, h := dw, dw*sh/sw
	if h > dh {
		w, h = dh*sw/sh, dh
	}
	x := dst.Min.X + (dw-w)/2
	y := dst.Min.Y + (dh-h)/2
	return image.Rect(x, y, x+w, y+h)
}

func clampOpacity(opacity float64) float64 {
	switch {
	case opacity < 0:
		return 0
	case opacity > 1:
		return 1
	default:
		return opacity
	}
}
