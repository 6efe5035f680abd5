package seqplay

import (
	"encoding/binary"
	"image"
	"image/color"
)

// Pixmap contains a collection of pixels in a device pixel format
type Pixmap struct {
	Data        []byte
	Width       int
	Height      int
	BytePerLine int
	PixFormat   PixelFormat
}

// NewPixmap converts img into a Pixmap of the given format.
// RGB32 pixels are stored as little-endian 0xffRRGGBB, RGB16 as little-endian 5-6-5.
func NewPixmap(img image.Image, pixFormat PixelFormat) *Pixmap {
	bounds := img.Bounds()
	pixSize := GetPixelSize(pixFormat)
	pixmap := &Pixmap{
		Width:       bounds.Dx(),
		Height:      bounds.Dy(),
		BytePerLine: bounds.Dx() * pixSize,
		PixFormat:   pixFormat,
	}
	pixmap.Data = make([]byte, pixmap.BytePerLine*pixmap.Height)
	pixmap.Fill(img)
	return pixmap
}

// Fill overwrites the pixmap with img, which must have the same size.
func (pixmap *Pixmap) Fill(img image.Image) {
	bounds := img.Bounds()
	pixSize := GetPixelSize(pixmap.PixFormat)

	rgba, isRGBA := img.(*image.RGBA)
	for y := 0; y < pixmap.Height && y < bounds.Dy(); y++ {
		row := pixmap.Data[y*pixmap.BytePerLine:]
		for x := 0; x < pixmap.Width && x < bounds.Dx(); x++ {
			var r, g, b uint8
			if isRGBA {
				offset := rgba.PixOffset(bounds.Min.X+x, bounds.Min.Y+y)
				r, g, b = rgba.Pix[offset], rgba.Pix[offset+1], rgba.Pix[offset+2]
			} else {
				c := color.RGBAModel.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.RGBA)
				r, g, b = c.R, c.G, c.B
			}
			putPixel(row[x*pixSize:], pixmap.PixFormat, r, g, b)
		}
	}
}

func putPixel(dst []byte, pixFormat PixelFormat, r, g, b uint8) {
	switch pixFormat {
	case RGB16:
		v := uint16(r>>3)<<11 | uint16(g>>2)<<5 | uint16(b>>3)
		binary.LittleEndian.PutUint16(dst, v)
	default:
		v := uint32(0xFF)<<24 | uint32(r)<<16 | uint32(g)<<8 | uint32(b)
		binary.LittleEndian.PutUint32(dst, v)
	}
}
