package seqplay

import (
	"errors"
	"image"
	"image/color"
	"image/draw"
	"sync"

	xdraw "golang.org/x/image/draw"
)

// ImagePaintEngine paints into an in-memory RGBA raster.
// It is the headless surface and the compositor behind the device engines.
type ImagePaintEngine struct {
	mutex    sync.Mutex
	canvas   *image.RGBA
	scaler   xdraw.Scaler
	isActive bool
	painted  int
}

// NewImagePaintEngine creates an ImagePaintEngine of the given size.
func NewImagePaintEngine(width int, height int) *ImagePaintEngine {
	return &ImagePaintEngine{
		canvas: image.NewRGBA(image.Rect(0, 0, width, height)),
		scaler: xdraw.ApproxBiLinear,
	}
}

// SetScaler replaces the interpolator used to fit frames (ApproxBiLinear by default).
func (p *ImagePaintEngine) SetScaler(scaler xdraw.Scaler) {
	p.mutex.Lock()
	p.scaler = scaler
	p.mutex.Unlock()
}

// Bounds returns the surface rectangle.
func (p *ImagePaintEngine) Bounds() image.Rectangle {
	return p.canvas.Bounds()
}

func (p *ImagePaintEngine) Begin() error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if p.isActive {
		return errors.New("ImagePaintEngine is already active")
	}
	p.isActive = true
	return nil
}

func (p *ImagePaintEngine) Clear(c color.Color) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if !p.isActive {
		return errors.New("ImagePaintEngine is not active")
	}
	draw.Draw(p.canvas, p.canvas.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	return nil
}

func (p *ImagePaintEngine) DrawImage(img image.Image, opacity float64) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if !p.isActive {
		return errors.New("ImagePaintEngine is not active")
	}
	if img == nil {
		return errors.New("ImagePaintEngine: nil image")
	}

	opacity = clampOpacity(opacity)
	if opacity == 0 {
		return nil
	}

	dst := fitRect(img.Bounds(), p.canvas.Bounds())
	if dst.Empty() {
		return nil
	}

	var opts *xdraw.Options
	if opacity < 1 {
		opts = &xdraw.Options{
			SrcMask: image.NewUniform(color.Alpha{A: uint8(opacity*0xFF + 0.5)}),
		}
	}
	p.scaler.Scale(p.canvas, dst, img, img.Bounds(), xdraw.Over, opts)
	return nil
}

func (p *ImagePaintEngine) End() error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if !p.isActive {
		return errors.New("ImagePaintEngine is not active")
	}
	p.isActive = false
	p.painted++
	return nil
}

// Painted returns how many frames were completed with End.
func (p *ImagePaintEngine) Painted() int {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.painted
}

// Snapshot returns a copy of the surface.
func (p *ImagePaintEngine) Snapshot() *image.RGBA {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	snapshot := image.NewRGBA(p.canvas.Bounds())
	copy(snapshot.Pix, p.canvas.Pix)
	return snapshot
}

// withCanvas runs fn with the raster locked. fn must not keep the image.
func (p *ImagePaintEngine) withCanvas(fn func(canvas *image.RGBA)) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	fn(p.canvas)
}
