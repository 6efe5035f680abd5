//go:build linux && kmsdrm

package seqplay

import (
	"errors"
	"fmt"
	"image"
	"os"
	"syscall"

	drm "github.com/rmcsoft/godrm"
	"github.com/rmcsoft/godrm/mode"
)

const framebufferCount = 2

type framebuffer struct {
	handle uint32
	id     uint32
	buf    []byte

	pixmap Pixmap
}

type kmsdrmPaintEngine struct {
	*ImagePaintEngine

	card    *os.File
	modeset mode.Modeset

	pixFormat PixelFormat

	framebuffers        []*framebuffer
	frontFrameBufferNum int
}

// NewKMSDRMPaintEngine creates a paint engine that scans frames out of DRM
// dumb buffers on the first connected display of the card.
func NewKMSDRMPaintEngine(cardNum int, pixFormat PixelFormat) (PaintEngine, error) {
	card, err := drm.OpenCard(cardNum)
	if err != nil {
		return nil, err
	}

	if !drm.HasDumbBuffer(card) {
		card.Close()
		return nil, fmt.Errorf("drm device %v does not support dumb buffers", cardNum)
	}

	simpleMSet, err := mode.NewSimpleModeset(card)
	if err != nil {
		card.Close()
		return nil, err
	}

	if len(simpleMSet.Modesets) == 0 {
		card.Close()
		return nil, errors.New("Modesets is empty")
	}

	paintEngine := &kmsdrmPaintEngine{
		card:      card,
		pixFormat: pixFormat,
		modeset:   simpleMSet.Modesets[0],
	}
	paintEngine.ImagePaintEngine = NewImagePaintEngine(int(paintEngine.modeset.Width), int(paintEngine.modeset.Height))

	for i := 0; i < framebufferCount; i++ {
		framebuffer, err := paintEngine.createFramebuffer()
		if err != nil {
			paintEngine.Close()
			return nil, err
		}
		paintEngine.framebuffers = append(paintEngine.framebuffers, framebuffer)
	}

	return paintEngine, nil
}

func (p *kmsdrmPaintEngine) End() error {
	if err := p.ImagePaintEngine.End(); err != nil {
		return err
	}

	frontFrameBuffer := p.framebuffers[p.frontFrameBufferNum]
	p.withCanvas(func(canvas *image.RGBA) {
		frontFrameBuffer.pixmap.Fill(canvas)
	})

	err := mode.SetCrtc(p.card, p.modeset.Crtc, frontFrameBuffer.id,
		0, 0, &p.modeset.Conn, 1, &p.modeset.Mode)

	p.frontFrameBufferNum = (p.frontFrameBufferNum + 1) % len(p.framebuffers)
	return err
}

// Close unmaps and destroys the framebuffers and closes the card.
func (p *kmsdrmPaintEngine) Close() error {
	for _, fb := range p.framebuffers {
		p.destroyFramebuffer(fb)
	}
	p.framebuffers = nil
	return p.card.Close()
}

func (p *kmsdrmPaintEngine) createFramebuffer() (*framebuffer, error) {

	fb := &framebuffer{}
	var err error

	defer func() {
		if err != nil {
			p.destroyFramebuffer(fb)
		}
	}()

	width := p.modeset.Width
	height := p.modeset.Height
	bpp := GetPixelSize(p.pixFormat) * 8
	depth := GetPixelDepth(p.pixFormat)

	fbInfo, err := mode.CreateFB(p.card, uint16(width), uint16(height), uint32(bpp))
	if err != nil {
		return nil, err
	}

	fb.handle = fbInfo.Handle
	fb.id, err = mode.AddFB(p.card, uint16(width), uint16(height),
		uint8(depth), uint8(bpp), fbInfo.Pitch, fb.handle)
	if err != nil {
		return nil, err
	}

	offset, err := mode.MapDumb(p.card, fb.handle)
	if err != nil {
		return nil, err
	}

	fb.buf, err = syscall.Mmap(int(p.card.Fd()), int64(offset), int(fbInfo.Size),
		syscall.PROT_READ|syscall.PROT_WRITE, syscall.MAP_SHARED)
	if err != nil {
		return nil, err
	}

	fb.pixmap = Pixmap{
		Data:        fb.buf,
		Width:       int(width),
		Height:      int(height),
		BytePerLine: int(fbInfo.Pitch),
		PixFormat:   p.pixFormat,
	}

	return fb, err
}

func (p *kmsdrmPaintEngine) destroyFramebuffer(fb *framebuffer) {
	if fb != nil && p.card != nil {
		if fb.id != 0 {
			mode.RmFB(p.card, fb.id)
			fb.id = 0
		}

		if fb.handle != 0 {
			mode.DestroyDumb(p.card, fb.handle)
			fb.handle = 0
		}

		if fb.buf != nil {
			syscall.Munmap(fb.buf)
			fb.buf = nil
		}
	}
}
