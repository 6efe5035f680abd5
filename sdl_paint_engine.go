//go:build sdl

package seqplay

import (
	"errors"
	"image"
	"sync"

	"github.com/veandco/go-sdl2/sdl"
)

var mutexSdlInit = sync.Mutex{}
var sdlInited = false

func initSdl() error {
	mutexSdlInit.Lock()
	defer mutexSdlInit.Unlock()

	if !sdlInited {
		if err := sdl.Init(sdl.INIT_VIDEO); err != nil {
			return err
		}
		sdlInited = true
	}
	return nil
}

func pixelFormatToSDL(pixelFormat PixelFormat) (uint32, error) {
	switch pixelFormat {
	case RGB16:
		return sdl.PIXELFORMAT_RGB565, nil
	case RGB32:
		return sdl.PIXELFORMAT_ARGB8888, nil
	default:
		return 0, errors.New("Unsupported pixel format")
	}
}

type sdlPaintEngine struct {
	*ImagePaintEngine

	window   *sdl.Window
	renderer *sdl.Renderer
	texture  *sdl.Texture
	pixmap   *Pixmap
}

// NewSDLPaintEngine creates a paint engine that presents frames in an SDL window.
// Frames are composed in memory and uploaded as one streaming texture per End.
func NewSDLPaintEngine(width int, height int, pixFormat PixelFormat) (PaintEngine, error) {
	if err := initSdl(); err != nil {
		return nil, err
	}

	sdlPixFormat, err := pixelFormatToSDL(pixFormat)
	if err != nil {
		return nil, err
	}

	window, renderer, err := sdl.CreateWindowAndRenderer(int32(width), int32(height), 0)
	if err != nil {
		return nil, err
	}

	texture, err := renderer.CreateTexture(sdlPixFormat, sdl.TEXTUREACCESS_STREAMING,
		int32(width), int32(height))
	if err != nil {
		renderer.Destroy()
		window.Destroy()
		return nil, err
	}

	compositor := NewImagePaintEngine(width, height)
	return &sdlPaintEngine{
		ImagePaintEngine: compositor,
		window:           window,
		renderer:         renderer,
		texture:          texture,
		pixmap:           NewPixmap(compositor.Snapshot(), pixFormat),
	}, nil
}

func (p *sdlPaintEngine) End() error {
	if err := p.ImagePaintEngine.End(); err != nil {
		return err
	}

	p.withCanvas(func(canvas *image.RGBA) {
		p.pixmap.Fill(canvas)
	})

	texturePixels, textureBytePerLine, err := p.texture.Lock(nil)
	if err != nil {
		return err
	}

	rowSize := p.pixmap.Width * GetPixelSize(p.pixmap.PixFormat)
	for rowNum := 0; rowNum < p.pixmap.Height; rowNum++ {
		pixmapOffset := rowNum * p.pixmap.BytePerLine
		pixmapRow := p.pixmap.Data[pixmapOffset : pixmapOffset+rowSize]
		textureOffset := rowNum * textureBytePerLine
		textureRow := texturePixels[textureOffset : textureOffset+rowSize]
		copy(textureRow, pixmapRow)
	}
	p.texture.Unlock()

	if err := p.renderer.Clear(); err != nil {
		return err
	}
	if err := p.renderer.Copy(p.texture, nil, nil); err != nil {
		return err
	}
	p.renderer.Present()
	return nil
}

// Close releases the window, renderer and texture.
func (p *sdlPaintEngine) Close() error {
	p.texture.Destroy()
	p.renderer.Destroy()
	return p.window.Destroy()
}
