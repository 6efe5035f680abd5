//go:build sdl

package main

import (
	"github.com/rmcsoft/seqplay"
	"github.com/rmcsoft/seqplay/internal/config"
)

func init() {
	deviceSurfaces[config.SurfaceSDL] = func(cfg config.Surface) (seqplay.PaintEngine, error) {
		return seqplay.NewSDLPaintEngine(cfg.Width, cfg.Height, pixelFormat(cfg))
	}
}
