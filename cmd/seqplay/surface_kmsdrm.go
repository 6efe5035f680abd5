//go:build linux && kmsdrm

package main

import (
	"github.com/rmcsoft/seqplay"
	"github.com/rmcsoft/seqplay/internal/config"
)

func init() {
	deviceSurfaces[config.SurfaceKMSDRM] = func(cfg config.Surface) (seqplay.PaintEngine, error) {
		return seqplay.NewKMSDRMPaintEngine(cfg.Card, pixelFormat(cfg))
	}
}
