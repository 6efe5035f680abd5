package main

import (
	"fmt"
	"image/png"
	"os"

	"github.com/gdamore/tcell/v2"
	"github.com/sirupsen/logrus"

	"github.com/rmcsoft/seqplay"
	"github.com/rmcsoft/seqplay/internal/config"
)

// surface is an opened drawing target.
type surface struct {
	paintEngine seqplay.PaintEngine
	// image is set for the image surface, screen for the terminal one.
	image  *seqplay.ImagePaintEngine
	screen tcell.Screen
	close  func() error
}

// deviceSurfaces holds the engines compiled in with build tags.
var deviceSurfaces = map[string]func(cfg config.Surface) (seqplay.PaintEngine, error){}

func pixelFormat(cfg config.Surface) seqplay.PixelFormat {
	if cfg.RGB16 {
		return seqplay.RGB16
	}
	return seqplay.RGB32
}

func openSurface(cfg config.Surface, log logrus.FieldLogger) (*surface, error) {
	switch cfg.Kind {
	case config.SurfaceImage:
		engine := seqplay.NewImagePaintEngine(cfg.Width, cfg.Height)
		return &surface{
			paintEngine: engine,
			image:       engine,
			close:       func() error { return nil },
		}, nil

	case config.SurfaceTerminal:
		screen, err := tcell.NewScreen()
		if err != nil {
			return nil, err
		}
		if err := screen.Init(); err != nil {
			return nil, err
		}
		screen.Clear()
		return &surface{
			paintEngine: seqplay.NewTerminalPaintEngine(screen),
			screen:      screen,
			close: func() error {
				screen.Fini()
				return nil
			},
		}, nil
	}

	open, ok := deviceSurfaces[cfg.Kind]
	if !ok {
		return nil, fmt.Errorf("surface %q is not compiled in (build with -tags %s)", cfg.Kind, cfg.Kind)
	}
	engine, err := open(cfg)
	if err != nil {
		return nil, err
	}
	log.WithField("surface", cfg.Kind).Info("Device surface opened")
	return &surface{
		paintEngine: engine,
		close: func() error {
			if closer, ok := engine.(interface{ Close() error }); ok {
				return closer.Close()
			}
			return nil
		},
	}, nil
}

// saveSnapshot writes the image surface to path as PNG.
func (s *surface) saveSnapshot(path string) error {
	if s.image == nil {
		return fmt.Errorf("only the image surface can be saved")
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, s.image.Snapshot()); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// pollKeys turns terminal key presses into commands until the screen is
// finalized.
func pollKeys(screen tcell.Screen, commands chan<- command) {
	for {
		switch ev := screen.PollEvent().(type) {
		case nil:
			return
		case *tcell.EventResize:
			screen.Sync()
		case *tcell.EventKey:
			switch ev.Key() {
			case tcell.KeyEscape, tcell.KeyCtrlC:
				commands <- command{kind: cmdQuit}
			case tcell.KeyLeft:
				commands <- command{kind: cmdStep, frame: -1}
			case tcell.KeyRight:
				commands <- command{kind: cmdStep, frame: 1}
			case tcell.KeyHome:
				commands <- command{kind: cmdSeek, frame: 0}
			case tcell.KeyRune:
				switch ev.Rune() {
				case ' ':
					commands <- command{kind: cmdToggle}
				case 'm':
					commands <- command{kind: cmdMotion, reduced: true, set: true}
				case 'M':
					commands <- command{kind: cmdMotion, reduced: false, set: true}
				case 's':
					commands <- command{kind: cmdMotion}
				case 'q':
					commands <- command{kind: cmdQuit}
				}
			}
		}
	}
}
