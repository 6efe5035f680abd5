package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/sirupsen/logrus"

	"github.com/rmcsoft/seqplay"
	"github.com/rmcsoft/seqplay/internal/ambient"
	"github.com/rmcsoft/seqplay/internal/config"
	"github.com/rmcsoft/seqplay/internal/prefstore"
	"github.com/rmcsoft/seqplay/internal/status"
)

type options struct {
	Config        string `short:"c" long:"config" description:"The YAML config file"`
	Surface       string `long:"surface" choice:"image" choice:"terminal" choice:"sdl" choice:"kmsdrm" description:"The drawing surface"`
	FPS           int    `long:"fps" description:"Frames per second, overrides the config file"`
	NoLoop        bool   `long:"no-loop" description:"Stop on the last frame"`
	ReducedMotion string `long:"reduced-motion" choice:"on" choice:"off" choice:"system" description:"Store a reduced motion override"`
	Out           string `short:"o" long:"out" description:"Write the last image to this PNG (image surface)"`
	Verbose       bool   `short:"v" long:"verbose" description:"Debug logging"`
	WriteConfig   string `long:"write-config" description:"Write the effective config to this YAML file and exit"`

	Args struct {
		Frames []string `positional-arg-name:"frame" description:"Frame files or URLs, replace the configured sequence"`
	} `positional-args:"yes"`
}

func parseCmd() options {
	var opts options
	var cmdParser = flags.NewParser(&opts, flags.Default)

	if _, err := cmdParser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(2)
	}
	return opts
}

func loadConfig(opts options) (*config.Config, error) {
	cfg := config.Default()
	if opts.Config != "" {
		var err error
		if cfg, err = config.Load(opts.Config); err != nil {
			return nil, fmt.Errorf("config %s: %w", opts.Config, err)
		}
	}

	if len(opts.Args.Frames) > 0 {
		cfg.Frames = opts.Args.Frames
	}
	if opts.Surface != "" {
		cfg.Surface.Kind = opts.Surface
	}
	if opts.FPS != 0 {
		cfg.Playback.FPS = opts.FPS
		cfg.Playback.TargetDuration = 0
	}
	if opts.NoLoop {
		cfg.Playback.Loop = false
	}
	if opts.ReducedMotion != "" {
		cfg.Motion.ReducedMotion = opts.ReducedMotion
	}
	if opts.Out != "" {
		cfg.Surface.Out = opts.Out
	}
	if opts.Verbose {
		cfg.LogLevel = "debug"
	}
	return cfg, cfg.Validate()
}

func newLogger(cfg *config.Config) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}
	if cfg.Surface.Kind == config.SurfaceTerminal {
		// The terminal surface owns the screen.
		log.SetOutput(io.Discard)
	}
	return log
}

func newMotionPreference(cfg *config.Config, explicit bool, log logrus.FieldLogger) (*seqplay.MotionPreference, func(), error) {
	var store seqplay.OverrideStore
	closeStore := func() {}
	if cfg.Motion.PrefsDB != "" {
		db, err := prefstore.Open(cfg.Motion.PrefsDB)
		if err != nil {
			return nil, nil, err
		}
		store = db
		closeStore = func() { db.Close() }
	}

	pref, err := seqplay.NewMotionPreference(store, log)
	if err != nil {
		closeStore()
		return nil, nil, err
	}

	// "system" only clears a stored override when asked for on the command line.
	reduced, set, _ := config.ParseOverride(cfg.Motion.ReducedMotion)
	switch {
	case set:
		err = pref.SetOverride(reduced)
	case explicit:
		err = pref.ClearOverride()
	}
	if err != nil {
		closeStore()
		return nil, nil, err
	}
	return pref, closeStore, nil
}

func startAmbientSources(cfg *config.Config, pref *seqplay.MotionPreference, log logrus.FieldLogger) func() {
	var stops []func()

	if cfg.Motion.WatchFile != "" {
		source, err := ambient.NewFileSource(cfg.Motion.WatchFile, pref, log)
		if err == nil {
			err = source.Start()
		}
		if err != nil {
			log.WithError(err).Warn("Motion signal file is not watched")
		} else {
			stops = append(stops, source.Stop)
		}
	}

	if cfg.Motion.MQTT.Broker != "" {
		source := ambient.NewMQTTSource(cfg.Motion.MQTT, pref, log)
		if err := source.Start(); err != nil {
			log.WithError(err).Warn("Motion signal broker is not reachable")
		} else {
			stops = append(stops, source.Stop)
		}
	}

	return func() {
		for _, stop := range stops {
			stop()
		}
	}
}

func startStatusServer(addr string, hub *status.Hub, log logrus.FieldLogger) func() {
	mux := http.NewServeMux()
	mux.Handle("/events", hub)
	server := &http.Server{Addr: addr, Handler: mux}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("Status server failed")
		}
	}()
	log.WithField("addr", addr).Info("Status feed listening on /events")

	return func() {
		hub.Close()
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}
}

func loadPoster(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	return img, err
}

// chain calls both listeners, a first.
func chain(a, b seqplay.Listener) seqplay.Listener {
	return seqplay.Listener{
		OnProgress: func(p seqplay.LoadProgress) {
			if a.OnProgress != nil {
				a.OnProgress(p)
			}
			if b.OnProgress != nil {
				b.OnProgress(p)
			}
		},
		OnLoaded: func(n int) {
			if a.OnLoaded != nil {
				a.OnLoaded(n)
			}
			if b.OnLoaded != nil {
				b.OnLoaded(n)
			}
		},
		OnPlay: func() {
			if a.OnPlay != nil {
				a.OnPlay()
			}
			if b.OnPlay != nil {
				b.OnPlay()
			}
		},
		OnPause: func() {
			if a.OnPause != nil {
				a.OnPause()
			}
			if b.OnPause != nil {
				b.OnPause()
			}
		},
		OnFrame: func(i int) {
			if a.OnFrame != nil {
				a.OnFrame(i)
			}
			if b.OnFrame != nil {
				b.OnFrame(i)
			}
		},
		OnComplete: func() {
			if a.OnComplete != nil {
				a.OnComplete()
			}
			if b.OnComplete != nil {
				b.OnComplete()
			}
		},
		OnError: func(err error) {
			if a.OnError != nil {
				a.OnError(err)
			}
			if b.OnError != nil {
				b.OnError(err)
			}
		},
	}
}

func readCommands(r io.Reader, commands chan<- command, log logrus.FieldLogger) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		cmd, err := parseCommand(scanner.Text())
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			continue
		}
		commands <- cmd
	}
	if err := scanner.Err(); err != nil {
		log.WithError(err).Warn("Failed to read commands")
	}
}

func run(opts options) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	if opts.WriteConfig != "" {
		return config.Save(opts.WriteConfig, cfg)
	}
	log := newLogger(cfg)

	pref, closePrefs, err := newMotionPreference(cfg, opts.ReducedMotion != "", log)
	if err != nil {
		return err
	}
	defer closePrefs()
	defer startAmbientSources(cfg, pref, log)()

	background, _ := config.ParseColor(cfg.Playback.Background)
	placeholder, _ := config.ParseColor(cfg.Playback.Placeholder)
	var poster image.Image
	if cfg.Playback.Poster != "" {
		if poster, err = loadPoster(cfg.Playback.Poster); err != nil {
			log.WithError(err).Warn("Poster is not shown")
		}
	}

	target, err := openSurface(cfg.Surface, log)
	if err != nil {
		return err
	}
	defer target.close()

	scheduler := seqplay.NewTickerScheduler(0, log)
	defer scheduler.Stop()

	completed := make(chan struct{}, 1)
	listener := seqplay.Listener{
		OnLoaded: func(frameCount int) {
			log.WithField("frames", frameCount).Info("Sequence loaded")
		},
		OnComplete: func() {
			log.Info("Sequence completed")
			select {
			case completed <- struct{}{}:
			default:
			}
		},
		OnError: func(err error) {
			if errors.Is(err, seqplay.ErrNoFrames) {
				select {
				case completed <- struct{}{}:
				default:
				}
			}
		},
	}

	var player *seqplay.SequencePlayer
	if cfg.StatusAddr != "" {
		hub := status.NewHub(log)
		defer startStatusServer(cfg.StatusAddr, hub, log)()
		listener = chain(listener, hub.Listener(func() *seqplay.SequencePlayer { return player }))
	}

	urls := cfg.FrameURLs()
	loader := seqplay.NewAssetLoader(
		seqplay.WithLogger(log),
		seqplay.WithConcurrency(cfg.Loader.Concurrency),
		seqplay.WithAssetTimeout(cfg.Loader.AssetTimeout),
	)
	player, err = seqplay.NewSequencePlayer(seqplay.PlayerConfig{
		FPS:         cfg.FPS(len(urls)),
		Loop:        cfg.Playback.Loop,
		Autoplay:    cfg.Playback.Autoplay,
		FadeIn:      cfg.Playback.FadeIn,
		Background:  background,
		Placeholder: placeholder,
		Poster:      poster,
		Loader:      loader,
		Logger:      log,
	}, target.paintEngine, scheduler, pref, listener)
	if err != nil {
		return err
	}
	defer player.Dispose()

	metadata := seqplay.SequenceMetadata(urls)
	log.WithFields(logrus.Fields{
		"frames":    metadata.FrameCount,
		"first":     metadata.FirstFrame,
		"last":      metadata.LastFrame,
		"estimated": metadata.EstimatedSize,
	}).Info("Loading sequence")
	if err := player.Start(urls); err != nil {
		return err
	}

	commands := make(chan command)
	if target.screen != nil {
		go pollKeys(target.screen, commands)
	} else {
		go readCommands(os.Stdin, commands, log)
	}

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(signals)

	for {
		select {
		case sig := <-signals:
			log.WithField("signal", sig).Info("Stopping")
			return finish(cfg, target, log)

		case <-completed:
			if !cfg.Playback.Loop || player.State() == seqplay.StateFailed {
				return finish(cfg, target, log)
			}

		case cmd := <-commands:
			text, ok, err := execute(cmd, player, pref)
			if !ok {
				return finish(cfg, target, log)
			}
			if err != nil {
				log.WithError(err).Warn("Command failed")
			}
			if target.screen == nil {
				fmt.Println(text)
			}
		}
	}
}

func finish(cfg *config.Config, target *surface, log logrus.FieldLogger) error {
	if cfg.Surface.Out == "" {
		return nil
	}
	if err := target.saveSnapshot(cfg.Surface.Out); err != nil {
		return err
	}
	log.WithField("file", cfg.Surface.Out).Info("Last image written")
	return nil
}

func main() {
	opts := parseCmd()
	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "seqplay: %v\n", err)
		os.Exit(1)
	}
}
