package main

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmcsoft/seqplay"
	"github.com/rmcsoft/seqplay/internal/config"
)

func TestParseCommand(t *testing.T) {
	var tests = []struct {
		line string
		want command
	}{
		{"play", command{kind: cmdPlay}},
		{"  pause ", command{kind: cmdPause}},
		{"t", command{kind: cmdToggle}},
		{"seek 12", command{kind: cmdSeek, frame: 12}},
		{"motion on", command{kind: cmdMotion, reduced: true, set: true}},
		{"motion off", command{kind: cmdMotion, set: true}},
		{"motion system", command{kind: cmdMotion}},
		{"quit", command{kind: cmdQuit}},
	}
	for _, tt := range tests {
		got, err := parseCommand(tt.line)
		require.NoError(t, err, tt.line)
		assert.Equal(t, tt.want, got, tt.line)
	}

	for _, line := range []string{"", "jump", "seek", "seek x", "motion", "motion maybe"} {
		_, err := parseCommand(line)
		assert.Error(t, err, line)
	}
}

func TestExecute(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2))))
	data := buf.Bytes()
	fetcher := seqplay.FetcherFunc(func(ctx context.Context, rawURL string) (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	})

	pref, err := seqplay.NewMotionPreference(nil, nil)
	require.NoError(t, err)
	player, err := seqplay.NewSequencePlayer(seqplay.PlayerConfig{
		FPS:    10,
		Loader: seqplay.NewAssetLoader(seqplay.WithFetcher(fetcher)),
	}, seqplay.NullPaintEngine(), seqplay.NewManualScheduler(), pref, seqplay.Listener{})
	require.NoError(t, err)
	defer player.Dispose()

	require.NoError(t, player.Start([]string{"a", "b", "c", "d"}))
	require.Eventually(t, func() bool { return player.State() == seqplay.StateReady }, 2*time.Second, time.Millisecond)

	text, ok, err := execute(command{kind: cmdSeek, frame: 2}, player, pref)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Contains(t, text, "frame=2/4")

	_, _, err = execute(command{kind: cmdStep, frame: 1}, player, pref)
	require.NoError(t, err)
	assert.Equal(t, 3, player.CurrentFrame())

	text, _, err = execute(command{kind: cmdMotion, reduced: true, set: true}, player, pref)
	require.NoError(t, err)
	assert.Contains(t, text, "reduced-motion=on")

	_, _, err = execute(command{kind: cmdPlay}, player, pref)
	require.NoError(t, err)
	assert.False(t, player.IsPlaying())

	_, _, err = execute(command{kind: cmdMotion}, player, pref)
	require.NoError(t, err)
	_, _, err = execute(command{kind: cmdToggle}, player, pref)
	require.NoError(t, err)
	assert.True(t, player.IsPlaying())

	_, ok, err = execute(command{kind: cmdQuit}, player, pref)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLoadConfigAppliesFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sequence: {folder: frames, end: 10}\nplayback: {target_duration: 2s}\n"), 0644))

	var opts options
	opts.Config = path
	opts.FPS = 12
	opts.NoLoop = true
	opts.ReducedMotion = "on"
	opts.Surface = config.SurfaceTerminal

	cfg, err := loadConfig(opts)
	require.NoError(t, err)
	assert.Equal(t, 12, cfg.FPS(10))
	assert.False(t, cfg.Playback.Loop)
	assert.Equal(t, "on", cfg.Motion.ReducedMotion)
	assert.Equal(t, config.SurfaceTerminal, cfg.Surface.Kind)
	assert.Len(t, cfg.FrameURLs(), 10)

	opts = options{}
	opts.Args.Frames = []string{"x.png"}
	cfg, err = loadConfig(opts)
	require.NoError(t, err)
	assert.Equal(t, []string{"x.png"}, cfg.FrameURLs())

	_, err = loadConfig(options{})
	assert.Error(t, err, "no frames configured")
}

func TestWriteConfig(t *testing.T) {
	out := filepath.Join(t.TempDir(), "effective.yaml")

	var opts options
	opts.Args.Frames = []string{"a.png", "b.png"}
	opts.FPS = 8
	opts.NoLoop = true
	opts.WriteConfig = out
	require.NoError(t, run(opts))

	cfg, err := config.Load(out)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.png", "b.png"}, cfg.Frames)
	assert.Equal(t, 8, cfg.Playback.FPS)
	assert.False(t, cfg.Playback.Loop)
}

func TestMotionPreferenceFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Motion.PrefsDB = filepath.Join(t.TempDir(), "prefs.db")
	cfg.Motion.ReducedMotion = "on"

	pref, closePrefs, err := newMotionPreference(cfg, true, logrus.StandardLogger())
	require.NoError(t, err)
	assert.True(t, pref.ShouldSuppressMotion())
	closePrefs()

	// "system" from the config file keeps the stored choice.
	cfg.Motion.ReducedMotion = "system"
	pref, closePrefs, err = newMotionPreference(cfg, false, logrus.StandardLogger())
	require.NoError(t, err)
	assert.True(t, pref.ShouldSuppressMotion())
	closePrefs()

	pref, closePrefs, err = newMotionPreference(cfg, true, logrus.StandardLogger())
	require.NoError(t, err)
	defer closePrefs()
	assert.False(t, pref.ShouldSuppressMotion())
}

func TestImageSurfaceSnapshot(t *testing.T) {
	target, err := openSurface(config.Surface{Kind: config.SurfaceImage, Width: 4, Height: 2}, logrus.StandardLogger())
	require.NoError(t, err)
	defer target.close()

	out := filepath.Join(t.TempDir(), "last.png")
	require.NoError(t, target.saveSnapshot(out))

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 4, 2), img.Bounds())

	_, err = openSurface(config.Surface{Kind: config.SurfaceKMSDRM}, logrus.StandardLogger())
	assert.Error(t, err, "device surfaces need their build tag")
}
