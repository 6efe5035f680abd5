package config

import (
	"errors"
	"image/color"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmcsoft/seqplay"
)

const sampleConfig = `
sequence:
  folder: /images/hero
  prefix: frame_
  end: 120
playback:
  fps: 24
  loop: false
  fade_in: 250ms
  placeholder: "#eeeeee"
loader:
  concurrency: 8
  asset_timeout: 5s
surface:
  kind: terminal
motion:
  reduced_motion: "on"
  prefs_db: /tmp/prefs.db
log_level: debug
`

func TestParse(t *testing.T) {
	c, err := Parse([]byte(sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, seqplay.SequenceSpec{
		Folder: "/images/hero", Prefix: "frame_", Extension: ".jpg", Start: 1, End: 120, Padding: 3,
	}, c.Sequence)
	assert.Equal(t, 24, c.Playback.FPS)
	assert.False(t, c.Playback.Loop)
	assert.True(t, c.Playback.Autoplay, "missing values keep their defaults")
	assert.Equal(t, 250*time.Millisecond, c.Playback.FadeIn)
	assert.Equal(t, 5*time.Second, c.Loader.AssetTimeout)
	assert.Equal(t, SurfaceTerminal, c.Surface.Kind)

	urls := c.FrameURLs()
	require.Len(t, urls, 120)
	assert.Equal(t, "/images/hero/frame_001.jpg", urls[0])
	assert.Equal(t, 24, c.FPS(len(urls)))

	placeholder, err := ParseColor(c.Playback.Placeholder)
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{R: 0xEE, G: 0xEE, B: 0xEE, A: 0xFF}, placeholder)
}

func TestExplicitFramesAndTargetDuration(t *testing.T) {
	c, err := Parse([]byte(`
frames: [a.png, b.png, c.png, d.png]
playback:
  target_duration: 2s
`))
	require.NoError(t, err)
	assert.Equal(t, []string{"a.png", "b.png", "c.png", "d.png"}, c.FrameURLs())
	assert.Equal(t, 2, c.FPS(4))
}

func TestValidate(t *testing.T) {
	var tests = []struct {
		name   string
		mutate func(c *Config)
	}{
		{"empty sequence", func(c *Config) { c.Sequence.End = 0 }},
		{"zero fps", func(c *Config) { c.Playback.FPS = 0 }},
		{"bad color", func(c *Config) { c.Playback.Background = "black" }},
		{"negative fade", func(c *Config) { c.Playback.FadeIn = -time.Second }},
		{"negative concurrency", func(c *Config) { c.Loader.Concurrency = -1 }},
		{"unknown surface", func(c *Config) { c.Surface.Kind = "vga" }},
		{"empty image surface", func(c *Config) { c.Surface.Width = 0 }},
		{"bad motion override", func(c *Config) { c.Motion.ReducedMotion = "sometimes" }},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			c.Sequence.End = 10
			require.NoError(t, c.Validate())

			tt.mutate(c)
			err := c.Validate()
			assert.True(t, errors.Is(err, seqplay.ErrInvalidConfiguration), "got %v", err)
		})
	}
}

func TestParseRejectsUnknownFields(t *testing.T) {
	_, err := Parse([]byte("sequence: {end: 3}\nspeed: 2\n"))
	assert.True(t, errors.Is(err, seqplay.ErrInvalidConfiguration))
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	c := Default()
	c.Sequence.Folder = "frames"
	c.Sequence.End = 3
	c.StatusAddr = ":8080"
	require.NoError(t, Save(path, c))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, c, loaded)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.True(t, os.IsNotExist(err))
}

func TestParseOverride(t *testing.T) {
	var tests = []struct {
		value       string
		reduced, ok bool
	}{
		{"on", true, true},
		{"reduce", true, true},
		{"off", false, true},
		{"no-preference", false, true},
		{"system", false, false},
		{"", false, false},
	}
	for _, tt := range tests {
		reduced, ok, err := ParseOverride(tt.value)
		require.NoError(t, err, tt.value)
		assert.Equal(t, tt.reduced, reduced, tt.value)
		assert.Equal(t, tt.ok, ok, tt.value)
	}
}
