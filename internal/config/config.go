package config

import (
	"bytes"
	"fmt"
	"image/color"
	"io"
	"os"
	"time"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/rmcsoft/seqplay"
)

// Surface kinds.
const (
	SurfaceImage    = "image"
	SurfaceTerminal = "terminal"
	SurfaceSDL      = "sdl"
	SurfaceKMSDRM   = "kmsdrm"
)

type Surface struct {
	Kind   string `yaml:"kind"` // image | terminal | sdl | kmsdrm
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`

	// Card is the DRM card number of the kmsdrm surface.
	Card  int  `yaml:"card"`
	RGB16 bool `yaml:"rgb16"`
	// Out is the PNG the image surface writes on exit.
	Out string `yaml:"out,omitempty"`
}

type Playback struct {
	FPS            int           `yaml:"fps"`
	TargetDuration time.Duration `yaml:"target_duration"` // derives fps from the frame count when set
	Loop           bool          `yaml:"loop"`
	Autoplay       bool          `yaml:"autoplay"`
	FadeIn         time.Duration `yaml:"fade_in"`
	Poster         string        `yaml:"poster,omitempty"`
	Background     string        `yaml:"background"`
	Placeholder    string        `yaml:"placeholder"`
}

type Loader struct {
	Concurrency  int           `yaml:"concurrency"`
	AssetTimeout time.Duration `yaml:"asset_timeout"`
}

type MQTT struct {
	Broker   string `yaml:"broker"`
	Topic    string `yaml:"topic"`
	ClientID string `yaml:"client_id"`
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
}

type Motion struct {
	// ReducedMotion forces the user override: "on", "off" or "system".
	ReducedMotion string `yaml:"reduced_motion"`
	PrefsDB       string `yaml:"prefs_db,omitempty"`
	WatchFile     string `yaml:"watch_file,omitempty"`
	MQTT          MQTT   `yaml:"mqtt,omitempty"`
}

type Config struct {
	Sequence seqplay.SequenceSpec `yaml:"sequence"`
	Frames   []string             `yaml:"frames,omitempty"`

	Playback Playback `yaml:"playback"`
	Loader   Loader   `yaml:"loader"`
	Surface  Surface  `yaml:"surface"`
	Motion   Motion   `yaml:"motion"`

	StatusAddr string `yaml:"status_addr,omitempty"`
	LogLevel   string `yaml:"log_level"`
}

// Default returns the configuration used for values missing from the file.
func Default() *Config {
	return &Config{
		Sequence: seqplay.SequenceSpec{
			Extension: ".jpg",
			Start:     1,
			Padding:   3,
		},
		Playback: Playback{
			FPS:         30,
			Loop:        true,
			Autoplay:    true,
			Background:  "#000000",
			Placeholder: "#F5F5F5",
		},
		Surface: Surface{
			Kind:   SurfaceImage,
			Width:  640,
			Height: 360,
		},
		Motion: Motion{
			ReducedMotion: "system",
			MQTT: MQTT{
				Topic:    "seqplay/reduced-motion",
				ClientID: "seqplay",
			},
		},
		LogLevel: "info",
	}
}

// Load reads the YAML file at path over the defaults and validates it.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(b)
}

// Parse decodes YAML data over the defaults and validates it.
func Parse(data []byte) (*Config, error) {
	c := Default()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(c); err != nil && err != io.EOF {
		return nil, fmt.Errorf("%w: %v", seqplay.ErrInvalidConfiguration, err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func Save(path string, c *Config) error {
	b, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0644)
}

// Validate reports the first value the player cannot work with.
func (c *Config) Validate() error {
	if len(c.Frames) == 0 && c.Sequence.End < c.Sequence.Start {
		return invalid("sequence is empty (start %d, end %d)", c.Sequence.Start, c.Sequence.End)
	}
	if c.Playback.FPS <= 0 && c.Playback.TargetDuration <= 0 {
		return invalid("fps must be positive, got %d", c.Playback.FPS)
	}
	if c.Playback.TargetDuration < 0 || c.Playback.FadeIn < 0 {
		return invalid("durations must not be negative")
	}
	if _, err := ParseColor(c.Playback.Background); err != nil {
		return invalid("background: %v", err)
	}
	if _, err := ParseColor(c.Playback.Placeholder); err != nil {
		return invalid("placeholder: %v", err)
	}
	if c.Loader.Concurrency < 0 || c.Loader.AssetTimeout < 0 {
		return invalid("loader limits must not be negative")
	}

	switch c.Surface.Kind {
	case SurfaceImage, SurfaceSDL:
		if c.Surface.Width <= 0 || c.Surface.Height <= 0 {
			return invalid("surface size %dx%d", c.Surface.Width, c.Surface.Height)
		}
	case SurfaceTerminal, SurfaceKMSDRM:
	default:
		return invalid("unknown surface %q", c.Surface.Kind)
	}

	if _, _, err := ParseOverride(c.Motion.ReducedMotion); err != nil {
		return err
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return invalid("log level: %v", err)
	}
	return nil
}

// FrameURLs returns the explicit frame list or the one generated from the
// sequence spec.
func (c *Config) FrameURLs() []string {
	if len(c.Frames) > 0 {
		return c.Frames
	}
	return seqplay.GenerateFrameURLs(c.Sequence)
}

// FPS returns the playback rate, derived from the target duration when one
// is set.
func (c *Config) FPS(frameCount int) int {
	if c.Playback.TargetDuration > 0 {
		return seqplay.CalculateFPS(frameCount, c.Playback.TargetDuration)
	}
	return c.Playback.FPS
}

// ParseColor parses a "#RRGGBB" hex color.
func ParseColor(hex string) (color.Color, error) {
	c, err := colorful.Hex(hex)
	if err != nil {
		return nil, err
	}
	r, g, b := c.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 0xFF}, nil
}

// ParseOverride maps "on", "off" and "system" to a user override.
// ok is false for "system", which leaves the platform signal in charge.
func ParseOverride(value string) (reduced bool, ok bool, err error) {
	switch value {
	case "on", "reduce":
		return true, true, nil
	case "off", "no-preference":
		return false, true, nil
	case "", "system":
		return false, false, nil
	}
	return false, false, invalid("reduced motion must be on, off or system, got %q", value)
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", seqplay.ErrInvalidConfiguration, fmt.Sprintf(format, args...))
}
