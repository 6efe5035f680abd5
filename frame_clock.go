package seqplay

import (
	"math"
	"time"
)

const (
	defaultFrameRate = 30
	// estimatedFrameSize is the per-frame size used for sequence metadata.
	estimatedFrameSize = 200 * 1024
)

// FrameClock converts a frame rate into a fixed frame interval and tells how
// many whole frames fit into a span of host time.
type FrameClock struct {
	fps      int
	interval time.Duration
}

// NewFrameClock creates a FrameClock running at fps frames per second.
func NewFrameClock(fps int) (FrameClock, error) {
	var clock FrameClock
	if err := clock.Configure(fps); err != nil {
		return FrameClock{}, err
	}
	return clock, nil
}

// Configure sets the frame rate.
func (clock *FrameClock) Configure(fps int) error {
	if fps <= 0 {
		return invalidConfig("frame rate must be positive, got %d", fps)
	}
	clock.fps = fps
	clock.interval = time.Second / time.Duration(fps)
	return nil
}

// FPS returns the configured frame rate.
func (clock FrameClock) FPS() int {
	return clock.fps
}

// Interval returns the duration of one frame.
func (clock FrameClock) Interval() time.Duration {
	return clock.interval
}

// FramesElapsed returns the number of whole frames between lastTick and now
// and the part of the span that does not make up a whole frame. Callers move
// their reference point to now-remainder so that partial frames carry over
// instead of being lost on every tick.
func (clock FrameClock) FramesElapsed(now, lastTick time.Duration) (int, time.Duration) {
	delta := now - lastTick
	if delta <= 0 || clock.interval <= 0 {
		return 0, 0
	}
	return int(delta / clock.interval), delta % clock.interval
}

// CalculateFPS returns the frame rate that plays frameCount frames in target.
func CalculateFPS(frameCount int, target time.Duration) int {
	if target <= 0 {
		return defaultFrameRate
	}
	fps := int(math.Round(float64(frameCount) / target.Seconds()))
	if fps < 1 {
		return 1
	}
	return fps
}

// CalculateDuration returns how long frameCount frames take at fps.
func CalculateDuration(frameCount int, fps int) time.Duration {
	if fps <= 0 {
		fps = defaultFrameRate
	}
	return time.Duration(frameCount) * time.Second / time.Duration(fps)
}
