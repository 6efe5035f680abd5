package seqplay

import (
	"time"

	"github.com/fogleman/ease"
)

// fadeIn eases a frame from transparent to opaque. The first call to opacity
// starts the fade.
type fadeIn struct {
	duration time.Duration
	start    time.Duration
	started  bool
}

func (f *fadeIn) opacity(now time.Duration) (float64, bool) {
	if !f.started {
		f.start = now
		f.started = true
	}
	if f.duration <= 0 {
		return 1, true
	}

	t := float64(now-f.start) / float64(f.duration)
	if t >= 1 {
		return 1, true
	}
	if t < 0 {
		t = 0
	}
	return ease.InOutQuad(t), false
}
