package seqplay

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfiguration is returned when a player, clock or loader is
	// configured with values it cannot work with (fps <= 0, no frames).
	ErrInvalidConfiguration = errors.New("invalid configuration")
	// ErrNotReady is returned by controls used before the sequence is loaded.
	ErrNotReady = errors.New("sequence is not ready")
	// ErrNoFrames is reported when every frame of a sequence failed to load.
	ErrNoFrames = errors.New("sequence has no drawable frames")
	// ErrDisposed is returned by controls used after Dispose.
	ErrDisposed = errors.New("player is disposed")
	// ErrAlreadyStarted is returned by Start on a player that left StateIdle.
	ErrAlreadyStarted = errors.New("player is already started")
)

// AssetLoadError describes a single frame that could not be fetched or decoded.
// It never aborts a load session.
type AssetLoadError struct {
	URL   string
	Index int
	Err   error
}

func (e *AssetLoadError) Error() string {
	return fmt.Sprintf("failed to load frame %d (%s): %v", e.Index, e.URL, e.Err)
}

func (e *AssetLoadError) Unwrap() error {
	return e.Err
}

func invalidConfig(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfiguration, fmt.Sprintf(format, args...))
}
