package seqplay

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func solidImage(width, height int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func testColor(i int) color.RGBA {
	return color.RGBA{R: uint8(i * 20), G: 0x80, B: uint8(255 - i*20), A: 0xFF}
}

func encodePNG(t testing.TB, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func frameURL(i int) string {
	return fmt.Sprintf("mem://frame_%03d.png", i)
}

// memoryFetcher serves PNG frames from memory. URLs missing from the map fail.
type memoryFetcher struct {
	mutex   sync.Mutex
	assets  map[string][]byte
	fetched int
}

func newMemoryFetcher(t testing.TB, count int, failing ...int) *memoryFetcher {
	fetcher := &memoryFetcher{assets: make(map[string][]byte)}
	skip := make(map[int]bool)
	for _, i := range failing {
		skip[i] = true
	}
	for i := 0; i < count; i++ {
		if skip[i] {
			continue
		}
		fetcher.assets[frameURL(i)] = encodePNG(t, solidImage(4, 3, testColor(i)))
	}
	return fetcher
}

func (f *memoryFetcher) Fetch(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.fetched++

	data, ok := f.assets[rawURL]
	if !ok {
		return nil, errors.New("not found")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// blockingFetcher holds every fetch until release is closed or the context ends.
type blockingFetcher struct {
	inner   Fetcher
	release chan struct{}
	started atomic.Int32
}

func newBlockingFetcher(inner Fetcher) *blockingFetcher {
	return &blockingFetcher{inner: inner, release: make(chan struct{})}
}

func (f *blockingFetcher) Fetch(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	f.started.Add(1)
	select {
	case <-f.release:
		return f.inner.Fetch(ctx, rawURL)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func urls(count int) []string {
	list := make([]string, count)
	for i := range list {
		list[i] = frameURL(i)
	}
	return list
}

// recordingEngine counts completed paint cycles and remembers the last images.
type recordingEngine struct {
	mutex       sync.Mutex
	isActive    bool
	painted     int
	clears      []color.Color
	images      []image.Image
	opacities   []float64
	panicOnDraw atomic.Bool
}

func (e *recordingEngine) Begin() error {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	if e.isActive {
		return errors.New("already active")
	}
	e.isActive = true
	e.clears = nil
	e.images = nil
	e.opacities = nil
	return nil
}

func (e *recordingEngine) Clear(c color.Color) error {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	e.clears = append(e.clears, c)
	return nil
}

func (e *recordingEngine) DrawImage(img image.Image, opacity float64) error {
	if e.panicOnDraw.Load() {
		panic("draw failed")
	}
	e.mutex.Lock()
	defer e.mutex.Unlock()
	e.images = append(e.images, img)
	e.opacities = append(e.opacities, opacity)
	return nil
}

func (e *recordingEngine) End() error {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	if !e.isActive {
		return errors.New("not active")
	}
	e.isActive = false
	e.painted++
	return nil
}

func (e *recordingEngine) Painted() int {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.painted
}

func (e *recordingEngine) lastOpacities() []float64 {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return append([]float64(nil), e.opacities...)
}

// eventLog records listener events in order.
type eventLog struct {
	mutex  sync.Mutex
	events []string
	errs   []error
}

func (l *eventLog) add(event string) {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	l.events = append(l.events, event)
}

func (l *eventLog) Events() []string {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return append([]string(nil), l.events...)
}

func (l *eventLog) Errors() []error {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return append([]error(nil), l.errs...)
}

func (l *eventLog) Count(event string) int {
	n := 0
	for _, e := range l.Events() {
		if e == event {
			n++
		}
	}
	return n
}

func (l *eventLog) listener() Listener {
	return Listener{
		OnLoaded:   func(int) { l.add("loaded") },
		OnPlay:     func() { l.add("play") },
		OnPause:    func() { l.add("pause") },
		OnComplete: func() { l.add("complete") },
		OnError: func(err error) {
			l.mutex.Lock()
			l.errs = append(l.errs, err)
			l.mutex.Unlock()
			l.add("error")
		},
	}
}

type testPlayer struct {
	*SequencePlayer
	scheduler *ManualScheduler
	engine    *recordingEngine
	events    *eventLog
}

func newTestPlayer(t *testing.T, cfg PlayerConfig, policy MotionPolicy, fetcher Fetcher) *testPlayer {
	t.Helper()
	if cfg.Loader == nil {
		cfg.Loader = NewAssetLoader(WithFetcher(fetcher))
	}
	tp := &testPlayer{
		scheduler: NewManualScheduler(),
		engine:    &recordingEngine{},
		events:    &eventLog{},
	}
	player, err := NewSequencePlayer(cfg, tp.engine, tp.scheduler, policy, tp.events.listener())
	require.NoError(t, err)
	tp.SequencePlayer = player
	t.Cleanup(player.Dispose)
	return tp
}

// newLoadedPlayer returns a player whose count frames are loaded.
func newLoadedPlayer(t *testing.T, count int, cfg PlayerConfig, policy MotionPolicy) *testPlayer {
	t.Helper()
	tp := newTestPlayer(t, cfg, policy, newMemoryFetcher(t, count))
	require.NoError(t, tp.Start(urls(count)))
	tp.waitLoaded(t)
	return tp
}

// waitLoaded blocks until the load session has delivered its last event.
func (tp *testPlayer) waitLoaded(t *testing.T) {
	t.Helper()
	tp.mutex.Lock()
	session := tp.session
	tp.mutex.Unlock()
	require.NotNil(t, session, "player was not started")

	select {
	case <-session.handle.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("sequence did not load")
	}
}
