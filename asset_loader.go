package seqplay

import (
	"context"
	"errors"
	"image"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// LoadProgress is the aggregate state of a load session.
type LoadProgress struct {
	Loaded int
	Total  int
}

// Percent returns the settled share of the session rounded to a whole percent.
func (p LoadProgress) Percent() int {
	if p.Total <= 0 {
		return 0
	}
	return int(math.Round(float64(p.Loaded) / float64(p.Total) * 100))
}

// LoadCallbacks receive the events of a load session. All callbacks of one
// session are serialized. OnComplete is the last one and fires exactly once.
type LoadCallbacks struct {
	// OnProgress fires after every asset settles, failed ones included.
	OnProgress func(progress LoadProgress, url string)
	// OnError fires for every asset that failed to load.
	OnError func(err *AssetLoadError)
	// OnComplete receives one frame per URL, in URL order. Failed assets are
	// placeholder frames.
	OnComplete func(frames []*Frame)
}

// LoaderOption configures an AssetLoader.
type LoaderOption func(loader *AssetLoader)

// WithFetcher sets the Fetcher used to read frames.
func WithFetcher(fetcher Fetcher) LoaderOption {
	return func(loader *AssetLoader) {
		loader.fetcher = fetcher
	}
}

// WithLogger sets the logger of the loader.
func WithLogger(logger logrus.FieldLogger) LoaderOption {
	return func(loader *AssetLoader) {
		loader.log = logger
	}
}

// WithConcurrency caps the number of assets loaded at once. 0 means no cap.
func WithConcurrency(n int) LoaderOption {
	return func(loader *AssetLoader) {
		loader.concurrency = n
	}
}

// WithAssetTimeout bounds the time spent on a single asset. 0 means no bound,
// a stalled asset then holds the session open until it is cancelled.
func WithAssetTimeout(timeout time.Duration) LoaderOption {
	return func(loader *AssetLoader) {
		loader.timeout = timeout
	}
}

// AssetLoader loads the frames of a sequence concurrently.
type AssetLoader struct {
	fetcher     Fetcher
	log         logrus.FieldLogger
	concurrency int
	timeout     time.Duration
}

// NewAssetLoader creates an AssetLoader.
func NewAssetLoader(opts ...LoaderOption) *AssetLoader {
	loader := &AssetLoader{
		fetcher: &DefaultFetcher{},
		log:     logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(loader)
	}
	return loader
}

// LoadHandle controls a running load session.
type LoadHandle struct {
	sessionID string
	cancelFn  context.CancelFunc
	cancelled atomic.Bool
	done      chan struct{}

	mutex     sync.Mutex
	progress  LoadProgress
	completed bool
}

// SessionID identifies the session in logs.
func (h *LoadHandle) SessionID() string {
	return h.sessionID
}

// Cancel stops the session. No callback starts after Cancel returns.
// Cancel may be called from inside a callback and more than once.
func (h *LoadHandle) Cancel() {
	if h.cancelled.CompareAndSwap(false, true) {
		h.cancelFn()
	}
}

// Cancelled reports whether Cancel was called.
func (h *LoadHandle) Cancelled() bool {
	return h.cancelled.Load()
}

// Progress returns the number of settled assets.
func (h *LoadHandle) Progress() LoadProgress {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return h.progress
}

// Done is closed when every goroutine of the session has finished.
func (h *LoadHandle) Done() <-chan struct{} {
	return h.done
}

func (h *LoadHandle) settle(url string, loadErr *AssetLoadError, cb LoadCallbacks) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	h.progress.Loaded++
	if h.cancelled.Load() {
		return
	}
	if loadErr != nil && cb.OnError != nil {
		cb.OnError(loadErr)
	}
	if cb.OnProgress != nil {
		cb.OnProgress(h.progress, url)
	}
}

func (h *LoadHandle) complete(frames []*Frame, cb LoadCallbacks) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if h.completed || h.cancelled.Load() {
		return
	}
	h.completed = true
	if cb.OnComplete != nil {
		cb.OnComplete(frames)
	}
}

// Start begins loading urls and returns at once. Events are delivered to cb
// from the loader's goroutines.
func (loader *AssetLoader) Start(urls []string, cb LoadCallbacks) (*LoadHandle, error) {
	if len(urls) == 0 {
		return nil, invalidConfig("no frames to load")
	}

	ctx, cancel := context.WithCancel(context.Background())
	handle := &LoadHandle{
		sessionID: uuid.NewString(),
		cancelFn:  cancel,
		done:      make(chan struct{}),
		progress:  LoadProgress{Total: len(urls)},
	}
	log := loader.log.WithField("session", handle.sessionID)
	log.WithField("frames", len(urls)).Debug("Loading sequence")

	urls = append([]string(nil), urls...)
	frames := make([]*Frame, len(urls))

	group := new(errgroup.Group)
	if loader.concurrency > 0 {
		group.SetLimit(loader.concurrency)
	}

	go func() {
		defer close(handle.done)
		defer cancel()

		for i := range urls {
			if ctx.Err() != nil {
				break
			}
			index := i
			group.Go(func() error {
				frames[index] = loader.load(ctx, log, handle, index, urls[index], cb)
				return nil
			})
		}
		group.Wait()

		for i, frame := range frames {
			if frame == nil {
				frames[i] = newPlaceholderFrame(urls[i])
			}
		}
		handle.complete(frames, cb)
		log.WithField("progress", handle.Progress().Percent()).Debug("Sequence load finished")
	}()

	return handle, nil
}

func (loader *AssetLoader) load(ctx context.Context, log logrus.FieldLogger, handle *LoadHandle,
	index int, url string, cb LoadCallbacks) *Frame {

	img, err := loader.fetchAndDecode(ctx, url)
	if err != nil {
		loadErr := &AssetLoadError{URL: url, Index: index, Err: err}
		if !errors.Is(err, context.Canceled) {
			log.WithFields(logrus.Fields{"url": url, "frame": index}).WithError(err).Warn("Failed to load frame")
		}
		handle.settle(url, loadErr, cb)
		return newPlaceholderFrame(url)
	}

	handle.settle(url, nil, cb)
	return newImageFrame(url, img)
}

func (loader *AssetLoader) fetchAndDecode(ctx context.Context, url string) (img image.Image, err error) {
	if loader.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, loader.timeout)
		defer cancel()
	}

	rc, err := loader.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	return decodeFrame(rc)
}
