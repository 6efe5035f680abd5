package seqplay

import (
	"fmt"
	"image"
	"image/color"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// PlayerState is the lifecycle state of a SequencePlayer.
type PlayerState int

const (
	// StateIdle: no sequence was started yet
	StateIdle PlayerState = iota
	// StateLoading: frames are being fetched
	StateLoading
	// StateReady: frames are loaded, frame 0 is shown, playback never started
	StateReady
	// StatePlaying: frames advance on every host tick
	StatePlaying
	// StatePaused: playback stopped on the current frame
	StatePaused
	// StateCompleted: a non-looping sequence reached its last frame
	StateCompleted
	// StateFailed: no frame of the sequence could be loaded
	StateFailed
	// StateDisposed: the player released its resources
	StateDisposed
)

var playerStateNames = [...]string{
	StateIdle:      "idle",
	StateLoading:   "loading",
	StateReady:     "ready",
	StatePlaying:   "playing",
	StatePaused:    "paused",
	StateCompleted: "completed",
	StateFailed:    "failed",
	StateDisposed:  "disposed",
}

func (s PlayerState) String() string {
	if s < 0 || int(s) >= len(playerStateNames) {
		return fmt.Sprintf("PlayerState(%d)", int(s))
	}
	return playerStateNames[s]
}

var (
	defaultBackground  = color.RGBA{A: 0xFF}
	defaultPlaceholder = color.RGBA{R: 0xF5, G: 0xF5, B: 0xF5, A: 0xFF}
)

// PlayerConfig configures a SequencePlayer.
type PlayerConfig struct {
	FPS      int
	Loop     bool
	Autoplay bool
	// FadeIn fades frame 0 in over the poster once the sequence is loaded.
	// Frame 0 is reported through OnFrame right away but starts invisible
	// and reaches full opacity after FadeIn. The fade is skipped while motion
	// is suppressed.
	FadeIn time.Duration

	// Background fills the surface around the fitted frame.
	Background color.Color
	// Placeholder is drawn for frames whose asset failed to load.
	Placeholder color.Color
	// Poster is shown while loading and when no frame could be loaded.
	Poster image.Image

	Loader *AssetLoader
	Logger logrus.FieldLogger
}

// Listener receives the lifecycle events of a SequencePlayer.
// Events are delivered after the player's lock is released, so handlers may
// call back into the player.
type Listener struct {
	OnProgress func(progress LoadProgress)
	OnLoaded   func(frameCount int)
	OnPlay     func()
	OnPause    func()
	OnFrame    func(index int)
	OnComplete func()
	OnError    func(err error)
}

type loadSession struct {
	handle *LoadHandle
}

// SequencePlayer plays a sequence of still frames on a PaintEngine.
type SequencePlayer struct {
	cfg         PlayerConfig
	clock       FrameClock
	paintEngine PaintEngine
	scheduler   Scheduler
	policy      MotionPolicy
	listener    Listener
	loader      *AssetLoader
	log         logrus.FieldLogger
	unsubscribe func()

	mutex   sync.Mutex
	pending []func()

	state        PlayerState
	session      *loadSession
	progress     LoadProgress
	frames       []*Frame
	currentFrame int
	hasLastTick  bool
	lastTick     time.Duration
	tick         TickRegistration
	fade         *fadeIn

	// resumeWhenAllowed is set when the motion policy vetoed autoplay or
	// paused a running sequence.
	resumeWhenAllowed bool
}

// NewSequencePlayer creates a SequencePlayer drawing on paintEngine and
// driven by scheduler. policy may be nil when motion is never suppressed.
func NewSequencePlayer(cfg PlayerConfig, paintEngine PaintEngine, scheduler Scheduler,
	policy MotionPolicy, listener Listener) (*SequencePlayer, error) {

	clock, err := NewFrameClock(cfg.FPS)
	if err != nil {
		return nil, err
	}
	if paintEngine == nil {
		return nil, invalidConfig("paint engine is required")
	}
	if scheduler == nil {
		return nil, invalidConfig("scheduler is required")
	}

	if cfg.Background == nil {
		cfg.Background = defaultBackground
	}
	if cfg.Placeholder == nil {
		cfg.Placeholder = defaultPlaceholder
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}
	if cfg.Loader == nil {
		cfg.Loader = NewAssetLoader(WithLogger(cfg.Logger))
	}
	if policy == nil {
		policy = StaticMotionPolicy(false)
	}

	player := &SequencePlayer{
		cfg:         cfg,
		clock:       clock,
		paintEngine: paintEngine,
		scheduler:   scheduler,
		policy:      policy,
		listener:    listener,
		loader:      cfg.Loader,
		log:         cfg.Logger,
		state:       StateIdle,
	}
	player.unsubscribe = policy.Subscribe(player.onMotionChanged)
	return player, nil
}

// Start begins loading the frames at urls.
func (p *SequencePlayer) Start(urls []string) error {
	p.mutex.Lock()
	defer p.dispatch()

	if p.state == StateDisposed {
		return ErrDisposed
	}
	if p.state != StateIdle {
		return ErrAlreadyStarted
	}

	session := &loadSession{}
	handle, err := p.loader.Start(urls, LoadCallbacks{
		OnProgress: func(progress LoadProgress, url string) {
			p.onLoadProgress(session, progress)
		},
		OnError: func(loadErr *AssetLoadError) {
			p.onLoadError(session, loadErr)
		},
		OnComplete: func(frames []*Frame) {
			p.onLoadComplete(session, frames)
		},
	})
	if err != nil {
		return err
	}

	session.handle = handle
	p.session = session
	p.progress = LoadProgress{Total: len(urls)}
	p.setState(StateLoading)
	p.drawPoster()
	return nil
}

// Play starts or resumes playback. It does nothing while the motion policy
// suppresses motion. Playing a completed sequence starts over from frame 0.
func (p *SequencePlayer) Play() error {
	p.mutex.Lock()
	defer p.dispatch()
	return p.play()
}

// Pause stops playback on the current frame.
func (p *SequencePlayer) Pause() error {
	p.mutex.Lock()
	defer p.dispatch()
	return p.pause()
}

// Toggle pauses a playing sequence and plays any other one.
func (p *SequencePlayer) Toggle() error {
	p.mutex.Lock()
	defer p.dispatch()

	if p.state == StatePlaying {
		return p.pause()
	}
	return p.play()
}

// Seek shows the frame at index, clamped to the sequence.
func (p *SequencePlayer) Seek(index int) error {
	p.mutex.Lock()
	defer p.dispatch()

	if err := p.checkReady(); err != nil {
		return err
	}

	p.finishFade(false)
	if index < 0 {
		index = 0
	}
	if last := len(p.frames) - 1; index > last {
		index = last
	}
	p.currentFrame = index
	p.drawCurrentFrame()

	if p.state == StateCompleted {
		p.setState(StatePaused)
	}
	return nil
}

// Dispose cancels loading, stops playback and releases the frames and the
// paint engine. It is safe to call more than once.
func (p *SequencePlayer) Dispose() {
	p.mutex.Lock()
	defer p.dispatch()

	if p.state == StateDisposed {
		return
	}
	if p.session != nil {
		p.session.handle.Cancel()
		p.session = nil
	}
	p.unregisterTick()
	p.fade = nil
	if p.unsubscribe != nil {
		p.unsubscribe()
		p.unsubscribe = nil
	}
	for _, frame := range p.frames {
		frame.release()
	}
	p.frames = nil
	p.paintEngine = nil
	p.setState(StateDisposed)
}

// State returns the lifecycle state.
func (p *SequencePlayer) State() PlayerState {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.state
}

// IsPlaying reports whether frames are advancing.
func (p *SequencePlayer) IsPlaying() bool {
	return p.State() == StatePlaying
}

// CurrentFrame returns the index of the shown frame.
func (p *SequencePlayer) CurrentFrame() int {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.currentFrame
}

// FrameCount returns the number of frames, 0 until the sequence is loaded.
func (p *SequencePlayer) FrameCount() int {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return len(p.frames)
}

// Progress returns the load progress.
func (p *SequencePlayer) Progress() LoadProgress {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.progress
}

// dispatch releases the lock and delivers the events queued while it was held.
func (p *SequencePlayer) dispatch() {
	pending := p.pending
	p.pending = nil
	p.mutex.Unlock()

	for _, fn := range pending {
		err := p.deliver(fn)
		if err == nil {
			continue
		}
		p.log.WithError(err).Error("Recovered from panic in event handler")
		if p.listener.OnError != nil {
			p.deliver(func() { p.listener.OnError(err) })
		}
	}
}

// deliver runs one event handler. A panicking handler is turned into an error
// so that it never unwinds through the scheduler.
func (p *SequencePlayer) deliver(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("event handler: %v", r)
		}
	}()
	fn()
	return nil
}

func (p *SequencePlayer) emit(fn func()) {
	p.pending = append(p.pending, fn)
}

func (p *SequencePlayer) emitFrame() {
	if p.listener.OnFrame != nil {
		index := p.currentFrame
		p.emit(func() { p.listener.OnFrame(index) })
	}
}

func (p *SequencePlayer) emitError(err error) {
	if p.listener.OnError != nil {
		p.emit(func() { p.listener.OnError(err) })
	}
}

func (p *SequencePlayer) setState(state PlayerState) {
	if p.state == state {
		return
	}
	p.log.WithFields(logrus.Fields{"from": p.state, "to": state}).Debug("Player state changed")
	p.state = state
}

func (p *SequencePlayer) checkReady() error {
	switch p.state {
	case StateIdle, StateLoading:
		return ErrNotReady
	case StateFailed:
		return ErrNoFrames
	case StateDisposed:
		return ErrDisposed
	}
	return nil
}

func (p *SequencePlayer) play() error {
	if err := p.checkReady(); err != nil {
		return err
	}
	if p.state == StatePlaying {
		return nil
	}
	if p.policy.ShouldSuppressMotion() {
		p.log.Debug("Play request ignored, motion is suppressed")
		return nil
	}

	p.finishFade(true)
	if p.state == StateCompleted {
		p.currentFrame = 0
		p.drawCurrentFrame()
	}

	p.resumeWhenAllowed = false
	p.hasLastTick = false
	p.setState(StatePlaying)
	p.registerTick()
	if p.listener.OnPlay != nil {
		p.emit(p.listener.OnPlay)
	}
	return nil
}

func (p *SequencePlayer) pause() error {
	switch p.state {
	case StateIdle, StateLoading:
		return ErrNotReady
	case StateDisposed:
		return ErrDisposed
	}

	p.resumeWhenAllowed = false
	p.finishFade(true)
	if p.state != StatePlaying {
		return nil
	}
	p.stopPlayback(StatePaused)
	return nil
}

func (p *SequencePlayer) stopPlayback(state PlayerState) {
	p.unregisterTick()
	p.hasLastTick = false
	p.setState(state)
	if state == StatePaused && p.listener.OnPause != nil {
		p.emit(p.listener.OnPause)
	}
}

func (p *SequencePlayer) registerTick() {
	if p.tick == nil {
		p.tick = p.scheduler.Register(p.onTick)
	}
}

func (p *SequencePlayer) unregisterTick() {
	if p.tick != nil {
		p.tick.Unregister()
		p.tick = nil
	}
}

// autoplay starts playback unless motion is suppressed, in which case it is
// deferred until the policy allows motion again.
func (p *SequencePlayer) autoplay() {
	if p.policy.ShouldSuppressMotion() {
		p.resumeWhenAllowed = true
		return
	}
	p.play()
}

func (p *SequencePlayer) onLoadProgress(session *loadSession, progress LoadProgress) {
	p.mutex.Lock()
	defer p.dispatch()

	if p.session != session {
		return
	}
	p.progress = progress
	if p.listener.OnProgress != nil {
		p.emit(func() { p.listener.OnProgress(progress) })
	}
}

func (p *SequencePlayer) onLoadError(session *loadSession, loadErr *AssetLoadError) {
	p.mutex.Lock()
	defer p.dispatch()

	if p.session != session {
		return
	}
	p.emitError(loadErr)
}

func (p *SequencePlayer) onLoadComplete(session *loadSession, frames []*Frame) {
	p.mutex.Lock()
	defer p.dispatch()

	if p.session != session || p.state != StateLoading {
		return
	}

	drawable := 0
	for _, frame := range frames {
		if !frame.Placeholder() {
			drawable++
		}
	}

	p.frames = frames
	p.currentFrame = 0
	if drawable == 0 {
		p.log.WithField("session", session.handle.SessionID()).Error("No frame of the sequence could be loaded")
		p.setState(StateFailed)
		p.drawPoster()
		p.emitError(ErrNoFrames)
		return
	}

	p.setState(StateReady)
	if p.listener.OnLoaded != nil {
		count := len(frames)
		p.emit(func() { p.listener.OnLoaded(count) })
	}

	if p.cfg.FadeIn > 0 && !p.policy.ShouldSuppressMotion() {
		p.fade = &fadeIn{duration: p.cfg.FadeIn}
		p.drawFrame(0, 0)
		p.emitFrame()
		p.registerTick()
		return
	}

	p.drawCurrentFrame()
	if p.cfg.Autoplay {
		p.autoplay()
	}
}

// onMotionChanged reacts to a policy notification. The policy is read again
// under the lock since notifications may arrive out of order.
func (p *SequencePlayer) onMotionChanged(bool) {
	p.mutex.Lock()
	defer p.dispatch()

	if p.state == StateDisposed {
		return
	}

	suppressed := p.policy.ShouldSuppressMotion()

	if suppressed {
		if p.fade != nil {
			p.finishFade(true)
			if p.cfg.Autoplay {
				p.resumeWhenAllowed = true
			}
		}
		p.suppressPlayback()
		return
	}

	if p.resumeWhenAllowed {
		p.resumeWhenAllowed = false
		p.play()
	}
}

func (p *SequencePlayer) suppressPlayback() {
	if p.state != StatePlaying {
		return
	}
	p.log.Debug("Playback paused, motion is suppressed")
	p.stopPlayback(StatePaused)
	p.resumeWhenAllowed = true
}

func (p *SequencePlayer) onTick(now time.Duration) {
	p.mutex.Lock()
	defer p.dispatch()
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("frame tick: %v", r)
			p.log.WithError(err).Error("Recovered from panic in frame tick")
			p.fade = nil
			if p.paintEngine != nil {
				// Leave no paint cycle open behind the panic.
				p.paintEngine.End()
			}
			if p.state == StatePlaying {
				p.stopPlayback(StatePaused)
			} else {
				p.unregisterTick()
			}
			p.emitError(err)
		}
	}()

	if p.fade != nil {
		p.stepFade(now)
		return
	}

	if p.state != StatePlaying {
		p.unregisterTick()
		return
	}
	if p.policy.ShouldSuppressMotion() {
		p.suppressPlayback()
		return
	}

	if !p.hasLastTick || now < p.lastTick {
		p.lastTick = now
		p.hasLastTick = true
		return
	}

	framesToAdvance, remainder := p.clock.FramesElapsed(now, p.lastTick)
	if framesToAdvance == 0 {
		return
	}
	p.lastTick = now - remainder
	p.advance(framesToAdvance)
}

func (p *SequencePlayer) advance(framesToAdvance int) {
	frameCount := len(p.frames)
	if p.cfg.Loop {
		p.currentFrame = (p.currentFrame + framesToAdvance) % frameCount
		p.drawCurrentFrame()
		return
	}

	if target := p.currentFrame + framesToAdvance; target < frameCount-1 {
		p.currentFrame = target
		p.drawCurrentFrame()
		return
	}

	p.currentFrame = frameCount - 1
	p.drawCurrentFrame()
	p.stopPlayback(StateCompleted)
	if p.listener.OnComplete != nil {
		p.emit(p.listener.OnComplete)
	}
}

func (p *SequencePlayer) stepFade(now time.Duration) {
	opacity, done := p.fade.opacity(now)
	p.drawFrame(p.currentFrame, opacity)
	if !done {
		return
	}

	p.fade = nil
	if p.state != StatePlaying {
		p.unregisterTick()
	}
	if p.cfg.Autoplay && p.state == StateReady {
		p.autoplay()
	}
}

// finishFade ends a running fade. With redraw the current frame is shown at
// full opacity.
func (p *SequencePlayer) finishFade(redraw bool) {
	if p.fade == nil {
		return
	}
	p.fade = nil
	if redraw {
		p.drawCurrentFrame()
	}
	if p.state != StatePlaying {
		p.unregisterTick()
	}
}

func (p *SequencePlayer) drawCurrentFrame() {
	p.drawFrame(p.currentFrame, 1)
	p.emitFrame()
}

func (p *SequencePlayer) drawFrame(index int, opacity float64) {
	if p.paintEngine == nil || index < 0 || index >= len(p.frames) {
		return
	}
	frame := p.frames[index]

	p.paint(func() error {
		if err := p.paintEngine.Clear(p.cfg.Background); err != nil {
			return err
		}
		if opacity < 1 && p.cfg.Poster != nil {
			if err := p.paintEngine.DrawImage(p.cfg.Poster, 1); err != nil {
				return err
			}
		}
		if frame.Placeholder() {
			return p.paintEngine.Clear(p.cfg.Placeholder)
		}
		if opacity < 1 {
			return p.paintEngine.DrawImage(frame.Image, opacity)
		}
		return frame.Draw(p.paintEngine)
	})
}

func (p *SequencePlayer) drawPoster() {
	if p.paintEngine == nil {
		return
	}
	p.paint(func() error {
		if p.cfg.Poster == nil {
			return p.paintEngine.Clear(p.cfg.Placeholder)
		}
		if err := p.paintEngine.Clear(p.cfg.Background); err != nil {
			return err
		}
		return p.paintEngine.DrawImage(p.cfg.Poster, 1)
	})
}

// paint wraps draw between Begin and End. Paint errors are reported but do
// not change the playback state.
func (p *SequencePlayer) paint(draw func() error) {
	err := p.paintEngine.Begin()
	if err == nil {
		err = draw()
		if endErr := p.paintEngine.End(); err == nil {
			err = endErr
		}
	}
	if err != nil {
		p.log.WithError(err).Warn("Failed to paint frame")
		p.emitError(err)
	}
}
