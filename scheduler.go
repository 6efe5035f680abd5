package seqplay

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

const defaultRefreshRate = 60

// TickFunc is called once per host refresh with the monotonic host time.
type TickFunc func(now time.Duration)

// TickRegistration cancels a registered TickFunc.
type TickRegistration interface {
	Unregister()
}

// Scheduler is the host's per-refresh callback hook.
type Scheduler interface {
	Register(fn TickFunc) TickRegistration
}

type tickEntry struct {
	fn     TickFunc
	active atomic.Bool
	owner  *tickRegistry
}

func (entry *tickEntry) Unregister() {
	if entry.active.CompareAndSwap(true, false) {
		entry.owner.remove(entry)
	}
}

type tickRegistry struct {
	mutex   sync.Mutex
	entries []*tickEntry
	onEmpty func()
}

func (r *tickRegistry) add(fn TickFunc) *tickEntry {
	entry := &tickEntry{fn: fn, owner: r}
	entry.active.Store(true)

	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.entries = append(r.entries, entry)
	return entry
}

func (r *tickRegistry) remove(entry *tickEntry) {
	r.mutex.Lock()
	for i, e := range r.entries {
		if e == entry {
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
			break
		}
	}
	empty := len(r.entries) == 0
	onEmpty := r.onEmpty
	r.mutex.Unlock()

	if empty && onEmpty != nil {
		onEmpty()
	}
}

func (r *tickRegistry) len() int {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return len(r.entries)
}

// fire runs every registered callback. Callbacks may unregister themselves.
func (r *tickRegistry) fire(now time.Duration) {
	r.mutex.Lock()
	entries := make([]*tickEntry, len(r.entries))
	copy(entries, r.entries)
	r.mutex.Unlock()

	for _, entry := range entries {
		if entry.active.Load() {
			entry.fn(now)
		}
	}
}

// TickerScheduler drives registered callbacks from a goroutine at a fixed
// refresh rate. The goroutine only runs while something is registered.
// Ticks that are already late are skipped, the frame clock catches up.
type TickerScheduler struct {
	registry tickRegistry
	refresh  time.Duration
	log      logrus.FieldLogger
	epoch    time.Time

	mutex     sync.Mutex
	isRunning bool
	stopCh    chan struct{}
}

// NewTickerScheduler creates a TickerScheduler. refresh <= 0 selects 60 Hz.
func NewTickerScheduler(refresh time.Duration, logger logrus.FieldLogger) *TickerScheduler {
	if refresh <= 0 {
		refresh = time.Second / defaultRefreshRate
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	scheduler := &TickerScheduler{
		refresh: refresh,
		log:     logger,
		epoch:   time.Now(),
	}
	scheduler.registry.onEmpty = scheduler.stop
	return scheduler
}

// Register adds fn to the refresh loop.
func (s *TickerScheduler) Register(fn TickFunc) TickRegistration {
	entry := s.registry.add(fn)
	s.start()
	return entry
}

// Stop halts the refresh loop and drops every registration.
func (s *TickerScheduler) Stop() {
	s.registry.mutex.Lock()
	for _, entry := range s.registry.entries {
		entry.active.Store(false)
	}
	s.registry.entries = nil
	s.registry.mutex.Unlock()
	s.stop()
}

func (s *TickerScheduler) start() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.isRunning {
		return
	}
	s.isRunning = true
	s.stopCh = make(chan struct{})
	go s.run(s.stopCh)
}

func (s *TickerScheduler) stop() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if !s.isRunning || s.registry.len() > 0 {
		return
	}
	s.isRunning = false
	close(s.stopCh)
}

func (s *TickerScheduler) run(stopCh chan struct{}) {
	droppedTickCount := 0
	nextTickTime := time.Now()
	for {
		nextTickTime = nextTickTime.Add(s.refresh)
		if time.Until(nextTickTime) <= 0 {
			droppedTickCount++
			if droppedTickCount%100 == 0 {
				s.log.WithField("dropped", droppedTickCount).Warn("Scheduler: host ticks are running late")
			}
			continue
		}

		timer := time.NewTimer(time.Until(nextTickTime))
		select {
		case <-stopCh:
			timer.Stop()
			return
		case <-timer.C:
		}
		s.registry.fire(time.Since(s.epoch))
	}
}

// ManualScheduler runs registered callbacks only when Tick is called.
type ManualScheduler struct {
	registry tickRegistry
}

// NewManualScheduler creates a ManualScheduler.
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

// Register adds fn to the callbacks run by Tick.
func (s *ManualScheduler) Register(fn TickFunc) TickRegistration {
	entry := s.registry.add(fn)
	return entry
}

// Tick runs every registered callback with now.
func (s *ManualScheduler) Tick(now time.Duration) {
	s.registry.fire(now)
}

// Registered returns the number of registered callbacks.
func (s *ManualScheduler) Registered() int {
	return s.registry.len()
}
