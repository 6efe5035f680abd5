package seqplay

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// MotionPolicy tells animation drivers whether motion must be suppressed.
// Drivers check it on every play request and subscribe to be told when it flips.
type MotionPolicy interface {
	ShouldSuppressMotion() bool
	Subscribe(fn func(suppressed bool)) (unsubscribe func())
}

// OverrideStore persists the user's explicit reduced-motion choice.
type OverrideStore interface {
	LoadOverride() (value bool, ok bool, err error)
	SaveOverride(value bool) error
	ClearOverride() error
}

// MotionPreference combines the platform's reduced-motion signal with an
// optional user override. The override, when set, wins.
type MotionPreference struct {
	mutex       sync.Mutex
	ambient     bool
	override    *bool
	store       OverrideStore
	log         logrus.FieldLogger
	subscribers map[int]func(bool)
	nextID      int
}

// NewMotionPreference creates a MotionPreference. When store is not nil the
// persisted override is restored and every later change is written back.
func NewMotionPreference(store OverrideStore, logger logrus.FieldLogger) (*MotionPreference, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	pref := &MotionPreference{
		store:       store,
		log:         logger,
		subscribers: make(map[int]func(bool)),
	}

	if store != nil {
		value, ok, err := store.LoadOverride()
		if err != nil {
			return nil, err
		}
		if ok {
			pref.override = &value
		}
	}
	return pref, nil
}

// ShouldSuppressMotion implements MotionPolicy.
func (pref *MotionPreference) ShouldSuppressMotion() bool {
	pref.mutex.Lock()
	defer pref.mutex.Unlock()
	return pref.effective()
}

// Subscribe implements MotionPolicy. fn is called after every change of the
// effective value, never while the preference is locked.
func (pref *MotionPreference) Subscribe(fn func(suppressed bool)) func() {
	pref.mutex.Lock()
	defer pref.mutex.Unlock()

	id := pref.nextID
	pref.nextID++
	pref.subscribers[id] = fn

	return func() {
		pref.mutex.Lock()
		delete(pref.subscribers, id)
		pref.mutex.Unlock()
	}
}

// SetAmbient records the platform signal.
func (pref *MotionPreference) SetAmbient(reduced bool) {
	pref.update(func() error {
		pref.ambient = reduced
		return nil
	})
}

// Ambient returns the platform signal.
func (pref *MotionPreference) Ambient() bool {
	pref.mutex.Lock()
	defer pref.mutex.Unlock()
	return pref.ambient
}

// SetOverride records an explicit user choice.
func (pref *MotionPreference) SetOverride(reduced bool) error {
	return pref.update(func() error {
		if pref.store != nil {
			if err := pref.store.SaveOverride(reduced); err != nil {
				return err
			}
		}
		pref.override = &reduced
		return nil
	})
}

// ClearOverride drops the user choice, the platform signal applies again.
func (pref *MotionPreference) ClearOverride() error {
	return pref.update(func() error {
		if pref.store != nil {
			if err := pref.store.ClearOverride(); err != nil {
				return err
			}
		}
		pref.override = nil
		return nil
	})
}

// ToggleOverride flips the user choice. An unset override becomes "reduce".
func (pref *MotionPreference) ToggleOverride() error {
	pref.mutex.Lock()
	next := true
	if pref.override != nil {
		next = !*pref.override
	}
	pref.mutex.Unlock()
	return pref.SetOverride(next)
}

// Override returns the user choice and whether one is set.
func (pref *MotionPreference) Override() (bool, bool) {
	pref.mutex.Lock()
	defer pref.mutex.Unlock()
	if pref.override == nil {
		return false, false
	}
	return *pref.override, true
}

func (pref *MotionPreference) effective() bool {
	if pref.override != nil {
		return *pref.override
	}
	return pref.ambient
}

func (pref *MotionPreference) update(change func() error) error {
	pref.mutex.Lock()
	before := pref.effective()
	if err := change(); err != nil {
		pref.mutex.Unlock()
		return err
	}
	after := pref.effective()

	var subscribers []func(bool)
	if before != after {
		for _, fn := range pref.subscribers {
			subscribers = append(subscribers, fn)
		}
	}
	pref.mutex.Unlock()

	if before != after {
		pref.log.WithField("reducedMotion", after).Info("Motion preference changed")
	}
	for _, fn := range subscribers {
		fn(after)
	}
	return nil
}

type staticMotionPolicy bool

// StaticMotionPolicy returns a MotionPolicy that never changes.
func StaticMotionPolicy(suppressed bool) MotionPolicy {
	return staticMotionPolicy(suppressed)
}

func (p staticMotionPolicy) ShouldSuppressMotion() bool {
	return bool(p)
}

func (staticMotionPolicy) Subscribe(fn func(bool)) func() {
	return func() {}
}
