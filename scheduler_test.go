package seqplay

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

func TestManualScheduler(t *testing.T) {
	scheduler := NewManualScheduler()
	var ticks []time.Duration
	registration := scheduler.Register(func(now time.Duration) {
		ticks = append(ticks, now)
	})
	assert.Equal(t, 1, scheduler.Registered())

	scheduler.Tick(10 * time.Millisecond)
	scheduler.Tick(20 * time.Millisecond)
	registration.Unregister()
	registration.Unregister()
	scheduler.Tick(30 * time.Millisecond)

	assert.Equal(t, []time.Duration{10 * time.Millisecond, 20 * time.Millisecond}, ticks)
	assert.Zero(t, scheduler.Registered())
}

func TestManualSchedulerUnregisterFromCallback(t *testing.T) {
	scheduler := NewManualScheduler()
	var first, second int
	var registration TickRegistration
	registration = scheduler.Register(func(time.Duration) {
		first++
		registration.Unregister()
	})
	scheduler.Register(func(time.Duration) { second++ })

	scheduler.Tick(0)
	scheduler.Tick(1)
	assert.Equal(t, 1, first)
	assert.Equal(t, 2, second)
}

func TestTickerScheduler(t *testing.T) {
	defer goleak.VerifyNone(t)

	scheduler := NewTickerScheduler(time.Millisecond, nil)
	var count atomic.Int32
	var last atomic.Int64
	registration := scheduler.Register(func(now time.Duration) {
		assert.GreaterOrEqual(t, int64(now), last.Load(), "host time is monotonic")
		last.Store(int64(now))
		count.Add(1)
	})

	assert.Eventually(t, func() bool { return count.Load() >= 5 }, time.Second, time.Millisecond)

	// The loop goroutine stops with the last registration.
	registration.Unregister()
	n := count.Load()
	time.Sleep(20 * time.Millisecond)
	assert.LessOrEqual(t, count.Load(), n+1)
}

func TestTickerSchedulerStop(t *testing.T) {
	defer goleak.VerifyNone(t)

	scheduler := NewTickerScheduler(time.Millisecond, nil)
	var count atomic.Int32
	scheduler.Register(func(time.Duration) { count.Add(1) })
	assert.Eventually(t, func() bool { return count.Load() > 0 }, time.Second, time.Millisecond)

	scheduler.Stop()
	time.Sleep(10 * time.Millisecond)
	n := count.Load()
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, n, count.Load())
}
