//go:build !tinygo

package simhw

import "pissoff/core"

// Clock is a virtual time base. Time only moves when firmware code
// delays, sleeps or transfers bytes, so simulations are deterministic.
// Timers due inside an advance fire as interrupts: never while
// interrupts are masked and never nested.
type Clock struct {
	now       uint64 // Nanoseconds since boot
	timerList *Timer
	inISR     bool
	sleeps    int
}

var interruptsMasked = core.InterruptsMasked

// NewClock returns a clock at time zero
func NewClock() *Clock {
	return &Clock{}
}

// Now returns the virtual time in nanoseconds
func (c *Clock) Now() uint64 {
	return c.now
}

// Advance moves virtual time forward, firing every due timer
func (c *Clock) Advance(ns uint64) {
	target := c.now + ns
	c.timerDispatch(target)
	if c.now < target {
		c.now = target
	}
}

// Millis implements core.Clock
func (c *Clock) Millis() uint32 {
	return uint32(c.now / 1000000)
}

// DelayMicros implements core.Clock
func (c *Clock) DelayMicros(us uint32) {
	c.Advance(uint64(us) * 1000)
}

// DelayMillis implements core.Clock
func (c *Clock) DelayMillis(ms uint32) {
	c.Advance(uint64(ms) * 1000000)
}

// WaitForInterrupt jumps to the next scheduled timer and fires it.
// With nothing scheduled it idles for one millisecond.
func (c *Clock) WaitForInterrupt() {
	c.sleeps++
	if c.timerList == nil || c.inISR {
		c.Advance(1000000)
		return
	}
	wake := c.timerList.WakeTime
	if wake < c.now {
		wake = c.now
	}
	c.Advance(wake - c.now)
}

// Sleeps returns how often WaitForInterrupt was called
func (c *Clock) Sleeps() int {
	return c.sleeps
}

// RunFor advances the clock by the given number of milliseconds
func (c *Clock) RunFor(ms uint32) {
	c.DelayMillis(ms)
}

// At schedules fn to run at the given virtual time in milliseconds
func (c *Clock) At(ms uint32, fn func()) {
	c.ScheduleTimer(&Timer{
		WakeTime: uint64(ms) * 1000000,
		Handler: func(*Timer) uint8 {
			fn()
			return SF_DONE
		},
	})
}
