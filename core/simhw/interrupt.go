//go:build !tinygo

package simhw

import "pissoff/core"

// Interrupt is a simulated periodic interrupt driven by the virtual clock
type Interrupt struct {
	clock   *Clock
	handler core.InterruptHandler
	purpose core.Purpose
	freq    core.Frequency
	armedAt uint64
	tick    uint64
	timer   *Timer

	fired map[core.Purpose]int
	arms  []core.Purpose
}

// NewInterrupt creates a periodic interrupt on the given clock
func NewInterrupt(clock *Clock) *Interrupt {
	return &Interrupt{
		clock: clock,
		fired: make(map[core.Purpose]int),
	}
}

// SetHandler implements core.TimedInterrupt
func (it *Interrupt) SetHandler(h core.InterruptHandler) {
	it.handler = h
}

// Arm implements core.TimedInterrupt
func (it *Interrupt) Arm(p core.Purpose, f core.Frequency) {
	it.Stop()
	if f == 0 {
		return
	}
	it.purpose = p
	it.freq = f
	it.armedAt = it.clock.now
	it.tick = 1
	it.arms = append(it.arms, p)

	t := &Timer{}
	t.Handler = func(t *Timer) uint8 {
		return it.fire(t)
	}
	it.timer = t
	it.schedule()
	it.clock.insertTimer(t)
}

// Stop implements core.TimedInterrupt
func (it *Interrupt) Stop() {
	if it.timer != nil {
		it.clock.removeTimer(it.timer)
		it.timer = nil
	}
	it.purpose = core.PurposeNone
}

// Armed returns the purpose currently armed
func (it *Interrupt) Armed() core.Purpose {
	return it.purpose
}

// Frequency returns the rate currently armed
func (it *Interrupt) Frequency() core.Frequency {
	return it.freq
}

// Fired returns how many ticks were delivered for a purpose
func (it *Interrupt) Fired(p core.Purpose) int {
	return it.fired[p]
}

// Arms returns every purpose armed so far, in order
func (it *Interrupt) Arms() []core.Purpose {
	return it.arms
}

func (it *Interrupt) schedule() {
	it.timer.WakeTime = it.armedAt + it.freq.TickMicros(it.tick)*1000
}

func (it *Interrupt) fire(t *Timer) uint8 {
	if t != it.timer {
		return SF_DONE
	}
	p := it.purpose
	it.fired[p]++
	if it.handler != nil {
		it.handler.HandleInterrupt(p)
	}
	// Stopped or re-armed from inside the handler
	if t != it.timer {
		return SF_DONE
	}
	// Ticks missed while the handler ran are dropped, like a late alarm
	it.tick++
	it.schedule()
	for t.WakeTime <= it.clock.now {
		it.tick++
		it.schedule()
	}
	return SF_RESCHEDULE
}
