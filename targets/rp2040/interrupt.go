//go:build rp2040

package main

import (
	"device/rp"
	"runtime/interrupt"

	"pissoff/core"
)

// The periodic interrupt runs on TIMER alarm 1; the TinyGo runtime
// owns alarm 0.
const alarmBit = 1 << 1

// AlarmInterrupt implements core.TimedInterrupt on a hardware alarm.
// Every tick is scheduled from the arm time, so fractional periods like
// 44.1kHz do not drift.
type AlarmInterrupt struct {
	handler core.InterruptHandler
	purpose core.Purpose
	freq    core.Frequency
	armedAt uint32
	tick    uint64
}

var periodic AlarmInterrupt

// NewAlarmInterrupt enables the alarm interrupt. There is one instance.
func NewAlarmInterrupt() *AlarmInterrupt {
	irq := interrupt.New(rp.IRQ_TIMER_IRQ_1, handleAlarm)
	irq.SetPriority(0x40)
	rp.TIMER.INTE.SetBits(alarmBit)
	irq.Enable()
	return &periodic
}

// SetHandler installs the purpose dispatcher
func (a *AlarmInterrupt) SetHandler(h core.InterruptHandler) {
	state := core.DisableInterrupts()
	a.handler = h
	core.RestoreInterrupts(state)
}

// Arm starts the interrupt, replacing any armed purpose
func (a *AlarmInterrupt) Arm(p core.Purpose, f core.Frequency) {
	state := core.DisableInterrupts()
	defer core.RestoreInterrupts(state)

	rp.TIMER.ARMED.Set(alarmBit)
	rp.TIMER.INTR.Set(alarmBit)
	if f == 0 {
		a.purpose = core.PurposeNone
		return
	}
	a.purpose = p
	a.freq = f
	a.tick = 1
	a.armedAt = GetHardwareTime()
	rp.TIMER.ALARM1.Set(a.armedAt + uint32(f.TickMicros(1)))
}

// Stop disarms the interrupt
func (a *AlarmInterrupt) Stop() {
	state := core.DisableInterrupts()
	rp.TIMER.ARMED.Set(alarmBit)
	rp.TIMER.INTR.Set(alarmBit)
	a.purpose = core.PurposeNone
	core.RestoreInterrupts(state)
}

// reschedule sets the alarm for the next tick still in the future.
// Ticks missed by a slow handler are dropped.
func (a *AlarmInterrupt) reschedule() {
	now := GetHardwareTime()
	for {
		a.tick++
		next := a.armedAt + uint32(a.freq.TickMicros(a.tick))
		if int32(next-now) > 0 {
			rp.TIMER.ALARM1.Set(next)
			return
		}
	}
}

func handleAlarm(interrupt.Interrupt) {
	rp.TIMER.INTR.Set(alarmBit)
	a := &periodic
	if a.purpose == core.PurposeNone || a.handler == nil {
		return
	}
	a.handler.HandleInterrupt(a.purpose)
	if a.purpose != core.PurposeNone {
		a.reschedule()
	}
}
