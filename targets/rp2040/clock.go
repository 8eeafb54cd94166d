//go:build rp2040

package main

import (
	"device/arm"
	"runtime"
	"runtime/volatile"
	"unsafe"
)

// RP2040 Timer peripheral memory map
const (
	timerBase     = 0x40054000
	timerTIMERAWH = timerBase + 0x24 // Raw timer high word
	timerTIMERAWL = timerBase + 0x28 // Raw timer low word
)

var (
	timerRAWH = (*volatile.Register32)(unsafe.Pointer(uintptr(timerTIMERAWH)))
	timerRAWL = (*volatile.Register32)(unsafe.Pointer(uintptr(timerTIMERAWL)))
)

// GetHardwareTime reads the low 32 bits of the 1MHz timer
func GetHardwareTime() uint32 {
	return timerRAWL.Get()
}

// GetHardwareUptime reads the full 64-bit RP2040 hardware timer
func GetHardwareUptime() uint64 {
	// Must read high first, then low, then high again to detect rollover
	for {
		high1 := timerRAWH.Get()
		low := timerRAWL.Get()
		high2 := timerRAWH.Get()

		// If high didn't change, we got a consistent reading
		if high1 == high2 {
			return (uint64(high1) << 32) | uint64(low)
		}
	}
}

// rpClock implements core.Clock on the hardware timer
type rpClock struct{}

// Millis returns milliseconds since boot
func (rpClock) Millis() uint32 {
	return uint32(GetHardwareUptime() / 1000)
}

// DelayMicros busy waits. Interrupts keep running.
func (rpClock) DelayMicros(us uint32) {
	start := GetHardwareTime()
	for GetHardwareTime()-start < us {
	}
}

// DelayMillis busy waits in millisecond steps
func (c rpClock) DelayMillis(ms uint32) {
	for ; ms > 0; ms-- {
		c.DelayMicros(1000)
	}
}

// WaitForInterrupt lets queued goroutines run, then sleeps the core
// until the next interrupt
func (rpClock) WaitForInterrupt() {
	runtime.Gosched()
	arm.Asm("wfi")
}
