package core

// Clock is the millisecond time base and delay service.
// Platform-specific implementations read a free-running hardware counter.
type Clock interface {
	// Millis returns a free-running millisecond counter (wraps at 2^32)
	Millis() uint32

	// DelayMicros busy-waits for the given number of microseconds
	DelayMicros(us uint32)

	// DelayMillis busy-waits for the given number of milliseconds
	DelayMillis(ms uint32)

	// WaitForInterrupt powers the core down until the next interrupt
	WaitForInterrupt()
}

// ElapsedMillis returns the milliseconds passed since start.
// Unsigned subtraction keeps this correct across counter wrap.
func ElapsedMillis(clock Clock, start uint32) uint32 {
	return clock.Millis() - start
}

// TimedOut reports whether more than timeout milliseconds passed since start
func TimedOut(clock Clock, start, timeout uint32) bool {
	return ElapsedMillis(clock, start) > timeout
}
