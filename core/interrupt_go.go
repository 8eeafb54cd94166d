//go:build !tinygo

package core

import "sync/atomic"

// State is the saved interrupt mask depth on regular Go
type State int32

// maskDepth counts nested critical sections so the simulated
// interrupt controller can hold back interrupts while it is non-zero.
var maskDepth int32

// DisableInterrupts enters a critical section and returns the previous state
func DisableInterrupts() State {
	return State(atomic.AddInt32(&maskDepth, 1) - 1)
}

// RestoreInterrupts leaves a critical section entered by DisableInterrupts
func RestoreInterrupts(state State) {
	atomic.StoreInt32(&maskDepth, int32(state))
}

// InterruptsMasked reports whether a critical section is active.
// Only the host build tracks this; it exists for the hardware simulation.
func InterruptsMasked() bool {
	return atomic.LoadInt32(&maskDepth) > 0
}
