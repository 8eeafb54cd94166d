package core

// Purpose selects what the periodic interrupt does when it fires.
// Only one purpose is armed at a time.
type Purpose uint8

const (
	PurposeNone   Purpose = iota
	PurposeBlink          // Toggle the signal LED
	PurposeDetect         // Take one detector sample
	PurposeAudio          // Output one audio sample
)

// String returns the purpose name for debug output
func (p Purpose) String() string {
	switch p {
	case PurposeBlink:
		return "blink"
	case PurposeDetect:
		return "detect"
	case PurposeAudio:
		return "audio"
	default:
		return "none"
	}
}

// Frequency is a periodic interrupt rate in millihertz
type Frequency uint32

// The supported interrupt rates
const (
	Frequency05Hz    Frequency = 500
	Frequency3Hz     Frequency = 3000
	Frequency5Hz     Frequency = 5000
	Frequency44100Hz Frequency = 44100000
)

// TickMicros returns the offset in microseconds of tick n after arming.
// Computing every tick from the arm time keeps fractional periods from drifting.
func (f Frequency) TickMicros(n uint64) uint64 {
	if f == 0 {
		return 0
	}
	return n * 1000000000 / uint64(f)
}

// InterruptHandler receives the periodic interrupt.
// It runs in interrupt context and must return quickly.
type InterruptHandler interface {
	HandleInterrupt(p Purpose)
}

// TimedInterrupt is the periodic interrupt scheduler
type TimedInterrupt interface {
	// SetHandler installs the dispatcher called for every tick
	SetHandler(h InterruptHandler)

	// Arm starts the interrupt at the given rate, replacing any armed purpose
	Arm(p Purpose, f Frequency)

	// Stop disarms the interrupt
	Stop()
}
