package core

// DACMax is the largest value accepted by the audio output stage (6 bits)
const DACMax = 0x3f

// DACDriver is the audio output stage.
// Platform-specific implementations drive a PWM channel or a resistor ladder.
type DACDriver interface {
	// SetEnabled powers the output stage (amplifier) up or down
	SetEnabled(enabled bool) error

	// SetValue sets the output level (0 to DACMax).
	// Called from interrupt context at the audio sample rate.
	SetValue(value uint8)
}
