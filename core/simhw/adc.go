//go:build !tinygo

package simhw

import (
	"errors"

	"pissoff/core"
)

var errChannelNotConfigured = errors.New("simhw: ADC channel not configured")

// conversionTime is the simulated duration of one ADC conversion in ns
const conversionTime = 2000

// Sensor models the IR phototransistor. The reading is the ambient
// level plus the reflected emitter light while the emitter is on,
// plus optional pseudo-random noise.
type Sensor struct {
	Ambient    uint16
	Reflection uint16
	Noise      uint16

	// ReflectionAt overrides Reflection with a value over virtual time
	ReflectionAt func(ms uint32) uint16

	rng uint32
}

func (s *Sensor) sample(ms uint32, emitterOn bool) uint16 {
	v := uint32(s.Ambient)
	if emitterOn {
		if s.ReflectionAt != nil {
			v += uint32(s.ReflectionAt(ms))
		} else {
			v += uint32(s.Reflection)
		}
	}
	if s.Noise > 0 {
		// xorshift32
		if s.rng == 0 {
			s.rng = 0x2545f491
		}
		s.rng ^= s.rng << 13
		s.rng ^= s.rng >> 17
		s.rng ^= s.rng << 5
		v += s.rng % uint32(s.Noise+1)
	}
	if v > core.ADCMax {
		v = core.ADCMax
	}
	return uint16(v)
}

// ADC is a simulated converter with the IR sensor on one channel
type ADC struct {
	clock   *Clock
	gpio    *GPIO
	emitter core.GPIOPin
	sensor  core.ADCChannelID

	Sensor Sensor

	configured map[core.ADCChannelID]bool
	samples    int
}

// NewADC creates an ADC whose sensor channel sees the emitter pin
func NewADC(clock *Clock, gpio *GPIO, emitter core.GPIOPin, sensor core.ADCChannelID) *ADC {
	return &ADC{
		clock:      clock,
		gpio:       gpio,
		emitter:    emitter,
		sensor:     sensor,
		configured: make(map[core.ADCChannelID]bool),
	}
}

// Init implements core.ADCDriver
func (a *ADC) Init(cfg core.ADCConfig) error {
	return nil
}

// ConfigureChannel implements core.ADCDriver
func (a *ADC) ConfigureChannel(ch core.ADCChannelID) error {
	a.configured[ch] = true
	return nil
}

// ReadRaw implements core.ADCDriver
func (a *ADC) ReadRaw(ch core.ADCChannelID) (core.ADCValue, error) {
	if !a.configured[ch] {
		return 0, errChannelNotConfigured
	}
	a.clock.Advance(conversionTime)
	a.samples++
	if ch != a.sensor {
		return 0, nil
	}
	return core.ADCValue(a.Sensor.sample(a.clock.Millis(), a.gpio.Level(a.emitter))), nil
}

// Samples returns the number of conversions taken
func (a *ADC) Samples() int {
	return a.samples
}
