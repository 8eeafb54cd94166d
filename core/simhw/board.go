//go:build !tinygo

package simhw

import "pissoff/core"

// Default simulated pin assignments
const (
	PinSignal     core.GPIOPin      = 25
	PinChipSelect core.GPIOPin      = 17
	ChannelSensor core.ADCChannelID = 0
)

// Sim bundles a simulated board with handles on every simulated part
type Sim struct {
	Board     *core.Board
	Clock     *Clock
	GPIO      *GPIO
	ADC       *ADC
	DAC       *DAC
	Serial    *Serial
	Interrupt *Interrupt
}

// NewBoard builds a simulated board. The SPI bus is left empty for the
// caller to attach a storage emulator.
func NewBoard() *Sim {
	clock := NewClock()
	gpio := NewGPIO()
	sim := &Sim{
		Clock:     clock,
		GPIO:      gpio,
		ADC:       NewADC(clock, gpio, PinSignal, ChannelSensor),
		DAC:       &DAC{},
		Serial:    &Serial{},
		Interrupt: NewInterrupt(clock),
	}
	sim.Board = &core.Board{
		GPIO:      sim.GPIO,
		ADC:       sim.ADC,
		DAC:       sim.DAC,
		Console:   sim.Serial,
		Clock:     sim.Clock,
		Interrupt: sim.Interrupt,
		Pins: core.Pins{
			Signal:     PinSignal,
			ChipSelect: PinChipSelect,
			Sensor:     ChannelSensor,
		},
	}
	return sim
}

// TypeAt queues console input at the given virtual time in milliseconds
func (s *Sim) TypeAt(ms uint32, text string) {
	s.Clock.At(ms, func() {
		s.Serial.Type(text)
	})
}
