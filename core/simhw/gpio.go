//go:build !tinygo

package simhw

import (
	"errors"

	"pissoff/core"
)

var errPinNotOutput = errors.New("simhw: pin not configured as output")

// GPIO is a simulated GPIO bank
type GPIO struct {
	outputs     map[core.GPIOPin]bool
	levels      map[core.GPIOPin]bool
	transitions map[core.GPIOPin]int
}

// NewGPIO creates a GPIO bank with every pin unconfigured
func NewGPIO() *GPIO {
	return &GPIO{
		outputs:     make(map[core.GPIOPin]bool),
		levels:      make(map[core.GPIOPin]bool),
		transitions: make(map[core.GPIOPin]int),
	}
}

// ConfigureOutput implements core.GPIODriver
func (g *GPIO) ConfigureOutput(pin core.GPIOPin) error {
	g.outputs[pin] = true
	return nil
}

// SetPin implements core.GPIODriver
func (g *GPIO) SetPin(pin core.GPIOPin, value bool) error {
	if !g.outputs[pin] {
		return errPinNotOutput
	}
	if g.levels[pin] != value {
		g.transitions[pin]++
	}
	g.levels[pin] = value
	return nil
}

// GetPin implements core.GPIODriver
func (g *GPIO) GetPin(pin core.GPIOPin) (bool, error) {
	return g.levels[pin], nil
}

// Level returns the current pin level
func (g *GPIO) Level(pin core.GPIOPin) bool {
	return g.levels[pin]
}

// Transitions returns how often the pin changed level
func (g *GPIO) Transitions(pin core.GPIOPin) int {
	return g.transitions[pin]
}
