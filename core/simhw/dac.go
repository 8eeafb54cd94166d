//go:build !tinygo

package simhw

import "pissoff/core"

// DAC is a simulated audio output stage that records every value
type DAC struct {
	enabled bool
	enables int
	values  []uint8
}

// SetEnabled implements core.DACDriver
func (d *DAC) SetEnabled(enabled bool) error {
	if enabled && !d.enabled {
		d.enables++
	}
	d.enabled = enabled
	return nil
}

// SetValue implements core.DACDriver
func (d *DAC) SetValue(value uint8) {
	d.values = append(d.values, value&core.DACMax)
}

// Enabled reports whether the output stage is powered
func (d *DAC) Enabled() bool {
	return d.enabled
}

// Enables returns how often the output stage was powered up
func (d *DAC) Enables() int {
	return d.enables
}

// Values returns every value written since the last Reset
func (d *DAC) Values() []uint8 {
	return d.values
}

// Reset clears the recorded values
func (d *DAC) Reset() {
	d.values = nil
}
