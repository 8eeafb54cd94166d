//go:build rp2040

package main

import (
	"machine"

	"pissoff/core"
)

// pwmCarrier is the PWM period in nanoseconds, 8 periods per audio sample
const pwmCarrier = 1000000000 / (44100 * 8)

// pwmPeripheral is an interface for PWM hardware peripherals
// This abstracts over TinyGo's unexported *pwmGroup type
type pwmPeripheral interface {
	Configure(config machine.PWMConfig) error
	Channel(pin machine.Pin) (uint8, error)
	Top() uint32
	Set(channel uint8, value uint32)
}

// RP2040PWMDAC implements core.DACDriver with a filtered PWM output.
// The 6-bit value is scaled to the slice's counter top.
type RP2040PWMDAC struct {
	pin     machine.Pin
	enable  machine.Pin
	pwm     pwmPeripheral
	channel uint8
	top     uint32
	ready   bool
}

// NewRP2040PWMDAC creates a PWM DAC on pin with an amplifier enable pin
func NewRP2040PWMDAC(pin, enable machine.Pin) *RP2040PWMDAC {
	d := &RP2040PWMDAC{
		pin:    pin,
		enable: enable,
		// RP2040: GPIO pin N maps to slice (N >> 1) & 0x7
		pwm: getPWMPeripheral(uint8((uint32(pin) >> 1) & 0x7)),
	}
	d.enable.Configure(machine.PinConfig{Mode: machine.PinOutput})
	d.enable.Low()
	return d
}

// SetEnabled powers the output stage up or down
func (d *RP2040PWMDAC) SetEnabled(enabled bool) error {
	if enabled && !d.ready {
		if err := d.pwm.Configure(machine.PWMConfig{Period: pwmCarrier}); err != nil {
			return err
		}
		channel, err := d.pwm.Channel(d.pin)
		if err != nil {
			return err
		}
		d.channel = channel
		d.top = d.pwm.Top()
		d.ready = true
	}
	if d.ready {
		// Park at mid scale to avoid a click
		d.SetValue(core.DACMax / 2)
	}
	d.enable.Set(enabled)
	return nil
}

// SetValue sets the output level. Called from the audio interrupt.
func (d *RP2040PWMDAC) SetValue(value uint8) {
	if !d.ready {
		return
	}
	d.pwm.Set(d.channel, uint32(value&core.DACMax)*d.top/core.DACMax)
}

// getPWMPeripheral returns the PWM peripheral for a given slice number
// RP2040 has 8 PWM slices: PWM0-PWM7
// Returns a pwmPeripheral interface that wraps TinyGo's unexported *pwmGroup type
func getPWMPeripheral(sliceNum uint8) pwmPeripheral {
	switch sliceNum {
	case 0:
		return machine.PWM0
	case 1:
		return machine.PWM1
	case 2:
		return machine.PWM2
	case 3:
		return machine.PWM3
	case 4:
		return machine.PWM4
	case 5:
		return machine.PWM5
	case 6:
		return machine.PWM6
	case 7:
		return machine.PWM7
	default:
		// Should never happen with proper masking
		return machine.PWM0
	}
}
