//go:build rp2040

package main

import (
	"errors"
	"machine"

	"pissoff/core"
)

var (
	errPinNotConfigured = errors.New("pin not configured")
	errBadADCChannel    = errors.New("unsupported ADC channel")
)

// RpAdcDriver implements core.ADCDriver using TinyGo's machine.ADC.
type RpAdcDriver struct {
	arefMilliVolt uint32

	// Per-channel TinyGo ADC handles for the external channels 0-3
	channels [4]*machine.ADC
}

// NewRPAdcDriver constructs the driver but does not Init() it yet.
func NewRPAdcDriver() *RpAdcDriver {
	return &RpAdcDriver{
		arefMilliVolt: 3300,
	}
}

func (d *RpAdcDriver) Init(cfg core.ADCConfig) error {
	if cfg.Reference != 0 {
		d.arefMilliVolt = cfg.Reference
	}
	machine.InitADC()
	return nil
}

// ConfigureChannel sets up a specific ADC channel (pin mux, etc.).
func (d *RpAdcDriver) ConfigureChannel(ch core.ADCChannelID) error {
	if int(ch) >= len(d.channels) {
		return errBadADCChannel
	}
	if d.channels[ch] != nil {
		// already configured
		return nil
	}

	var adc machine.ADC
	switch ch {
	case 0:
		adc = machine.ADC{Pin: machine.ADC0}
	case 1:
		adc = machine.ADC{Pin: machine.ADC1}
	case 2:
		adc = machine.ADC{Pin: machine.ADC2}
	case 3:
		adc = machine.ADC{Pin: machine.ADC3}
	}
	if err := adc.Configure(machine.ADCConfig{}); err != nil {
		return err
	}
	d.channels[ch] = &adc
	return nil
}

// ReadRaw returns a raw 12-bit ADC value (0-4095) from a channel.
// Called from the detection interrupt, so it never allocates.
func (d *RpAdcDriver) ReadRaw(ch core.ADCChannelID) (core.ADCValue, error) {
	if int(ch) >= len(d.channels) || d.channels[ch] == nil {
		return 0, errBadADCChannel
	}
	// machine.ADC scales the 12-bit result to 16 bits
	return core.ADCValue(d.channels[ch].Get() >> 4), nil
}
