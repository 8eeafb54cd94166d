package core

// ADCChannelID identifies a logical ADC channel.
type ADCChannelID uint8

// ADCValue is the raw ADC reading as seen by the rest of the firmware.
// Convention here: 12-bit value right-aligned in 16 bits.
type ADCValue uint16

// ADCMax is the full-scale reading of a 12-bit converter.
const ADCMax = 0x0fff

// ADCConfig is the high-level config the core cares about.
type ADCConfig struct {
	Reference  uint32 // Reference voltage in millivolts, 0 = default
	Resolution uint32 // Bits, 0 = default (12)
}

// ADCDriver is the abstract ADC interface that core code uses.
type ADCDriver interface {
	// Init powers up and configures the ADC peripheral.
	Init(cfg ADCConfig) error

	// ConfigureChannel prepares a channel for analog input.
	// For pin-muxed channels, this should set pin to analog mode.
	ConfigureChannel(ch ADCChannelID) error

	// ReadRaw performs a one-shot sample from the given channel.
	ReadRaw(ch ADCChannelID) (ADCValue, error)
}
