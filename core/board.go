package core

import "errors"

var (
	errNoGPIO  = errors.New("board: no GPIO driver")
	errNoADC   = errors.New("board: no ADC driver")
	errNoSPI   = errors.New("board: no SPI bus")
	errNoDAC   = errors.New("board: no DAC driver")
	errNoClock = errors.New("board: no clock")
	errNoTimer = errors.New("board: no timed interrupt")
)

// Pins holds the board pin assignments the firmware core needs
type Pins struct {
	Signal     GPIOPin      // IR emitter and status LED, active high
	ChipSelect GPIOPin      // Storage chip select, active low
	Sensor     ADCChannelID // IR phototransistor
}

// Board is the device context: every hardware driver the firmware uses,
// owned by main and passed to each component explicitly.
type Board struct {
	GPIO      GPIODriver
	ADC       ADCDriver
	SPI       SPIBus
	DAC       DACDriver
	Console   SerialDriver
	Clock     Clock
	Interrupt TimedInterrupt
	Pins      Pins
}

// Init validates the drivers and brings the pins into their idle state
func (b *Board) Init() error {
	switch {
	case b.GPIO == nil:
		return errNoGPIO
	case b.ADC == nil:
		return errNoADC
	case b.SPI == nil:
		return errNoSPI
	case b.DAC == nil:
		return errNoDAC
	case b.Clock == nil:
		return errNoClock
	case b.Interrupt == nil:
		return errNoTimer
	}

	if err := b.GPIO.ConfigureOutput(b.Pins.Signal); err != nil {
		return err
	}
	if err := b.GPIO.ConfigureOutput(b.Pins.ChipSelect); err != nil {
		return err
	}
	// Card deselected, signal off
	if err := b.GPIO.SetPin(b.Pins.ChipSelect, true); err != nil {
		return err
	}
	if err := b.GPIO.SetPin(b.Pins.Signal, false); err != nil {
		return err
	}

	if err := b.ADC.Init(ADCConfig{}); err != nil {
		return err
	}
	if err := b.ADC.ConfigureChannel(b.Pins.Sensor); err != nil {
		return err
	}
	return b.DAC.SetEnabled(false)
}

// SetSignal switches the IR emitter / status LED
func (b *Board) SetSignal(on bool) {
	_ = b.GPIO.SetPin(b.Pins.Signal, on)
}

// ToggleSignal inverts the IR emitter / status LED
func (b *Board) ToggleSignal() {
	on, err := b.GPIO.GetPin(b.Pins.Signal)
	if err != nil {
		return
	}
	_ = b.GPIO.SetPin(b.Pins.Signal, !on)
}

// SelectCard drives the storage chip select (selected pulls the line low)
func (b *Board) SelectCard(selected bool) {
	_ = b.GPIO.SetPin(b.Pins.ChipSelect, !selected)
}

// ReadSensor takes one raw sample of the IR sensor.
// A failed conversion reads as zero.
func (b *Board) ReadSensor() uint16 {
	v, err := b.ADC.ReadRaw(b.Pins.Sensor)
	if err != nil {
		return 0
	}
	return uint16(v) & ADCMax
}
