package core

import "tinygo.org/x/drivers"

// Common SPI clock rates used by the storage driver
const (
	SPIRateInit = 375000   // Bring-up rate, must stay below 400kHz
	SPIRateRun  = 12000000 // Normal operation
)

// SPIBus is the synchronous serial bus the storage device hangs off.
// Byte exchange follows the tinygo drivers contract so machine.SPI
// satisfies it directly; SetRate switches the clock between bring-up
// and normal operation.
type SPIBus interface {
	drivers.SPI

	// SetRate reconfigures the bus clock in Hz
	SetRate(hz uint32) error
}
