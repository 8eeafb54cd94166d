//go:build rp2040

package main

import (
	"machine"

	"pissoff/config"
	"pissoff/core"
)

// RPSPIBus implements core.SPIBus on a hardware SPI controller.
// Mode 0, the SD card SPI mode.
type RPSPIBus struct {
	*machine.SPI
	sck  machine.Pin
	sdo  machine.Pin
	sdi  machine.Pin
	rate uint32
}

// NewRPSPIBus creates the storage bus from the configured pins
func NewRPSPIBus(cfg *config.Config) *RPSPIBus {
	spi := machine.SPI0
	if cfg.SPI.Bus == 1 {
		spi = machine.SPI1
	}
	sck, _ := config.ParsePin(cfg.Pins.SCK)
	sdo, _ := config.ParsePin(cfg.Pins.SDO)
	sdi, _ := config.ParsePin(cfg.Pins.SDI)
	return &RPSPIBus{
		SPI: spi,
		sck: machine.Pin(sck),
		sdo: machine.Pin(sdo),
		sdi: machine.Pin(sdi),
	}
}

// SetRate reconfigures the controller for a new clock rate
func (b *RPSPIBus) SetRate(hz uint32) error {
	if hz == b.rate {
		return nil
	}
	err := b.SPI.Configure(machine.SPIConfig{
		Frequency: hz,
		SCK:       b.sck,
		SDO:       b.sdo, // SDO = Serial Data Out (MOSI)
		SDI:       b.sdi, // SDI = Serial Data In (MISO)
		Mode:      0,
	})
	if err != nil {
		return err
	}
	b.rate = hz
	core.DebugPrintln("[SPI] rate " + core.Utoa(hz))
	return nil
}
