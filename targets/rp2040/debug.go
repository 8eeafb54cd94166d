//go:build rp2040

package main

import (
	"machine"

	"pissoff/config"
	"pissoff/core"
)

var debugUART *machine.UART

// InitDebugUART opens UART1 for debug output at 115200 baud and routes
// the core debug writer to it
func InitDebugUART(cfg *config.Config) {
	tx, err := config.ParsePin(cfg.Pins.DebugTX)
	if err != nil {
		return
	}

	debugUART = machine.UART1
	err = debugUART.Configure(machine.UARTConfig{
		BaudRate: 115200,
		TX:       machine.Pin(tx),
		RX:       machine.Pin(tx + 1), // UART1 RX is the next pin
	})
	if err != nil {
		debugUART = nil
		return
	}

	core.SetDebugWriter(func(s string) {
		debugUART.Write([]byte(s))
		debugUART.Write([]byte("\r\n"))
	})
	core.DebugPrintln("=== " + cfg.Banner() + " debug UART ===")
}
