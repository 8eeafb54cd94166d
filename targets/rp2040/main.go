//go:build rp2040

package main

import (
	_ "embed"
	"machine"

	"pissoff/app"
	"pissoff/config"
	"pissoff/core"
	"pissoff/targets/pio"
)

//go:embed board.json
var boardConfig []byte

func main() {
	// Disable the watchdog to clear any state left from before the reset
	err := machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: 0})
	if err != nil {
		return
	}

	cfg, err := config.Load(boardConfig)
	if err != nil {
		// Fall back to the reference wiring rather than not booting
		cfg = config.Default()
	}

	InitDebugUART(cfg)
	core.SetDebugEnabled(cfg.Debug)
	if core.IsDebugEnabled() {
		core.InitAsyncDebug()
	}
	if err != nil {
		core.DebugPrintln("[BOOT] bad board config: " + err.Error())
	}

	pins, _ := cfg.BoardPins()
	board := &core.Board{
		GPIO:      NewRPGPIODriver(),
		ADC:       NewRPAdcDriver(),
		SPI:       NewRPSPIBus(cfg),
		DAC:       newDAC(cfg),
		Console:   initConsole(),
		Clock:     &rpClock{},
		Interrupt: NewAlarmInterrupt(),
		Pins:      pins,
	}

	ctl := app.New(board, cfg)
	ctl.Run()
}

// initConsole opens the maintenance console on UART0 at 115200 baud
func initConsole() core.SerialDriver {
	uart := machine.UART0
	uart.Configure(machine.UARTConfig{
		BaudRate: 115200,
		TX:       machine.UART0_TX_PIN,
		RX:       machine.UART0_RX_PIN,
	})
	return uart
}

// newDAC picks the audio output stage
func newDAC(cfg *config.Config) core.DACDriver {
	base, _ := config.ParsePin(cfg.Pins.DACBase)
	enable, _ := config.ParsePin(cfg.Pins.AudioEnable)
	if cfg.DAC.Mode == config.DACModePIO {
		dac := pio.NewR2RDAC(0, 0)
		if err := dac.Init(machine.Pin(base), machine.Pin(enable)); err == nil {
			return dac
		}
		core.DebugPrintln("[BOOT] PIO DAC unavailable, using PWM")
	}
	return NewRP2040PWMDAC(machine.Pin(base), machine.Pin(enable))
}
