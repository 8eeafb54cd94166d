//go:build rp2040

// Package pio drives the audio R-2R ladder from a PIO state machine.
package pio

import (
	"machine"

	rp2pio "github.com/tinygo-org/pio/rp2-pio"

	"pissoff/core"
)

// dacBits is the width of the R-2R ladder
const dacBits = 6

// buildDACProgram creates the DAC program using AssemblerV0.
// Each FIFO word carries one 6-bit sample in its low bits.
func buildDACProgram() []uint16 {
	asm := rp2pio.AssemblerV0{SidesetBits: 0}
	return []uint16{
		// .wrap_target
		asm.Pull(false, true).Encode(),                // 0: pull block
		asm.Out(rp2pio.OutDestPins, dacBits).Encode(), // 1: out pins, 6
		// .wrap
	}
}

const dacPIOOrigin = -1 // Load anywhere

// R2RDAC implements core.DACDriver on six consecutive pins
type R2RDAC struct {
	pio    *rp2pio.PIO
	sm     rp2pio.StateMachine
	base   machine.Pin
	enable machine.Pin
	offset uint8
	ready  bool
}

// NewR2RDAC creates a PIO DAC
// pioNum: 0 for PIO0, 1 for PIO1
// smNum: 0-3 for state machine number
func NewR2RDAC(pioNum, smNum uint8) *R2RDAC {
	var pioHW *rp2pio.PIO
	if pioNum == 0 {
		pioHW = rp2pio.PIO0
	} else {
		pioHW = rp2pio.PIO1
	}
	return &R2RDAC{
		pio: pioHW,
		sm:  pioHW.StateMachine(smNum),
	}
}

// Init loads the program and claims the pins. base is the lowest
// ladder bit, enable powers the amplifier.
func (d *R2RDAC) Init(base, enable machine.Pin) error {
	d.base = base
	d.enable = enable

	// Claim the state machine first
	d.sm.TryClaim()

	program := buildDACProgram()
	offset, err := d.pio.AddProgram(program, dacPIOOrigin)
	if err != nil {
		return err
	}
	d.offset = offset

	for i := machine.Pin(0); i < dacBits; i++ {
		(base + i).Configure(machine.PinConfig{Mode: d.pio.PinMode()})
	}
	d.enable.Configure(machine.PinConfig{Mode: machine.PinOutput})
	d.enable.Low()

	cfg := rp2pio.DefaultStateMachineConfig()
	cfg.SetOutPins(base, dacBits)

	// Shift right, autopull disabled (explicit PULL), 32-bit threshold
	cfg.SetOutShift(true, false, 32)
	cfg.SetWrap(offset+uint8(len(program))-1, offset)

	// Full speed, the FIFO paces the program
	cfg.SetClkDivIntFrac(1, 0)

	// Initialize the state machine before setting pin directions
	d.sm.Init(offset, cfg)
	d.sm.SetPindirsConsecutive(base, dacBits, true)
	d.sm.SetPinsConsecutive(base, dacBits, false)
	d.ready = true
	return nil
}

// SetEnabled starts or stops the state machine and the amplifier
func (d *R2RDAC) SetEnabled(enabled bool) error {
	if !d.ready {
		return nil
	}
	if enabled {
		d.sm.ClearFIFOs()
		d.sm.Restart()
		d.sm.SetEnabled(true)
		d.SetValue(core.DACMax / 2)
	} else {
		d.sm.SetEnabled(false)
		d.sm.SetPinsConsecutive(d.base, dacBits, false)
	}
	d.enable.Set(enabled)
	return nil
}

// SetValue queues one output value. Called from the audio interrupt;
// a full FIFO drops the value instead of waiting.
func (d *R2RDAC) SetValue(value uint8) {
	if !d.ready || d.sm.IsTxFIFOFull() {
		return
	}
	d.sm.TxPut(uint32(value & core.DACMax))
}
