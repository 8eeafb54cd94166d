//go:build !tinygo

// Package simcard emulates an SD card in SPI mode for host tests.
// Every byte clocked through the bus advances the simulated clock by
// the byte time at the current bus rate.
package simcard

import (
	"pissoff/core/simhw"
	"pissoff/media"
)

// Options shape the emulated card
type Options struct {
	Version      int  // 1 or 2, zero means 2
	HighCapacity bool // Block addressing (version 2 only)

	IdlePolls   int  // CMD0 attempts answered with nothing before the card wakes
	InitPolls   int  // ACMD41 attempts answered busy before the card is ready
	ReadLatency int  // Idle bytes before each data start token
	BadEcho     bool // Answer CMD8 with a wrong check pattern
	RejectOCR   bool // Answer CMD58 with an error
	RejectBlock bool // Answer CMD16 with a parameter error
	RejectRead  bool // Answer CMD17/CMD18 with an address error
	Dead        bool // Never answer anything
	DataToken   byte // Token sent before each block, zero means 0xfe
	ZeroToken   bool // Send 0x00 instead of the data token
	NoData      bool // Accept reads but never send a block
	FailAfter   int  // Send a bad token after this many good blocks, zero means never
	BusyBytes   int  // Busy bytes after CMD12, zero means 2
}

// Command is a command frame received by the card
type Command struct {
	Index    uint8
	Argument uint32
	App      bool
}

type cardState uint8

const (
	stateIdle cardState = iota
	stateReady
)

// Card is the emulated card
type Card struct {
	opts  Options
	clock *simhw.Clock
	image []byte

	// ChipSelect reports whether the card is selected. Nil means always.
	ChipSelect func() bool

	rate     uint32
	byteTime uint64
	rates    []uint32

	state     cardState
	idleLeft  int
	initLeft  int
	appNext   bool
	blockSize uint32

	frame    [6]byte
	frameLen int
	out      []byte

	multi     bool
	streaming bool
	block     uint32

	commands []Command
	blocks   int
}

// New creates a card holding the given image
func New(clock *simhw.Clock, image []byte, opts Options) *Card {
	if opts.Version == 0 {
		opts.Version = 2
	}
	if opts.DataToken == 0 {
		opts.DataToken = 0xfe
	}
	if opts.BusyBytes == 0 {
		opts.BusyBytes = 2
	}
	c := &Card{
		opts:     opts,
		clock:    clock,
		image:    image,
		idleLeft: opts.IdlePolls,
		initLeft: opts.InitPolls,
	}
	c.SetRate(400000)
	c.rates = nil
	return c
}

// Attach creates a card and wires it to a simulated board's SPI bus
// and chip select pin
func Attach(sim *simhw.Sim, image []byte, opts Options) *Card {
	c := New(sim.Clock, image, opts)
	c.ChipSelect = func() bool {
		return !sim.GPIO.Level(sim.Board.Pins.ChipSelect)
	}
	sim.Board.SPI = c
	return c
}

// SetRate implements core.SPIBus
func (c *Card) SetRate(hz uint32) error {
	if hz == 0 {
		hz = 1
	}
	c.rate = hz
	c.byteTime = 8000000000 / uint64(hz)
	c.rates = append(c.rates, hz)
	return nil
}

// Tx implements drivers.SPI
func (c *Card) Tx(w, r []byte) error {
	n := len(w)
	if len(r) > n {
		n = len(r)
	}
	for i := 0; i < n; i++ {
		b := byte(0xff)
		if i < len(w) {
			b = w[i]
		}
		out, _ := c.Transfer(b)
		if i < len(r) {
			r[i] = out
		}
	}
	return nil
}

// Transfer implements drivers.SPI
func (c *Card) Transfer(b byte) (byte, error) {
	c.clock.Advance(c.byteTime)
	if c.ChipSelect != nil && !c.ChipSelect() {
		return 0xff, nil
	}
	out := c.next()
	c.consume(b)
	return out, nil
}

// Commands returns every command frame received
func (c *Card) Commands() []Command {
	return c.commands
}

// Rates returns every bus rate set by the host
func (c *Card) Rates() []uint32 {
	return c.rates
}

// Rate returns the current bus rate
func (c *Card) Rate() uint32 {
	return c.rate
}

// BlocksSent returns the number of data blocks streamed
func (c *Card) BlocksSent() int {
	return c.blocks
}

// BlockLength returns the block length set with CMD16
func (c *Card) BlockLength() uint32 {
	return c.blockSize
}

// Streaming reports whether a read transfer is still open
func (c *Card) Streaming() bool {
	return c.streaming
}

func (c *Card) next() byte {
	if len(c.out) == 0 && c.streaming && c.multi {
		c.queueBlock()
	}
	if len(c.out) == 0 {
		return 0xff
	}
	b := c.out[0]
	c.out = c.out[1:]
	if len(c.out) == 0 && c.streaming && !c.multi {
		c.streaming = false
	}
	return b
}

func (c *Card) consume(b byte) {
	if c.frameLen == 0 && b&0xc0 != 0x40 {
		return
	}
	c.frame[c.frameLen] = b
	c.frameLen++
	if c.frameLen < len(c.frame) {
		return
	}
	c.frameLen = 0
	c.execute(c.frame[0]&0x3f, uint32(c.frame[1])<<24|uint32(c.frame[2])<<16|uint32(c.frame[3])<<8|uint32(c.frame[4]))
}

func (c *Card) r1(flags byte) byte {
	if c.state == stateIdle {
		flags |= 0x01
	}
	return flags
}

// respond queues one filler byte followed by the response
func (c *Card) respond(bytes ...byte) {
	c.out = append(append(c.out[:0], 0xff), bytes...)
}

func (c *Card) execute(index uint8, arg uint32) {
	app := c.appNext
	c.appNext = false
	c.commands = append(c.commands, Command{Index: index, Argument: arg, App: app})

	if c.opts.Dead {
		c.out = c.out[:0]
		return
	}

	switch {
	case index == 0:
		c.streaming = false
		if c.idleLeft > 0 {
			c.idleLeft--
			c.out = c.out[:0]
			return
		}
		c.state = stateIdle
		c.respond(0x01)

	case index == 8:
		if c.opts.Version == 1 {
			c.respond(c.r1(0x04))
			return
		}
		echo := byte(arg)
		if c.opts.BadEcho {
			echo ^= 0xff
		}
		c.respond(c.r1(0), 0x00, 0x00, byte(arg>>8)&0x0f, echo)

	case index == 12:
		c.streaming = false
		c.out = c.out[:0]
		c.out = append(c.out, 0xff, 0x00)
		for i := 0; i < c.opts.BusyBytes; i++ {
			c.out = append(c.out, 0x00)
		}

	case index == 16:
		if c.opts.RejectBlock {
			c.respond(c.r1(0x40))
			return
		}
		c.blockSize = arg
		c.respond(c.r1(0))

	case index == 17 || index == 18:
		block := arg
		if !c.highCapacity() {
			if arg%media.BlockSize != 0 {
				c.respond(c.r1(0x20))
				return
			}
			block = arg / media.BlockSize
		}
		if c.state != stateReady || c.opts.RejectRead {
			c.respond(c.r1(0x20))
			return
		}
		c.respond(0x00)
		c.block = block
		c.multi = index == 18
		c.streaming = true
		c.queueBlock()

	case index == 41 && app:
		if c.initLeft > 0 {
			c.initLeft--
		} else {
			c.state = stateReady
		}
		c.respond(c.r1(0))

	case index == 55:
		c.appNext = true
		c.respond(c.r1(0))

	case index == 58:
		if c.opts.RejectOCR {
			c.respond(c.r1(0x04))
			return
		}
		ocr := byte(0x00)
		if c.state == stateReady {
			ocr = 0x80
			if c.highCapacity() {
				ocr |= 0x40
			}
		}
		c.respond(c.r1(0), ocr, 0xff, 0x80, 0x00)

	default:
		c.respond(c.r1(0x04))
	}
}

func (c *Card) highCapacity() bool {
	return c.opts.Version == 2 && c.opts.HighCapacity
}

// queueBlock appends latency, token, the block data and a checksum
func (c *Card) queueBlock() {
	if c.opts.NoData {
		return
	}
	for i := 0; i < c.opts.ReadLatency; i++ {
		c.out = append(c.out, 0xff)
	}
	token := c.opts.DataToken
	if c.opts.ZeroToken {
		token = 0x00
	}
	if c.opts.FailAfter > 0 && c.blocks >= c.opts.FailAfter {
		token = 0x55
	}
	c.out = append(c.out, token)
	start := uint64(c.block) * media.BlockSize
	for i := uint64(0); i < media.BlockSize; i++ {
		b := byte(0)
		if start+i < uint64(len(c.image)) {
			b = c.image[start+i]
		}
		c.out = append(c.out, b)
	}
	c.out = append(c.out, 0x12, 0x34)
	c.block++
	c.blocks++
}
