// Package sdcard reads an SD card in SPI mode: bring-up, the card
// directory in block 0 and chunked streaming of 512 byte blocks.
package sdcard

import (
	"pissoff/core"
	"pissoff/media"
)

// BlockSize is the transfer block size fixed during bring-up
const BlockSize = media.BlockSize

// Timeouts in milliseconds
const (
	initTimeout   = 2000 // CMD0 and ACMD41 retry loops
	readyTimeout  = 300  // Busy wait before each command
	headerTimeout = 5000 // Wait for the data start token
)

// Command indexes
const (
	cmdGoIdleState      = 0
	cmdSendIfCond       = 8
	cmdStopTransmission = 12
	cmdSetBlockLength   = 16
	cmdReadSingleBlock  = 17
	cmdReadMultiBlock   = 18
	cmdAppCommand       = 55
	cmdReadOCR          = 58
	acmdSendOpCond      = 41
)

// Responses, tokens and flags
const (
	r1Ready          = 0x00
	r1IdleState      = 0x01
	r1IllegalCommand = 0x04
	dataStartToken   = 0xfe

	ifCondArgument = 0x000001aa
	hcsFlag        = 0x40000000
	ocrPowerUp     = 0x80000000
	ocrCCS         = 0x40000000

	maxResponsePolls = 0x10
)

// CardType is the card generation found during bring-up
type CardType uint8

const (
	CardSD1  CardType = iota // Standard capacity, version 1
	CardSD2                  // Standard capacity, version 2
	CardSDHC                 // High capacity, block addressed
)

// String returns the card type name
func (t CardType) String() string {
	switch t {
	case CardSD2:
		return "SD2"
	case CardSDHC:
		return "SDHC"
	default:
		return "SD1"
	}
}

type readMode uint8

const (
	modeSingle readMode = iota
	modeMulti
)

type readPhase uint8

const (
	phaseDone      readPhase = iota // No transfer or block finished
	phaseHeader                     // Waiting for the data start token
	phaseStreaming                  // Inside a data block
)

// ChipSelector drives the card's chip select line
type ChipSelector interface {
	SelectCard(selected bool)
}

// Driver is the SD card driver
type Driver struct {
	bus   core.SPIBus
	cs    ChipSelector
	clock core.Clock

	initRate uint32
	runRate  uint32

	err      Error
	cardType CardType

	mode     readMode
	phase    readPhase
	consumed uint16 // Bytes consumed in the current block

	dir Directory

	fill [BlockSize]byte // 0xff bytes clocked out while receiving
	sink [BlockSize]byte // Discarded data
}

// New creates a driver for a card on the given bus
func New(bus core.SPIBus, cs ChipSelector, clock core.Clock) *Driver {
	d := &Driver{
		bus:      bus,
		cs:       cs,
		clock:    clock,
		initRate: core.SPIRateInit,
		runRate:  core.SPIRateRun,
	}
	for i := range d.fill {
		d.fill[i] = 0xff
	}
	return d
}

// SetRates overrides the bring-up and run bus rates in Hz
func (d *Driver) SetRates(initRate, runRate uint32) {
	if initRate != 0 {
		d.initRate = initRate
	}
	if runRate != 0 {
		d.runRate = runRate
	}
}

// LastError returns the last recorded error code
func (d *Driver) LastError() Error {
	return d.err
}

// CardType returns the card type found by Initialize
func (d *Driver) CardType() CardType {
	return d.cardType
}

// Directory returns the directory read by ReadDirectory
func (d *Driver) Directory() *Directory {
	return &d.dir
}

// FileAtIndex returns the file at the given directory position
func (d *Driver) FileAtIndex(index int) (Entry, bool) {
	return d.dir.FileAtIndex(index)
}

// FileCount returns the number of files in the directory
func (d *Driver) FileCount() int {
	return d.dir.FileCount()
}

// FindFile looks a file up by name
func (d *Driver) FindFile(name string) (Entry, bool) {
	return d.dir.FindFile(name)
}

func (d *Driver) fail(e Error) error {
	d.err = e
	return e
}

func (d *Driver) setRate(hz uint32) {
	if err := d.bus.SetRate(hz); err != nil {
		core.DebugPrintln("[SD] set rate " + core.Utoa(hz) + " failed: " + err.Error())
	}
}

// transfer exchanges one byte. A bus error reads as an idle line.
func (d *Driver) transfer(b byte) byte {
	r, err := d.bus.Transfer(b)
	if err != nil {
		return 0xff
	}
	return r
}

func (d *Driver) receive() byte {
	return d.transfer(0xff)
}

// skip discards count bytes
func (d *Driver) skip(count int) {
	for i := 0; i < count; i++ {
		d.receive()
	}
}

// clockIdle sends count idle bytes
func (d *Driver) clockIdle(count int) {
	for i := 0; i < count; i++ {
		d.transfer(0xff)
	}
}

// waitUntilReady waits until the card stops signalling busy
func (d *Driver) waitUntilReady(timeout uint32) bool {
	start := d.clock.Millis()
	for {
		if d.receive() == 0xff {
			return true
		}
		if core.ElapsedMillis(d.clock, start) >= timeout {
			return false
		}
	}
}

// waitForStatus returns the first non-idle byte. ok is false if the
// card stayed idle until the timeout.
func (d *Driver) waitForStatus(timeout uint32) (result byte, ok bool) {
	start := d.clock.Millis()
	result = d.receive()
	for result == 0xff {
		if core.TimedOut(d.clock, start, timeout) {
			return result, false
		}
		result = d.receive()
	}
	return result, true
}

// pollResponse reads until a byte with bit 7 clear or the poll limit
func (d *Driver) pollResponse() byte {
	var result byte
	for i := 0; ; i++ {
		result = d.receive()
		if result&0x80 == 0 || i >= maxResponsePolls {
			return result
		}
	}
}

func (d *Driver) sendFrame(index uint8, argument uint32) {
	crc := byte(0xff)
	switch index {
	case cmdGoIdleState:
		crc = 0x95
	case cmdSendIfCond:
		crc = 0x87
	}
	frame := [6]byte{
		0x40 | index&0x3f,
		byte(argument >> 24),
		byte(argument >> 16),
		byte(argument >> 8),
		byte(argument),
		crc,
	}
	if err := d.bus.Tx(frame[:], nil); err != nil {
		core.DebugPrintln("[SD] command frame failed: " + err.Error())
	}
}

// sendCommand sends a command and returns R1 plus the 32 bit payload of
// R3/R7 responses (big-endian).
func (d *Driver) sendCommand(index uint8, argument uint32) (byte, uint32) {
	d.sendFrame(index, argument)
	result := d.pollResponse()
	var value uint32
	if index == cmdSendIfCond || index == cmdReadOCR {
		for i := 0; i < 4; i++ {
			value = value<<8 | uint32(d.receive())
		}
	}
	return result, value
}

func (d *Driver) waitAndSendCommand(index uint8, argument uint32) (byte, uint32) {
	d.waitUntilReady(readyTimeout)
	return d.sendCommand(index, argument)
}

// waitAndSendAppCommand sends CMD55 followed by the application command
func (d *Driver) waitAndSendAppCommand(index uint8, argument uint32) byte {
	d.waitUntilReady(readyTimeout)
	d.sendFrame(cmdAppCommand, 0)
	d.pollResponse()
	result, _ := d.sendCommand(index, argument)
	return result
}

// Initialize brings the card up and switches the bus to the run rate
func (d *Driver) Initialize() error {
	start := d.clock.Millis()
	d.phase = phaseDone

	d.cs.SelectCard(false)
	d.setRate(d.initRate)

	// More than 74 clocks to wake the card
	d.cs.SelectCard(true)
	d.clockIdle(100)
	d.cs.SelectCard(false)
	d.clockIdle(2)

	d.cs.SelectCard(true)
	if err := d.bringUp(start); err != nil {
		d.cs.SelectCard(false)
		core.DebugPrintln("[SD] init failed: " + err.Error())
		return err
	}
	d.cs.SelectCard(false)

	d.setRate(d.runRate)
	core.DebugPrintln("[SD] ready, card " + d.cardType.String())
	return nil
}

func (d *Driver) bringUp(start uint32) error {
	// Reset into SPI mode
	for {
		if r, _ := d.waitAndSendCommand(cmdGoIdleState, 0); r == r1IdleState {
			break
		}
		if core.TimedOut(d.clock, start, initTimeout) {
			return d.fail(ErrTimeOut)
		}
	}

	// Version 1 cards reject CMD8
	r, echo := d.waitAndSendCommand(cmdSendIfCond, ifCondArgument)
	if r&r1IllegalCommand != 0 {
		d.cardType = CardSD1
	} else {
		if echo&0xff != ifCondArgument&0xff {
			return d.fail(ErrSendIfCondFailed)
		}
		d.cardType = CardSD2
	}

	var argument uint32
	if d.cardType == CardSD2 {
		argument = hcsFlag
	}
	for d.waitAndSendAppCommand(acmdSendOpCond, argument) != r1Ready {
		if core.TimedOut(d.clock, start, initTimeout) {
			return d.fail(ErrTimeOut)
		}
	}

	if d.cardType == CardSD2 {
		r, ocr := d.waitAndSendCommand(cmdReadOCR, 0)
		if r != r1Ready {
			return d.fail(ErrReadOCRFailed)
		}
		// CCS is only valid once the power up bit is set
		if ocr&(ocrPowerUp|ocrCCS) == ocrPowerUp|ocrCCS {
			d.cardType = CardSDHC
		}
	}

	if r, _ := d.waitAndSendCommand(cmdSetBlockLength, BlockSize); r != r1Ready {
		return d.fail(ErrSetBlockLengthFailed)
	}
	return nil
}

// address converts a block number to the card's read argument
func (d *Driver) address(block uint32) uint32 {
	if d.cardType == CardSDHC {
		return block
	}
	return block * BlockSize
}

// StartRead starts reading a single block
func (d *Driver) StartRead(block uint32) error {
	return d.startRead(cmdReadSingleBlock, modeSingle, block)
}

// StartMultiRead starts reading consecutive blocks until StopRead
func (d *Driver) StartMultiRead(startBlock uint32) error {
	return d.startRead(cmdReadMultiBlock, modeMulti, startBlock)
}

func (d *Driver) startRead(index uint8, mode readMode, block uint32) error {
	d.cs.SelectCard(true)
	defer d.cs.SelectCard(false)

	d.mode = mode
	if r, _ := d.waitAndSendCommand(index, d.address(block)); r != r1Ready {
		d.phase = phaseDone
		return d.fail(ErrReadBlockFailed)
	}
	d.consumed = 0
	d.phase = phaseHeader
	return nil
}

// ReadData reads up to len(buf) bytes of the current block and returns
// the count transferred. At the end of a single block read it returns
// ErrEndOfBlock, possibly with n > 0. Multi block reads move on to the
// next block transparently.
func (d *Driver) ReadData(buf []byte) (int, error) {
	d.cs.SelectCard(true)
	defer d.cs.SelectCard(false)

	switch d.phase {
	case phaseHeader:
		token, ok := d.waitForStatus(headerTimeout)
		if token != dataStartToken {
			d.phase = phaseDone
			if !ok {
				return 0, d.fail(ErrTimeOut)
			}
			return 0, d.fail(ErrReadFailed)
		}
		d.phase = phaseStreaming
		fallthrough

	case phaseStreaming:
		n := BlockSize - int(d.consumed)
		if len(buf) < n {
			n = len(buf)
		}
		if n > 0 {
			if err := d.bus.Tx(d.fill[:n], buf[:n]); err != nil {
				d.phase = phaseDone
				return 0, d.fail(ErrReadFailed)
			}
		}
		d.consumed += uint16(n)
		if d.consumed >= BlockSize {
			// Block checksum is not verified
			d.skip(2)
			d.consumed = 0
			if d.mode == modeSingle {
				d.phase = phaseDone
				return n, ErrEndOfBlock
			}
			d.phase = phaseHeader
		}
		return n, nil

	default:
		return 0, ErrEndOfBlock
	}
}

// StopRead ends the current read. Single block reads are drained to
// the end of the block; multi block reads are stopped with CMD12.
func (d *Driver) StopRead() error {
	if d.mode == modeSingle {
		for {
			if _, err := d.ReadData(d.sink[:]); err != nil {
				return nil
			}
		}
	}

	d.cs.SelectCard(true)
	defer d.cs.SelectCard(false)

	d.phase = phaseDone
	d.sendFrame(cmdStopTransmission, 0)
	// Stuff byte after CMD12
	d.skip(1)
	if r := d.pollResponse(); r != r1Ready {
		return d.fail(ErrReadFailed)
	}
	d.waitUntilReady(readyTimeout)
	return nil
}

// ReadDirectory reads the file list from block 0
func (d *Driver) ReadDirectory() error {
	d.dir.reset()
	if err := d.StartRead(0); err != nil {
		return err
	}
	if err := d.readDirectory(); err != nil {
		d.dir.reset()
		d.StopRead()
		core.DebugPrintln("[SD] directory failed: " + err.Error())
		return err
	}
	// Drain the rest of block 0
	d.StopRead()
	core.DebugPrintln("[SD] directory has " + core.Itoa(d.dir.FileCount()) + " files")
	return nil
}

func (d *Driver) readDirectory() error {
	var header [media.HeaderSize]byte
	if err := d.readFull(header[:media.MagicSize]); err != nil {
		return err
	}
	if media.CheckMagic(header[:media.MagicSize]) != nil {
		return d.fail(ErrUnknownMagic)
	}

	var name [media.MaxNameLength]byte
	for {
		if err := d.readFull(header[:]); err != nil {
			return err
		}
		h, _ := media.DecodeHeader(header[:])
		if h.IsTerminator() {
			return nil
		}
		if err := d.readFull(name[:h.NameLength]); err != nil {
			return err
		}
		if !d.dir.add(Entry{
			StartBlock: h.StartBlock,
			FileSize:   h.FileSize,
			Name:       string(name[:h.NameLength]),
		}) {
			return d.fail(ErrDirectoryFull)
		}
	}
}

// readFull fills buf from the current single block read. Running into
// the end of the block before buf is full is a read failure.
func (d *Driver) readFull(buf []byte) error {
	if len(buf) == 0 {
		return nil
	}
	n, err := d.ReadData(buf)
	if err != nil && err != ErrEndOfBlock {
		return err
	}
	if n < len(buf) {
		return d.fail(ErrReadFailed)
	}
	return nil
}
