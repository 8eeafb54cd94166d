// Package audio streams 8-bit sound data from the card to the audio
// output. The main loop refills a ring buffer in chunks while the audio
// interrupt drains it one sample per tick.
package audio

import (
	"pissoff/core"
	"pissoff/sdcard"
)

const (
	BufferSize = 0x100
	bufferMask = 0xff
	ChunkSize  = 32

	// lowWater is the fill level at or below which a chunk is read.
	// Two chunks of headroom keep the refill from reaching unread data.
	lowWater = BufferSize - 2*ChunkSize

	// Silence is the mid-scale sample played past the end of the sound
	Silence = 0x7f

	// dacShift reduces 8-bit samples to the 6-bit output
	dacShift = 2

	// pollMicros paces the main loop while the buffer is full or draining
	pollMicros = 10
)

// Stream stages reported in StreamError
const (
	StageStart = "start reading"
	StageRead  = "while reading"
)

// Storage is the block reader the player streams from
type Storage interface {
	StartMultiRead(startBlock uint32) error
	ReadData(buf []byte) (int, error)
	StopRead() error
	LastError() sdcard.Error
}

// StreamError reports a storage failure that ended playback
type StreamError struct {
	Stage string       // StageStart or StageRead
	Code  sdcard.Error // Storage error code at the time of failure
	Err   error
}

func (e *StreamError) Error() string {
	msg := "audio: error " + e.Stage
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *StreamError) Unwrap() error {
	return e.Err
}

// Stats describes the last playback
type Stats struct {
	Samples   uint32 // Samples sent to the output
	Underruns uint32 // Ticks that found the buffer empty
	BytesRead uint32 // Bytes read from the card
	PeakFill  uint16 // Highest buffer fill seen after a refill
}

// Player is the audio streamer
type Player struct {
	storage Storage
	dac     core.DACDriver
	timer   core.TimedInterrupt
	clock   core.Clock

	// Shared with the interrupt; crossed only in critical sections
	buffer        [BufferSize]byte
	readIndex     uint16
	writeIndex    uint16
	sampleCounter uint32
	targetSize    uint32
	underruns     uint32

	bytesRead uint32
	peakFill  uint16
}

// New creates a player
func New(storage Storage, dac core.DACDriver, timer core.TimedInterrupt, clock core.Clock) *Player {
	return &Player{
		storage: storage,
		dac:     dac,
		timer:   timer,
		clock:   clock,
	}
}

// buffered returns the number of unplayed bytes in the ring
func (p *Player) buffered() uint16 {
	state := core.DisableInterrupts()
	n := (p.writeIndex - p.readIndex) & bufferMask
	core.RestoreInterrupts(state)
	return n
}

// PlaySound plays size bytes starting at startBlock and returns after
// the last sample was sent. The output stage and the audio interrupt
// are shut down on every return path.
func (p *Player) PlaySound(startBlock, size uint32) error {
	if err := p.dac.SetEnabled(true); err != nil {
		core.DebugPrintln("[AUDIO] enable failed: " + err.Error())
	}

	state := core.DisableInterrupts()
	p.readIndex = 0
	p.writeIndex = 0
	p.sampleCounter = 0
	p.targetSize = size
	p.underruns = 0
	core.RestoreInterrupts(state)
	p.bytesRead = 0
	p.peakFill = 0

	p.timer.Arm(core.PurposeAudio, core.Frequency44100Hz)
	defer p.shutdown()

	if err := p.storage.StartMultiRead(startBlock); err != nil {
		return &StreamError{Stage: StageStart, Code: p.storage.LastError(), Err: err}
	}

	for p.bytesRead < size {
		if p.buffered() > lowWater {
			p.clock.DelayMicros(pollMicros)
			continue
		}

		n, err := p.storage.ReadData(p.buffer[p.writeIndex : p.writeIndex+ChunkSize])
		if err != nil || n != ChunkSize {
			code := p.storage.LastError()
			p.storage.StopRead()
			if err == nil {
				err = sdcard.ErrReadFailed
			}
			return &StreamError{Stage: StageRead, Code: code, Err: err}
		}

		state := core.DisableInterrupts()
		p.writeIndex = (p.writeIndex + uint16(n)) & bufferMask
		core.RestoreInterrupts(state)
		p.bytesRead += uint32(n)

		if fill := p.buffered(); fill > p.peakFill {
			p.peakFill = fill
		}
	}

	p.storage.StopRead()

	// Let the interrupt play out the buffer
	for p.buffered() != 0 {
		p.clock.DelayMicros(pollMicros)
	}
	return nil
}

func (p *Player) shutdown() {
	p.timer.Stop()
	if err := p.dac.SetEnabled(false); err != nil {
		core.DebugPrintln("[AUDIO] disable failed: " + err.Error())
	}
}

// OnSample outputs one sample. Called from the audio interrupt.
func (p *Player) OnSample() {
	if p.readIndex == p.writeIndex {
		p.underruns++
		return
	}
	if p.sampleCounter < p.targetSize {
		p.dac.SetValue(p.buffer[p.readIndex] >> dacShift)
	} else {
		p.dac.SetValue(Silence >> dacShift)
	}
	p.readIndex = (p.readIndex + 1) & bufferMask
	p.sampleCounter++
}

// Stats returns the counters of the last playback
func (p *Player) Stats() Stats {
	state := core.DisableInterrupts()
	defer core.RestoreInterrupts(state)
	return Stats{
		Samples:   p.sampleCounter,
		Underruns: p.underruns,
		BytesRead: p.bytesRead,
		PeakFill:  p.peakFill,
	}
}
