// Package console implements the line console on the serial port.
//
// Received characters are filtered into a small ring buffer, echoed back
// from the main loop and handed out one line at a time. Input is limited
// to lowercase letters, digits, space and line ends.
package console

import "pissoff/core"

const (
	// BufferSize is the input ring size. A line holds at most
	// BufferSize-2 characters plus its newline.
	BufferSize = 16
	bufferMask = BufferSize - 1
)

// Console is the maintenance console
type Console struct {
	serial core.SerialDriver

	// Shared with the receive interrupt
	input     [BufferSize]byte
	readIndex uint8
	echoIndex uint8
	count     uint8
}

// New creates a console on the given transport
func New(serial core.SerialDriver) *Console {
	return &Console{serial: serial}
}

func accepted(c byte) bool {
	switch {
	case c == '\r', c == '\n', c == ' ':
		return true
	case c >= '0' && c <= '9':
		return true
	case c >= 'a' && c <= 'z':
		return true
	}
	return false
}

// Receive stores one received character. Called from the receive
// interrupt, or with interrupts masked.
func (c *Console) Receive(ch byte) {
	if !accepted(ch) {
		return
	}
	if ch == '\r' {
		ch = '\n'
	}

	// The last free slot is reserved for the newline
	if c.count == BufferSize-2 && ch != '\n' {
		return
	}
	if c.count < BufferSize-1 {
		c.input[(c.readIndex+c.count)&bufferMask] = ch
		c.count++
	}
}

// Poll moves every byte waiting in the transport into the input buffer
func (c *Console) Poll() {
	for c.serial.Buffered() > 0 {
		ch, err := c.serial.ReadByte()
		if err != nil {
			return
		}
		state := core.DisableInterrupts()
		c.Receive(ch)
		core.RestoreInterrupts(state)
	}
}

// echoNext sends the oldest character not yet echoed.
// Returns false once everything is echoed.
func (c *Console) echoNext() bool {
	state := core.DisableInterrupts()
	defer core.RestoreInterrupts(state)

	ahead := (c.echoIndex - c.readIndex) & bufferMask
	if c.count <= ahead {
		return false
	}
	ch := c.input[c.echoIndex]
	if ch == '\n' {
		c.SendCharacter('\r')
	}
	c.SendCharacter(ch)
	c.echoIndex = (c.echoIndex + 1) & bufferMask
	return true
}

func (c *Console) at(i uint8) byte {
	return c.input[(c.readIndex+i)&bufferMask]
}

func (c *Console) hasLine() bool {
	if c.count == 0 {
		return false
	}
	if c.count == BufferSize {
		return true
	}
	for i := uint8(0); i < c.count; i++ {
		if c.at(i) == '\n' {
			return true
		}
	}
	return false
}

// ReadLine echoes pending input and extracts one complete line into
// buf, without the newline and without control characters. The rest of
// buf is zeroed. Returns the line length and whether a line was read.
func (c *Console) ReadLine(buf *[BufferSize]byte) (int, bool) {
	c.Poll()
	for c.echoNext() {
	}

	state := core.DisableInterrupts()
	defer core.RestoreInterrupts(state)

	if !c.hasLine() {
		return 0, false
	}

	*buf = [BufferSize]byte{}
	n := 0
	consumed := uint8(0)
	for i := uint8(0); i < c.count; i++ {
		ch := c.at(i)
		consumed++
		if ch == '\n' {
			break
		}
		if ch >= 0x20 {
			buf[n] = ch
			n++
		}
	}
	c.readIndex = (c.readIndex + consumed) & bufferMask
	c.count -= consumed
	return n, true
}

// Pending returns the number of characters in the input buffer
func (c *Console) Pending() int {
	state := core.DisableInterrupts()
	defer core.RestoreInterrupts(state)
	return int(c.count)
}

// SendCharacter transmits one character
func (c *Console) SendCharacter(ch byte) {
	_ = c.serial.WriteByte(ch)
}

// SendText transmits text without a newline
func (c *Console) SendText(text string) {
	for i := 0; i < len(text); i++ {
		c.SendCharacter(text[i])
	}
}

// SendBytes transmits raw text without a newline
func (c *Console) SendBytes(text []byte) {
	for _, ch := range text {
		c.SendCharacter(ch)
	}
}

// SendNewline transmits CR LF
func (c *Console) SendNewline() {
	c.SendCharacter('\r')
	c.SendCharacter('\n')
}

// SendLine transmits text followed by a newline
func (c *Console) SendLine(text string) {
	c.SendText(text)
	c.SendNewline()
}

// SendByteHex transmits a byte as two lowercase hex digits
func (c *Console) SendByteHex(b uint8) {
	var buf [2]byte
	c.SendBytes(core.AppendHexByte(buf[:0], b))
}

// SendWordHex transmits the low 16 bits of a value as four hex digits
func (c *Console) SendWordHex(w uint16) {
	var buf [4]byte
	c.SendBytes(core.AppendHexWord(buf[:0], w))
}
