package core

// SerialDriver is the console transport.
// The method set matches TinyGo's machine.UART and machine.Serial.
type SerialDriver interface {
	// Buffered returns the number of received bytes waiting to be read
	Buffered() int

	// ReadByte returns the next received byte
	ReadByte() (byte, error)

	// WriteByte transmits a single byte
	WriteByte(c byte) error
}
