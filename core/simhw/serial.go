//go:build !tinygo

package simhw

import (
	"errors"
	"strings"
)

var errNoData = errors.New("simhw: no data")

// Serial is a simulated console port
type Serial struct {
	rx  []byte
	out strings.Builder
}

// Buffered implements core.SerialDriver
func (s *Serial) Buffered() int {
	return len(s.rx)
}

// ReadByte implements core.SerialDriver
func (s *Serial) ReadByte() (byte, error) {
	if len(s.rx) == 0 {
		return 0, errNoData
	}
	c := s.rx[0]
	s.rx = s.rx[1:]
	return c, nil
}

// WriteByte implements core.SerialDriver
func (s *Serial) WriteByte(c byte) error {
	s.out.WriteByte(c)
	return nil
}

// Type queues input as if typed on the terminal
func (s *Serial) Type(text string) {
	s.rx = append(s.rx, text...)
}

// Output returns everything transmitted so far
func (s *Serial) Output() string {
	return s.out.String()
}

// TakeOutput returns and clears the transmitted text
func (s *Serial) TakeOutput() string {
	text := s.out.String()
	s.out.Reset()
	return text
}
