//go:build !tinygo

package console

import (
	"testing"

	"pissoff/core/simhw"
)

func newTestConsole() (*Console, *simhw.Serial) {
	serial := &simhw.Serial{}
	return New(serial), serial
}

func readLine(t *testing.T, c *Console) (string, bool) {
	t.Helper()
	var buf [BufferSize]byte
	n, ok := c.ReadLine(&buf)
	for i := n; i < BufferSize; i++ {
		if buf[i] != 0 {
			t.Errorf("Expected zero padding at %d, got %#x", i, buf[i])
		}
	}
	return string(buf[:n]), ok
}

func TestReadLine(t *testing.T) {
	c, serial := newTestConsole()

	serial.Type("ma")
	if _, ok := readLine(t, c); ok {
		t.Error("Expected no line before the newline")
	}
	serial.Type("in\r")
	line, ok := readLine(t, c)
	if !ok || line != "main" {
		t.Errorf("Expected line \"main\", got %q (%v)", line, ok)
	}
	if got := serial.Output(); got != "main\r\n" {
		t.Errorf("Expected echo \"main\\r\\n\", got %q", got)
	}
	if c.Pending() != 0 {
		t.Errorf("Expected empty buffer, got %d pending", c.Pending())
	}
}

func TestReceiveFilter(t *testing.T) {
	c, serial := newTestConsole()

	serial.Type("Pl@y play!\n")
	line, ok := readLine(t, c)
	if !ok {
		t.Fatal("Expected a line")
	}
	if line != "ly play" {
		t.Errorf("Expected filtered line \"ly play\", got %q", line)
	}
	if got := serial.Output(); got != "ly play\r\n" {
		t.Errorf("Expected echo of accepted characters only, got %q", got)
	}
}

func TestTwoLines(t *testing.T) {
	c, serial := newTestConsole()

	serial.Type("info\nhelp\n")
	first, ok := readLine(t, c)
	if !ok || first != "info" {
		t.Errorf("Expected \"info\", got %q", first)
	}
	second, ok := readLine(t, c)
	if !ok || second != "help" {
		t.Errorf("Expected \"help\", got %q", second)
	}
	if _, ok := readLine(t, c); ok {
		t.Error("Expected no third line")
	}
}

func TestLongLineTruncated(t *testing.T) {
	c, serial := newTestConsole()

	serial.Type("abcdefghijklmnopqrstuvwxyz\n")
	line, ok := readLine(t, c)
	if !ok {
		t.Fatal("Expected a line")
	}
	if line != "abcdefghijklmn" {
		t.Errorf("Expected first 14 characters, got %q", line)
	}

	// Everything after the reserved slot was dropped with the line
	if _, ok := readLine(t, c); ok {
		t.Error("Expected no leftover line")
	}
}

func TestBufferWrapsAround(t *testing.T) {
	c, serial := newTestConsole()

	for i := 0; i < 10; i++ {
		serial.Type("dump\n")
		line, ok := readLine(t, c)
		if !ok || line != "dump" {
			t.Fatalf("Round %d: expected \"dump\", got %q", i, line)
		}
	}
	serial.TakeOutput()

	serial.Type("cali")
	readLine(t, c)
	serial.Type("\n")
	line, _ := readLine(t, c)
	if line != "cali" {
		t.Errorf("Expected \"cali\" across the wrap, got %q", line)
	}
	if got := serial.Output(); got != "cali\r\n" {
		t.Errorf("Expected each character echoed once, got %q", got)
	}
}

func TestReceiveReservesNewline(t *testing.T) {
	c := New(&simhw.Serial{})
	for i := 0; i < 20; i++ {
		c.Receive('x')
	}
	if c.Pending() != BufferSize-2 {
		t.Errorf("Expected %d pending, got %d", BufferSize-2, c.Pending())
	}
	c.Receive('\n')
	if c.Pending() != BufferSize-1 {
		t.Errorf("Expected %d pending, got %d", BufferSize-1, c.Pending())
	}
	c.Receive('\n')
	if c.Pending() != BufferSize-1 {
		t.Errorf("Expected full buffer to drop input, got %d pending", c.Pending())
	}
}

func TestSendHelpers(t *testing.T) {
	c, serial := newTestConsole()

	c.SendText("Sd: ")
	c.SendWordHex(0x03e8)
	c.SendCharacter(' ')
	c.SendByteHex(0xAB)
	c.SendNewline()
	c.SendLine("Ready!")

	want := "Sd: 03e8 ab\r\nReady!\r\n"
	if got := serial.Output(); got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}
