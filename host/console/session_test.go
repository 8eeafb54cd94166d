package console

import (
	"bytes"
	"errors"
	"io"
	"testing"
	"time"
)

// fakePort replays scripted device output and records what was written
type fakePort struct {
	in  *bytes.Reader
	out bytes.Buffer
}

func newFakePort(deviceOutput string) *fakePort {
	return &fakePort{in: bytes.NewReader([]byte(deviceOutput))}
}

func (p *fakePort) Read(b []byte) (int, error)  { return p.in.Read(b) }
func (p *fakePort) Write(b []byte) (int, error) { return p.out.Write(b) }

func TestSendAppendsCarriageReturn(t *testing.T) {
	port := newFakePort("")
	s := NewSession(port, 10*time.Millisecond)
	if err := s.Send("play"); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if port.out.String() != "play\r" {
		t.Errorf("Expected %q, got %q", "play\r", port.out.String())
	}
}

func TestSendRejectsFilteredCharacters(t *testing.T) {
	s := NewSession(newFakePort(""), 10*time.Millisecond)
	for _, cmd := range []string{"Play", "main!", "a-b", "this is far too long"} {
		if err := s.Send(cmd); !errors.Is(err, ErrBadCommand) {
			t.Errorf("Send(%q): expected ErrBadCommand, got %v", cmd, err)
		}
	}
}

func TestReadLineStripsLineEnds(t *testing.T) {
	s := NewSession(newFakePort("Welcome!\r\nReady!\r\n"), 10*time.Millisecond)
	for _, want := range []string{"Welcome!", "Ready!"} {
		line, err := s.ReadLine()
		if err != nil {
			t.Fatalf("ReadLine failed: %v", err)
		}
		if line != want {
			t.Errorf("Expected %q, got %q", want, line)
		}
	}
	if _, err := s.ReadLine(); !errors.Is(err, ErrTimeout) {
		t.Errorf("Expected ErrTimeout, got %v", err)
	}
}

type failingPort struct{}

func (failingPort) Read([]byte) (int, error)  { return 0, io.ErrClosedPipe }
func (failingPort) Write([]byte) (int, error) { return 0, io.ErrClosedPipe }

func TestReadLinePassesPortErrors(t *testing.T) {
	s := NewSession(failingPort{}, time.Second)
	if _, err := s.ReadLine(); !errors.Is(err, io.ErrClosedPipe) {
		t.Errorf("Expected io.ErrClosedPipe, got %v", err)
	}
}

func TestExpect(t *testing.T) {
	s := NewSession(newFakePort("a\r\nb\r\nReady!\r\n"), 10*time.Millisecond)
	seen, err := s.Expect("Ready!", 8)
	if err != nil {
		t.Fatalf("Expect failed: %v", err)
	}
	if len(seen) != 2 || seen[0] != "a" || seen[1] != "b" {
		t.Errorf("Expected [a b], got %v", seen)
	}

	s = NewSession(newFakePort("a\r\nb\r\nc\r\n"), 10*time.Millisecond)
	if _, err := s.Expect("Ready!", 2); err == nil {
		t.Error("Expected an error when the line never shows up")
	}
}

func TestInfo(t *testing.T) {
	port := newFakePort("info\r\nPissOff v1.0\r\n")
	s := NewSession(port, 10*time.Millisecond)
	name, v, err := s.Info()
	if err != nil {
		t.Fatalf("Info failed: %v", err)
	}
	if name != "PissOff" {
		t.Errorf("Expected name PissOff, got %q", name)
	}
	if v.Major != 1 || v.Minor != 0 {
		t.Errorf("Expected version 1.0, got %s", v)
	}
	if port.out.String() != "info\r" {
		t.Errorf("Expected info command, got %q", port.out.String())
	}
}

func TestParseInfo(t *testing.T) {
	if _, _, err := ParseInfo("Unknown command: xyz"); err == nil {
		t.Error("Expected an error for a line without a version")
	}
	if _, _, err := ParseInfo("PissOff vx.y"); err == nil {
		t.Error("Expected an error for a malformed version")
	}
	name, v, err := ParseInfo("My Device v2.3.1")
	if err != nil {
		t.Fatalf("ParseInfo failed: %v", err)
	}
	if name != "My Device" || v.Major != 2 || v.Minor != 3 || v.Patch != 1 {
		t.Errorf("Expected My Device 2.3.1, got %q %s", name, v)
	}
}

func TestRequireVersion(t *testing.T) {
	_, v, _ := ParseInfo("PissOff v1.0")
	if err := RequireVersion(v, "1.0"); err != nil {
		t.Errorf("Expected 1.0 to satisfy 1.0, got %v", err)
	}
	if err := RequireVersion(v, "v0.9"); err != nil {
		t.Errorf("Expected 1.0 to satisfy 0.9, got %v", err)
	}
	if err := RequireVersion(v, "1.1"); err == nil {
		t.Error("Expected 1.0 to fail 1.1")
	}
	if err := RequireVersion(v, "latest"); err == nil {
		t.Error("Expected an error for a bad minimum")
	}
}

func TestParseSensorLine(t *testing.T) {
	sample, ok := ParseSensorLine("Sd: 0064 Shr: 0fa0 [#####      ][%%%%   ]")
	if !ok {
		t.Fatal("Expected the sensor line to parse")
	}
	if sample.Normalized != 0x64 || sample.Headroom != 0xfa0 {
		t.Errorf("Expected 0064/0fa0, got %04x/%04x", sample.Normalized, sample.Headroom)
	}
	for _, bad := range []string{"Savg: 005f [#]", "Sd: 64 Shr: 0fa0", "Sd: 0064", "Sd: zzzz Shr: 0fa0"} {
		if _, ok := ParseSensorLine(bad); ok {
			t.Errorf("Expected %q to be rejected", bad)
		}
	}
}

func TestParseRawLine(t *testing.T) {
	v, ok := ParseRawLine("Savg: 005f [##   ]")
	if !ok || v != 0x5f {
		t.Errorf("Expected 005f, got %04x (ok=%v)", v, ok)
	}
	if _, ok := ParseRawLine("Sd: 0064 Shr: 0fa0 [#]"); ok {
		t.Error("Expected a sensor line to be rejected")
	}
}

func TestParseCalibrationLine(t *testing.T) {
	c, ok := ParseCalibrationLine("St: 006e Shr: 0fa0")
	if !ok {
		t.Fatal("Expected the calibration line to parse")
	}
	if c.Threshold != 0x6e || c.Headroom != 0xfa0 {
		t.Errorf("Expected 006e/0fa0, got %04x/%04x", c.Threshold, c.Headroom)
	}
}

func TestParseFileLine(t *testing.T) {
	f, ok := ParseFileLine("File: go away size: 0400 start: 0001")
	if !ok {
		t.Fatal("Expected the file line to parse")
	}
	if f.Name != "go away" || f.Size != 0x400 || f.StartBlock != 1 {
		t.Errorf("Expected go away/0400/0001, got %q/%04x/%04x", f.Name, f.Size, f.StartBlock)
	}
	for _, bad := range []string{"Files: a size: 0400 start: 0001", "File: a size: 0400", "File: a"} {
		if _, ok := ParseFileLine(bad); ok {
			t.Errorf("Expected %q to be rejected", bad)
		}
	}
}
