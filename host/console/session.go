// Package console talks to the device's maintenance console from the host.
package console

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/blang/semver"
)

var (
	ErrTimeout    = errors.New("console: timeout waiting for the device")
	ErrBadCommand = errors.New("console: commands are lowercase letters, digits and spaces")
	ErrNoInfo     = errors.New("console: no version line in the info response")
)

// maxLine is the longest command line the device accepts
const maxLine = 14

// Session is a line-oriented conversation with the device
type Session struct {
	port    io.ReadWriter
	timeout time.Duration
	buf     [1]byte
}

// NewSession wraps an open port. Reads give up after timeout.
func NewSession(port io.ReadWriter, timeout time.Duration) *Session {
	return &Session{port: port, timeout: timeout}
}

// Send writes one command line. The device drops anything it does not
// accept, so such commands are refused here instead.
func (s *Session) Send(cmd string) error {
	if len(cmd) > maxLine {
		return fmt.Errorf("%w: %q is longer than %d characters", ErrBadCommand, cmd, maxLine)
	}
	for i := 0; i < len(cmd); i++ {
		c := cmd[i]
		if !(c == ' ' || (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z')) {
			return fmt.Errorf("%w: %q", ErrBadCommand, cmd)
		}
	}
	_, err := io.WriteString(s.port, cmd+"\r")
	return err
}

// ReadLine returns the next line without its line end
func (s *Session) ReadLine() (string, error) {
	deadline := time.Now().Add(s.timeout)
	var line []byte
	for {
		n, err := s.port.Read(s.buf[:])
		if n == 1 {
			switch c := s.buf[0]; c {
			case '\n':
				return string(line), nil
			case '\r':
			default:
				line = append(line, c)
			}
			continue
		}
		if err != nil && err != io.EOF {
			return "", err
		}
		if time.Now().After(deadline) {
			return "", ErrTimeout
		}
	}
}

// Expect reads lines until one equals want, returning the lines before it
func (s *Session) Expect(want string, maxLines int) ([]string, error) {
	var seen []string
	for i := 0; i < maxLines; i++ {
		line, err := s.ReadLine()
		if err != nil {
			return seen, err
		}
		if line == want {
			return seen, nil
		}
		seen = append(seen, line)
	}
	return seen, fmt.Errorf("console: %q not seen in %d lines", want, maxLines)
}

// Command sends cmd and waits for its echo
func (s *Session) Command(cmd string) error {
	if err := s.Send(cmd); err != nil {
		return err
	}
	_, err := s.Expect(cmd, 32)
	return err
}

// Info asks the device for its name and firmware version
func (s *Session) Info() (string, semver.Version, error) {
	if err := s.Command("info"); err != nil {
		return "", semver.Version{}, err
	}
	for i := 0; i < 8; i++ {
		line, err := s.ReadLine()
		if err != nil {
			return "", semver.Version{}, err
		}
		if name, v, err := ParseInfo(line); err == nil {
			return name, v, nil
		}
	}
	return "", semver.Version{}, ErrNoInfo
}

// ParseInfo splits an info line like "PissOff v1.0"
func ParseInfo(line string) (string, semver.Version, error) {
	i := strings.LastIndex(line, " v")
	if i <= 0 {
		return "", semver.Version{}, ErrNoInfo
	}
	v, err := semver.ParseTolerant(line[i+2:])
	if err != nil {
		return "", semver.Version{}, fmt.Errorf("console: bad version in %q: %w", line, err)
	}
	return line[:i], v, nil
}

// RequireVersion fails if v is older than min
func RequireVersion(v semver.Version, min string) error {
	want, err := semver.ParseTolerant(min)
	if err != nil {
		return fmt.Errorf("console: bad minimum version %q: %w", min, err)
	}
	if v.LT(want) {
		return fmt.Errorf("console: firmware v%s is older than v%s", v, want)
	}
	return nil
}

// SensorSample is one line of the sensor dump
type SensorSample struct {
	Normalized uint16
	Headroom   uint16
}

// FileEntry is one line of the boot directory listing
type FileEntry struct {
	Name       string
	Size       uint16
	StartBlock uint16
}

// Calibration is the threshold report printed after a calibration
type Calibration struct {
	Threshold uint16
	Headroom  uint16
}

func parseHex(s string) (uint16, bool) {
	if len(s) != 4 {
		return 0, false
	}
	v, err := strconv.ParseUint(s, 16, 16)
	if err != nil {
		return 0, false
	}
	return uint16(v), true
}

// fields splits "K1: v1 K2: v2 ..." up to the first '[' into the values
// of the given keys
func fields(line string, keys ...string) ([]uint16, bool) {
	if i := strings.IndexByte(line, '['); i >= 0 {
		line = line[:i]
	}
	parts := strings.Fields(line)
	if len(parts) != 2*len(keys) {
		return nil, false
	}
	values := make([]uint16, len(keys))
	for i, key := range keys {
		if parts[2*i] != key {
			return nil, false
		}
		v, ok := parseHex(parts[2*i+1])
		if !ok {
			return nil, false
		}
		values[i] = v
	}
	return values, true
}

// ParseSensorLine decodes "Sd: 0064 Shr: 0fa0 [...][...]"
func ParseSensorLine(line string) (SensorSample, bool) {
	v, ok := fields(line, "Sd:", "Shr:")
	if !ok {
		return SensorSample{}, false
	}
	return SensorSample{Normalized: v[0], Headroom: v[1]}, true
}

// ParseRawLine decodes "Savg: 005f [...]"
func ParseRawLine(line string) (uint16, bool) {
	v, ok := fields(line, "Savg:")
	if !ok {
		return 0, false
	}
	return v[0], true
}

// ParseCalibrationLine decodes "St: 006e Shr: 0fa0"
func ParseCalibrationLine(line string) (Calibration, bool) {
	v, ok := fields(line, "St:", "Shr:")
	if !ok {
		return Calibration{}, false
	}
	return Calibration{Threshold: v[0], Headroom: v[1]}, true
}

// ParseFileLine decodes "File: <name> size: 0400 start: 0001".
// Names may contain spaces.
func ParseFileLine(line string) (FileEntry, bool) {
	const prefix = "File: "
	if !strings.HasPrefix(line, prefix) {
		return FileEntry{}, false
	}
	rest := line[len(prefix):]
	i := strings.LastIndex(rest, " size: ")
	if i < 0 {
		return FileEntry{}, false
	}
	v, ok := fields(rest[i+1:], "size:", "start:")
	if !ok {
		return FileEntry{}, false
	}
	return FileEntry{Name: rest[:i], Size: v[0], StartBlock: v[1]}, true
}
