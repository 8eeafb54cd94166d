package app

import (
	"strings"
	"testing"

	"pissoff/console"
)

func lineOf(text string) *[console.BufferSize]byte {
	var buf [console.BufferSize]byte
	copy(buf[:], text)
	return &buf
}

func TestLookupCommand(t *testing.T) {
	tests := []struct {
		line string
		want command
	}{
		{"main", cmdMain},
		{"exit", cmdExit},
		{"dump", cmdDump},
		{"play", cmdPlay},
		{"cali", cmdCali},
		{"info", cmdInfo},
		{"rawd", cmdRawd},
		{"help", cmdHelp},
		{"mainx", cmdMain}, // Only four characters are compared
		{"mai", cmdUnknown},
		{"", cmdUnknown},
		{"play ", cmdPlay},
		{" play", cmdUnknown},
		{"stop", cmdUnknown},
	}
	for _, tt := range tests {
		if got := lookupCommand(lineOf(tt.line)); got != tt.want {
			t.Errorf("lookupCommand(%q): expected %d, got %d", tt.line, tt.want, got)
		}
	}
}

func TestAppendHelp(t *testing.T) {
	want := "Available commands: main, exit, dump, play, cali, info, rawd, help"
	if got := string(appendHelp(nil)); got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}

func TestAppendSensorDump(t *testing.T) {
	got := string(appendSensorDump(nil, 100, 4000, 1000))
	want := "Sd: 0064 Shr: 0fa0 [####" + strings.Repeat(" ", 28) + "][" + strings.Repeat("%", 32) + "]"
	if got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}

	// The first bar position is always drawn
	got = string(appendSensorDump(nil, 0, 1, 1000))
	want = "Sd: 0000 Shr: 0001 [#" + strings.Repeat(" ", 31) + "][%" + strings.Repeat(" ", 31) + "]"
	if got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}

func TestAppendRawDump(t *testing.T) {
	tests := []struct {
		value uint16
		want  string
	}{
		{0x005f, "Savg: 005f [##" + strings.Repeat(" ", 62) + "]"},
		{0x0fff, "Savg: 0fff [" + strings.Repeat("#", 64) + "]"},
		{0x0000, "Savg: 0000 [#" + strings.Repeat(" ", 63) + "]"},
	}
	for _, tt := range tests {
		if got := string(appendRawDump(nil, tt.value)); got != tt.want {
			t.Errorf("Value %#x: expected %q, got %q", tt.value, tt.want, got)
		}
	}
}

func TestStateString(t *testing.T) {
	if StateMaintenance.String() != "maintenance" {
		t.Errorf("Expected \"maintenance\", got %q", StateMaintenance.String())
	}
	if State(42).String() != "unknown" {
		t.Errorf("Expected \"unknown\", got %q", State(42).String())
	}
}
