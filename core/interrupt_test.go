//go:build !tinygo

package core

import "testing"

func TestFrequencyTickMicros(t *testing.T) {
	tests := []struct {
		freq     Frequency
		tick     uint64
		expected uint64
	}{
		{Frequency05Hz, 1, 2000000},
		{Frequency3Hz, 3, 1000000},
		{Frequency5Hz, 1, 200000},
		{Frequency44100Hz, 1, 22},
		{Frequency44100Hz, 44100, 1000000},
		{0, 10, 0},
	}
	for _, tt := range tests {
		if got := tt.freq.TickMicros(tt.tick); got != tt.expected {
			t.Errorf("TickMicros(%d) at %d mHz: expected %d, got %d", tt.tick, tt.freq, tt.expected, got)
		}
	}
}

func TestCriticalSectionNesting(t *testing.T) {
	outer := DisableInterrupts()
	inner := DisableInterrupts()
	if !InterruptsMasked() {
		t.Error("Expected interrupts masked")
	}
	RestoreInterrupts(inner)
	if !InterruptsMasked() {
		t.Error("Expected interrupts still masked after inner restore")
	}
	RestoreInterrupts(outer)
	if InterruptsMasked() {
		t.Error("Expected interrupts enabled after outer restore")
	}
}
