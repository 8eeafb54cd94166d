package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"pissoff/host/console"
)

type scriptPort struct {
	in  *strings.Reader
	out bytes.Buffer
}

func (p *scriptPort) Read(b []byte) (int, error)  { return p.in.Read(b) }
func (p *scriptPort) Write(b []byte) (int, error) { return p.out.Write(b) }

func TestRecordDumpSkipsOtherLines(t *testing.T) {
	port := &scriptPort{in: strings.NewReader("dump\r\nSd: 0064 Shr: 0fa0 [#][%]\r\nexi\r\nSd: 0065 Shr: 0f00 [#][%]\r\n")}
	s := console.NewSession(port, 10*time.Millisecond)
	var out bytes.Buffer
	if err := recordDump(s, &out, 2, false); err != nil {
		t.Fatalf("recordDump failed: %v", err)
	}
	want := "0,100,4000\n1,101,3840\n"
	if out.String() != want {
		t.Errorf("Expected %q, got %q", want, out.String())
	}
}

func TestRecordDumpRaw(t *testing.T) {
	port := &scriptPort{in: strings.NewReader("Savg: 005f [#]\r\n")}
	s := console.NewSession(port, 10*time.Millisecond)
	var out bytes.Buffer
	if err := recordDump(s, &out, 1, true); err != nil {
		t.Fatalf("recordDump failed: %v", err)
	}
	if out.String() != "0,95\n" {
		t.Errorf("Expected %q, got %q", "0,95\n", out.String())
	}
	if err := recordDump(s, &out, 1, true); err != console.ErrTimeout {
		t.Errorf("Expected ErrTimeout once the device goes quiet, got %v", err)
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"2", 2 * time.Second},
		{"0.5", 500 * time.Millisecond},
		{"150ms", 150 * time.Millisecond},
	}
	for _, tt := range tests {
		got, err := parseDuration(tt.in)
		if err != nil {
			t.Errorf("parseDuration(%q) failed: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("parseDuration(%q): expected %v, got %v", tt.in, tt.want, got)
		}
	}
	if _, err := parseDuration("soon"); err == nil {
		t.Error("Expected an error for a bad duration")
	}
}

func TestRunMeta(t *testing.T) {
	opts.timeout = time.Second
	lines := make(chan string, 2)
	lines <- "Ready!"
	var out bytes.Buffer
	if err := runMeta("quit", lines, &out); err != errQuit {
		t.Errorf("Expected errQuit, got %v", err)
	}
	if err := runMeta(`expect "Ready!"`, lines, &out); err != nil {
		t.Errorf("Expected the line to be found, got %v", err)
	}
	if err := runMeta("bogus", lines, &out); err == nil {
		t.Error("Expected an error for an unknown meta command")
	}
	if err := runMeta(`expect "unterminated`, lines, &out); err == nil {
		t.Error("Expected a quoting error")
	}
}
