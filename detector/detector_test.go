package detector

import (
	"errors"
	"testing"

	"pissoff/core"
)

// fakeHardware reads ambient with the emitter off and ambient+reflection
// with it on. reflect may change the reflection per measurement.
type fakeHardware struct {
	ambient    uint16
	reflection uint16
	signal     bool
	flashes    int
	reflect    func(measurement int) uint16
}

func (h *fakeHardware) SetSignal(on bool) {
	if on && !h.signal {
		h.flashes++
	}
	h.signal = on
}

func (h *fakeHardware) ReadSensor() uint16 {
	if !h.signal {
		return h.ambient
	}
	r := h.reflection
	if h.reflect != nil {
		r = h.reflect(h.flashes / 8)
	}
	v := uint32(h.ambient) + uint32(r)
	if v > core.ADCMax {
		v = core.ADCMax
	}
	return uint16(v)
}

type fakeClock struct {
	micros uint64
}

func (c *fakeClock) Millis() uint32        { return uint32(c.micros / 1000) }
func (c *fakeClock) DelayMicros(us uint32) { c.micros += uint64(us) }
func (c *fakeClock) DelayMillis(ms uint32) { c.micros += uint64(ms) * 1000 }
func (c *fakeClock) WaitForInterrupt() {}

type fakeTimer struct {
	purpose core.Purpose
	freq    core.Frequency
}

func (t *fakeTimer) SetHandler(h core.InterruptHandler) {}
func (t *fakeTimer) Arm(p core.Purpose, f core.Frequency) {
	t.purpose = p
	t.freq = f
}
func (t *fakeTimer) Stop() { t.purpose = core.PurposeNone }

func newTestDetector(hw *fakeHardware) (*Detector, *fakeClock, *fakeTimer) {
	clock := &fakeClock{}
	timer := &fakeTimer{}
	return New(hw, clock, timer, Config{}), clock, timer
}

func TestCheckForSignal(t *testing.T) {
	hw := &fakeHardware{ambient: 95, reflection: 400}
	d, clock, _ := newTestDetector(hw)

	normalized, headroom := d.CheckForSignal()

	if headroom != 4000 {
		t.Errorf("Expected headroom 4000, got %d", headroom)
	}
	// Average difference equals the reflection: 400 * 1000 / 4000
	if normalized != 100 {
		t.Errorf("Expected normalized 100, got %d", normalized)
	}
	if hw.signal {
		t.Error("Emitter left on")
	}
	if hw.flashes != 8 {
		t.Errorf("Expected 8 flashes, got %d", hw.flashes)
	}
	// 8 intervals of 3 settle delays plus a 100 settle pause
	if clock.micros != 8*(3*100+100*100) {
		t.Errorf("Expected %dus of delays, got %d", 8*(3*100+100*100), clock.micros)
	}
}

func TestCheckForSignalHeadroomClamp(t *testing.T) {
	hw := &fakeHardware{ambient: core.ADCMax}
	hw.reflect = func(int) uint16 { return 0 }
	d, _, _ := newTestDetector(hw)

	normalized, headroom := d.CheckForSignal()
	if headroom != 1 {
		t.Errorf("Expected headroom clamped to 1, got %d", headroom)
	}
	if normalized != 0 {
		t.Errorf("Expected normalized 0 without reflection, got %d", normalized)
	}
}

type dimmingHardware struct {
	signal bool
}

func (h *dimmingHardware) SetSignal(on bool) { h.signal = on }
func (h *dimmingHardware) ReadSensor() uint16 {
	if h.signal {
		return core.ADCMax - 15
	}
	return core.ADCMax
}

func TestCheckForSignalSaturatedAmbient(t *testing.T) {
	d := New(&dimmingHardware{}, &fakeClock{}, &fakeTimer{}, Config{})

	normalized, headroom := d.CheckForSignal()
	if headroom != 1 {
		t.Errorf("Expected headroom 1, got %d", headroom)
	}
	if normalized != 15000 {
		t.Errorf("Expected normalized 15000, got %d", normalized)
	}
}

func TestCalibrateConverges(t *testing.T) {
	hw := &fakeHardware{ambient: 95, reflection: 400}
	d, _, _ := newTestDetector(hw)

	if err := d.Calibrate(); err != nil {
		t.Fatalf("Calibrate failed: %v", err)
	}
	// Start at 100, which the steady signal reaches, step to 105, converge, add margin
	if d.Threshold() != 110 {
		t.Errorf("Expected threshold 110, got %d", d.Threshold())
	}
	if d.LastHeadroom() != 4000 {
		t.Errorf("Expected headroom 4000, got %d", d.LastHeadroom())
	}
}

func TestCalibrateIsBounded(t *testing.T) {
	hw := &fakeHardware{ambient: 95}
	// The signal keeps growing faster than the threshold
	hw.reflect = func(m int) uint16 {
		r := 200 + m*40
		if r > 4000 {
			r = 4000
		}
		return uint16(r)
	}
	d, _, _ := newTestDetector(hw)
	before := d.Threshold()

	err := d.Calibrate()
	if !errors.Is(err, ErrCalibrationBoundExceeded) {
		t.Fatalf("Expected ErrCalibrationBoundExceeded, got %v", err)
	}
	if d.Threshold() != before {
		t.Errorf("Expected threshold %d kept after failure, got %d", before, d.Threshold())
	}

	// Start threshold 50, each step needs at least one measurement
	maxSteps := (950 - 50) / 5
	measurements := hw.flashes / 8
	if measurements > maxSteps+2 {
		t.Errorf("Expected at most %d measurements, got %d", maxSteps+2, measurements)
	}
}

func TestCalibrateNoisyStartFailsImmediately(t *testing.T) {
	hw := &fakeHardware{ambient: 95, reflection: 3900}
	d, _, _ := newTestDetector(hw)

	if err := d.Calibrate(); err != ErrCalibrationBoundExceeded {
		t.Errorf("Expected ErrCalibrationBoundExceeded, got %v", err)
	}
	if hw.flashes != 8 {
		t.Errorf("Expected a single measurement, got %d", hw.flashes/8)
	}
}

// run feeds a scripted sequence of hits (true) and misses (false)
func run(d *Detector, hw *fakeHardware, script []bool) {
	for _, hit := range script {
		if hit {
			hw.reflection = 400
		} else {
			hw.reflection = 0
		}
		d.OnSample()
	}
}

func TestHysteresis(t *testing.T) {
	tests := []struct {
		name     string
		script   []bool
		positive uint8
		alarm    bool
	}{
		{"four hits", []bool{true, true, true, true}, 4, false},
		{"five hits", []bool{true, true, true, true, true}, 5, true},
		{"single miss keeps streak", []bool{true, true, false, true}, 3, false},
		{"two misses reset", []bool{true, true, false, false}, 0, false},
		{"single misses between hits", []bool{true, false, true, false, true, false, true, true}, 5, true},
		{"reset then hits", []bool{true, true, true, false, false, true}, 1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hw := &fakeHardware{ambient: 95}
			d, _, _ := newTestDetector(hw)
			d.threshold = 50

			run(d, hw, tt.script)

			if d.positive != tt.positive {
				t.Errorf("Expected positive streak %d, got %d", tt.positive, d.positive)
			}
			if d.IsAlarm() != tt.alarm {
				t.Errorf("Expected alarm %v, got %v", tt.alarm, d.IsAlarm())
			}
		})
	}
}

func TestHitLightsIndicator(t *testing.T) {
	hw := &fakeHardware{ambient: 95}
	d, _, _ := newTestDetector(hw)
	d.threshold = 50

	run(d, hw, []bool{true})
	if !hw.signal {
		t.Error("Expected indicator on after a hit")
	}
	run(d, hw, []bool{false})
	if hw.signal {
		t.Error("Expected indicator off after a miss")
	}
}

func TestStartResetsStreaks(t *testing.T) {
	hw := &fakeHardware{ambient: 95}
	d, _, timer := newTestDetector(hw)
	d.threshold = 50
	run(d, hw, []bool{true, true, true, true, true, true})

	d.Start()
	if d.IsAlarm() {
		t.Error("Expected alarm cleared by Start")
	}
	if timer.purpose != core.PurposeDetect || timer.freq != core.Frequency5Hz {
		t.Errorf("Expected detection armed at 5Hz, got %v at %d", timer.purpose, timer.freq)
	}

	d.Stop()
	if timer.purpose != core.PurposeNone {
		t.Error("Expected detection disarmed")
	}
}

func TestAverageSensorValue(t *testing.T) {
	hw := &fakeHardware{ambient: 1234}
	d, _, _ := newTestDetector(hw)
	if v := d.AverageSensorValue(); v != 1234 {
		t.Errorf("Expected 1234, got %d", v)
	}
}

func TestConfigKeepsThresholdInRange(t *testing.T) {
	tests := []struct {
		step, max uint16
		wantMax   uint16
	}{
		{5, 950, 950},
		{10, 0xffff, 0xffff - 20},
		{0x4000, 0xfff0, 0xffff - 0x8000},
		{0x9000, 0x1000, 0},
	}
	for _, tt := range tests {
		d := New(&fakeHardware{}, &fakeClock{}, &fakeTimer{}, Config{Step: tt.step, MaxThreshold: tt.max})
		if got := d.Config().MaxThreshold; got != tt.wantMax {
			t.Errorf("Step %d max %d: expected %d, got %d", tt.step, tt.max, tt.wantMax, got)
		}
	}
}
