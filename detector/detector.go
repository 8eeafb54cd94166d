// Package detector senses approaching objects by flashing the IR
// emitter and measuring the reflected light against the ambient level.
package detector

import (
	"errors"

	"pissoff/core"
)

var ErrCalibrationBoundExceeded = errors.New("detector: calibration bound exceeded")

// Hardware is the emitter and sensor pair
type Hardware interface {
	SetSignal(on bool)
	ReadSensor() uint16
}

// Config holds the measurement and calibration constants
type Config struct {
	Intervals        uint8  // Emitter flashes per measurement
	Oversampling     uint8  // Sensor samples averaged per reading
	SettleMicros     uint32 // Wait after switching the emitter
	PauseSettles     uint32 // Pause between flashes, in settle delays
	SensorMax        uint16 // Full-scale sensor reading
	NormalizedMax    uint16 // Scale of the normalized difference
	InitialThreshold uint16 // Threshold before the first calibration
	Step             uint16 // Calibration threshold increment
	MaxThreshold     uint16 // Calibration fails at this threshold
	Trials           uint8  // Measurements per calibration step
	AlarmCount       uint8  // Alarm once the positive streak exceeds this
	Rate             core.Frequency
}

// DefaultConfig returns the constants of the reference hardware
func DefaultConfig() Config {
	return Config{
		Intervals:        8,
		Oversampling:     16,
		SettleMicros:     100,
		PauseSettles:     100,
		SensorMax:        core.ADCMax,
		NormalizedMax:    1000,
		InitialThreshold: 8,
		Step:             5,
		MaxThreshold:     950,
		Trials:           32,
		AlarmCount:       4,
		Rate:             core.Frequency5Hz,
	}
}

func (c *Config) applyDefaults() {
	def := DefaultConfig()
	if c.Intervals == 0 {
		c.Intervals = def.Intervals
	}
	if c.Oversampling == 0 {
		c.Oversampling = def.Oversampling
	}
	if c.SettleMicros == 0 {
		c.SettleMicros = def.SettleMicros
	}
	if c.PauseSettles == 0 {
		c.PauseSettles = def.PauseSettles
	}
	if c.SensorMax == 0 {
		c.SensorMax = def.SensorMax
	}
	if c.NormalizedMax == 0 {
		c.NormalizedMax = def.NormalizedMax
	}
	if c.InitialThreshold == 0 {
		c.InitialThreshold = def.InitialThreshold
	}
	if c.Step == 0 {
		c.Step = def.Step
	}
	if c.MaxThreshold == 0 {
		c.MaxThreshold = def.MaxThreshold
	}
	if c.Trials == 0 {
		c.Trials = def.Trials
	}
	if c.AlarmCount == 0 {
		c.AlarmCount = def.AlarmCount
	}
	if c.Rate == 0 {
		c.Rate = def.Rate
	}
	// Calibration ends at most two steps above MaxThreshold
	limit := 0xffff - 2*int(c.Step)
	if limit < 0 {
		limit = 0
	}
	if int(c.MaxThreshold) > limit {
		c.MaxThreshold = uint16(limit)
	}
}

// Detector is the proximity detector
type Detector struct {
	hw    Hardware
	clock core.Clock
	timer core.TimedInterrupt
	cfg   Config

	threshold    uint16
	lastHeadroom uint16

	// Owned by the detection interrupt
	positive uint8
	negative uint8
}

// New creates a detector. Zero config fields take the defaults.
func New(hw Hardware, clock core.Clock, timer core.TimedInterrupt, cfg Config) *Detector {
	cfg.applyDefaults()
	return &Detector{
		hw:        hw,
		clock:     clock,
		timer:     timer,
		cfg:       cfg,
		threshold: cfg.InitialThreshold,
	}
}

// Config returns the active configuration
func (d *Detector) Config() Config {
	return d.cfg
}

// Threshold returns the detection threshold
func (d *Detector) Threshold() uint16 {
	state := core.DisableInterrupts()
	defer core.RestoreInterrupts(state)
	return d.threshold
}

// LastHeadroom returns the headroom seen by the last calibration
func (d *Detector) LastHeadroom() uint16 {
	return d.lastHeadroom
}

// settle waits until the sensor follows an emitter change
func (d *Detector) settle() {
	d.clock.DelayMicros(d.cfg.SettleMicros)
}

// AverageSensorValue returns the oversampled raw sensor reading
func (d *Detector) AverageSensorValue() uint16 {
	var sum uint32
	for i := uint8(0); i < d.cfg.Oversampling; i++ {
		sum += uint32(d.hw.ReadSensor())
	}
	return uint16(sum / uint32(d.cfg.Oversampling))
}

func absDiff(a, b uint16) uint32 {
	if a > b {
		return uint32(a - b)
	}
	return uint32(b - a)
}

// CheckForSignal flashes the emitter and returns the reflected signal
// scaled to 0..NormalizedMax of the headroom left above the ambient level.
func (d *Detector) CheckForSignal() (normalized, headroom uint16) {
	d.hw.SetSignal(false)

	var difference, baseline uint32
	for i := uint8(0); i < d.cfg.Intervals; i++ {
		d.settle()
		before := d.AverageSensorValue()
		baseline += uint32(before)

		d.hw.SetSignal(true)
		d.settle()
		lit := d.AverageSensorValue()
		difference += absDiff(before, lit)

		d.hw.SetSignal(false)
		d.settle()
		difference += absDiff(lit, d.AverageSensorValue())

		d.clock.DelayMicros(d.cfg.SettleMicros * d.cfg.PauseSettles)
	}

	difference /= 2 * uint32(d.cfg.Intervals)
	baseline /= uint32(d.cfg.Intervals)

	// Near full-scale ambient light leaves almost no headroom
	room := uint32(1)
	if baseline < uint32(d.cfg.SensorMax) {
		room = uint32(d.cfg.SensorMax) - baseline
	}
	scaled := difference * uint32(d.cfg.NormalizedMax) / room
	if scaled > 0xffff {
		scaled = 0xffff
	}
	return uint16(scaled), uint16(room)
}

// Calibrate searches the lowest threshold the current environment does
// not reach, plus one step of margin. On failure the previous threshold
// stays in place.
func (d *Detector) Calibrate() error {
	normalized, headroom := d.CheckForSignal()
	threshold := normalized

	for {
		if threshold >= d.cfg.MaxThreshold {
			d.lastHeadroom = headroom
			core.DebugPrintln("[DETECT] calibration failed at " + core.Utoa(uint32(threshold)))
			return ErrCalibrationBoundExceeded
		}

		detected := false
		for i := uint8(0); i < d.cfg.Trials; i++ {
			normalized, headroom = d.CheckForSignal()
			if normalized >= threshold {
				detected = true
				break
			}
		}
		if !detected {
			break
		}
		threshold += d.cfg.Step
	}

	threshold += d.cfg.Step
	state := core.DisableInterrupts()
	d.threshold = threshold
	core.RestoreInterrupts(state)
	d.lastHeadroom = headroom
	core.DebugPrintln("[DETECT] threshold " + core.Utoa(uint32(threshold)) + " headroom " + core.Utoa(uint32(headroom)))
	return nil
}

// Start arms the periodic detection with fresh streak counters
func (d *Detector) Start() {
	state := core.DisableInterrupts()
	d.positive = 0
	d.negative = 0
	core.RestoreInterrupts(state)
	d.timer.Arm(core.PurposeDetect, d.cfg.Rate)
}

// Stop disarms the periodic detection
func (d *Detector) Stop() {
	d.timer.Stop()
}

// IsAlarm reports whether enough consecutive detections were seen
func (d *Detector) IsAlarm() bool {
	state := core.DisableInterrupts()
	defer core.RestoreInterrupts(state)
	return d.positive > d.cfg.AlarmCount
}

// OnSample takes one measurement. Called from the detection interrupt.
// A single miss keeps the positive streak; two misses in a row clear it.
func (d *Detector) OnSample() {
	normalized, _ := d.CheckForSignal()
	if normalized >= d.threshold {
		if d.positive < 0xff {
			d.positive++
		}
		d.negative = 0
		d.hw.SetSignal(true)
		return
	}
	d.negative++
	if d.negative >= 2 {
		d.positive = 0
		d.negative = 0
	}
}
