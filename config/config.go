// Package config holds the firmware configuration.
//
// The configuration is JSON, embedded into the firmware image by the
// target. Missing values take the board defaults.
package config

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"pissoff/core"
)

var (
	ErrBadPin     = errors.New("config: bad pin name")
	ErrBadChannel = errors.New("config: bad ADC channel name")
	ErrBadDACMode = errors.New("config: unknown DAC mode")
	ErrBadStep    = errors.New("config: detector max_threshold plus two steps exceeds 16 bits")
)

// DAC output stages
const (
	DACModePWM = "pwm"
	DACModePIO = "pio"
)

// Config is the complete firmware configuration
type Config struct {
	Name       string           `json:"name"`
	Version    string           `json:"version"`
	Debug      bool             `json:"debug"`
	Pins       PinConfig        `json:"pins"`
	SPI        SPIConfig        `json:"spi"`
	DAC        DACConfig        `json:"dac"`
	Detector   DetectorConfig   `json:"detector"`
	Controller ControllerConfig `json:"controller"`
}

// PinConfig names the board pins ("gpio25", "adc0")
type PinConfig struct {
	Signal      string `json:"signal"`
	ChipSelect  string `json:"chip_select"`
	SCK         string `json:"sck"`
	SDO         string `json:"sdo"`
	SDI         string `json:"sdi"`
	AudioEnable string `json:"audio_enable"`
	DACBase     string `json:"dac_base"` // First of the consecutive DAC pins
	Sensor      string `json:"sensor"`
	DebugTX     string `json:"debug_tx"`
}

// SPIConfig holds the storage bus rates
type SPIConfig struct {
	Bus      uint8  `json:"bus"`
	InitRate uint32 `json:"init_rate"`
	RunRate  uint32 `json:"run_rate"`
}

// DACConfig selects the audio output stage
type DACConfig struct {
	Mode string `json:"mode"` // "pwm" or "pio"
}

// DetectorConfig holds the proximity detector constants
type DetectorConfig struct {
	Intervals    uint8  `json:"intervals"`
	Oversampling uint8  `json:"oversampling"`
	SettleMicros uint32 `json:"settle_us"`
	Step         uint16 `json:"step"`
	MaxThreshold uint16 `json:"max_threshold"`
	Trials       uint8  `json:"trials"`
	AlarmCount   uint8  `json:"alarm_count"`
}

// ControllerConfig holds the state machine constants
type ControllerConfig struct {
	RecalibrateAlarms uint8  `json:"recalibrate_alarms"` // Alarms in a row before recalibration
	QuietTicks        uint8  `json:"quiet_ticks"`        // Idle ticks that reset the alarm count
	DumpPacingMillis  uint32 `json:"dump_pacing_ms"`
	BootSettleMillis  uint32 `json:"boot_settle_ms"`
}

// Load parses a JSON configuration and fills in the defaults
func Load(data []byte) (*Config, error) {
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration of the reference board
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// applyDefaults fills in missing configuration values
func applyDefaults(cfg *Config) {
	if cfg.Name == "" {
		cfg.Name = "PissOff"
	}
	if cfg.Version == "" {
		cfg.Version = "1.0"
	}

	// Reference board wiring
	pins := &cfg.Pins
	if pins.Signal == "" {
		pins.Signal = "gpio25"
	}
	if pins.ChipSelect == "" {
		pins.ChipSelect = "gpio17"
	}
	if pins.SCK == "" {
		pins.SCK = "gpio18"
	}
	if pins.SDO == "" {
		pins.SDO = "gpio19"
	}
	if pins.SDI == "" {
		pins.SDI = "gpio16"
	}
	if pins.AudioEnable == "" {
		pins.AudioEnable = "gpio22"
	}
	if pins.DACBase == "" {
		pins.DACBase = "gpio2"
	}
	if pins.Sensor == "" {
		pins.Sensor = "adc0"
	}
	if pins.DebugTX == "" {
		pins.DebugTX = "gpio4"
	}

	if cfg.SPI.InitRate == 0 {
		cfg.SPI.InitRate = core.SPIRateInit
	}
	if cfg.SPI.RunRate == 0 {
		cfg.SPI.RunRate = core.SPIRateRun
	}

	if cfg.DAC.Mode == "" {
		cfg.DAC.Mode = DACModePWM
	}

	det := &cfg.Detector
	if det.Intervals == 0 {
		det.Intervals = 8
	}
	if det.Oversampling == 0 {
		det.Oversampling = 16
	}
	if det.SettleMicros == 0 {
		det.SettleMicros = 100
	}
	if det.Step == 0 {
		det.Step = 5
	}
	if det.MaxThreshold == 0 {
		det.MaxThreshold = 950
	}
	if det.Trials == 0 {
		det.Trials = 32
	}
	if det.AlarmCount == 0 {
		det.AlarmCount = 4
	}

	ctl := &cfg.Controller
	if ctl.RecalibrateAlarms == 0 {
		ctl.RecalibrateAlarms = 3
	}
	if ctl.QuietTicks == 0 {
		ctl.QuietTicks = 50
	}
	if ctl.DumpPacingMillis == 0 {
		ctl.DumpPacingMillis = 200
	}
	if ctl.BootSettleMillis == 0 {
		ctl.BootSettleMillis = 100
	}
}

// Validate checks the pin names and the DAC mode
func (c *Config) Validate() error {
	for _, name := range []string{
		c.Pins.Signal, c.Pins.ChipSelect, c.Pins.SCK, c.Pins.SDO,
		c.Pins.SDI, c.Pins.AudioEnable, c.Pins.DACBase, c.Pins.DebugTX,
	} {
		if _, err := ParsePin(name); err != nil {
			return err
		}
	}
	if _, err := ParseChannel(c.Pins.Sensor); err != nil {
		return err
	}
	if c.DAC.Mode != DACModePWM && c.DAC.Mode != DACModePIO {
		return ErrBadDACMode
	}
	if uint32(c.Detector.MaxThreshold)+2*uint32(c.Detector.Step) > 0xffff {
		return ErrBadStep
	}
	return nil
}

func parseNumbered(name, prefix string, limit int) (int, bool) {
	if !strings.HasPrefix(name, prefix) {
		return 0, false
	}
	n, err := strconv.Atoi(name[len(prefix):])
	if err != nil || n < 0 || n >= limit {
		return 0, false
	}
	return n, true
}

// ParsePin converts a pin name like "gpio25" to a pin number
func ParsePin(name string) (core.GPIOPin, error) {
	n, ok := parseNumbered(strings.ToLower(name), "gpio", 48)
	if !ok {
		return 0, ErrBadPin
	}
	return core.GPIOPin(n), nil
}

// ParseChannel converts an ADC channel name like "adc0" to a channel
func ParseChannel(name string) (core.ADCChannelID, error) {
	n, ok := parseNumbered(strings.ToLower(name), "adc", 8)
	if !ok {
		return 0, ErrBadChannel
	}
	return core.ADCChannelID(n), nil
}

// BoardPins resolves the pins the firmware core drives
func (c *Config) BoardPins() (core.Pins, error) {
	var pins core.Pins
	var err error
	if pins.Signal, err = ParsePin(c.Pins.Signal); err != nil {
		return pins, err
	}
	if pins.ChipSelect, err = ParsePin(c.Pins.ChipSelect); err != nil {
		return pins, err
	}
	if pins.Sensor, err = ParseChannel(c.Pins.Sensor); err != nil {
		return pins, err
	}
	return pins, nil
}

// Banner returns the firmware identification printed by the info command
func (c *Config) Banner() string {
	return c.Name + " v" + c.Version
}
