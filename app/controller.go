// Package app is the device controller: the state machine that ties the
// card, the audio player and the proximity detector to the console.
package app

import (
	"errors"

	"pissoff/audio"
	"pissoff/config"
	"pissoff/console"
	"pissoff/core"
	"pissoff/detector"
	"pissoff/sdcard"
)

// Controller owns the device state and every subsystem
type Controller struct {
	board    *core.Board
	cfg      *config.Config
	console  *console.Console
	card     *sdcard.Driver
	player   *audio.Player
	detector *detector.Detector

	state         State
	nextFileIndex int
	alarmCount    uint8
	quietCount    uint8

	line [console.BufferSize]byte
	out  [96]byte
}

// nullSerial swallows output on boards without a console
type nullSerial struct{}

func (nullSerial) Buffered() int           { return 0 }
func (nullSerial) ReadByte() (byte, error) { return 0, errNoConsole }
func (nullSerial) WriteByte(c byte) error  { return nil }

var errNoConsole = errors.New("app: no console")

// New wires the subsystems to the board. Call Initialize before Step.
func New(board *core.Board, cfg *config.Config) *Controller {
	if cfg == nil {
		cfg = config.Default()
	}
	var serial core.SerialDriver = nullSerial{}
	if board.Console != nil {
		serial = board.Console
	}

	c := &Controller{
		board:   board,
		cfg:     cfg,
		console: console.New(serial),
		state:   StateInitialize,
	}
	c.card = sdcard.New(board.SPI, board, board.Clock)
	c.card.SetRates(cfg.SPI.InitRate, cfg.SPI.RunRate)
	c.player = audio.New(c.card, board.DAC, board.Interrupt, board.Clock)
	c.detector = detector.New(board, board.Clock, board.Interrupt, detectorConfig(cfg))
	if board.Interrupt != nil {
		board.Interrupt.SetHandler(c)
	}
	return c
}

func detectorConfig(cfg *config.Config) detector.Config {
	return detector.Config{
		Intervals:    cfg.Detector.Intervals,
		Oversampling: cfg.Detector.Oversampling,
		SettleMicros: cfg.Detector.SettleMicros,
		Step:         cfg.Detector.Step,
		MaxThreshold: cfg.Detector.MaxThreshold,
		Trials:       cfg.Detector.Trials,
		AlarmCount:   cfg.Detector.AlarmCount,
	}
}

// State returns the active state
func (c *Controller) State() State {
	return c.state
}

// Console returns the maintenance console
func (c *Controller) Console() *console.Console {
	return c.console
}

// Card returns the storage driver
func (c *Controller) Card() *sdcard.Driver {
	return c.card
}

// Detector returns the proximity detector
func (c *Controller) Detector() *detector.Detector {
	return c.detector
}

// Player returns the audio player
func (c *Controller) Player() *audio.Player {
	return c.player
}

// HandleInterrupt dispatches the periodic interrupt to its purpose
func (c *Controller) HandleInterrupt(p core.Purpose) {
	switch p {
	case core.PurposeBlink:
		c.board.ToggleSignal()
	case core.PurposeDetect:
		c.detector.OnSample()
	case core.PurposeAudio:
		c.player.OnSample()
	}
}

func (c *Controller) setState(s State) {
	if s == c.state {
		return
	}
	core.RecordEvent(core.EvtStateChange, c.board.Clock.Millis(), uint32(c.state), uint32(s))
	core.DebugAsync("[APP] " + c.state.String() + " -> " + s.String())
	c.state = s
}

// Initialize brings up the card, lists its directory and calibrates the
// detector. Any failure leaves the controller in the Error state.
func (c *Controller) Initialize() error {
	if err := c.board.Init(); err != nil {
		// Without a complete board there is nothing left to drive
		core.DebugPrintln("[APP] board init failed: " + err.Error())
		c.state = StateError
		return err
	}

	// Let the supply and the sensor settle
	c.board.Clock.DelayMillis(c.cfg.Controller.BootSettleMillis)

	// Status LED on while booting
	c.board.SetSignal(true)
	c.console.SendLine("Welcome!")

	c.console.SendLine("Initialize SD card...")
	if err := c.card.Initialize(); err != nil {
		c.storageFailed()
		return err
	}
	core.DebugPrintln("[APP] card type " + c.card.CardType().String())

	c.console.SendLine("Read directory...")
	if err := c.card.ReadDirectory(); err != nil {
		c.storageFailed()
		return err
	}
	c.card.Directory().ForEach(func(_ int, e sdcard.Entry) bool {
		c.console.SendText("File: ")
		c.console.SendText(e.Name)
		c.console.SendText(" size: ")
		c.console.SendWordHex(uint16(e.FileSize))
		c.console.SendText(" start: ")
		c.console.SendWordHex(uint16(e.StartBlock))
		c.console.SendNewline()
		return true
	})

	c.console.SendLine("Calibrate the sensor...")
	if err := c.calibrate(); err != nil {
		c.console.SendLine("Failed")
		c.beginError()
		return err
	}

	c.console.SendLine("Ready!")
	c.startDetecting()
	return nil
}

func (c *Controller) storageFailed() {
	code := c.card.LastError()
	c.console.SendText("Failed: ")
	c.console.SendCharacter(code.Code())
	c.console.SendNewline()
	if code.IsNegotiationFailure() {
		core.DebugPrintln("[APP] card rejected the SD2 probes, check the card is SD/SDHC")
	}
	core.RecordEvent(core.EvtStorageError, c.board.Clock.Millis(), uint32(code), 0)
	c.beginError()
}

// Run initializes the device and dispatches forever
func (c *Controller) Run() {
	if err := c.Initialize(); err != nil {
		core.DebugPrintln("[APP] initialize failed: " + err.Error())
	}
	for {
		c.Step()
	}
}

// Step runs the handler of the active state once
func (c *Controller) Step() {
	switch c.state {
	case StateError:
		c.errorMode()
	case StateDetecting:
		c.detectingMode()
	case StatePlayingSound:
		c.playingSoundMode()
	case StateMaintenance:
		c.maintenanceMode()
	case StateSensorDump:
		c.sensorDumpMode()
	case StateRawSensorDump:
		c.rawSensorDumpMode()
	}
}

// calibrate runs the detector calibration and reports the result
func (c *Controller) calibrate() error {
	now := c.board.Clock.Millis()
	if err := c.detector.Calibrate(); err != nil {
		core.RecordEvent(core.EvtCalibrationFailed, now, uint32(c.detector.Threshold()), 0)
		return err
	}
	threshold := c.detector.Threshold()
	headroom := c.detector.LastHeadroom()
	c.console.SendText("St: ")
	c.console.SendWordHex(threshold)
	c.console.SendText(" Shr: ")
	c.console.SendWordHex(headroom)
	c.console.SendNewline()
	core.RecordEvent(core.EvtCalibrated, now, uint32(threshold), uint32(headroom))
	return nil
}

func (c *Controller) startDetecting() {
	c.detector.Start()
	c.setState(StateDetecting)
}

func (c *Controller) startBlink(f core.Frequency) {
	c.board.Interrupt.Arm(core.PurposeBlink, f)
}

// checkForCommand reads and executes one console line.
// Returns false if there was no line or the command is unknown.
func (c *Controller) checkForCommand() bool {
	n, ok := c.console.ReadLine(&c.line)
	if !ok {
		return false
	}

	switch lookupCommand(&c.line) {
	case cmdMain:
		if c.state == StateDetecting {
			c.beginMaintenance()
		} else {
			c.console.SendLine("Already in maintenance mode.")
		}
	case cmdDump:
		if c.state == StateMaintenance {
			c.beginSensorDump()
		} else {
			c.console.SendLine("Only available in maintenance mode.")
		}
	case cmdRawd:
		if c.state == StateMaintenance {
			c.beginRawSensorDump()
		} else {
			c.console.SendLine("Only available in maintenance mode.")
		}
	case cmdExit:
		switch c.state {
		case StateSensorDump:
			c.endSensorDump()
		case StateRawSensorDump:
			c.endRawSensorDump()
		case StateMaintenance:
			c.endMaintenance()
		default:
			c.console.SendLine("Nothing to exit.")
		}
	case cmdPlay:
		if c.state == StateMaintenance {
			c.board.Interrupt.Stop()
			c.console.SendLine("Sound started.")
			c.playSound()
			c.console.SendLine("Sound finished.")
			c.startBlink(core.Frequency05Hz)
		} else {
			c.console.SendLine("Only available in maintenance mode.")
		}
	case cmdCali:
		if c.state == StateMaintenance {
			c.board.Interrupt.Stop()
			c.console.SendLine("Calibration started.")
			if c.calibrate() == nil {
				c.console.SendLine("Calibration finished.")
			} else {
				c.console.SendLine("Calibration failed.")
			}
			c.startBlink(core.Frequency05Hz)
		} else {
			c.console.SendLine("Only available in maintenance mode.")
		}
	case cmdInfo:
		c.console.SendLine(c.cfg.Banner())
	case cmdHelp:
		c.console.SendBytes(appendHelp(c.out[:0]))
		c.console.SendNewline()
	default:
		c.console.SendText("Unknown command: ")
		c.console.SendBytes(c.line[:n])
		c.console.SendNewline()
		return false
	}
	return true
}

// detectingMode sleeps until the next interrupt, then handles commands
// and the detector alarm
func (c *Controller) detectingMode() {
	c.board.Clock.WaitForInterrupt()
	if c.checkForCommand() {
		return
	}
	if c.detector.IsAlarm() {
		c.detector.Stop()
		core.RecordEvent(core.EvtAlarm, c.board.Clock.Millis(), uint32(c.alarmCount)+1, 0)
		c.setState(StatePlayingSound)
		return
	}
	// A quiet period forgets earlier alarms
	c.quietCount++
	if c.quietCount > c.cfg.Controller.QuietTicks {
		c.alarmCount = 0
		c.quietCount = 0
	}
}

// playingSoundMode plays one sound and returns to detecting. Repeated
// alarms without a quiet period in between recalibrate the sensor.
func (c *Controller) playingSoundMode() {
	c.console.SendLine("Alarm!")
	c.playSound()

	c.alarmCount++
	c.quietCount = 0
	if c.alarmCount >= c.cfg.Controller.RecalibrateAlarms {
		c.alarmCount = 0
		c.console.SendLine("Sensor Recalibration...")
		if c.calibrate() != nil {
			c.console.SendLine("Calibration failed.")
		}
	}
	c.startDetecting()
}

// playSound plays the next file, wrapping around at the end of the
// directory
func (c *Controller) playSound() {
	file, ok := c.card.FileAtIndex(c.nextFileIndex)
	if !ok {
		c.nextFileIndex = 0
		file, ok = c.card.FileAtIndex(0)
	}
	if !ok {
		c.console.SendLine("No sound files.")
		return
	}
	c.nextFileIndex++

	c.console.SendLine(file.Name)
	core.RecordEvent(core.EvtPlayStart, c.board.Clock.Millis(), file.StartBlock, file.FileSize)
	err := c.player.PlaySound(file.StartBlock, file.FileSize)

	var streamErr *audio.StreamError
	if errors.As(err, &streamErr) {
		c.console.SendText("Error " + streamErr.Stage + ": ")
		c.console.SendCharacter(streamErr.Code.Code())
		c.console.SendNewline()
		core.RecordEvent(core.EvtPlayAbort, c.board.Clock.Millis(), uint32(streamErr.Code), 0)
		return
	}
	stats := c.player.Stats()
	core.RecordEvent(core.EvtPlayEnd, c.board.Clock.Millis(), stats.Samples, stats.Underruns)
}

func (c *Controller) beginMaintenance() {
	c.console.SendLine("Maintenance mode started.")
	c.detector.Stop()
	c.startBlink(core.Frequency05Hz)
	c.setState(StateMaintenance)
}

// maintenanceMode waits for the next command
func (c *Controller) maintenanceMode() {
	c.board.Clock.WaitForInterrupt()
	c.checkForCommand()
}

// endMaintenance recalibrates in case the device was moved, then
// resumes detecting
func (c *Controller) endMaintenance() {
	c.console.SendLine("Maintenance mode finished.")
	c.board.Interrupt.Stop()
	c.console.SendLine("Calibrate the sensor...")
	if c.calibrate() != nil {
		c.console.SendLine("Calibration failed.")
	}
	c.console.SendLine("Ready!")
	c.startDetecting()
}

func (c *Controller) beginError() {
	c.startBlink(core.Frequency3Hz)
	c.setState(StateError)
	core.DumpEventRing()
}

// errorMode idles forever. Only the fast blink shows the device is alive.
func (c *Controller) errorMode() {
	if c.board.Clock == nil {
		return
	}
	c.board.Clock.WaitForInterrupt()
}

func (c *Controller) beginSensorDump() {
	c.board.Interrupt.Stop()
	c.console.SendLine("Start sensor dump.")
	c.setState(StateSensorDump)
}

func (c *Controller) sensorDumpMode() {
	normalized, headroom := c.detector.CheckForSignal()
	c.console.SendBytes(appendSensorDump(c.out[:0], normalized, headroom, c.detector.Config().NormalizedMax))
	c.console.SendNewline()
	c.board.Clock.DelayMillis(c.cfg.Controller.DumpPacingMillis)
	c.checkForCommand()
}

func (c *Controller) endSensorDump() {
	c.console.SendLine("Sensor dump stopped.")
	c.setState(StateMaintenance)
	c.startBlink(core.Frequency05Hz)
}

func (c *Controller) beginRawSensorDump() {
	c.board.Interrupt.Stop()
	c.console.SendLine("Start raw sensor dump.")
	c.board.SetSignal(false)
	c.setState(StateRawSensorDump)
}

func (c *Controller) rawSensorDumpMode() {
	value := c.detector.AverageSensorValue()
	c.console.SendBytes(appendRawDump(c.out[:0], value))
	c.console.SendNewline()
	c.board.Clock.DelayMillis(c.cfg.Controller.DumpPacingMillis)
	c.checkForCommand()
}

func (c *Controller) endRawSensorDump() {
	c.console.SendLine("Raw sensor dump stopped.")
	c.setState(StateMaintenance)
	c.startBlink(core.Frequency05Hz)
}
