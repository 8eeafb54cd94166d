package core

// DebugWriter is a function type for writing debug messages
type DebugWriter func(string)

// Event captures a device event for post-mortem analysis
type Event struct {
	Type   uint8  // Event type code
	Clock  uint32 // Millisecond clock at event
	Value1 uint32 // Context-dependent value
	Value2 uint32 // Context-dependent value
}

// Event type codes
const (
	EvtStateChange       = 1 // Controller state change (v1=from, v2=to)
	EvtAlarm             = 2 // Detector raised an alarm (v1=alarm count)
	EvtPlayStart         = 3 // Playback started (v1=start block, v2=size)
	EvtPlayEnd           = 4 // Playback finished (v1=samples, v2=underruns)
	EvtPlayAbort         = 5 // Playback aborted (v1=storage error code)
	EvtCalibrated        = 6 // Calibration converged (v1=threshold, v2=headroom)
	EvtCalibrationFailed = 7 // Calibration hit the bound (v1=threshold)
	EvtStorageError      = 8 // Storage bring-up failed (v1=error code)
)

const (
	EventRingSize = 32 // Keep last 32 events for post-mortem
)

var (
	// debugPrintln is the global debug print function (can be set by platform code)
	debugPrintln DebugWriter = func(s string) {} // No-op by default

	// debugEnabled controls whether debug output is active
	debugEnabled bool = false

	// Event capture ring buffer (non-blocking, for post-mortem)
	eventRing     [EventRingSize]Event
	eventRingHead uint8 // Next write position

	// Async debug output channel
	debugChan chan string
)

// SetDebugWriter sets the platform-specific debug output function
// This allows platforms to redirect debug output to UART, USB, etc.
func SetDebugWriter(writer DebugWriter) {
	debugPrintln = writer
}

// SetDebugEnabled enables or disables debug output
func SetDebugEnabled(enabled bool) {
	debugEnabled = enabled
}

// IsDebugEnabled returns whether debug output is enabled
func IsDebugEnabled() bool {
	return debugEnabled
}

// InitAsyncDebug starts the async debug output goroutine
// Call this from main() after SetDebugWriter
func InitAsyncDebug() {
	debugChan = make(chan string, 16)
	go debugOutputWorker()
}

// debugOutputWorker runs in background, drains debug channel
func debugOutputWorker() {
	for msg := range debugChan {
		if debugPrintln != nil {
			debugPrintln(msg)
		}
	}
}

// DebugPrintln writes a debug message using the platform-specific writer
func DebugPrintln(msg string) {
	if debugEnabled && debugPrintln != nil {
		debugPrintln(msg)
	}
}

// DebugAsync queues a debug message for async output (non-blocking).
// Falls back to DebugPrintln when the async worker is not running.
// Never call from interrupt context.
func DebugAsync(msg string) {
	if !debugEnabled {
		return
	}
	if debugChan == nil {
		DebugPrintln(msg)
		return
	}
	select {
	case debugChan <- msg:
	default:
		// Channel full, drop message
	}
}

// RecordEvent captures an event in the ring buffer.
// Safe to call from interrupt context.
func RecordEvent(eventType uint8, clock, value1, value2 uint32) {
	state := DisableInterrupts()
	idx := eventRingHead
	eventRing[idx] = Event{
		Type:   eventType,
		Clock:  clock,
		Value1: value1,
		Value2: value2,
	}
	eventRingHead = (idx + 1) % EventRingSize
	RestoreInterrupts(state)
}

// Events returns the recorded events, oldest first
func Events() []Event {
	state := DisableInterrupts()
	defer RestoreInterrupts(state)

	events := make([]Event, 0, EventRingSize)
	start := eventRingHead
	for i := uint8(0); i < EventRingSize; i++ {
		evt := eventRing[(start+i)%EventRingSize]
		if evt.Type == 0 {
			continue // Empty slot
		}
		events = append(events, evt)
	}
	return events
}

// EventName returns the display name of an event type
func EventName(eventType uint8) string {
	switch eventType {
	case EvtStateChange:
		return "STATE"
	case EvtAlarm:
		return "ALARM"
	case EvtPlayStart:
		return "PLAY_START"
	case EvtPlayEnd:
		return "PLAY_END"
	case EvtPlayAbort:
		return "PLAY_ABORT!"
	case EvtCalibrated:
		return "CALIBRATED"
	case EvtCalibrationFailed:
		return "CALI_FAILED!"
	case EvtStorageError:
		return "STORAGE_ERR!"
	default:
		return "UNKNOWN"
	}
}

// DumpEventRing outputs the event ring buffer (call on error)
func DumpEventRing() {
	if debugPrintln == nil {
		return
	}

	debugPrintln("[EVENT] === Event Ring Dump ===")
	for _, evt := range Events() {
		debugPrintln("[EVENT] " + EventName(evt.Type) +
			" clock=" + Utoa(evt.Clock) +
			" v1=" + Utoa(evt.Value1) +
			" v2=" + Utoa(evt.Value2))
	}
	debugPrintln("[EVENT] === End Dump ===")
}

// ClearEventRing clears the event buffer
func ClearEventRing() {
	state := DisableInterrupts()
	for i := range eventRing {
		eventRing[i] = Event{}
	}
	eventRingHead = 0
	RestoreInterrupts(state)
}
