package app

// State is the controller mode. Exactly one is active.
type State uint8

const (
	StateInitialize State = iota
	StateError
	StateDetecting
	StatePlayingSound
	StateMaintenance
	StateSensorDump
	StateRawSensorDump
)

// String returns the state name for debug output
func (s State) String() string {
	switch s {
	case StateInitialize:
		return "initialize"
	case StateError:
		return "error"
	case StateDetecting:
		return "detecting"
	case StatePlayingSound:
		return "playing"
	case StateMaintenance:
		return "maintenance"
	case StateSensorDump:
		return "sensor dump"
	case StateRawSensorDump:
		return "raw sensor dump"
	default:
		return "unknown"
	}
}
