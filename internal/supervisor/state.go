package supervisor

// State is the supervisor's position in the bridge lifecycle.
type State int

const (
	// StateStopped: no loop is running and no transports are held.
	StateStopped State = iota
	// StateDiscovering: the loop is looking for a network path and a
	// serial device.
	StateDiscovering
	// StateBridging: both transports are open and the relay is running.
	StateBridging
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "STOPPED"
	case StateDiscovering:
		return "DISCOVERING"
	case StateBridging:
		return "BRIDGING"
	default:
		return "UNKNOWN"
	}
}
