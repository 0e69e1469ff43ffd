package lumen

// ConnectionState represents the current state of the room channel.
type ConnectionState int

const (
	// StateDisconnected means the client holds no live transport.
	StateDisconnected ConnectionState = iota

	// StateConnecting means a dial is in flight.
	StateConnecting

	// StateConnected means the channel is open and ready.
	StateConnected
)

// String returns the string representation of a ConnectionState.
func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "unknown"
	}
}

// StateEvent is emitted once per actual state change.
type StateEvent struct {
	OldState ConnectionState
	NewState ConnectionState
	Error    error // Optional error that caused the transition
}
