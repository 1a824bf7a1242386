package connection

// State is the connection state.
type State uint8

const (
	// StateUninitialized is the initial state and the state after any
	// disconnection or disposal.
	StateUninitialized State = iota

	// StateConnecting indicates the socket and handshake are in flight.
	StateConnecting

	// StateHelloSent indicates hello and login were sent.
	StateHelloSent

	// StateConnected indicates the device accepted the hello.
	StateConnected
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "UNINITIALIZED"
	case StateConnecting:
		return "CONNECTING"
	case StateHelloSent:
		return "HELLO_SENT"
	case StateConnected:
		return "CONNECTED"
	default:
		return "UNKNOWN"
	}
}

// MarshalText encodes the state name.
func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }
