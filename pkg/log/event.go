package log

import (
	"strings"
	"time"
)

// Event is one captured protocol event. Exactly one of the payload
// pointers is set. CBOR encoding uses integer keys.
type Event struct {
	// Timestamp is when the event was captured.
	Timestamp time.Time `cbor:"1,keyasint"`

	// ConnectionID identifies one connection attempt (UUID).
	ConnectionID string `cbor:"2,keyasint"`

	// Direction indicates whether the traffic was received or sent.
	Direction Direction `cbor:"3,keyasint"`

	// Layer indicates where the event was captured.
	Layer Layer `cbor:"4,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"5,keyasint"`

	// Device is the connection's log prefix.
	Device string `cbor:"6,keyasint,omitempty"`

	// RemoteAddr is the device's address as host:port.
	RemoteAddr string `cbor:"7,keyasint,omitempty"`

	// Frame is set for raw transport frames.
	Frame *FrameEvent `cbor:"10,keyasint,omitempty"`

	// Message is set for decoded messages.
	Message *MessageEvent `cbor:"11,keyasint,omitempty"`

	// StateChange is set for connection state transitions.
	StateChange *StateChangeEvent `cbor:"12,keyasint,omitempty"`

	// Error is set for errors at any layer.
	Error *ErrorEventData `cbor:"14,keyasint,omitempty"`
}

// Direction of the captured traffic. State and error events use DirectionIn.
type Direction uint8

const (
	DirectionIn  Direction = 0
	DirectionOut Direction = 1
)

func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// ParseDirection accepts the names produced by String, case-insensitively.
func ParseDirection(s string) (Direction, bool) {
	switch strings.ToUpper(s) {
	case "IN":
		return DirectionIn, true
	case "OUT":
		return DirectionOut, true
	}
	return 0, false
}

// Layer is where an event was captured.
type Layer uint8

const (
	// LayerTransport sees encrypted frames.
	LayerTransport Layer = 0
	// LayerWire sees decoded messages.
	LayerWire Layer = 1
	// LayerConnection sees the session state machine.
	LayerConnection Layer = 2
)

func (l Layer) String() string {
	switch l {
	case LayerTransport:
		return "TRANSPORT"
	case LayerWire:
		return "WIRE"
	case LayerConnection:
		return "CONNECTION"
	default:
		return "UNKNOWN"
	}
}

// ParseLayer accepts the names produced by String, case-insensitively.
func ParseLayer(s string) (Layer, bool) {
	switch strings.ToUpper(s) {
	case "TRANSPORT":
		return LayerTransport, true
	case "WIRE":
		return LayerWire, true
	case "CONNECTION":
		return LayerConnection, true
	}
	return 0, false
}

// Category classifies an event.
type Category uint8

const (
	CategoryMessage Category = 0
	// CategoryControl covers hello, login, ping and disconnect traffic.
	CategoryControl Category = 1
	CategoryState   Category = 2
	CategoryError   Category = 3
)

func (c Category) String() string {
	switch c {
	case CategoryMessage:
		return "MESSAGE"
	case CategoryControl:
		return "CONTROL"
	case CategoryState:
		return "STATE"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// FrameEvent is a raw transport frame.
type FrameEvent struct {
	// Size of the whole frame including its 3-byte header.
	Size int `cbor:"1,keyasint"`

	// Data is the frame payload, cut at MaxFrameData bytes.
	Data []byte `cbor:"2,keyasint,omitempty"`

	// Truncated is true if Data was cut.
	Truncated bool `cbor:"3,keyasint,omitempty"`
}

// MaxFrameData bounds the payload bytes stored per frame event.
const MaxFrameData = 4096

// NewFrameEvent builds a FrameEvent for a payload, truncating long data.
func NewFrameEvent(headerSize int, payload []byte) *FrameEvent {
	fe := &FrameEvent{Size: headerSize + len(payload)}
	if len(payload) > MaxFrameData {
		fe.Data = append([]byte(nil), payload[:MaxFrameData]...)
		fe.Truncated = true
	} else {
		fe.Data = append([]byte(nil), payload...)
	}
	return fe
}

// MessageEvent is a decoded message.
type MessageEvent struct {
	// Type is the numeric message type code.
	Type uint32 `cbor:"1,keyasint"`

	// Name is the message type name ("Unknown(n)" for unregistered codes).
	Name string `cbor:"2,keyasint"`

	// Size of the encoded body in bytes.
	Size int `cbor:"3,keyasint"`

	// Key is the entity key for entity messages.
	Key *uint32 `cbor:"4,keyasint,omitempty"`
}

// StateChangeEvent is a connection state transition.
type StateChangeEvent struct {
	// OldState is the state left.
	OldState string `cbor:"1,keyasint,omitempty"`

	// NewState is the state entered.
	NewState string `cbor:"2,keyasint"`

	// Reason is the error detail for transitions into an error state.
	Reason string `cbor:"3,keyasint,omitempty"`
}

// ErrorEventData is an error observed at some layer.
type ErrorEventData struct {
	// Layer is where the error was detected.
	Layer Layer `cbor:"1,keyasint"`

	// Message is the error text.
	Message string `cbor:"2,keyasint"`

	// Class is the error classification (configuration, communication, ...).
	Class string `cbor:"3,keyasint,omitempty"`

	// Context names the operation that failed.
	Context string `cbor:"4,keyasint,omitempty"`
}
