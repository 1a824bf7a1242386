package wire

import "errors"

// Decoding errors.
var (
	ErrMalformedBody   = errors.New("malformed message body")
	ErrTruncatedHeader = errors.New("truncated packet header")
	ErrLengthMismatch  = errors.New("packet length does not match body")
	ErrDuplicateType   = errors.New("message type already registered")
)

// Message is a typed protocol message.
type Message interface {
	// Type returns the discriminant written into the packet header.
	Type() MessageType

	// Marshal appends the protobuf body to b.
	Marshal(b []byte) []byte

	// Unmarshal replaces the receiver's contents with the decoded body.
	Unmarshal(body []byte) error
}

// Unknown carries a message whose type is not registered.
type Unknown struct {
	MsgType MessageType
	Body    []byte
}

func (m *Unknown) Type() MessageType { return m.MsgType }

func (m *Unknown) Marshal(b []byte) []byte { return append(b, m.Body...) }

func (m *Unknown) Unmarshal(body []byte) error {
	m.Body = append([]byte(nil), body...)
	return nil
}

// emptyBody is embedded by messages that carry no fields.
type emptyBody struct{}

func (emptyBody) Marshal(b []byte) []byte { return b }

func (emptyBody) Unmarshal([]byte) error { return nil }
