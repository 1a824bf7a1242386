package wire

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// EncodePacket encodes msg as [varint type][varint length][body].
func EncodePacket(msg Message) []byte {
	body := msg.Marshal(nil)
	b := make([]byte, 0, len(body)+2*protowire.SizeVarint(0xFFFF))
	b = protowire.AppendVarint(b, uint64(msg.Type()))
	b = protowire.AppendVarint(b, uint64(len(body)))
	return append(b, body...)
}

// DecodePacket decodes a packet using the registry.
func (r *Registry) DecodePacket(data []byte) (Message, error) {
	t, n := protowire.ConsumeVarint(data)
	if n < 0 {
		return nil, fmt.Errorf("%w: type: %v", ErrTruncatedHeader, protowire.ParseError(n))
	}
	data = data[n:]

	length, n := protowire.ConsumeVarint(data)
	if n < 0 {
		return nil, fmt.Errorf("%w: length: %v", ErrTruncatedHeader, protowire.ParseError(n))
	}
	data = data[n:]

	if uint64(len(data)) != length {
		return nil, fmt.Errorf("%w: header says %d, have %d", ErrLengthMismatch, length, len(data))
	}
	return r.Decode(MessageType(t), data)
}

// DecodePacket decodes a packet using the Default registry.
func DecodePacket(data []byte) (Message, error) {
	return Default.DecodePacket(data)
}

// EncodeBody returns the protobuf body of msg without the packet header.
func EncodeBody(msg Message) []byte {
	return msg.Marshal(nil)
}
