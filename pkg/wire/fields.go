package wire

import (
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// Field is one decoded protobuf field. Exactly one of the value members is
// meaningful, selected by Type.
type Field struct {
	Num  protowire.Number
	Type protowire.Type

	// Varint holds the raw value of a VarintType field.
	Varint uint64

	// Fixed holds the raw value of a Fixed32Type or Fixed64Type field.
	Fixed uint64

	// Bytes holds the payload of a BytesType field (and the raw bytes of a group).
	Bytes []byte
}

// Fields is an ordered list of protobuf fields as they appeared on the wire.
// Getters follow protobuf semantics: for scalar fields the last occurrence wins,
// and an absent field reads as the zero value.
type Fields []Field

// ParseFields splits a protobuf body into its fields.
func ParseFields(b []byte) (Fields, error) {
	var fields Fields
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("%w: %v", ErrMalformedBody, protowire.ParseError(n))
		}
		b = b[n:]

		f := Field{Num: num, Type: typ}
		switch typ {
		case protowire.VarintType:
			f.Varint, n = protowire.ConsumeVarint(b)
		case protowire.Fixed32Type:
			var v uint32
			v, n = protowire.ConsumeFixed32(b)
			f.Fixed = uint64(v)
		case protowire.Fixed64Type:
			f.Fixed, n = protowire.ConsumeFixed64(b)
		case protowire.BytesType:
			f.Bytes, n = protowire.ConsumeBytes(b)
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n >= 0 {
				f.Bytes = b[:n]
			}
		}
		if n < 0 {
			return nil, fmt.Errorf("%w: field %d: %v", ErrMalformedBody, num, protowire.ParseError(n))
		}
		b = b[n:]
		fields = append(fields, f)
	}
	return fields, nil
}

// Lookup returns the last occurrence of field num.
func (fs Fields) Lookup(num protowire.Number) (Field, bool) {
	for i := len(fs) - 1; i >= 0; i-- {
		if fs[i].Num == num {
			return fs[i], true
		}
	}
	return Field{}, false
}

// Has reports whether field num is present.
func (fs Fields) Has(num protowire.Number) bool {
	_, ok := fs.Lookup(num)
	return ok
}

// Repeated returns every occurrence of field num in wire order.
func (fs Fields) Repeated(num protowire.Number) []Field {
	var out []Field
	for _, f := range fs {
		if f.Num == num {
			out = append(out, f)
		}
	}
	return out
}

// Uint64 reads a varint field.
func (fs Fields) Uint64(num protowire.Number) uint64 {
	f, ok := fs.Lookup(num)
	if !ok || f.Type != protowire.VarintType {
		return 0
	}
	return f.Varint
}

// Uint32 reads a uint32 or enum field.
func (fs Fields) Uint32(num protowire.Number) uint32 {
	return uint32(fs.Uint64(num))
}

// Int32 reads an int32 field.
func (fs Fields) Int32(num protowire.Number) int32 {
	return int32(fs.Uint64(num))
}

// Bool reads a bool field.
func (fs Fields) Bool(num protowire.Number) bool {
	return protowire.DecodeBool(fs.Uint64(num))
}

// Fixed32 reads a fixed32 field.
func (fs Fields) Fixed32(num protowire.Number) uint32 {
	f, ok := fs.Lookup(num)
	if !ok || f.Type != protowire.Fixed32Type {
		return 0
	}
	return uint32(f.Fixed)
}

// Float32 reads a float field.
func (fs Fields) Float32(num protowire.Number) float32 {
	return math.Float32frombits(fs.Fixed32(num))
}

// Float64 reads a double field.
func (fs Fields) Float64(num protowire.Number) float64 {
	f, ok := fs.Lookup(num)
	if !ok || f.Type != protowire.Fixed64Type {
		return 0
	}
	return math.Float64frombits(f.Fixed)
}

// Bytes reads a bytes field.
func (fs Fields) Bytes(num protowire.Number) []byte {
	f, ok := fs.Lookup(num)
	if !ok || f.Type != protowire.BytesType {
		return nil
	}
	return f.Bytes
}

// String reads a string field.
func (fs Fields) String(num protowire.Number) string {
	return string(fs.Bytes(num))
}

// AppendVarint returns fs with a varint field appended.
func (fs Fields) AppendVarint(num protowire.Number, v uint64) Fields {
	return append(fs, Field{Num: num, Type: protowire.VarintType, Varint: v})
}

// AppendBool returns fs with a bool field appended.
func (fs Fields) AppendBool(num protowire.Number, v bool) Fields {
	return fs.AppendVarint(num, protowire.EncodeBool(v))
}

// AppendInt32 returns fs with an int32 field appended.
func (fs Fields) AppendInt32(num protowire.Number, v int32) Fields {
	return fs.AppendVarint(num, uint64(int64(v)))
}

// AppendFixed32 returns fs with a fixed32 field appended.
func (fs Fields) AppendFixed32(num protowire.Number, v uint32) Fields {
	return append(fs, Field{Num: num, Type: protowire.Fixed32Type, Fixed: uint64(v)})
}

// AppendFloat32 returns fs with a float field appended.
func (fs Fields) AppendFloat32(num protowire.Number, v float32) Fields {
	return fs.AppendFixed32(num, math.Float32bits(v))
}

// AppendString returns fs with a string field appended.
func (fs Fields) AppendString(num protowire.Number, v string) Fields {
	return append(fs, Field{Num: num, Type: protowire.BytesType, Bytes: []byte(v)})
}

// Marshal appends the protobuf encoding of fs to b.
func (fs Fields) Marshal(b []byte) []byte {
	for _, f := range fs {
		b = f.marshal(b)
	}
	return b
}

func (f Field) marshal(b []byte) []byte {
	switch f.Type {
	case protowire.VarintType:
		b = protowire.AppendTag(b, f.Num, f.Type)
		return protowire.AppendVarint(b, f.Varint)
	case protowire.Fixed32Type:
		b = protowire.AppendTag(b, f.Num, f.Type)
		return protowire.AppendFixed32(b, uint32(f.Fixed))
	case protowire.Fixed64Type:
		b = protowire.AppendTag(b, f.Num, f.Type)
		return protowire.AppendFixed64(b, f.Fixed)
	case protowire.BytesType:
		b = protowire.AppendTag(b, f.Num, f.Type)
		return protowire.AppendBytes(b, f.Bytes)
	default:
		// Groups keep their raw encoding, start tag included.
		b = protowire.AppendTag(b, f.Num, f.Type)
		return append(b, f.Bytes...)
	}
}

// without returns the fields whose numbers are not listed.
func (fs Fields) without(nums ...protowire.Number) Fields {
	var out Fields
next:
	for _, f := range fs {
		for _, n := range nums {
			if f.Num == n {
				continue next
			}
		}
		out = append(out, f)
	}
	return out
}

// Encoding helpers for the concrete message types. Proto3 omits default values.

func appendString(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendBytes(b []byte, num protowire.Number, v []byte) []byte {
	if len(v) == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

func appendBool(b []byte, num protowire.Number, v bool) []byte {
	if !v {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, 1)
}

func appendUint(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendFixed32(b []byte, num protowire.Number, v uint32) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.Fixed32Type)
	return protowire.AppendFixed32(b, v)
}

func appendEmbedded(b []byte, num protowire.Number, body []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, body)
}
