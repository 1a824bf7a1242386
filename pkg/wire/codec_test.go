package wire

import (
	"bytes"
	"errors"
	"testing"
)

func TestPacketRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
	}{
		{"hello", &HelloRequest{ClientInfo: "esphome-go", APIVersionMajor: 1, APIVersionMinor: 10}},
		{"empty body", &PingRequest{}},
		{"device info", &DeviceInfoResponse{Name: "kitchen", MACAddress: "AA:BB", ESPHomeVersion: "2024.5.0", WebserverPort: 80}},
		{"service call", &HomeassistantServiceResponse{
			Service:   "light.turn_on",
			Data:      []KeyValue{{Key: "entity_id", Value: "light.kitchen"}},
			Variables: []KeyValue{{Key: "", Value: ""}},
			IsEvent:   true,
		}},
		{"time", &GetTimeResponse{EpochSeconds: 1700000000}},
		{"entity info", &EntityInfo{
			MsgType:  TypeListEntitiesSwitchResponse,
			ObjectID: "relay",
			Key:      0xDEADBEEF,
			Name:     "Relay",
			UniqueID: "kitchenrelay",
			Fields:   Fields{}.AppendString(5, "mdi:power"),
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := EncodePacket(tt.msg)
			got, err := DecodePacket(data)
			if err != nil {
				t.Fatalf("DecodePacket failed: %v", err)
			}
			if got.Type() != tt.msg.Type() {
				t.Errorf("Type() = %v, want %v", got.Type(), tt.msg.Type())
			}
			if !bytes.Equal(EncodePacket(got), data) {
				t.Errorf("re-encoded packet differs: %x vs %x", EncodePacket(got), data)
			}
		})
	}
}

func TestDecodePacketHeader(t *testing.T) {
	// Type 7 (PingRequest), empty body.
	msg, err := DecodePacket([]byte{0x07, 0x00})
	if err != nil {
		t.Fatalf("DecodePacket failed: %v", err)
	}
	if _, ok := msg.(*PingRequest); !ok {
		t.Errorf("got %T, want *PingRequest", msg)
	}

	// Multi-byte varint type: 200 = 0xC8 0x01.
	data := []byte{0xC8, 0x01, 0x02, 0xAB, 0xCD}
	msg, err = DecodePacket(data)
	if err != nil {
		t.Fatalf("DecodePacket failed: %v", err)
	}
	unk, ok := msg.(*Unknown)
	if !ok {
		t.Fatalf("got %T, want *Unknown", msg)
	}
	if unk.MsgType != 200 || !bytes.Equal(unk.Body, []byte{0xAB, 0xCD}) {
		t.Errorf("Unknown = %+v", unk)
	}
}

func TestDecodePacketErrors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"empty", nil, ErrTruncatedHeader},
		{"no length", []byte{0x07}, ErrTruncatedHeader},
		{"truncated varint", []byte{0x80}, ErrTruncatedHeader},
		{"short body", []byte{0x07, 0x03, 0x01}, ErrLengthMismatch},
		{"long body", []byte{0x07, 0x00, 0x01}, ErrLengthMismatch},
		{"bad body", []byte{0x02, 0x02, 0x0A, 0x05}, ErrMalformedBody},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodePacket(tt.data)
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestUnknownTypeIsNotAnError(t *testing.T) {
	r := NewRegistry()
	msg, err := r.Decode(TypeHelloResponse, nil)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if msg.Type() != TypeHelloResponse {
		t.Errorf("Type() = %v, want %v", msg.Type(), TypeHelloResponse)
	}
	if _, ok := msg.(*Unknown); !ok {
		t.Errorf("got %T, want *Unknown", msg)
	}
}

func TestRegisterDuplicate(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(TypePingRequest, func() Message { return &PingRequest{} }); err != nil {
		t.Fatalf("first Register failed: %v", err)
	}
	err := r.Register(TypePingRequest, func() Message { return &PingRequest{} })
	if !errors.Is(err, ErrDuplicateType) {
		t.Errorf("error = %v, want ErrDuplicateType", err)
	}
}

func TestDefaultRegistryCoversEntityMessages(t *testing.T) {
	for _, typ := range entityInfoTypes {
		if !Default.Known(typ) {
			t.Errorf("%v not registered", typ)
		}
	}
	msg, err := Default.Decode(TypeSensorStateResponse, EncodeBody(&EntityState{
		MsgType: TypeSensorStateResponse,
		Key:     42,
		Fields:  Fields{}.AppendFloat32(2, 21.5),
	}))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	st, ok := msg.(*EntityState)
	if !ok {
		t.Fatalf("got %T, want *EntityState", msg)
	}
	if st.Key != 42 {
		t.Errorf("Key = %d, want 42", st.Key)
	}
	if got := st.Fields.Float32(2); got != 21.5 {
		t.Errorf("state = %v, want 21.5", got)
	}
}

func TestMessageTypeString(t *testing.T) {
	if got := TypeHelloRequest.String(); got != "HelloRequest" {
		t.Errorf("String() = %q, want %q", got, "HelloRequest")
	}
	if got := MessageType(9999).String(); got != "Unknown(9999)" {
		t.Errorf("String() = %q, want %q", got, "Unknown(9999)")
	}
}

func TestParseLogLevel(t *testing.T) {
	for _, name := range []string{"none", "error", "warn", "info", "config", "debug", "verbose", "very_verbose"} {
		lvl, err := ParseLogLevel(name)
		if err != nil {
			t.Fatalf("ParseLogLevel(%q) failed: %v", name, err)
		}
		if lvl.String() != name {
			t.Errorf("String() = %q, want %q", lvl.String(), name)
		}
	}
	if _, err := ParseLogLevel("loud"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestParseMessageType(t *testing.T) {
	tests := []struct {
		in   string
		want MessageType
	}{
		{"PingRequest", TypePingRequest},
		{"pingrequest", TypePingRequest},
		{"10", TypeDeviceInfoResponse},
		{"200", MessageType(200)},
	}
	for _, tt := range tests {
		got, err := ParseMessageType(tt.in)
		if err != nil {
			t.Fatalf("ParseMessageType(%q) failed: %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseMessageType(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
	if _, err := ParseMessageType("Nope"); err == nil {
		t.Error("expected error for unknown name")
	}
}
