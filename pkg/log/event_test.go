package log

import (
	"bytes"
	"testing"
	"time"
)

func TestEnumStrings(t *testing.T) {
	tests := []struct {
		got  string
		want string
	}{
		{DirectionIn.String(), "IN"},
		{DirectionOut.String(), "OUT"},
		{Direction(9).String(), "UNKNOWN"},
		{LayerTransport.String(), "TRANSPORT"},
		{LayerWire.String(), "WIRE"},
		{LayerConnection.String(), "CONNECTION"},
		{Layer(9).String(), "UNKNOWN"},
		{CategoryMessage.String(), "MESSAGE"},
		{CategoryControl.String(), "CONTROL"},
		{CategoryState.String(), "STATE"},
		{CategoryError.String(), "ERROR"},
		{Category(9).String(), "UNKNOWN"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("String() = %q, want %q", tt.got, tt.want)
		}
	}
}

func TestParseDirectionAndLayer(t *testing.T) {
	if d, ok := ParseDirection("out"); !ok || d != DirectionOut {
		t.Errorf("ParseDirection(out) = %v, %v", d, ok)
	}
	if _, ok := ParseDirection("sideways"); ok {
		t.Error("ParseDirection(sideways) succeeded")
	}
	if l, ok := ParseLayer("Wire"); !ok || l != LayerWire {
		t.Errorf("ParseLayer(Wire) = %v, %v", l, ok)
	}
}

func TestNewFrameEventTruncates(t *testing.T) {
	big := bytes.Repeat([]byte{0xAA}, MaxFrameData+10)
	fe := NewFrameEvent(3, big)
	if fe.Size != len(big)+3 {
		t.Errorf("Size = %d, want %d", fe.Size, len(big)+3)
	}
	if !fe.Truncated || len(fe.Data) != MaxFrameData {
		t.Errorf("Truncated = %v, len(Data) = %d", fe.Truncated, len(fe.Data))
	}

	small := NewFrameEvent(3, []byte{1, 2})
	if small.Truncated || len(small.Data) != 2 {
		t.Errorf("small frame: Truncated = %v, len(Data) = %d", small.Truncated, len(small.Data))
	}
}

func TestEventRoundTrip(t *testing.T) {
	key := uint32(0xCAFE)
	ts := time.Date(2024, 5, 1, 12, 0, 0, 123456789, time.UTC)
	events := []Event{
		{
			Timestamp: ts, ConnectionID: "c1", Direction: DirectionOut, Layer: LayerWire,
			Category: CategoryMessage, Device: "kitchen",
			Message: &MessageEvent{Type: 33, Name: "SwitchCommandRequest", Size: 7, Key: &key},
		},
		{
			Timestamp: ts, ConnectionID: "c1", Layer: LayerConnection, Category: CategoryState,
			StateChange: &StateChangeEvent{OldState: "HELLO_SENT", NewState: "CONNECTED"},
		},
		{
			Timestamp: ts, ConnectionID: "c1", Layer: LayerConnection, Category: CategoryError,
			Error: &ErrorEventData{Layer: LayerTransport, Message: "decrypt failed", Class: "communication"},
		},
	}

	for _, ev := range events {
		data, err := EncodeEvent(ev)
		if err != nil {
			t.Fatalf("EncodeEvent failed: %v", err)
		}
		got, err := DecodeEvent(data)
		if err != nil {
			t.Fatalf("DecodeEvent failed: %v", err)
		}
		if !got.Timestamp.Equal(ts) {
			t.Errorf("Timestamp = %v, want %v", got.Timestamp, ts)
		}
		if got.Category != ev.Category || got.Device != ev.Device {
			t.Errorf("got %+v, want %+v", got, ev)
		}
		if ev.Message != nil && (got.Message == nil || got.Message.Key == nil || *got.Message.Key != key) {
			t.Errorf("Message = %+v", got.Message)
		}
		if ev.Error != nil && (got.Error == nil || got.Error.Class != "communication") {
			t.Errorf("Error = %+v", got.Error)
		}
	}
}
