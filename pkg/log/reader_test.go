package log

import (
	"errors"
	"io"
	"path/filepath"
	"testing"
	"time"
)

func writeCapture(t *testing.T, events []Event) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "capture.elog")
	fl, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}
	for _, e := range events {
		fl.Log(e)
	}
	fl.Close()
	return path
}

func readAll(t *testing.T, r *Reader) []Event {
	t.Helper()
	var out []Event
	for {
		ev, err := r.Next()
		if errors.Is(err, io.EOF) {
			return out
		}
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		out = append(out, ev)
	}
}

func TestFilteredReader(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	events := []Event{
		{Timestamp: base, ConnectionID: "a", Device: "kitchen", Direction: DirectionOut, Layer: LayerWire,
			Message: &MessageEvent{Type: 7, Name: "PingRequest"}},
		{Timestamp: base.Add(time.Second), ConnectionID: "a", Device: "kitchen", Direction: DirectionIn, Layer: LayerWire,
			Message: &MessageEvent{Type: 8, Name: "PingResponse"}},
		{Timestamp: base.Add(2 * time.Second), ConnectionID: "b", Device: "porch", Layer: LayerConnection,
			Category: CategoryState, StateChange: &StateChangeEvent{NewState: "CONNECTING"}},
	}
	path := writeCapture(t, events)

	out := DirectionOut
	layer := LayerConnection
	ping := uint32(8)
	start := base.Add(time.Second)
	end := base.Add(2 * time.Second)

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"all", Filter{}, []string{"PingRequest", "PingResponse", "CONNECTING"}},
		{"device", Filter{Device: "porch"}, []string{"CONNECTING"}},
		{"direction", Filter{Direction: &out}, []string{"PingRequest"}},
		{"layer", Filter{Layer: &layer}, []string{"CONNECTING"}},
		{"message type", Filter{MessageType: &ping}, []string{"PingResponse"}},
		{"time window", Filter{TimeStart: &start, TimeEnd: &end}, []string{"PingResponse"}},
		{"connection", Filter{ConnectionID: "a"}, []string{"PingRequest", "PingResponse"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewFilteredReader(path, tt.filter)
			if err != nil {
				t.Fatalf("NewFilteredReader failed: %v", err)
			}
			defer r.Close()

			var got []string
			for _, ev := range readAll(t, r) {
				switch {
				case ev.Message != nil:
					got = append(got, ev.Message.Name)
				case ev.StateChange != nil:
					got = append(got, ev.StateChange.NewState)
				}
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("event %d = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestReaderMissingFile(t *testing.T) {
	if _, err := NewReader(filepath.Join(t.TempDir(), "missing.elog")); err == nil {
		t.Error("expected error for missing file")
	}
}
