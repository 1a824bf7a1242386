package transport

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

func TestFrameWriterFormat(t *testing.T) {
	var buf bytes.Buffer
	fw := NewFrameWriter(&buf)

	if err := fw.WriteFrame([]byte{0xAA, 0xBB}); err != nil {
		t.Fatalf("WriteFrame failed: %v", err)
	}
	if err := fw.WriteFrame(nil); err != nil {
		t.Fatalf("WriteFrame(empty) failed: %v", err)
	}

	want := []byte{0x01, 0x00, 0x02, 0xAA, 0xBB, 0x01, 0x00, 0x00}
	if !bytes.Equal(buf.Bytes(), want) {
		t.Errorf("wrote %x, want %x", buf.Bytes(), want)
	}
}

func TestFrameWriterTooLarge(t *testing.T) {
	fw := NewFrameWriter(io.Discard)
	err := fw.WriteFrame(make([]byte, MaxPayloadSize+1))
	if !errors.Is(err, ErrPayloadTooLarge) {
		t.Errorf("error = %v, want ErrPayloadTooLarge", err)
	}
}

func TestFrameBufferByteByByte(t *testing.T) {
	stream := []byte{0x01, 0x00, 0x03, 'a', 'b', 'c', 0x01, 0x00, 0x00, 0x01, 0x00, 0x01, 'z'}

	var fb FrameBuffer
	var frames [][]byte
	for i, b := range stream {
		fb.Feed([]byte{b})
		payload, ok, err := fb.Next()
		if err != nil {
			t.Fatalf("byte %d: Next failed: %v", i, err)
		}
		if ok {
			frames = append(frames, payload)
		}
	}

	want := [][]byte{[]byte("abc"), {}, []byte("z")}
	if len(frames) != len(want) {
		t.Fatalf("got %d frames, want %d", len(frames), len(want))
	}
	for i := range want {
		if !bytes.Equal(frames[i], want[i]) {
			t.Errorf("frame %d = %q, want %q", i, frames[i], want[i])
		}
	}
	if fb.Buffered() != 0 {
		t.Errorf("Buffered() = %d, want 0", fb.Buffered())
	}
}

func TestFrameBufferPartialFrameYieldsNothing(t *testing.T) {
	var fb FrameBuffer
	fb.Feed([]byte{0x01, 0x00, 0x05, 1, 2, 3, 4})
	_, ok, err := fb.Next()
	if err != nil || ok {
		t.Fatalf("Next() = ok %v, err %v; want incomplete", ok, err)
	}
	fb.Feed([]byte{5})
	payload, ok, err := fb.Next()
	if err != nil || !ok {
		t.Fatalf("Next() = ok %v, err %v; want frame", ok, err)
	}
	if len(payload) != 5 {
		t.Errorf("payload length = %d, want 5", len(payload))
	}
}

func TestFrameBufferIndicators(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		want  error
	}{
		{"plaintext", []byte{0x00}, ErrPlaintextPeer},
		{"garbage", []byte{0x7F, 0x00}, ErrBadIndicator},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var fb FrameBuffer
			fb.Feed(tt.input)
			_, _, err := fb.Next()
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

// slowReader returns one byte per Read call.
type slowReader struct {
	data []byte
}

func (r *slowReader) Read(p []byte) (int, error) {
	if len(r.data) == 0 {
		return 0, io.EOF
	}
	p[0] = r.data[0]
	r.data = r.data[1:]
	return 1, nil
}

func TestFrameReader(t *testing.T) {
	fr := NewFrameReader(&slowReader{data: []byte{0x01, 0x00, 0x02, 'h', 'i', 0x01, 0x00}})

	payload, err := fr.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame failed: %v", err)
	}
	if string(payload) != "hi" {
		t.Errorf("payload = %q, want %q", payload, "hi")
	}

	if _, err := fr.ReadFrame(); !errors.Is(err, ErrFrameTruncated) {
		t.Errorf("error = %v, want ErrFrameTruncated", err)
	}
}

func TestFrameReaderCleanEOF(t *testing.T) {
	fr := NewFrameReader(bytes.NewReader(nil))
	if _, err := fr.ReadFrame(); !errors.Is(err, io.EOF) {
		t.Errorf("error = %v, want io.EOF", err)
	}
}

func TestParseServerHello(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		wantName string
		wantMAC  string
		wantErr  error
	}{
		{"name and mac", []byte("\x01kitchen\x00AA:BB:CC\x00"), "kitchen", "AA:BB:CC", nil},
		{"name only", []byte("\x01porch\x00"), "porch", "", nil},
		{"empty", nil, "", "", ErrBadServerHello},
		{"other protocol", []byte("\x02x\x00"), "", "", ErrUnsupportedProtocol},
		{"unterminated", []byte("\x01abc"), "", "", ErrBadServerHello},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name, mac, err := parseServerHello(tt.input)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
			if name != tt.wantName || mac != tt.wantMAC {
				t.Errorf("got %q/%q, want %q/%q", name, mac, tt.wantName, tt.wantMAC)
			}
		})
	}
}

func TestErrorKindConfiguration(t *testing.T) {
	config := []ErrorKind{KindPlaintextDevice, KindUnsupportedProtocol, KindNameMismatch, KindBadServerHello, KindHandshakeRejected, KindHandshakeFailed}
	for _, k := range config {
		if !k.IsConfiguration() {
			t.Errorf("%v should be a configuration error", k)
		}
	}
	for _, k := range []ErrorKind{KindPacketError, KindBadIndicator, KindDecryptFailed} {
		if k.IsConfiguration() {
			t.Errorf("%v should not be a configuration error", k)
		}
	}
}
