package transport

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/esphome-native/esphome-go/pkg/log"
)

// Framing constants.
const (
	// HeaderSize is the indicator byte plus the 16-bit length.
	HeaderSize = 3

	// Indicator marks a frame of the encrypted protocol.
	Indicator byte = 0x01

	// PlaintextIndicator is sent by devices configured without encryption.
	PlaintextIndicator byte = 0x00

	// MaxPayloadSize is the largest payload a 16-bit length can describe.
	MaxPayloadSize = 0xFFFF

	readChunkSize = 4096
)

// Framing errors.
var (
	ErrPayloadTooLarge = errors.New("frame payload too large")
	ErrPlaintextPeer   = errors.New("device uses the plaintext protocol")
	ErrBadIndicator    = errors.New("invalid frame indicator")
	ErrFrameTruncated  = errors.New("frame truncated")
)

// FrameWriter writes frames to an underlying writer.
// WriteFrame is safe for concurrent use.
type FrameWriter struct {
	w  io.Writer
	mu sync.Mutex

	logger log.Logger
	connID string
}

func NewFrameWriter(w io.Writer) *FrameWriter {
	return &FrameWriter{w: w}
}

// SetLogger enables frame capture. A nil logger disables it.
func (fw *FrameWriter) SetLogger(logger log.Logger, connID string) {
	fw.logger = logger
	fw.connID = connID
}

// WriteFrame writes header and payload with a single Write call.
// Empty payloads are valid (the client hello is one).
func (fw *FrameWriter) WriteFrame(payload []byte) error {
	if len(payload) > MaxPayloadSize {
		return fmt.Errorf("%w: %d > %d", ErrPayloadTooLarge, len(payload), MaxPayloadSize)
	}

	frame := make([]byte, HeaderSize+len(payload))
	frame[0] = Indicator
	binary.BigEndian.PutUint16(frame[1:HeaderSize], uint16(len(payload)))
	copy(frame[HeaderSize:], payload)

	fw.mu.Lock()
	defer fw.mu.Unlock()
	if _, err := fw.w.Write(frame); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	if fw.logger != nil {
		fw.logger.Log(frameEvent(fw.connID, log.DirectionOut, payload))
	}
	return nil
}

func frameEvent(connID string, dir log.Direction, payload []byte) log.Event {
	return log.Event{
		Timestamp:    time.Now(),
		ConnectionID: connID,
		Direction:    dir,
		Layer:        log.LayerTransport,
		Category:     log.CategoryMessage,
		Frame:        log.NewFrameEvent(HeaderSize, payload),
	}
}

// FrameBuffer reassembles frames from arbitrarily split input.
type FrameBuffer struct {
	buf []byte
}

// Feed appends received bytes.
func (b *FrameBuffer) Feed(p []byte) {
	b.buf = append(b.buf, p...)
}

// Buffered returns the number of bytes not yet consumed.
func (b *FrameBuffer) Buffered() int {
	return len(b.buf)
}

// Next extracts the next complete frame payload. ok is false while the
// frame is still incomplete. An invalid indicator is reported as soon as
// the first byte is available.
func (b *FrameBuffer) Next() (payload []byte, ok bool, err error) {
	if len(b.buf) == 0 {
		return nil, false, nil
	}
	switch b.buf[0] {
	case Indicator:
	case PlaintextIndicator:
		return nil, false, ErrPlaintextPeer
	default:
		return nil, false, fmt.Errorf("%w: 0x%02x", ErrBadIndicator, b.buf[0])
	}
	if len(b.buf) < HeaderSize {
		return nil, false, nil
	}
	n := int(binary.BigEndian.Uint16(b.buf[1:HeaderSize]))
	if len(b.buf) < HeaderSize+n {
		return nil, false, nil
	}

	payload = make([]byte, n)
	copy(payload, b.buf[HeaderSize:HeaderSize+n])
	b.buf = b.buf[HeaderSize+n:]
	if len(b.buf) == 0 {
		b.buf = nil
	}
	return payload, true, nil
}

// FrameReader reads frames from an underlying reader.
type FrameReader struct {
	r     io.Reader
	buf   FrameBuffer
	chunk []byte

	logger log.Logger
	connID string
}

func NewFrameReader(r io.Reader) *FrameReader {
	return &FrameReader{r: r, chunk: make([]byte, readChunkSize)}
}

// SetLogger enables frame capture. A nil logger disables it.
func (fr *FrameReader) SetLogger(logger log.Logger, connID string) {
	fr.logger = logger
	fr.connID = connID
}

// ReadFrame blocks until a whole frame is available and returns its payload.
// A stream ending between frames returns io.EOF; inside a frame, ErrFrameTruncated.
func (fr *FrameReader) ReadFrame() ([]byte, error) {
	for {
		payload, ok, err := fr.buf.Next()
		if err != nil {
			return nil, err
		}
		if ok {
			if fr.logger != nil {
				fr.logger.Log(frameEvent(fr.connID, log.DirectionIn, payload))
			}
			return payload, nil
		}

		n, err := fr.r.Read(fr.chunk)
		if n > 0 {
			fr.buf.Feed(fr.chunk[:n])
			continue
		}
		if err != nil {
			if errors.Is(err, io.EOF) && fr.buf.Buffered() > 0 {
				return nil, ErrFrameTruncated
			}
			return nil, err
		}
	}
}
