package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/esphome-native/esphome-go/pkg/log"
	"github.com/esphome-native/esphome-go/pkg/metrics"
	"github.com/esphome-native/esphome-go/pkg/noise"
	"github.com/esphome-native/esphome-go/pkg/wire"
)

// Listener receives the events of one Transport.
type Listener interface {
	// OnConnect is called once the cipher session is established.
	OnConnect()

	// OnPacket is called for every decoded packet, in arrival order.
	OnPacket(msg wire.Message)

	// OnEndOfStream is called when the socket closes or fails.
	OnEndOfStream(reason string)

	// OnParseError is called when a frame, handshake step or packet cannot
	// be processed.
	OnParseError(err *ParseError)
}

// Executor runs listener callbacks. Tasks submitted under the same key
// must run in submission order.
type Executor interface {
	Submit(key string, task func()) error
}

// DialFunc opens the socket.
type DialFunc func(ctx context.Context, network, address string) (net.Conn, error)

// Config configures a Transport.
type Config struct {
	// Key is the 32-byte pre-shared key.
	Key []byte

	// ExpectedName, when set, must equal the name in the server hello.
	ExpectedName string

	// Registry decodes packets. Defaults to wire.Default.
	Registry *wire.Registry

	// Executor delivers listener callbacks. Nil delivers them on the
	// reader goroutine.
	Executor Executor

	// SequenceKey keys the executor queue and labels metrics. It must be
	// unique per device. Defaults to Device.
	SequenceKey string

	// Dial defaults to net.Dialer.DialContext.
	Dial DialFunc

	// Device labels logs.
	Device string

	// ConnectionID tags protocol capture events.
	ConnectionID string

	// Logger receives debug records. Nil disables them.
	Logger *slog.Logger

	// ProtocolLogger receives frame and error capture events. Nil disables
	// capture.
	ProtocolLogger log.Logger

	// Metrics counts frames. Nil disables metrics.
	Metrics *metrics.Metrics

	// WriteTimeout bounds each socket write. Defaults to DefaultWriteTimeout.
	WriteTimeout time.Duration

	// Rand is the entropy for the ephemeral key. Defaults to crypto/rand.
	Rand io.Reader
}

// DefaultWriteTimeout bounds a single frame write.
const DefaultWriteTimeout = 10 * time.Second

type phase int

const (
	phaseServerHello phase = iota
	phaseHandshake
	phaseEstablished
)

// Transport is one encrypted connection to a device.
type Transport struct {
	config   Config
	listener Listener

	// wmu orders encryption and socket writes. It is taken before mu and
	// never by Close, so a stalled write does not hold up Close.
	wmu sync.Mutex

	mu         sync.Mutex
	conn       net.Conn
	writer     *FrameWriter
	send       *noise.CipherState
	closed     bool
	serverName string
	mac        string

	// Owned by the reader goroutine.
	phase phase
	hs    *noise.HandshakeState
	recv  *noise.CipherState
}

// New creates a Transport. The key is validated here so a bad key fails
// before any socket is opened.
func New(config Config, listener Listener) (*Transport, error) {
	if len(config.Key) != noise.KeySize {
		return nil, fmt.Errorf("%w: got %d bytes", noise.ErrInvalidKey, len(config.Key))
	}
	if config.Registry == nil {
		config.Registry = wire.Default
	}
	if config.Dial == nil {
		config.Dial = (&net.Dialer{}).DialContext
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = DefaultWriteTimeout
	}
	if config.SequenceKey == "" {
		config.SequenceKey = config.Device
	}
	return &Transport{config: config, listener: listener}, nil
}

// Connect dials host:port and sends the client hello and the first
// handshake message. It returns once the bytes are written; completion of
// the handshake is reported through Listener.OnConnect.
func (t *Transport) Connect(ctx context.Context, host string, port int) error {
	t.mu.Lock()
	switch {
	case t.closed:
		t.mu.Unlock()
		return ErrClosed
	case t.conn != nil:
		t.mu.Unlock()
		return ErrAlreadyConnected
	}
	t.mu.Unlock()

	var opts []noise.Option
	if t.config.Rand != nil {
		opts = append(opts, noise.WithRandom(t.config.Rand))
	}
	hs, err := noise.NewInitiator(t.config.Key, noise.Prologue, opts...)
	if err != nil {
		return err
	}
	msg1, err := hs.WriteMessage(nil)
	if err != nil {
		return err
	}

	addr := net.JoinHostPort(host, strconv.Itoa(port))
	conn, err := t.config.Dial(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		conn.Close()
		return ErrClosed
	}
	t.conn = conn
	t.hs = hs
	writer := NewFrameWriter(conn)
	writer.SetLogger(t.config.ProtocolLogger, t.config.ConnectionID)
	t.writer = writer
	t.mu.Unlock()

	t.wmu.Lock()
	err = t.writeFrame(conn, writer, nil)
	if err == nil {
		err = t.writeFrame(conn, writer, append([]byte{0x00}, msg1...))
	}
	t.wmu.Unlock()
	if err != nil {
		conn.Close()
		return fmt.Errorf("send handshake: %w", err)
	}

	t.debugLog("connected, handshake sent", "remote", conn.RemoteAddr().String())
	go t.readLoop(conn)
	return nil
}

func (t *Transport) writeFrame(conn net.Conn, writer *FrameWriter, payload []byte) error {
	_ = conn.SetWriteDeadline(time.Now().Add(t.config.WriteTimeout))
	if err := writer.WriteFrame(payload); err != nil {
		return err
	}
	t.config.Metrics.Frame(t.config.SequenceKey, "out", HeaderSize+len(payload))
	return nil
}

// Send encrypts and writes one message.
func (t *Transport) Send(msg wire.Message) error {
	packet := wire.EncodePacket(msg)

	t.wmu.Lock()
	defer t.wmu.Unlock()

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrClosed
	}
	cipher, conn, writer := t.send, t.conn, t.writer
	t.mu.Unlock()
	if cipher == nil {
		return ErrNotEstablished
	}

	ct, err := cipher.Encrypt(nil, packet)
	if err != nil {
		return fmt.Errorf("encrypt %s: %w", msg.Type(), err)
	}
	if err := t.writeFrame(conn, writer, ct); err != nil {
		return fmt.Errorf("send %s: %w", msg.Type(), err)
	}
	t.logMessage(log.DirectionOut, msg, len(packet))
	return nil
}

// Close releases the socket. The reader goroutine exits on its own and no
// further callbacks are delivered. Close is idempotent and does not wait,
// so it may be called from a listener callback.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	t.send = nil
	if t.conn != nil {
		return t.conn.Close()
	}
	return nil
}

// ServerName returns the name announced in the server hello.
func (t *Transport) ServerName() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.serverName
}

// MACAddress returns the MAC announced in the server hello, if any.
func (t *Transport) MACAddress() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.mac
}

func (t *Transport) isClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

func (t *Transport) readLoop(conn net.Conn) {
	// The socket is closed on exit even if nobody calls Close, so a failed
	// transport never keeps the device's single API slot busy.
	defer conn.Close()

	reader := NewFrameReader(conn)
	reader.SetLogger(t.config.ProtocolLogger, t.config.ConnectionID)

	for {
		payload, err := reader.ReadFrame()
		if err != nil {
			t.readFailed(err)
			return
		}
		t.config.Metrics.Frame(t.config.SequenceKey, "in", HeaderSize+len(payload))

		if perr := t.handleFrame(payload); perr != nil {
			t.signal(func() { t.listener.OnParseError(perr) })
			return
		}
	}
}

func (t *Transport) readFailed(err error) {
	if t.isClosed() {
		return
	}
	switch {
	case errors.Is(err, ErrPlaintextPeer):
		perr := &ParseError{Kind: KindPlaintextDevice, Err: err}
		t.signal(func() { t.listener.OnParseError(perr) })
	case errors.Is(err, ErrBadIndicator):
		perr := &ParseError{Kind: KindBadIndicator, Err: err}
		t.signal(func() { t.listener.OnParseError(perr) })
	case errors.Is(err, io.EOF):
		t.signal(func() { t.listener.OnEndOfStream("connection closed by device") })
	default:
		reason := err.Error()
		t.signal(func() { t.listener.OnEndOfStream(reason) })
	}
}

func (t *Transport) handleFrame(payload []byte) *ParseError {
	switch t.phase {
	case phaseServerHello:
		name, mac, err := parseServerHello(payload)
		if err != nil {
			kind := KindBadServerHello
			if errors.Is(err, ErrUnsupportedProtocol) {
				kind = KindUnsupportedProtocol
			}
			return &ParseError{Kind: kind, Err: err}
		}
		if t.config.ExpectedName != "" && name != t.config.ExpectedName {
			return &ParseError{Kind: KindNameMismatch,
				Err: fmt.Errorf("%w: expected %q, device is %q", ErrNameMismatch, t.config.ExpectedName, name)}
		}
		t.mu.Lock()
		t.serverName, t.mac = name, mac
		t.mu.Unlock()
		t.debugLog("server hello", "name", name, "mac", mac)
		t.phase = phaseHandshake
		return nil

	case phaseHandshake:
		if len(payload) == 0 {
			return &ParseError{Kind: KindHandshakeFailed, Err: noise.ErrShortMessage}
		}
		if payload[0] != 0x00 {
			return &ParseError{Kind: KindHandshakeRejected,
				Err: fmt.Errorf("%w: %s", ErrHandshakeRejected, payload[1:])}
		}
		if _, err := t.hs.ReadMessage(payload[1:]); err != nil {
			return &ParseError{Kind: KindHandshakeFailed, Err: err}
		}
		send, recv, err := t.hs.Split()
		if err != nil {
			return &ParseError{Kind: KindHandshakeFailed, Err: err}
		}
		t.hs = nil
		t.recv = recv
		t.mu.Lock()
		if !t.closed {
			t.send = send
		}
		t.mu.Unlock()
		t.phase = phaseEstablished
		t.debugLog("cipher session established")
		t.signal(t.listener.OnConnect)
		return nil

	default:
		packet, err := t.recv.Decrypt(nil, payload)
		if err != nil {
			return &ParseError{Kind: KindDecryptFailed, Err: err}
		}
		msg, err := t.config.Registry.DecodePacket(packet)
		if err != nil {
			return &ParseError{Kind: KindPacketError, Err: err}
		}
		t.logMessage(log.DirectionIn, msg, len(packet))
		t.signal(func() { t.listener.OnPacket(msg) })
		return nil
	}
}

// parseServerHello reads [protocol][name NUL][mac NUL].
func parseServerHello(p []byte) (name, mac string, err error) {
	if len(p) == 0 {
		return "", "", ErrBadServerHello
	}
	if p[0] != 0x01 {
		return "", "", fmt.Errorf("%w: 0x%02x", ErrUnsupportedProtocol, p[0])
	}
	rest := p[1:]
	n, rest, found := bytes.Cut(rest, []byte{0})
	if !found {
		return "", "", fmt.Errorf("%w: unterminated name", ErrBadServerHello)
	}
	m, _, _ := bytes.Cut(rest, []byte{0})
	return string(n), string(m), nil
}

// signal hands a callback to the executor. Callbacks queued before Close
// are dropped when they run.
func (t *Transport) signal(fn func()) {
	run := func() {
		if t.isClosed() {
			return
		}
		fn()
	}
	if t.config.Executor == nil {
		run()
		return
	}
	if err := t.config.Executor.Submit(t.config.SequenceKey, run); err != nil {
		t.debugLog("callback dropped", "error", err)
	}
}

func (t *Transport) logMessage(dir log.Direction, msg wire.Message, size int) {
	if t.config.ProtocolLogger == nil {
		return
	}
	ev := log.Event{
		Timestamp:    time.Now(),
		ConnectionID: t.config.ConnectionID,
		Direction:    dir,
		Layer:        log.LayerWire,
		Category:     log.CategoryMessage,
		Message: &log.MessageEvent{
			Type: uint32(msg.Type()),
			Name: msg.Type().String(),
			Size: size,
		},
	}
	switch m := msg.(type) {
	case *wire.EntityInfo:
		ev.Message.Key = &m.Key
	case *wire.EntityState:
		ev.Message.Key = &m.Key
	case *wire.EntityCommand:
		ev.Message.Key = &m.Key
	}
	if isControl(msg.Type()) {
		ev.Category = log.CategoryControl
	}
	t.config.ProtocolLogger.Log(ev)
}

func isControl(typ wire.MessageType) bool {
	return typ >= wire.TypeHelloRequest && typ <= wire.TypePingResponse
}

func (t *Transport) debugLog(msg string, args ...any) {
	if t.config.Logger != nil {
		t.config.Logger.Debug(msg, append([]any{"device", t.config.Device}, args...)...)
	}
}
