// Package testdevice provides an in-process fake ESPHome device for tests.
//
// A Device listens on a loopback port, performs the responder side of the
// Noise handshake and exposes each accepted session as a Conn from which
// tests read the client's messages and through which they send replies.
// With AutoRespond set the device answers the login sequence, pings,
// device-info and entity listing requests on its own.
package testdevice

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"

	"github.com/esphome-native/esphome-go/pkg/noise"
	"github.com/esphome-native/esphome-go/pkg/transport"
	"github.com/esphome-native/esphome-go/pkg/wire"
)

// Errors.
var (
	ErrClosed   = errors.New("test device closed")
	ErrNoCipher = errors.New("session has no cipher")
)

// Config configures a fake device.
type Config struct {
	Name string
	MAC  string

	// Key is the device's pre-shared key.
	Key []byte

	// RejectReason, when set, rejects every handshake with this text.
	RejectReason string

	// Plaintext makes the device answer with a plaintext-protocol frame.
	Plaintext bool

	// AutoRespond answers hello, login, ping, device info, entity listing
	// and state subscription.
	AutoRespond bool

	// InvalidPassword makes the automatic ConnectResponse reject the login.
	InvalidPassword bool

	// Entities are sent in answer to ListEntitiesRequest.
	Entities []*wire.EntityInfo

	// States are sent in answer to SubscribeStatesRequest.
	States []*wire.EntityState

	// Info answers DeviceInfoRequest. Name defaults to Config.Name.
	Info wire.DeviceInfoResponse
}

// Device is a fake device listening on loopback.
type Device struct {
	config Config
	ln     net.Listener

	sessions chan *Conn
	done     chan struct{}
	once     sync.Once
	wg       sync.WaitGroup
}

// Start listens on 127.0.0.1 with a random port.
func Start(config Config) (*Device, error) {
	if config.Info.Name == "" {
		config.Info.Name = config.Name
	}
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}
	d := &Device{
		config:   config,
		ln:       ln,
		sessions: make(chan *Conn, 8),
		done:     make(chan struct{}),
	}
	d.wg.Add(1)
	go d.acceptLoop()
	return d, nil
}

// Addr returns the host and port clients should dial.
func (d *Device) Addr() (string, int) {
	host, portStr, _ := net.SplitHostPort(d.ln.Addr().String())
	port, _ := strconv.Atoi(portStr)
	return host, port
}

// Accept returns the next session that completed (or failed) the handshake.
func (d *Device) Accept(ctx context.Context) (*Conn, error) {
	select {
	case c := <-d.sessions:
		return c, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-d.done:
		return nil, ErrClosed
	}
}

// Close stops listening and closes every session.
func (d *Device) Close() {
	d.once.Do(func() {
		close(d.done)
		d.ln.Close()
	})
	d.wg.Wait()
}

func (d *Device) acceptLoop() {
	defer d.wg.Done()
	for {
		nc, err := d.ln.Accept()
		if err != nil {
			return
		}
		c := newConn(d, nc)
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			c.serve()
		}()
	}
}

// Conn is one client session on the fake device.
type Conn struct {
	device *Device
	nc     net.Conn
	reader *transport.FrameReader
	writer *transport.FrameWriter

	mu   sync.Mutex
	send *noise.CipherState
	recv *noise.CipherState

	// ClientHello is the payload of the client's first frame.
	ClientHello []byte

	// HandshakeErr is set when the handshake failed on the device side.
	HandshakeErr error

	received chan wire.Message
	closed   chan struct{}
	once     sync.Once
}

func newConn(d *Device, nc net.Conn) *Conn {
	return &Conn{
		device:   d,
		nc:       nc,
		reader:   transport.NewFrameReader(nc),
		writer:   transport.NewFrameWriter(nc),
		received: make(chan wire.Message, 64),
		closed:   make(chan struct{}),
	}
}

func (c *Conn) serve() {
	defer c.Close()
	go func() {
		select {
		case <-c.device.done:
			c.Close()
		case <-c.closed:
		}
	}()

	ok := c.handshake()
	select {
	case c.device.sessions <- c:
	case <-c.device.done:
		return
	}
	if !ok {
		return
	}

	for {
		payload, err := c.reader.ReadFrame()
		if err != nil {
			return
		}
		c.mu.Lock()
		packet, err := c.recv.Decrypt(nil, payload)
		c.mu.Unlock()
		if err != nil {
			return
		}
		msg, err := wire.DecodePacket(packet)
		if err != nil {
			return
		}
		if c.device.config.AutoRespond {
			c.autoRespond(msg)
		}
		select {
		case c.received <- msg:
		case <-c.closed:
			return
		}
	}
}

func (c *Conn) handshake() bool {
	cfg := c.device.config

	hello, err := c.reader.ReadFrame()
	if err != nil {
		c.HandshakeErr = err
		return false
	}
	c.ClientHello = hello

	init, err := c.reader.ReadFrame()
	if err != nil {
		c.HandshakeErr = err
		return false
	}

	if cfg.Plaintext {
		_, _ = c.nc.Write([]byte{transport.PlaintextIndicator, 0x00, 0x00})
		c.HandshakeErr = transport.ErrPlaintextPeer
		return false
	}

	serverHello := append([]byte{0x01}, cfg.Name...)
	serverHello = append(serverHello, 0)
	if cfg.MAC != "" {
		serverHello = append(serverHello, cfg.MAC...)
		serverHello = append(serverHello, 0)
	}
	if err := c.writer.WriteFrame(serverHello); err != nil {
		c.HandshakeErr = err
		return false
	}

	if cfg.RejectReason != "" {
		c.HandshakeErr = errors.New(cfg.RejectReason)
		_ = c.writer.WriteFrame(append([]byte{0x01}, cfg.RejectReason...))
		return false
	}

	hs, err := noise.NewResponder(cfg.Key, noise.Prologue)
	if err != nil {
		c.HandshakeErr = err
		return false
	}
	if len(init) == 0 || init[0] != 0x00 {
		c.HandshakeErr = fmt.Errorf("unexpected handshake frame %x", init)
		_ = c.writer.WriteFrame(append([]byte{0x01}, "Bad handshake packet"...))
		return false
	}
	if _, err := hs.ReadMessage(init[1:]); err != nil {
		c.HandshakeErr = err
		_ = c.writer.WriteFrame(append([]byte{0x01}, "Handshake MAC failure"...))
		return false
	}
	msg2, err := hs.WriteMessage(nil)
	if err != nil {
		c.HandshakeErr = err
		return false
	}
	if err := c.writer.WriteFrame(append([]byte{0x00}, msg2...)); err != nil {
		c.HandshakeErr = err
		return false
	}
	send, recv, err := hs.Split()
	if err != nil {
		c.HandshakeErr = err
		return false
	}
	c.mu.Lock()
	c.send, c.recv = send, recv
	c.mu.Unlock()
	return true
}

func (c *Conn) autoRespond(msg wire.Message) {
	cfg := c.device.config
	switch msg.(type) {
	case *wire.HelloRequest:
		_ = c.Send(&wire.HelloResponse{APIVersionMajor: 1, APIVersionMinor: 10, ServerInfo: "testdevice", Name: cfg.Name})
	case *wire.ConnectRequest:
		_ = c.Send(&wire.ConnectResponse{InvalidPassword: cfg.InvalidPassword})
	case *wire.PingRequest:
		_ = c.Send(&wire.PingResponse{})
	case *wire.DeviceInfoRequest:
		info := cfg.Info
		_ = c.Send(&info)
	case *wire.ListEntitiesRequest:
		for _, e := range cfg.Entities {
			_ = c.Send(e)
		}
		_ = c.Send(&wire.ListEntitiesDoneResponse{})
	case *wire.SubscribeStatesRequest:
		for _, s := range cfg.States {
			_ = c.Send(s)
		}
	case *wire.DisconnectRequest:
		_ = c.Send(&wire.DisconnectResponse{})
	}
}

// Send encrypts and writes one message to the client.
func (c *Conn) Send(msg wire.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.send == nil {
		return ErrNoCipher
	}
	ct, err := c.send.Encrypt(nil, wire.EncodePacket(msg))
	if err != nil {
		return err
	}
	return c.writer.WriteFrame(ct)
}

// SendRaw writes one encrypted frame carrying an arbitrary packet.
func (c *Conn) SendRaw(packet []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.send == nil {
		return ErrNoCipher
	}
	ct, err := c.send.Encrypt(nil, packet)
	if err != nil {
		return err
	}
	return c.writer.WriteFrame(ct)
}

// EncryptFrame returns the complete on-wire frame for msg without writing it,
// for tests that split frames across writes.
func (c *Conn) EncryptFrame(msg wire.Message) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.send == nil {
		return nil, ErrNoCipher
	}
	ct, err := c.send.Encrypt(nil, wire.EncodePacket(msg))
	if err != nil {
		return nil, err
	}
	frame := []byte{transport.Indicator, byte(len(ct) >> 8), byte(len(ct))}
	return append(frame, ct...), nil
}

// WriteRaw writes bytes to the socket unchanged.
func (c *Conn) WriteRaw(b []byte) error {
	_, err := c.nc.Write(b)
	return err
}

// Next returns the next message received from the client.
func (c *Conn) Next(ctx context.Context) (wire.Message, error) {
	select {
	case msg := <-c.received:
		return msg, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.closed:
		select {
		case msg := <-c.received:
			return msg, nil
		default:
			return nil, ErrClosed
		}
	}
}

// Expect skips messages until one of type typ arrives.
func (c *Conn) Expect(ctx context.Context, typ wire.MessageType) (wire.Message, error) {
	for {
		msg, err := c.Next(ctx)
		if err != nil {
			return nil, fmt.Errorf("waiting for %s: %w", typ, err)
		}
		if msg.Type() == typ {
			return msg, nil
		}
	}
}

// Done is closed when the session ends.
func (c *Conn) Done() <-chan struct{} {
	return c.closed
}

// Close ends the session.
func (c *Conn) Close() {
	c.once.Do(func() {
		close(c.closed)
		c.nc.Close()
	})
}
