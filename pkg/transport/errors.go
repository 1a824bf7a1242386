package transport

import (
	"errors"
	"fmt"
)

// Transport errors.
var (
	ErrClosed              = errors.New("transport closed")
	ErrAlreadyConnected    = errors.New("transport already connected")
	ErrNotEstablished      = errors.New("cipher session not established")
	ErrBadServerHello      = errors.New("malformed server hello")
	ErrUnsupportedProtocol = errors.New("device chose an unsupported protocol")
	ErrNameMismatch        = errors.New("device name mismatch")
	ErrHandshakeRejected   = errors.New("device rejected the handshake")
)

// ErrorKind classifies a failure reported through Listener.OnParseError.
type ErrorKind int

const (
	// KindPacketError is a frame or packet that could not be decoded.
	KindPacketError ErrorKind = iota
	// KindBadIndicator is a frame with an unknown indicator byte.
	KindBadIndicator
	// KindDecryptFailed is a transport frame that failed authentication.
	KindDecryptFailed
	// KindBadServerHello is a server hello that could not be parsed.
	KindBadServerHello
	// KindPlaintextDevice is a device running without API encryption.
	KindPlaintextDevice
	// KindUnsupportedProtocol is a server hello choosing another protocol.
	KindUnsupportedProtocol
	// KindNameMismatch is a device whose name differs from the expected one.
	KindNameMismatch
	// KindHandshakeRejected is a device refusing the handshake, usually a wrong key.
	KindHandshakeRejected
	// KindHandshakeFailed is a handshake reply that failed authentication.
	KindHandshakeFailed
)

func (k ErrorKind) String() string {
	switch k {
	case KindPacketError:
		return "PACKET_ERROR"
	case KindBadIndicator:
		return "BAD_INDICATOR"
	case KindDecryptFailed:
		return "DECRYPT_FAILED"
	case KindBadServerHello:
		return "BAD_SERVER_HELLO"
	case KindPlaintextDevice:
		return "PLAINTEXT_DEVICE"
	case KindUnsupportedProtocol:
		return "UNSUPPORTED_PROTOCOL"
	case KindNameMismatch:
		return "NAME_MISMATCH"
	case KindHandshakeRejected:
		return "HANDSHAKE_REJECTED"
	case KindHandshakeFailed:
		return "HANDSHAKE_FAILED"
	default:
		return "UNKNOWN"
	}
}

// IsConfiguration reports whether retrying cannot help without a
// configuration change (key, expected name, device encryption setting).
func (k ErrorKind) IsConfiguration() bool {
	switch k {
	case KindPlaintextDevice, KindUnsupportedProtocol, KindNameMismatch,
		KindBadServerHello, KindHandshakeRejected, KindHandshakeFailed:
		return true
	}
	return false
}

// ParseError pairs an ErrorKind with its cause.
type ParseError struct {
	Kind ErrorKind
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
