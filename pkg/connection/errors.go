package connection

import (
	"errors"
	"fmt"

	"github.com/esphome-native/esphome-go/pkg/entity"
	"github.com/esphome-native/esphome-go/pkg/noise"
	"github.com/esphome-native/esphome-go/pkg/transport"
)

// Connection errors.
var (
	ErrNotConnected    = errors.New("not connected")
	ErrDisposed        = errors.New("connection disposed")
	ErrMissingHost     = errors.New("no hostname configured")
	ErrInvalidPassword = errors.New("invalid password")
	ErrConnectTimeout  = errors.New("connection attempt timed out")
	ErrPingTimeout     = errors.New("device did not respond to ping requests")
	ErrRemoteClosed    = errors.New("device closed the connection")
)

// Class is an error classification.
type Class uint8

const (
	// ClassNone marks a status without an error.
	ClassNone Class = iota

	// ClassConfiguration errors are not retried until the configuration
	// changes.
	ClassConfiguration

	// ClassCommunication errors close the transport and reconnect.
	ClassCommunication

	// ClassProtocol errors are returned to the caller; the connection stays up.
	ClassProtocol

	// ClassUnsupported errors are logged and dropped.
	ClassUnsupported
)

func (c Class) String() string {
	switch c {
	case ClassNone:
		return "NONE"
	case ClassConfiguration:
		return "CONFIGURATION_ERROR"
	case ClassCommunication:
		return "COMMUNICATION_ERROR"
	case ClassProtocol:
		return "PROTOCOL_ERROR"
	case ClassUnsupported:
		return "UNSUPPORTED_MESSAGE"
	default:
		return "UNKNOWN"
	}
}

// MarshalText encodes the class name.
func (c Class) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// Error is a classified connection error.
type Error struct {
	Class  Class
	Reason string
	Err    error
}

func (e *Error) Error() string {
	switch {
	case e.Err == nil:
		return fmt.Sprintf("%s: %s", e.Class, e.Reason)
	case e.Reason == "":
		return fmt.Sprintf("%s: %v", e.Class, e.Err)
	default:
		return fmt.Sprintf("%s: %s: %v", e.Class, e.Reason, e.Err)
	}
}

func (e *Error) Unwrap() error { return e.Err }

func newError(class Class, reason string, err error) *Error {
	return &Error{Class: class, Reason: reason, Err: err}
}

// Classify maps an error from this module to its class. Unrecognized
// errors are communication errors.
func Classify(err error) Class {
	if err == nil {
		return ClassNone
	}
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Class
	}
	var pe *transport.ParseError
	if errors.As(err, &pe) {
		if pe.Kind.IsConfiguration() {
			return ClassConfiguration
		}
		return ClassCommunication
	}
	switch {
	case errors.Is(err, noise.ErrMissingKey), errors.Is(err, noise.ErrInvalidKey),
		errors.Is(err, ErrMissingHost), errors.Is(err, ErrInvalidPassword),
		errors.Is(err, transport.ErrPlaintextPeer):
		return ClassConfiguration
	case errors.Is(err, ErrNotConnected), errors.Is(err, ErrDisposed),
		errors.Is(err, transport.ErrNotEstablished), errors.Is(err, transport.ErrClosed),
		errors.Is(err, entity.ErrInvalidCommand):
		return ClassProtocol
	case errors.Is(err, entity.ErrUnsupportedMessage), errors.Is(err, entity.ErrNoHandler),
		errors.Is(err, entity.ErrNoEntityKind), errors.Is(err, entity.ErrUnsupportedCommand):
		return ClassUnsupported
	}
	return ClassCommunication
}
