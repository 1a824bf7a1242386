package service

import (
	"errors"
	"log/slog"
	"time"

	"github.com/esphome-native/esphome-go/pkg/connection"
	"github.com/esphome-native/esphome-go/pkg/entity"
	"github.com/esphome-native/esphome-go/pkg/log"
	"github.com/esphome-native/esphome-go/pkg/metrics"
	"github.com/esphome-native/esphome-go/pkg/sched"
)

// Service errors.
var (
	ErrClosed         = errors.New("controller closed")
	ErrDeviceExists   = errors.New("device already added")
	ErrDeviceNotFound = errors.New("device not found")
	ErrInvalidConfig  = errors.New("invalid configuration")
)

// Config configures a Controller.
type Config struct {
	// DefaultEncryptionKey is used by devices without a key of their own.
	DefaultEncryptionKey string

	// Logger is the operational logger. Nil disables logging.
	Logger *slog.Logger

	// ProtocolLogger captures protocol events of every device. Nil
	// disables capture.
	ProtocolLogger log.Logger

	// Metrics is optional.
	Metrics *metrics.Metrics

	// Collaborators returns the consumers of one device. Nil members, or
	// a nil function, leave the device with only the controller snapshot.
	Collaborators func(device string) connection.Collaborators

	// Scheduler replaces the controller's own timer scheduler.
	Scheduler sched.Scheduler

	// NewTransport replaces the connection transport factory.
	NewTransport connection.TransportFactory

	// Now defaults to time.Now.
	Now func() time.Time
}

// EventType identifies the kind of an Event.
type EventType uint8

const (
	// EventStatusChanged - a device went online, offline or is connecting.
	EventStatusChanged EventType = iota

	// EventEntitiesChanged - a device finished entity enumeration.
	EventEntitiesChanged

	// EventStateChanged - an entity reported a new state.
	EventStateChanged

	// EventPropertiesChanged - device info was received.
	EventPropertiesChanged

	// EventAction - a device called a service or fired an event.
	EventAction
)

// String returns the event type name.
func (e EventType) String() string {
	switch e {
	case EventStatusChanged:
		return "STATUS_CHANGED"
	case EventEntitiesChanged:
		return "ENTITIES_CHANGED"
	case EventStateChanged:
		return "STATE_CHANGED"
	case EventPropertiesChanged:
		return "PROPERTIES_CHANGED"
	case EventAction:
		return "ACTION"
	default:
		return "UNKNOWN"
	}
}

// Event is a controller event.
type Event struct {
	Type   EventType
	Device string

	// Status is set for EventStatusChanged.
	Status connection.Status

	// State is set for EventStateChanged.
	State entity.State

	// Action is set for EventAction.
	Action connection.Action
}

// EventHandler handles controller events. Handlers run on the device's
// connection goroutine with the connection locked, so they must not call
// back into the Controller or the Connection synchronously.
type EventHandler func(Event)

// DeviceSnapshot is the last known picture of one device.
type DeviceSnapshot struct {
	Name         string            `json:"name"`
	Host         string            `json:"host"`
	Port         int               `json:"port"`
	State        connection.State  `json:"state"`
	Status       connection.Status `json:"status"`
	Interrogated bool              `json:"interrogated"`
	ConnectionID string            `json:"connection_id,omitempty"`
	Properties   map[string]string `json:"properties,omitempty"`
	Entities     []entity.Entity   `json:"entities,omitempty"`
	States       []entity.State    `json:"states,omitempty"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// Online reports whether the device is connected.
func (s *DeviceSnapshot) Online() bool {
	return s.Status.Online
}

// Entity returns the entity with the given key.
func (s *DeviceSnapshot) Entity(key uint32) (entity.Entity, bool) {
	for _, e := range s.Entities {
		if e.Key == key {
			return e, true
		}
	}
	return entity.Entity{}, false
}
