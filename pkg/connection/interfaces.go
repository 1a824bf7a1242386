package connection

import (
	"context"
	"time"

	"github.com/esphome-native/esphome-go/pkg/entity"
	"github.com/esphome-native/esphome-go/pkg/metrics"
	"github.com/esphome-native/esphome-go/pkg/sched"
	"github.com/esphome-native/esphome-go/pkg/transport"
	"github.com/esphome-native/esphome-go/pkg/wire"
)

// Transport is the part of *transport.Transport a Connection uses.
type Transport interface {
	Connect(ctx context.Context, host string, port int) error
	Send(msg wire.Message) error
	Close() error
}

// TransportFactory creates the transport for one connection attempt.
type TransportFactory func(cfg transport.Config, listener transport.Listener) (Transport, error)

// NewTransport is the default TransportFactory.
func NewTransport(cfg transport.Config, listener transport.Listener) (Transport, error) {
	return transport.New(cfg, listener)
}

// PropertiesSink receives device properties from the device-info response.
type PropertiesSink interface {
	UpdateProperties(props map[string]string)
}

// ActionPublisher receives the service calls and events a device emits.
type ActionPublisher interface {
	PublishAction(action Action)
}

// StateProvider supplies the current value of a host entity when a device
// subscribes to it.
type StateProvider interface {
	State(entityID, attribute string) string
}

// StatusListener receives status changes.
type StatusListener interface {
	StatusChanged(status Status)
}

// Collaborators are the downstream consumers of one connection. Nil
// members are replaced with no-ops.
type Collaborators struct {
	Entities   entity.Sink
	Properties PropertiesSink
	Actions    ActionPublisher
	States     StateProvider
	Status     StatusListener
}

// Deps are the shared facilities a Connection runs on.
type Deps struct {
	Collaborators

	// Scheduler runs the connect, timeout and keepalive timers.
	Scheduler sched.Scheduler

	// Executor serializes transport callbacks per device. Nil delivers
	// them on the transport's reader goroutine.
	Executor transport.Executor

	// Dispatcher defaults to entity.NewDispatcher().
	Dispatcher *entity.Dispatcher

	// Registry defaults to wire.Default.
	Registry *wire.Registry

	Metrics *metrics.Metrics

	// Now defaults to time.Now.
	Now func() time.Time

	// NewTransport defaults to NewTransport.
	NewTransport TransportFactory
}

// ActionKind tells service calls and events apart.
type ActionKind uint8

const (
	ActionService ActionKind = iota
	ActionEvent
	ActionTagScanned
)

func (k ActionKind) String() string {
	switch k {
	case ActionService:
		return "service"
	case ActionEvent:
		return "event"
	case ActionTagScanned:
		return "tag_scanned"
	default:
		return "unknown"
	}
}

func (k ActionKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// Action is a service call or event emitted by a device.
type Action struct {
	Device       string            `json:"device"`
	Kind         ActionKind        `json:"kind"`
	Service      string            `json:"service"`
	Data         map[string]string `json:"data,omitempty"`
	DataTemplate map[string]string `json:"data_template,omitempty"`
	Variables    map[string]string `json:"variables,omitempty"`

	// TagID is set for ActionTagScanned.
	TagID string `json:"tag_id,omitempty"`
}

// Status is the externally visible connection status.
type Status struct {
	Online bool `json:"online"`

	// Detail classifies an offline status.
	Detail Class `json:"detail"`

	Message string `json:"message,omitempty"`

	// Err is the cause of an offline status, if any.
	Err error `json:"-"`
}

type nopCollaborator struct{}

func (nopCollaborator) UpdateProperties(map[string]string) {}
func (nopCollaborator) PublishAction(Action)               {}
func (nopCollaborator) State(string, string) string        { return "" }
func (nopCollaborator) StatusChanged(Status)               {}
