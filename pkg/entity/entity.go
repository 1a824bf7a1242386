package entity

import (
	"errors"

	"github.com/esphome-native/esphome-go/pkg/wire"
)

// Dispatch errors. All of them are recoverable and leave the connection
// untouched.
var (
	ErrUnsupportedMessage = errors.New("unsupported message")
	ErrNoEntityKind       = errors.New("channel has no entity kind")
	ErrNoHandler          = errors.New("no handler for entity kind")
	ErrUnsupportedCommand = errors.New("command not supported by entity kind")
	ErrInvalidCommand     = errors.New("invalid command value")
)

// Entity is one entity announced by a device during enumeration.
type Entity struct {
	Kind     Kind   `json:"kind"`
	Key      uint32 `json:"key"`
	ObjectID string `json:"object_id"`
	Name     string `json:"name"`
	UniqueID string `json:"unique_id,omitempty"`

	// Attributes holds the kind-specific details the handler understands,
	// such as a sensor unit or the options of a select.
	Attributes map[string]any `json:"attributes,omitempty"`
}

// State is the decoded state of one entity.
type State struct {
	Kind Kind   `json:"kind"`
	Key  uint32 `json:"key"`

	// Value is the primary value: bool, float32, string or time.Time
	// depending on the kind.
	Value any `json:"value"`

	// Missing is set when the device reports no current value.
	Missing bool `json:"missing,omitempty"`

	Attributes map[string]any `json:"attributes,omitempty"`
}

// ChannelMeta is the metadata an external channel carries to address an
// entity on a device.
type ChannelMeta struct {
	Kind Kind
	Key  uint32
}

// Sink receives entities and state updates from one device.
type Sink interface {
	// ApplyEntities replaces the device's entity list. It is called once per
	// completed enumeration with every entity discovered in that pass.
	ApplyEntities(entities []Entity)

	// UpdateState reports a state change.
	UpdateState(state State)
}

// Target receives the result of Dispatch.
type Target interface {
	EntityDiscovered(e Entity)
	StateChanged(s State)
}

// NopSink discards everything.
type NopSink struct{}

func (NopSink) ApplyEntities([]Entity) {}
func (NopSink) UpdateState(State)      {}

// baseEntity converts an enumeration message into an Entity without any
// kind-specific attributes.
func baseEntity(kind Kind, m *wire.EntityInfo) Entity {
	return Entity{
		Kind:     kind,
		Key:      m.Key,
		ObjectID: m.ObjectID,
		Name:     m.Name,
		UniqueID: m.UniqueID,
	}
}
