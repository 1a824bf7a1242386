package entity

import (
	"fmt"

	"github.com/esphome-native/esphome-go/pkg/wire"
)

// Dispatcher routes entity messages by type and commands by kind.
// It is immutable after construction and safe for concurrent use.
type Dispatcher struct {
	byInfo  map[wire.MessageType]Handler
	byState map[wire.MessageType]Handler
	byKind  map[Kind]Handler
}

// NewDispatcher creates a dispatcher with a handler for every kind.
func NewDispatcher() *Dispatcher {
	return NewDispatcherWith(Handlers()...)
}

// NewDispatcherWith creates a dispatcher for the given handlers only.
func NewDispatcherWith(handlers ...Handler) *Dispatcher {
	d := &Dispatcher{
		byInfo:  make(map[wire.MessageType]Handler),
		byState: make(map[wire.MessageType]Handler),
		byKind:  make(map[Kind]Handler),
	}
	for _, h := range handlers {
		t := h.Types()
		d.byKind[h.Kind()] = h
		if t.Info != 0 {
			d.byInfo[t.Info] = h
		}
		if t.State != 0 {
			d.byState[t.State] = h
		}
	}
	return d
}

// Handles reports whether msg is an entity message with a handler.
func (d *Dispatcher) Handles(msg wire.Message) bool {
	_, ok := d.byInfo[msg.Type()]
	if !ok {
		_, ok = d.byState[msg.Type()]
	}
	return ok
}

// Dispatch converts an enumeration or state message and hands the result to
// target. Messages without a handler yield ErrUnsupportedMessage.
func (d *Dispatcher) Dispatch(msg wire.Message, target Target) error {
	switch m := msg.(type) {
	case *wire.EntityInfo:
		if h, ok := d.byInfo[m.MsgType]; ok {
			target.EntityDiscovered(h.Entity(m))
			return nil
		}
	case *wire.EntityState:
		if h, ok := d.byState[m.MsgType]; ok {
			target.StateChanged(h.State(m))
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrUnsupportedMessage, msg.Type())
}

// Command builds the outbound message for cmd. The same input always
// produces a new, independent message.
func (d *Dispatcher) Command(meta ChannelMeta, cmd Command) (wire.Message, error) {
	if meta.Kind == "" {
		return nil, ErrNoEntityKind
	}
	h, ok := d.byKind[meta.Kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoHandler, meta.Kind)
	}
	return h.Command(meta.Key, cmd)
}

// Handler returns the handler for k.
func (d *Dispatcher) Handler(k Kind) (Handler, bool) {
	h, ok := d.byKind[k]
	return h, ok
}
