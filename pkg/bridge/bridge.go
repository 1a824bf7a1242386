// Package bridge mirrors devices onto NATS subjects.
//
// For a device named kitchen and the prefix esphome the bridge publishes
// JSON documents on
//
//	esphome.kitchen.entities            entity list after each enumeration
//	esphome.kitchen.state.<kind>.<key>  entity state changes
//	esphome.kitchen.info                device properties
//	esphome.kitchen.action              service calls and events
//	esphome.kitchen.status              connection status
//
// and accepts commands as plain text on esphome.kitchen.command.<kind>.<key>
// and host entity states on esphome.host.state.
package bridge

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/nats-io/nats.go"

	"github.com/esphome-native/esphome-go/pkg/connection"
	"github.com/esphome-native/esphome-go/pkg/entity"
)

// ErrBadSubject is returned for command subjects that do not parse.
var ErrBadSubject = errors.New("malformed subject")

// Conn is the part of *nats.Conn the bridge uses.
type Conn interface {
	Publish(subj string, data []byte) error
	Subscribe(subj string, cb nats.MsgHandler) (*nats.Subscription, error)
}

// CommandHandler executes a command received from NATS.
type CommandHandler func(device string, meta entity.ChannelMeta, cmd entity.Command) error

// HostStateHandler receives host entity states published on NATS.
type HostStateHandler func(entityID, attribute, state string)

// HostState is the payload of <prefix>.host.state.
type HostState struct {
	EntityID  string `json:"entity_id"`
	Attribute string `json:"attribute,omitempty"`
	State     string `json:"state"`
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithLogger sets the logger for publish failures and rejected commands.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bridge) { b.logger = logger }
}

// Bridge publishes device data on NATS.
type Bridge struct {
	nc     Conn
	prefix string
	logger *slog.Logger

	mu      sync.Mutex
	devices map[string]string // subject token -> device name
	host    map[hostKey]string
	subs    []*nats.Subscription
}

type hostKey struct {
	entityID  string
	attribute string
}

// New creates a bridge publishing below prefix.
func New(nc Conn, prefix string, opts ...Option) *Bridge {
	b := &Bridge{
		nc:      nc,
		prefix:  strings.TrimSuffix(prefix, "."),
		devices: make(map[string]string),
		host:    make(map[hostKey]string),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Device returns the collaborators that mirror one device. Host entity
// states are answered from the last value seen on the host state subject.
func (b *Bridge) Device(name string) connection.Collaborators {
	token := Token(name)
	b.mu.Lock()
	b.devices[token] = name
	b.mu.Unlock()

	d := &deviceBridge{b: b, base: b.prefix + "." + token}
	return connection.Collaborators{
		Entities:   d,
		Properties: d,
		Actions:    d,
		States:     d,
		Status:     d,
	}
}

// SubscribeCommands forwards parsed commands to handler. When a command
// message carries a reply subject, the reply is "ok" or the error text.
func (b *Bridge) SubscribeCommands(handler CommandHandler) error {
	return b.subscribe(b.prefix+".*.command.*.*", func(msg *nats.Msg) {
		err := b.handleCommand(msg, handler)
		if err != nil {
			b.warn("command rejected", "subject", msg.Subject, "error", err)
		}
		if msg.Reply == "" {
			return
		}
		reply := "ok"
		if err != nil {
			reply = err.Error()
		}
		if perr := b.nc.Publish(msg.Reply, []byte(reply)); perr != nil {
			b.warn("reply failed", "subject", msg.Reply, "error", perr)
		}
	})
}

// SubscribeHostStates records host entity states and passes them to
// handler.
func (b *Bridge) SubscribeHostStates(handler HostStateHandler) error {
	return b.subscribe(b.prefix+".host.state", func(msg *nats.Msg) {
		var hs HostState
		if err := json.Unmarshal(msg.Data, &hs); err != nil || hs.EntityID == "" {
			b.warn("invalid host state", "error", err)
			return
		}
		b.mu.Lock()
		b.host[hostKey{hs.EntityID, hs.Attribute}] = hs.State
		b.mu.Unlock()
		if handler != nil {
			handler(hs.EntityID, hs.Attribute, hs.State)
		}
	})
}

// Close removes the bridge's subscriptions.
func (b *Bridge) Close() {
	b.mu.Lock()
	subs := b.subs
	b.subs = nil
	b.mu.Unlock()
	for _, sub := range subs {
		if sub != nil {
			_ = sub.Unsubscribe()
		}
	}
}

func (b *Bridge) subscribe(subject string, cb nats.MsgHandler) error {
	sub, err := b.nc.Subscribe(subject, cb)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", subject, err)
	}
	b.mu.Lock()
	b.subs = append(b.subs, sub)
	b.mu.Unlock()
	return nil
}

// handleCommand parses <prefix>.<device>.command.<kind>.<key>.
func (b *Bridge) handleCommand(msg *nats.Msg, handler CommandHandler) error {
	rest, ok := strings.CutPrefix(msg.Subject, b.prefix+".")
	if !ok {
		return fmt.Errorf("%w: %s", ErrBadSubject, msg.Subject)
	}
	parts := strings.Split(rest, ".")
	if len(parts) != 4 || parts[1] != "command" {
		return fmt.Errorf("%w: %s", ErrBadSubject, msg.Subject)
	}

	b.mu.Lock()
	device, known := b.devices[parts[0]]
	b.mu.Unlock()
	if !known {
		device = parts[0]
	}
	kind, err := entity.ParseKind(parts[2])
	if err != nil {
		return err
	}
	key, err := strconv.ParseUint(parts[3], 10, 32)
	if err != nil {
		return fmt.Errorf("%w: key %q", ErrBadSubject, parts[3])
	}
	cmd, err := entity.ParseCommand(kind, string(msg.Data))
	if err != nil {
		return err
	}
	return handler(device, entity.ChannelMeta{Kind: kind, Key: uint32(key)}, cmd)
}

func (b *Bridge) hostState(entityID, attribute string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.host[hostKey{entityID, attribute}]
}

func (b *Bridge) publish(subject string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		b.warn("encode failed", "subject", subject, "error", err)
		return
	}
	if err := b.nc.Publish(subject, data); err != nil {
		b.warn("publish failed", "subject", subject, "error", err)
	}
}

func (b *Bridge) warn(msg string, args ...any) {
	if b.logger != nil {
		b.logger.Warn(msg, args...)
	}
}

// Token makes name usable as a single subject token.
func Token(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t':
			return '_'
		}
		return r
	}, name)
}

// deviceBridge publishes one device's callbacks.
type deviceBridge struct {
	b    *Bridge
	base string
}

func (d *deviceBridge) ApplyEntities(es []entity.Entity) {
	d.b.publish(d.base+".entities", es)
}

func (d *deviceBridge) UpdateState(s entity.State) {
	d.b.publish(fmt.Sprintf("%s.state.%s.%d", d.base, s.Kind, s.Key), s)
}

func (d *deviceBridge) UpdateProperties(props map[string]string) {
	d.b.publish(d.base+".info", props)
}

func (d *deviceBridge) PublishAction(a connection.Action) {
	d.b.publish(d.base+".action", a)
}

func (d *deviceBridge) StatusChanged(s connection.Status) {
	d.b.publish(d.base+".status", s)
}

func (d *deviceBridge) State(entityID, attribute string) string {
	return d.b.hostState(entityID, attribute)
}
