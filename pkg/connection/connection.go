package connection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/esphome-native/esphome-go/pkg/entity"
	"github.com/esphome-native/esphome-go/pkg/log"
	"github.com/esphome-native/esphome-go/pkg/noise"
	"github.com/esphome-native/esphome-go/pkg/sched"
	"github.com/esphome-native/esphome-go/pkg/subscription"
	"github.com/esphome-native/esphome-go/pkg/transport"
	"github.com/esphome-native/esphome-go/pkg/wire"
)

// Task names, prefixed with the device label when scheduled.
const (
	taskConnect        = "connect"
	taskConnectTimeout = "connect-timeout"
	taskKeepalive      = "keepalive"
)

// Connection is one device connection. All fields below mu are guarded by
// it, and collaborators are called with it held: they must not call back
// into the Connection synchronously.
type Connection struct {
	config Config
	deps   Deps

	// id keys metrics and the executor queue; device labels logs.
	id     string
	device string

	logger       *slog.Logger
	deviceLogger *slog.Logger
	protoLog     log.Logger

	subs *subscription.Manager

	// owned is the scheduler created by New when Deps had none.
	owned *sched.TimerScheduler

	mu           sync.Mutex
	state        State
	started      bool
	disposed     bool
	tr           Transport
	attempt      uint64
	connID       string
	dialCancel   context.CancelFunc
	interrogated bool
	lastPong     time.Time
	discovered   []entity.Entity

	connectTask *timer
	timeoutTask *timer
	pingTask    *timer
}

// New creates a Connection in StateUninitialized. Nothing happens until
// Start.
func New(config Config, deps Deps) (*Connection, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid connection config: %w", err)
	}
	var owned *sched.TimerScheduler
	if deps.Scheduler == nil {
		tc := sched.TimerConfig{Logger: config.Logger}
		if deps.Metrics != nil {
			tc.Observer = deps.Metrics
		}
		owned = sched.NewTimerScheduler(tc)
		deps.Scheduler = owned
	}
	if deps.Dispatcher == nil {
		deps.Dispatcher = entity.NewDispatcher()
	}
	if deps.Registry == nil {
		deps.Registry = wire.Default
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.NewTransport == nil {
		deps.NewTransport = NewTransport
	}
	if deps.Entities == nil {
		deps.Entities = entity.NopSink{}
	}
	if deps.Properties == nil {
		deps.Properties = nopCollaborator{}
	}
	if deps.Actions == nil {
		deps.Actions = nopCollaborator{}
	}
	if deps.States == nil {
		deps.States = nopCollaborator{}
	}
	if deps.Status == nil {
		deps.Status = nopCollaborator{}
	}

	c := &Connection{
		config: config,
		deps:   deps,
		id:     config.id(),
		device: config.prefix(),
		subs:   subscription.NewManager(),
		owned:  owned,
	}
	base := config.Logger
	if base == nil {
		base = slog.New(slog.DiscardHandler)
	}
	c.logger = base.With("device", c.device)
	c.deviceLogger = config.DeviceLogger
	if c.deviceLogger == nil {
		c.deviceLogger = c.logger.With("logger", "device")
	}
	c.protoLog = log.WithDevice(config.ProtocolLogger, c.device)
	c.subs.OnNotification(c.sendHostStateLocked)
	return c, nil
}

// Start schedules the first connection attempt. A missing host or key is
// reported as a configuration error and nothing is scheduled.
func (c *Connection) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.disposed {
		return newError(ClassProtocol, "start", ErrDisposed)
	}
	if c.started {
		return nil
	}
	if c.config.Host == "" {
		err := newError(ClassConfiguration, "No hostname configured", ErrMissingHost)
		c.deps.Status.StatusChanged(Status{Detail: ClassConfiguration, Message: err.Reason})
		return err
	}
	if _, _, err := c.config.resolveKey(); err != nil {
		msg := keyMessage(err)
		c.logger.Warn(msg)
		c.deps.Status.StatusChanged(Status{Detail: ClassConfiguration, Message: msg})
		return newError(ClassConfiguration, msg, err)
	}
	c.started = true
	c.scheduleConnectLocked(0)
	return nil
}

// Dispose cancels every timer, tells a connected device goodbye, and closes
// the transport. It is idempotent and safe before Start.
func (c *Connection) Dispose() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.disposed {
		return
	}
	c.disposed = true
	c.subs.ClearAll()
	c.cancelLocked(&c.connectTask)
	c.cancelLocked(&c.pingTask)
	c.cancelLocked(&c.timeoutTask)
	if c.tr != nil && c.state == StateConnected {
		if err := c.tr.Send(&wire.DisconnectRequest{}); err != nil {
			c.logger.Debug("disconnect request not sent", "error", err)
		}
	}
	c.closeTransportLocked()
	c.setStateLocked(StateUninitialized, "disposed")
	if c.owned != nil {
		c.owned.Stop()
	}
}

// SendMessage sends msg to the device. It fails with a protocol error
// unless the connection is CONNECTED.
func (c *Connection) SendMessage(msg wire.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.disposed {
		return newError(ClassProtocol, "send "+msg.Type().String(), ErrDisposed)
	}
	if c.state != StateConnected || c.tr == nil {
		return newError(ClassProtocol, fmt.Sprintf("send %s in state %s", msg.Type(), c.state), ErrNotConnected)
	}
	if err := c.tr.Send(msg); err != nil {
		return newError(ClassProtocol, "send "+msg.Type().String(), err)
	}
	return nil
}

// HandleCommand sends cmd to the entity addressed by meta. Commands that
// cannot be routed are dropped and reported; the connection is unaffected.
func (c *Connection) HandleCommand(meta entity.ChannelMeta, cmd entity.Command) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.disposed || c.state != StateConnected || c.tr == nil {
		c.logger.Warn("not connected, ignoring command", "kind", meta.Kind, "key", meta.Key)
		return newError(ClassProtocol, "command", ErrNotConnected)
	}
	if _, ok := cmd.(entity.Refresh); ok {
		if err := c.tr.Send(&wire.SubscribeStatesRequest{}); err != nil {
			return newError(ClassProtocol, "refresh", err)
		}
		return nil
	}

	msg, err := c.deps.Dispatcher.Command(meta, cmd)
	if err != nil {
		c.logger.Warn("command dropped", "kind", meta.Kind, "key", meta.Key, "error", err)
		return newError(Classify(err), fmt.Sprintf("command for %s %d", meta.Kind, meta.Key), err)
	}
	if err := c.tr.Send(msg); err != nil {
		c.logger.Error("error sending command", "kind", meta.Kind, "key", meta.Key, "error", err)
		return newError(ClassProtocol, "send "+msg.Type().String(), err)
	}
	return nil
}

// Refresh asks the device to resend every entity state.
func (c *Connection) Refresh() error {
	return c.HandleCommand(entity.ChannelMeta{}, entity.Refresh{})
}

// PublishState pushes a host state change to the device if it subscribed
// to it. Changes while not CONNECTED are dropped.
func (c *Connection) PublishState(entityID, attribute, state string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.disposed || c.state != StateConnected {
		c.logger.Debug("not connected, skipping host state", "entity_id", entityID)
		return
	}
	c.subs.NotifyChange(entityID, attribute, state)
}

// State returns the current state.
func (c *Connection) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Interrogated reports whether entity enumeration completed on the current
// connection.
func (c *Connection) Interrogated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.interrogated
}

// ConnectionID returns the ID of the latest connection attempt.
func (c *Connection) ConnectionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connID
}

// Subscriptions returns the host states the device subscribed to.
func (c *Connection) Subscriptions() []subscription.Key {
	return c.subs.Keys()
}

// Device returns the label used in logs.
func (c *Connection) Device() string { return c.device }

// ID returns the identity used for metrics and packet ordering: the
// configured name, else host:port.
func (c *Connection) ID() string { return c.id }

// Config returns the configuration.
func (c *Connection) Config() Config { return c.config }

func (c *Connection) connectLocked() {
	if c.disposed {
		return
	}
	c.closeTransportLocked()
	c.attempt++
	c.connID = uuid.NewString()
	c.discovered = nil
	c.interrogated = false
	c.setStateLocked(StateConnecting, "connect attempt")

	host, port := c.config.Host, c.config.Port
	c.logger.Info("trying to connect", "host", host, "port", port)
	c.deps.Status.StatusChanged(Status{Message: fmt.Sprintf("Connecting to %s:%d", host, port)})

	key, isDefault, err := c.config.resolveKey()
	if err != nil {
		c.disconnectLocked(ClassConfiguration, keyMessage(err), err, false)
		return
	}
	if isDefault {
		c.logger.Info("using default encryption key")
	}

	tr, err := c.deps.NewTransport(transport.Config{
		Key:            key,
		ExpectedName:   c.config.ExpectedName,
		Registry:       c.deps.Registry,
		Executor:       c.deps.Executor,
		SequenceKey:    c.id,
		Device:         c.device,
		ConnectionID:   c.connID,
		Logger:         c.config.Logger,
		ProtocolLogger: c.protoLog,
		Metrics:        c.deps.Metrics,
	}, &listener{c: c, attempt: c.attempt})
	if err != nil {
		class := Classify(err)
		c.disconnectLocked(class, err.Error(), err, class != ClassConfiguration)
		return
	}
	c.tr = tr

	ctx, cancel := context.WithTimeout(context.Background(), c.config.ConnectTimeout)
	c.dialCancel = cancel
	c.scheduleLocked(&c.timeoutTask, taskConnectTimeout, c.config.ConnectTimeout, func() {
		c.logger.Warn("connection attempt timed out", "timeout", c.config.ConnectTimeout)
		c.disconnectLocked(ClassCommunication, "Connection attempt timed out", ErrConnectTimeout, true)
	})

	go c.dial(ctx, cancel, tr, c.attempt, host, port)
}

// dial runs without the lock so Dispose and the timeout watchdog are never
// blocked behind a slow socket.
func (c *Connection) dial(ctx context.Context, cancel context.CancelFunc, tr Transport, attempt uint64, host string, port int) {
	err := tr.Connect(ctx, host, port)
	cancel()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed || c.attempt != attempt || c.tr != tr {
		return
	}
	c.dialCancel = nil
	if err != nil {
		c.disconnectLocked(ClassCommunication, fmt.Sprintf("Error connecting to %s:%d: %v", host, port, err), err, true)
	}
}

// disconnectLocked closes the transport and moves to StateUninitialized,
// scheduling a reconnection when reconnect is set. cause may be nil. It does nothing when
// already uninitialized or disposed, which makes repeated triggers safe.
func (c *Connection) disconnectLocked(class Class, reason string, cause error, reconnect bool) {
	if c.state == StateUninitialized || c.disposed {
		return
	}

	msg := reason
	if reconnect {
		msg = fmt.Sprintf("%s. Will reconnect in %s", reason, c.config.ReconnectInterval)
	}
	c.logger.Warn("disconnecting", "reason", msg, "class", class)
	c.deps.Status.StatusChanged(Status{Detail: class, Message: msg, Err: cause})

	c.subs.ClearAll()
	c.cancelLocked(&c.pingTask)
	c.cancelLocked(&c.timeoutTask)
	c.closeTransportLocked()
	c.deps.Metrics.Disconnected(c.id, class.String())
	if class != ClassNone {
		c.logErrorLocked(class, reason)
	}
	c.setStateLocked(StateUninitialized, reason)

	if reconnect {
		c.scheduleConnectLocked(c.config.ReconnectInterval)
	}
}

func (c *Connection) closeTransportLocked() {
	if c.dialCancel != nil {
		c.dialCancel()
		c.dialCancel = nil
	}
	if c.tr != nil {
		if err := c.tr.Close(); err != nil {
			c.logger.Debug("error closing transport", "error", err)
		}
		c.tr = nil
	}
}

func (c *Connection) sendLocked(msg wire.Message) error {
	if c.tr == nil {
		return newError(ClassProtocol, "send "+msg.Type().String(), ErrNotConnected)
	}
	return c.tr.Send(msg)
}

// sendHostStateLocked is the subscription callback. The manager only
// notifies from Subscribe and NotifyChange, both called with c.mu held.
func (c *Connection) sendHostStateLocked(n subscription.Notification) {
	msg := &wire.HomeAssistantStateResponse{EntityID: n.EntityID, Attribute: n.Attribute, State: n.State}
	if err := c.sendLocked(msg); err != nil {
		c.logger.Warn("error sending host state", "entity_id", n.EntityID, "error", err)
	}
}

func (c *Connection) setStateLocked(to State, reason string) {
	from := c.state
	if from == to {
		return
	}
	c.state = to
	c.logger.Debug("state changed", "from", from, "to", to, "reason", reason)
	c.deps.Metrics.StateChanged(c.id, from.String(), to.String())
	if c.protoLog != nil {
		c.protoLog.Log(log.Event{
			Timestamp:    c.deps.Now(),
			ConnectionID: c.connID,
			Layer:        log.LayerConnection,
			Category:     log.CategoryState,
			StateChange:  &log.StateChangeEvent{OldState: from.String(), NewState: to.String(), Reason: reason},
		})
	}
}

func (c *Connection) logErrorLocked(class Class, reason string) {
	if c.protoLog == nil {
		return
	}
	c.protoLog.Log(log.Event{
		Timestamp:    c.deps.Now(),
		ConnectionID: c.connID,
		Layer:        log.LayerConnection,
		Category:     log.CategoryError,
		Error:        &log.ErrorEventData{Layer: log.LayerConnection, Message: reason, Class: class.String(), Context: c.state.String()},
	})
}

func keyMessage(err error) string {
	if errors.Is(err, noise.ErrMissingKey) {
		return "No encryption key configured. Set an encryption key on the device or a default key"
	}
	return fmt.Sprintf("Invalid encryption key: %v", err)
}
