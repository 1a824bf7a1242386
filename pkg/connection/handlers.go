package connection

import (
	"errors"
	"fmt"
	"strings"

	"github.com/esphome-native/esphome-go/pkg/entity"
	"github.com/esphome-native/esphome-go/pkg/transport"
	"github.com/esphome-native/esphome-go/pkg/wire"
)

// Property keys reported to the PropertiesSink.
const (
	PropertyName            = "name"
	PropertyMACAddress      = "mac_address"
	PropertyFirmwareVersion = "firmware_version"
	PropertyModel           = "model"
	PropertyManufacturer    = "manufacturer"
	PropertyCompilationTime = "compilation_time"
	PropertyProjectName     = "project_name"
	PropertyProjectVersion  = "project_version"
)

const tagScannedEvent = "esphome.tag_scanned"

// listener binds transport callbacks to one connection attempt. Callbacks
// from a superseded attempt are dropped.
type listener struct {
	c       *Connection
	attempt uint64
}

func (l *listener) OnConnect()                             { l.c.onConnect(l.attempt) }
func (l *listener) OnPacket(msg wire.Message)              { l.c.onPacket(l.attempt, msg) }
func (l *listener) OnEndOfStream(reason string)            { l.c.onEndOfStream(l.attempt, reason) }
func (l *listener) OnParseError(err *transport.ParseError) { l.c.onParseError(l.attempt, err) }

func (c *Connection) currentLocked(attempt uint64) bool {
	return !c.disposed && c.attempt == attempt && c.tr != nil
}

func (c *Connection) onConnect(attempt uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.currentLocked(attempt) || c.state != StateConnecting {
		return
	}
	c.logger.Debug("encrypted session established, starting API handshake")
	c.setStateLocked(StateHelloSent, "cipher session established")

	hello := &wire.HelloRequest{
		ClientInfo:      c.config.ClientInfo,
		APIVersionMajor: wire.APIVersionMajor,
		APIVersionMinor: wire.APIVersionMinor,
	}
	for _, msg := range []wire.Message{hello, &wire.ConnectRequest{}} {
		if err := c.sendLocked(msg); err != nil {
			c.disconnectLocked(ClassCommunication, fmt.Sprintf("Error sending %s: %v", msg.Type(), err), err, true)
			return
		}
	}
}

func (c *Connection) onPacket(attempt uint64, msg wire.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.currentLocked(attempt) {
		c.logger.Debug("ignoring packet from closed transport", "type", msg.Type())
		return
	}

	var err error
	switch c.state {
	case StateUninitialized, StateConnecting:
		c.logger.Debug("ignoring packet before handshake", "type", msg.Type(), "state", c.state)
	case StateHelloSent:
		err = c.handleHelloLocked(msg)
	case StateConnected:
		err = c.handleConnectedLocked(msg)
	}
	if err != nil {
		c.logger.Warn("error handling packet", "type", msg.Type(), "error", err)
		c.disconnectLocked(ClassCommunication, fmt.Sprintf("Error handling %s: %v", msg.Type(), err), err, true)
	}
}

func (c *Connection) onEndOfStream(attempt uint64, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.currentLocked(attempt) {
		return
	}
	c.disconnectLocked(ClassCommunication, "ESPHome device abruptly disconnected: "+reason, ErrRemoteClosed, true)
}

func (c *Connection) onParseError(attempt uint64, perr *transport.ParseError) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.currentLocked(attempt) {
		return
	}
	if perr.Kind.IsConfiguration() {
		c.disconnectLocked(ClassConfiguration, perr.Error(), perr, false)
		return
	}
	c.disconnectLocked(ClassCommunication, perr.Error(), perr, true)
}

// handleHelloLocked waits for the hello response; anything else before it
// is dropped.
func (c *Connection) handleHelloLocked(msg wire.Message) error {
	hello, ok := msg.(*wire.HelloResponse)
	if !ok {
		c.logger.Debug("ignoring packet while waiting for hello", "type", msg.Type())
		return nil
	}
	c.logger.Info("API handshake successful",
		"device_name", hello.Name,
		"server_info", hello.ServerInfo,
		"api_version", fmt.Sprintf("%d.%d", hello.APIVersionMajor, hello.APIVersionMinor))
	return c.enterConnectedLocked()
}

func (c *Connection) enterConnectedLocked() error {
	c.cancelLocked(&c.timeoutTask)
	c.setStateLocked(StateConnected, "hello accepted")

	if c.config.AllowActions {
		if err := c.sendLocked(&wire.SubscribeHomeassistantServicesRequest{}); err != nil {
			return err
		}
	}
	if c.config.DeviceLogLevel != wire.LogLevelNone {
		if err := c.sendLocked(&wire.SubscribeLogsRequest{Level: c.config.DeviceLogLevel}); err != nil {
			return err
		}
	}

	c.deps.Status.StatusChanged(Status{Online: true})
	c.lastPong = c.deps.Now()
	c.scheduleRepeatingLocked(&c.pingTask, taskKeepalive, c.config.PingInterval, c.keepaliveLocked)

	for _, msg := range []wire.Message{
		&wire.DeviceInfoRequest{},
		&wire.ListEntitiesRequest{},
		&wire.SubscribeHomeAssistantStatesRequest{},
	} {
		if err := c.sendLocked(msg); err != nil {
			return err
		}
	}
	return nil
}

func (c *Connection) handleConnectedLocked(msg wire.Message) error {
	var err error
	if h, ok := controlHandlers[msg.Type()]; ok {
		err = h(c, msg)
	} else {
		err = c.deps.Dispatcher.Dispatch(msg, entityTarget{c})
	}
	if errors.Is(err, entity.ErrUnsupportedMessage) {
		c.logger.Warn("unhandled message", "type", msg.Type())
		c.deps.Metrics.UnsupportedMessage(c.id, msg.Type().String())
		return nil
	}
	return err
}

type controlHandler func(*Connection, wire.Message) error

var controlHandlers map[wire.MessageType]controlHandler

func init() {
	controlHandlers = map[wire.MessageType]controlHandler{
		wire.TypeHelloResponse:                       handle((*Connection).onHelloResponse),
		wire.TypeConnectResponse:                     handle((*Connection).onConnectResponse),
		wire.TypeDeviceInfoResponse:                  handle((*Connection).onDeviceInfo),
		wire.TypeListEntitiesDoneResponse:            handle((*Connection).onListEntitiesDone),
		wire.TypePingRequest:                         handle((*Connection).onPingRequest),
		wire.TypePingResponse:                        handle((*Connection).onPingResponse),
		wire.TypeDisconnectRequest:                   handle((*Connection).onDisconnectRequest),
		wire.TypeDisconnectResponse:                  handle((*Connection).onDisconnectResponse),
		wire.TypeSubscribeLogsResponse:               handle((*Connection).onDeviceLog),
		wire.TypeHomeassistantServiceResponse:        handle((*Connection).onServiceCall),
		wire.TypeSubscribeHomeAssistantStateResponse: handle((*Connection).onStateSubscription),
		wire.TypeGetTimeRequest:                      handle((*Connection).onGetTime),
	}
}

// handle adapts a typed handler. A registry that decodes a control type
// into something else is reported as unsupported.
func handle[T wire.Message](fn func(*Connection, T) error) controlHandler {
	return func(c *Connection, msg wire.Message) error {
		m, ok := msg.(T)
		if !ok {
			return fmt.Errorf("%w: %s decoded as %T", entity.ErrUnsupportedMessage, msg.Type(), msg)
		}
		return fn(c, m)
	}
}

func (c *Connection) onHelloResponse(*wire.HelloResponse) error {
	c.logger.Debug("ignoring repeated hello response")
	return nil
}

func (c *Connection) onConnectResponse(m *wire.ConnectResponse) error {
	if m.InvalidPassword {
		c.disconnectLocked(ClassConfiguration, "Invalid password", ErrInvalidPassword, false)
	}
	return nil
}

func (c *Connection) onDeviceInfo(m *wire.DeviceInfoResponse) error {
	props := map[string]string{
		PropertyName:            m.Name,
		PropertyMACAddress:      m.MACAddress,
		PropertyFirmwareVersion: m.ESPHomeVersion,
		PropertyModel:           m.Model,
		PropertyManufacturer:    m.Manufacturer,
		PropertyCompilationTime: m.CompilationTime,
	}
	if m.ProjectName != "" {
		props[PropertyProjectName] = m.ProjectName
	}
	if m.ProjectVersion != "" {
		props[PropertyProjectVersion] = m.ProjectVersion
	}
	c.deps.Properties.UpdateProperties(props)
	return nil
}

func (c *Connection) onListEntitiesDone(*wire.ListEntitiesDoneResponse) error {
	entities := append([]entity.Entity(nil), c.discovered...)
	c.deps.Entities.ApplyEntities(entities)
	c.interrogated = true
	c.logger.Debug("device interrogation complete", "entities", len(entities))
	return c.sendLocked(&wire.SubscribeStatesRequest{})
}

func (c *Connection) onPingRequest(*wire.PingRequest) error {
	return c.sendLocked(&wire.PingResponse{})
}

func (c *Connection) onPingResponse(*wire.PingResponse) error {
	c.lastPong = c.deps.Now()
	c.deps.Metrics.PongReceived(c.id)
	return nil
}

func (c *Connection) onDisconnectRequest(*wire.DisconnectRequest) error {
	if err := c.sendLocked(&wire.DisconnectResponse{}); err != nil {
		c.logger.Debug("disconnect response not sent", "error", err)
	}
	c.disconnectLocked(ClassNone, "ESPHome device requested disconnect", nil, true)
	return nil
}

func (c *Connection) onDisconnectResponse(*wire.DisconnectResponse) error {
	c.disconnectLocked(ClassNone, "ESPHome device acknowledged disconnect", nil, false)
	return nil
}

func (c *Connection) onDeviceLog(m *wire.SubscribeLogsResponse) error {
	c.deviceLogger.Info(strings.TrimRight(string(m.Message), "\r\n"), "level", m.Level)
	return nil
}

func (c *Connection) onServiceCall(m *wire.HomeassistantServiceResponse) error {
	a := Action{
		Device:       c.device,
		Kind:         ActionService,
		Service:      m.Service,
		Data:         toMap(m.Data),
		DataTemplate: toMap(m.DataTemplate),
		Variables:    toMap(m.Variables),
	}
	if m.IsEvent {
		a.Kind = ActionEvent
		if id, ok := tagID(m); ok {
			a.Kind = ActionTagScanned
			a.TagID = id
		}
	}
	c.deps.Actions.PublishAction(a)
	return nil
}

// tagID recognizes the tag-scanned event: exactly one tag_id datum and
// nothing else.
func tagID(m *wire.HomeassistantServiceResponse) (string, bool) {
	if m.Service != tagScannedEvent || len(m.DataTemplate) > 0 || len(m.Variables) > 0 || len(m.Data) != 1 {
		return "", false
	}
	if m.Data[0].Key != "tag_id" {
		return "", false
	}
	return m.Data[0].Value, true
}

func toMap(kvs []wire.KeyValue) map[string]string {
	if len(kvs) == 0 {
		return nil
	}
	out := make(map[string]string, len(kvs))
	for _, kv := range kvs {
		out[kv.Key] = kv.Value
	}
	return out
}

func (c *Connection) onStateSubscription(m *wire.SubscribeHomeAssistantStateResponse) error {
	c.logger.Debug("device subscribed to host state", "entity_id", m.EntityID, "attribute", m.Attribute, "once", m.Once)
	current := c.deps.States.State(m.EntityID, m.Attribute)
	if _, err := c.subs.Subscribe(m.EntityID, m.Attribute, m.Once, current); err != nil {
		c.logger.Warn("state subscription rejected", "entity_id", m.EntityID, "error", err)
	}
	return nil
}

func (c *Connection) onGetTime(*wire.GetTimeRequest) error {
	return c.sendLocked(&wire.GetTimeResponse{EpochSeconds: uint32(c.deps.Now().Unix())})
}

// entityTarget collects discovered entities until enumeration completes and
// forwards states straight to the sink.
type entityTarget struct{ c *Connection }

func (t entityTarget) EntityDiscovered(e entity.Entity) {
	t.c.discovered = append(t.c.discovered, e)
}

func (t entityTarget) StateChanged(s entity.State) {
	t.c.deps.Entities.UpdateState(s)
}
