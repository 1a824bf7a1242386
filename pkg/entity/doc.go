// Package entity maps device entities to and from wire messages.
//
// Every entity kind a device can expose (sensor, switch, light, ...) has
// exactly one enumeration message type and one state message type, plus at
// most one command message type. The table is closed and fixed at startup.
//
// A Dispatcher routes inbound enumeration and state messages to the handler
// for their type, and turns externally issued commands into outbound
// messages using the entity kind carried in the channel metadata:
//
//	d := entity.NewDispatcher()
//	msg, err := d.Command(entity.ChannelMeta{Kind: entity.KindSwitch, Key: 42}, entity.OnOff(true))
//
// Errors are recoverable: an unknown message type yields
// ErrUnsupportedMessage and a command without a matching handler yields
// ErrNoEntityKind, ErrNoHandler or ErrUnsupportedCommand.
package entity
