package entity

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/esphome-native/esphome-go/pkg/wire"
)

type recorder struct {
	entities []Entity
	states   []State
}

func (r *recorder) EntityDiscovered(e Entity) { r.entities = append(r.entities, e) }
func (r *recorder) StateChanged(s State)      { r.states = append(r.states, s) }

func TestKindTableIsClosed(t *testing.T) {
	seen := make(map[wire.MessageType]Kind)
	for _, k := range Kinds() {
		types, ok := TypesOf(k)
		require.True(t, ok, k)
		for _, typ := range []wire.MessageType{types.Info, types.State, types.Command} {
			if typ == 0 {
				continue
			}
			prev, dup := seen[typ]
			assert.False(t, dup, "%s used by %s and %s", typ, prev, k)
			seen[typ] = k
			assert.True(t, wire.Default.Known(typ), "%s not registered", typ)
		}
	}
	assert.Len(t, Kinds(), len(kindTable))
}

func TestReadOnlyKinds(t *testing.T) {
	assert.True(t, KindSensor.ReadOnly())
	assert.True(t, KindBinarySensor.ReadOnly())
	assert.True(t, KindTextSensor.ReadOnly())
	assert.False(t, KindSwitch.ReadOnly())
	assert.False(t, KindButton.ReadOnly())
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("Binary-Sensor")
	require.NoError(t, err)
	assert.Equal(t, KindBinarySensor, k)

	_, err = ParseKind("siren")
	assert.ErrorIs(t, err, ErrNoHandler)
}

func TestDispatchEnumeration(t *testing.T) {
	d := NewDispatcher()
	r := &recorder{}

	info := &wire.EntityInfo{
		MsgType:  wire.TypeListEntitiesSensorResponse,
		ObjectID: "outdoor_temperature",
		Key:      0xCAFE,
		Name:     "Outdoor Temperature",
		UniqueID: "abc-temp",
		Fields:   wire.Fields{}.AppendString(6, "°C").AppendInt32(7, 1),
	}
	require.NoError(t, d.Dispatch(info, r))
	require.Len(t, r.entities, 1)

	e := r.entities[0]
	assert.Equal(t, KindSensor, e.Kind)
	assert.Equal(t, uint32(0xCAFE), e.Key)
	assert.Equal(t, "outdoor_temperature", e.ObjectID)
	assert.Equal(t, "°C", e.Attributes["unit_of_measurement"])
	assert.Equal(t, int32(1), e.Attributes["accuracy_decimals"])
}

func TestDispatchSelectOptions(t *testing.T) {
	d := NewDispatcher()
	r := &recorder{}
	info := &wire.EntityInfo{
		MsgType: wire.TypeListEntitiesSelectResponse,
		Key:     3,
		Fields:  wire.Fields{}.AppendString(6, "eco").AppendString(6, "boost"),
	}
	require.NoError(t, d.Dispatch(info, r))
	assert.Equal(t, []string{"eco", "boost"}, r.entities[0].Attributes["options"])
}

func TestDispatchStates(t *testing.T) {
	tests := []struct {
		name    string
		msg     *wire.EntityState
		kind    Kind
		value   any
		missing bool
	}{
		{"switch", &wire.EntityState{MsgType: wire.TypeSwitchStateResponse, Key: 1, Fields: wire.Fields{}.AppendBool(2, true)}, KindSwitch, true, false},
		{"sensor", &wire.EntityState{MsgType: wire.TypeSensorStateResponse, Key: 2, Fields: wire.Fields{}.AppendFloat32(2, 21.5)}, KindSensor, float32(21.5), false},
		{"sensor missing", &wire.EntityState{MsgType: wire.TypeSensorStateResponse, Key: 2, Fields: wire.Fields{}.AppendBool(3, true)}, KindSensor, float32(0), true},
		{"text sensor", &wire.EntityState{MsgType: wire.TypeTextSensorStateResponse, Key: 3, Fields: wire.Fields{}.AppendString(2, "ok")}, KindTextSensor, "ok", false},
		{"lock", &wire.EntityState{MsgType: wire.TypeLockStateResponse, Key: 4, Fields: wire.Fields{}.AppendVarint(2, 1)}, KindLock, "locked", false},
		{"climate", &wire.EntityState{MsgType: wire.TypeClimateStateResponse, Key: 5, Fields: wire.Fields{}.AppendVarint(2, 3)}, KindClimate, "heat", false},
		{"date", &wire.EntityState{MsgType: wire.TypeDateStateResponse, Key: 6, Fields: wire.Fields{}.AppendVarint(3, 2024).AppendVarint(4, 5).AppendVarint(5, 1)}, KindDate, "2024-05-01", false},
		{"time", &wire.EntityState{MsgType: wire.TypeTimeStateResponse, Key: 7, Fields: wire.Fields{}.AppendVarint(3, 7).AppendVarint(4, 30)}, KindTime, "07:30:00", false},
		{"datetime", &wire.EntityState{MsgType: wire.TypeDateTimeStateResponse, Key: 8, Fields: wire.Fields{}.AppendFixed32(3, 1714521600)}, KindDateTime, time.Unix(1714521600, 0).UTC(), false},
	}

	d := NewDispatcher()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &recorder{}
			require.NoError(t, d.Dispatch(tt.msg, r))
			require.Len(t, r.states, 1)
			s := r.states[0]
			assert.Equal(t, tt.kind, s.Kind)
			assert.Equal(t, tt.msg.Key, s.Key)
			assert.Equal(t, tt.value, s.Value)
			assert.Equal(t, tt.missing, s.Missing)
		})
	}
}

func TestDispatchUnsupported(t *testing.T) {
	d := NewDispatcher()
	r := &recorder{}

	err := d.Dispatch(&wire.Unknown{MsgType: 200}, r)
	assert.ErrorIs(t, err, ErrUnsupportedMessage)

	err = d.Dispatch(&wire.PingRequest{}, r)
	assert.ErrorIs(t, err, ErrUnsupportedMessage)

	limited := NewDispatcherWith(newHandler(KindSwitch))
	err = limited.Dispatch(&wire.EntityState{MsgType: wire.TypeSensorStateResponse}, r)
	assert.ErrorIs(t, err, ErrUnsupportedMessage)

	assert.Empty(t, r.entities)
	assert.Empty(t, r.states)
}

func TestHandles(t *testing.T) {
	d := NewDispatcher()
	assert.True(t, d.Handles(&wire.EntityInfo{MsgType: wire.TypeListEntitiesButtonResponse}))
	assert.True(t, d.Handles(&wire.EntityState{MsgType: wire.TypeNumberStateResponse}))
	assert.False(t, d.Handles(&wire.PingRequest{}))
}

func TestCommandEncoding(t *testing.T) {
	tests := []struct {
		name string
		meta ChannelMeta
		cmd  Command
		typ  wire.MessageType
		want wire.Fields
	}{
		{"switch on", ChannelMeta{KindSwitch, 42}, OnOff(true), wire.TypeSwitchCommandRequest,
			wire.Fields{}.AppendBool(2, true)},
		{"switch off", ChannelMeta{KindSwitch, 42}, OnOff(false), wire.TypeSwitchCommandRequest,
			wire.Fields{}.AppendBool(2, false)},
		{"light brightness", ChannelMeta{KindLight, 1}, LightCommand{Brightness: Ptr(float32(0.5))}, wire.TypeLightCommandRequest,
			wire.Fields{}.AppendBool(4, true).AppendFloat32(5, 0.5)},
		{"light on", ChannelMeta{KindLight, 1}, OnOff(true), wire.TypeLightCommandRequest,
			wire.Fields{}.AppendBool(2, true).AppendBool(3, true)},
		{"fan speed", ChannelMeta{KindFan, 2}, FanCommand{SpeedLevel: Ptr(int32(3))}, wire.TypeFanCommandRequest,
			wire.Fields{}.AppendBool(10, true).AppendInt32(11, 3)},
		{"cover open", ChannelMeta{KindCover, 3}, OnOff(true), wire.TypeCoverCommandRequest,
			wire.Fields{}.AppendBool(4, true).AppendFloat32(5, 1)},
		{"cover stop", ChannelMeta{KindCover, 3}, CoverCommand{Stop: true}, wire.TypeCoverCommandRequest,
			wire.Fields{}.AppendBool(8, true)},
		{"climate mode", ChannelMeta{KindClimate, 4}, ClimateCommand{Mode: Ptr(ClimateModeCool)}, wire.TypeClimateCommandRequest,
			wire.Fields{}.AppendBool(2, true).AppendVarint(3, 2)},
		{"number", ChannelMeta{KindNumber, 5}, SetNumber(12.5), wire.TypeNumberCommandRequest,
			wire.Fields{}.AppendFloat32(2, 12.5)},
		{"select", ChannelMeta{KindSelect, 6}, SetOption("eco"), wire.TypeSelectCommandRequest,
			wire.Fields{}.AppendString(2, "eco")},
		{"text", ChannelMeta{KindText, 7}, SetText("hi"), wire.TypeTextCommandRequest,
			wire.Fields{}.AppendString(2, "hi")},
		{"lock open", ChannelMeta{KindLock, 8}, LockActionOpen, wire.TypeLockCommandRequest,
			wire.Fields{}.AppendVarint(2, 2)},
		{"button", ChannelMeta{KindButton, 9}, Press{}, wire.TypeButtonCommandRequest, nil},
		{"date", ChannelMeta{KindDate, 10}, SetDate{2024, 5, 1}, wire.TypeDateCommandRequest,
			wire.Fields{}.AppendVarint(2, 2024).AppendVarint(3, 5).AppendVarint(4, 1)},
		{"time", ChannelMeta{KindTime, 11}, SetTime{7, 30, 0}, wire.TypeTimeCommandRequest,
			wire.Fields{}.AppendVarint(2, 7).AppendVarint(3, 30).AppendVarint(4, 0)},
		{"datetime", ChannelMeta{KindDateTime, 12}, SetDateTime(time.Unix(1714521600, 0)), wire.TypeDateTimeCommandRequest,
			wire.Fields{}.AppendFixed32(2, 1714521600)},
	}

	d := NewDispatcher()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := d.Command(tt.meta, tt.cmd)
			require.NoError(t, err)
			c, ok := msg.(*wire.EntityCommand)
			require.True(t, ok, "got %T", msg)
			assert.Equal(t, tt.typ, c.MsgType)
			assert.Equal(t, tt.meta.Key, c.Key)
			assert.Equal(t, tt.want, c.Fields)
		})
	}
}

func TestCommandButtonKeepsKey(t *testing.T) {
	msg, err := NewDispatcher().Command(ChannelMeta{KindButton, 0}, Press{})
	require.NoError(t, err)

	decoded, err := wire.DecodePacket(wire.EncodePacket(msg))
	require.NoError(t, err)
	assert.Equal(t, wire.TypeButtonCommandRequest, decoded.Type())
	assert.Equal(t, uint32(0), decoded.(*wire.EntityCommand).Key)
}

func TestCommandErrors(t *testing.T) {
	d := NewDispatcherWith(newHandler(KindSensor), newHandler(KindLight))

	_, err := d.Command(ChannelMeta{Key: 1}, OnOff(true))
	assert.ErrorIs(t, err, ErrNoEntityKind)

	_, err = d.Command(ChannelMeta{Kind: KindSwitch, Key: 1}, OnOff(true))
	assert.ErrorIs(t, err, ErrNoHandler)

	_, err = d.Command(ChannelMeta{Kind: KindSensor, Key: 1}, OnOff(true))
	assert.ErrorIs(t, err, ErrUnsupportedCommand)

	_, err = d.Command(ChannelMeta{Kind: KindLight, Key: 1}, SetText("x"))
	assert.ErrorIs(t, err, ErrUnsupportedCommand)
}

func TestCommandNoDeduplication(t *testing.T) {
	d := NewDispatcher()
	meta := ChannelMeta{Kind: KindSwitch, Key: 7}

	a, err := d.Command(meta, OnOff(true))
	require.NoError(t, err)
	b, err := d.Command(meta, OnOff(true))
	require.NoError(t, err)

	assert.NotSame(t, a, b)
	assert.Equal(t, wire.EncodePacket(a), wire.EncodePacket(b))
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		kind Kind
		text string
		want Command
	}{
		{KindSwitch, "on", OnOff(true)},
		{KindSwitch, "OFF", OnOff(false)},
		{KindLight, "40%", LightCommand{State: Ptr(true), Brightness: Ptr(float32(0.4))}},
		{KindFan, "speed=2", FanCommand{State: Ptr(true), SpeedLevel: Ptr(int32(2))}},
		{KindFan, "oscillate=on", FanCommand{Oscillating: Ptr(true)}},
		{KindCover, "open", OnOff(true)},
		{KindCover, "stop", CoverCommand{Stop: true}},
		{KindCover, "25", CoverCommand{Position: Ptr(float32(0.25))}},
		{KindClimate, "heat", ClimateCommand{Mode: Ptr(ClimateModeHeat)}},
		{KindClimate, "21.5", ClimateCommand{TargetTemperature: Ptr(float32(21.5))}},
		{KindNumber, "42.5", SetNumber(42.5)},
		{KindSelect, "Boost", SetOption("Boost")},
		{KindText, " hello ", SetText("hello")},
		{KindLock, "lock", LockActionLock},
		{KindButton, "press", Press{}},
		{KindDate, "2024-05-01", SetDate{2024, 5, 1}},
		{KindTime, "07:30", SetTime{7, 30, 0}},
		{KindDateTime, "2024-05-01T00:00:00Z", SetDateTime(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))},
		{KindSensor, "refresh", Refresh{}},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind)+"/"+tt.text, func(t *testing.T) {
			got, err := ParseCommand(tt.kind, tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseCommandErrors(t *testing.T) {
	tests := []struct {
		kind Kind
		text string
		want error
	}{
		{KindSensor, "on", ErrUnsupportedCommand},
		{"siren", "on", ErrNoHandler},
		{KindSwitch, "maybe", ErrInvalidCommand},
		{KindLight, "140%", ErrInvalidCommand},
		{KindLock, "smash", ErrInvalidCommand},
		{KindDate, "2024-13-01", ErrInvalidCommand},
		{KindNumber, "lots", ErrInvalidCommand},
	}
	for _, tt := range tests {
		_, err := ParseCommand(tt.kind, tt.text)
		assert.True(t, errors.Is(err, tt.want), "%s %q: got %v", tt.kind, tt.text, err)
	}
}

func TestEnumStrings(t *testing.T) {
	assert.Equal(t, "fan_only", ClimateModeFanOnly.String())
	assert.Equal(t, "ClimateMode(9)", ClimateMode(9).String())
	assert.Equal(t, "open", LockActionOpen.String())
	m, ok := ParseClimateMode("dry")
	assert.True(t, ok)
	assert.Equal(t, ClimateModeDry, m)
}
