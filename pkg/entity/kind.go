package entity

import (
	"fmt"
	"strings"

	"github.com/esphome-native/esphome-go/pkg/wire"
)

// Kind is an entity category.
type Kind string

// Entity kinds.
const (
	KindBinarySensor Kind = "binary_sensor"
	KindCover        Kind = "cover"
	KindFan          Kind = "fan"
	KindLight        Kind = "light"
	KindSensor       Kind = "sensor"
	KindSwitch       Kind = "switch"
	KindTextSensor   Kind = "text_sensor"
	KindClimate      Kind = "climate"
	KindNumber       Kind = "number"
	KindSelect       Kind = "select"
	KindLock         Kind = "lock"
	KindButton       Kind = "button"
	KindText         Kind = "text"
	KindDate         Kind = "date"
	KindTime         Kind = "time"
	KindDateTime     Kind = "datetime"
)

// Types lists the message types of one kind. Command is zero for read-only
// kinds. Buttons have no state message.
type Types struct {
	Info    wire.MessageType
	State   wire.MessageType
	Command wire.MessageType
}

var kindTable = map[Kind]Types{
	KindBinarySensor: {wire.TypeListEntitiesBinarySensorResponse, wire.TypeBinarySensorStateResponse, 0},
	KindCover:        {wire.TypeListEntitiesCoverResponse, wire.TypeCoverStateResponse, wire.TypeCoverCommandRequest},
	KindFan:          {wire.TypeListEntitiesFanResponse, wire.TypeFanStateResponse, wire.TypeFanCommandRequest},
	KindLight:        {wire.TypeListEntitiesLightResponse, wire.TypeLightStateResponse, wire.TypeLightCommandRequest},
	KindSensor:       {wire.TypeListEntitiesSensorResponse, wire.TypeSensorStateResponse, 0},
	KindSwitch:       {wire.TypeListEntitiesSwitchResponse, wire.TypeSwitchStateResponse, wire.TypeSwitchCommandRequest},
	KindTextSensor:   {wire.TypeListEntitiesTextSensorResponse, wire.TypeTextSensorStateResponse, 0},
	KindClimate:      {wire.TypeListEntitiesClimateResponse, wire.TypeClimateStateResponse, wire.TypeClimateCommandRequest},
	KindNumber:       {wire.TypeListEntitiesNumberResponse, wire.TypeNumberStateResponse, wire.TypeNumberCommandRequest},
	KindSelect:       {wire.TypeListEntitiesSelectResponse, wire.TypeSelectStateResponse, wire.TypeSelectCommandRequest},
	KindLock:         {wire.TypeListEntitiesLockResponse, wire.TypeLockStateResponse, wire.TypeLockCommandRequest},
	KindButton:       {wire.TypeListEntitiesButtonResponse, 0, wire.TypeButtonCommandRequest},
	KindText:         {wire.TypeListEntitiesTextResponse, wire.TypeTextStateResponse, wire.TypeTextCommandRequest},
	KindDate:         {wire.TypeListEntitiesDateResponse, wire.TypeDateStateResponse, wire.TypeDateCommandRequest},
	KindTime:         {wire.TypeListEntitiesTimeResponse, wire.TypeTimeStateResponse, wire.TypeTimeCommandRequest},
	KindDateTime:     {wire.TypeListEntitiesDateTimeResponse, wire.TypeDateTimeStateResponse, wire.TypeDateTimeCommandRequest},
}

// allKinds keeps a stable order for listings.
var allKinds = []Kind{
	KindBinarySensor, KindCover, KindFan, KindLight, KindSensor, KindSwitch,
	KindTextSensor, KindClimate, KindNumber, KindSelect, KindLock, KindButton,
	KindText, KindDate, KindTime, KindDateTime,
}

// Kinds returns every known kind.
func Kinds() []Kind {
	out := make([]Kind, len(allKinds))
	copy(out, allKinds)
	return out
}

// TypesOf returns the message types of k.
func TypesOf(k Kind) (Types, bool) {
	t, ok := kindTable[k]
	return t, ok
}

// ReadOnly reports whether k accepts no commands.
func (k Kind) ReadOnly() bool {
	return kindTable[k].Command == 0
}

// Valid reports whether k is in the kind table.
func (k Kind) Valid() bool {
	_, ok := kindTable[k]
	return ok
}

func (k Kind) String() string { return string(k) }

// ParseKind parses a kind name. Dashes are accepted in place of underscores.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_"))
	if !k.Valid() {
		return "", fmt.Errorf("%w: %q", ErrNoHandler, s)
	}
	return k, nil
}
