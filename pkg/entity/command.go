package entity

import (
	"fmt"
	"time"
)

// Command is an externally issued instruction for one entity. The concrete
// types below are the only implementations.
type Command interface {
	command()
}

// OnOff turns a switch, light or fan on or off. Covers read it as
// open/close and locks as lock/unlock.
type OnOff bool

// Press triggers a button.
type Press struct{}

// SetNumber sets the value of a number entity.
type SetNumber float32

// SetText sets the value of a text entity.
type SetText string

// SetOption selects an option of a select entity.
type SetOption string

// LockAction is a lock command.
type LockAction uint32

// Lock actions, numbered as on the wire.
const (
	LockActionUnlock LockAction = 0
	LockActionLock   LockAction = 1
	LockActionOpen   LockAction = 2
)

func (a LockAction) String() string {
	switch a {
	case LockActionUnlock:
		return "unlock"
	case LockActionLock:
		return "lock"
	case LockActionOpen:
		return "open"
	default:
		return fmt.Sprintf("LockAction(%d)", uint32(a))
	}
}

// CoverCommand moves a cover. Nil members are left unchanged.
type CoverCommand struct {
	Position *float32 // 0 closed, 1 open
	Tilt     *float32
	Stop     bool
}

// ClimateMode is a climate operating mode, numbered as on the wire.
type ClimateMode uint32

const (
	ClimateModeOff      ClimateMode = 0
	ClimateModeHeatCool ClimateMode = 1
	ClimateModeCool     ClimateMode = 2
	ClimateModeHeat     ClimateMode = 3
	ClimateModeFanOnly  ClimateMode = 4
	ClimateModeDry      ClimateMode = 5
	ClimateModeAuto     ClimateMode = 6
)

var climateModeNames = []string{"off", "heat_cool", "cool", "heat", "fan_only", "dry", "auto"}

func (m ClimateMode) String() string {
	if int(m) < len(climateModeNames) {
		return climateModeNames[m]
	}
	return fmt.Sprintf("ClimateMode(%d)", uint32(m))
}

// ParseClimateMode parses a mode name such as "heat" or "fan_only".
func ParseClimateMode(s string) (ClimateMode, bool) {
	for i, name := range climateModeNames {
		if name == s {
			return ClimateMode(i), true
		}
	}
	return 0, false
}

// ClimateCommand changes mode and/or target temperature.
type ClimateCommand struct {
	Mode              *ClimateMode
	TargetTemperature *float32
}

// LightCommand switches a light and/or sets its brightness (0..1).
type LightCommand struct {
	State      *bool
	Brightness *float32
}

// FanCommand switches a fan, sets oscillation and/or speed level.
type FanCommand struct {
	State       *bool
	Oscillating *bool
	SpeedLevel  *int32
}

// SetDate sets a date entity.
type SetDate struct {
	Year  uint32
	Month uint32
	Day   uint32
}

// SetTime sets a time entity.
type SetTime struct {
	Hour   uint32
	Minute uint32
	Second uint32
}

// SetDateTime sets a datetime entity.
type SetDateTime time.Time

// Refresh asks the device to resend all entity states. The connection
// handles it; entity handlers never see it.
type Refresh struct{}

func (OnOff) command()          {}
func (Press) command()          {}
func (SetNumber) command()      {}
func (SetText) command()        {}
func (SetOption) command()      {}
func (LockAction) command()     {}
func (CoverCommand) command()   {}
func (ClimateCommand) command() {}
func (LightCommand) command()   {}
func (FanCommand) command()     {}
func (SetDate) command()        {}
func (SetTime) command()        {}
func (SetDateTime) command()    {}
func (Refresh) command()        {}

// Ptr returns a pointer to v, for the optional members of command structs.
func Ptr[T any](v T) *T { return &v }
