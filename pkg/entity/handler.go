package entity

import (
	"fmt"
	"time"

	"github.com/esphome-native/esphome-go/pkg/wire"
)

// Handler converts the messages of one entity kind.
type Handler interface {
	Kind() Kind
	Types() Types

	// Entity converts an enumeration message.
	Entity(m *wire.EntityInfo) Entity

	// State converts a state message.
	State(m *wire.EntityState) State

	// Command builds the outbound message for cmd addressed to key.
	Command(key uint32, cmd Command) (wire.Message, error)
}

// handler is the table-driven Handler used for every kind.
type handler struct {
	kind   Kind
	types  Types
	attrs  func(f wire.Fields, a map[string]any)
	state  func(f wire.Fields, s *State)
	encode func(cmd Command) (wire.Fields, error)
}

func (h *handler) Kind() Kind   { return h.kind }
func (h *handler) Types() Types { return h.types }

func (h *handler) Entity(m *wire.EntityInfo) Entity {
	e := baseEntity(h.kind, m)
	if h.attrs != nil {
		a := make(map[string]any)
		h.attrs(m.Fields, a)
		if len(a) > 0 {
			e.Attributes = a
		}
	}
	return e
}

func (h *handler) State(m *wire.EntityState) State {
	s := State{Kind: h.kind, Key: m.Key}
	if h.state != nil {
		h.state(m.Fields, &s)
	}
	return s
}

func (h *handler) Command(key uint32, cmd Command) (wire.Message, error) {
	if h.encode == nil || h.types.Command == 0 {
		return nil, fmt.Errorf("%w: %s is read-only", ErrUnsupportedCommand, h.kind)
	}
	fields, err := h.encode(cmd)
	if err != nil {
		return nil, err
	}
	return &wire.EntityCommand{MsgType: h.types.Command, Key: key, Fields: fields}, nil
}

func unsupported(kind Kind, cmd Command) error {
	return fmt.Errorf("%w: %T for %s", ErrUnsupportedCommand, cmd, kind)
}

// Handlers returns a handler for every kind in the table.
func Handlers() []Handler {
	out := make([]Handler, 0, len(allKinds))
	for _, k := range allKinds {
		out = append(out, newHandler(k))
	}
	return out
}

func newHandler(k Kind) *handler {
	h := &handler{kind: k, types: kindTable[k]}
	switch k {
	case KindBinarySensor:
		h.attrs = func(f wire.Fields, a map[string]any) { putString(a, "device_class", f.String(5)) }
		h.state = func(f wire.Fields, s *State) {
			s.Value = f.Bool(2)
			s.Missing = f.Bool(3)
		}

	case KindSensor:
		h.attrs = func(f wire.Fields, a map[string]any) {
			putString(a, "unit_of_measurement", f.String(6))
			if f.Has(7) {
				a["accuracy_decimals"] = f.Int32(7)
			}
			putString(a, "device_class", f.String(9))
		}
		h.state = func(f wire.Fields, s *State) {
			s.Value = f.Float32(2)
			s.Missing = f.Bool(3)
		}

	case KindTextSensor:
		h.attrs = func(f wire.Fields, a map[string]any) { putString(a, "device_class", f.String(8)) }
		h.state = stringState

	case KindSwitch:
		h.state = func(f wire.Fields, s *State) { s.Value = f.Bool(2) }
		h.encode = func(cmd Command) (wire.Fields, error) {
			c, ok := cmd.(OnOff)
			if !ok {
				return nil, unsupported(k, cmd)
			}
			return wire.Fields{}.AppendBool(2, bool(c)), nil
		}

	case KindLight:
		h.state = func(f wire.Fields, s *State) {
			s.Value = f.Bool(2)
			if f.Has(3) {
				s.Attributes = map[string]any{"brightness": f.Float32(3)}
			}
		}
		h.encode = func(cmd Command) (wire.Fields, error) {
			var c LightCommand
			switch v := cmd.(type) {
			case OnOff:
				c.State = Ptr(bool(v))
			case LightCommand:
				c = v
			default:
				return nil, unsupported(k, cmd)
			}
			var f wire.Fields
			if c.State != nil {
				f = f.AppendBool(2, true).AppendBool(3, *c.State)
			}
			if c.Brightness != nil {
				f = f.AppendBool(4, true).AppendFloat32(5, *c.Brightness)
			}
			return f, nil
		}

	case KindFan:
		h.attrs = func(f wire.Fields, a map[string]any) {
			putBool(a, "supports_oscillation", f.Bool(5))
			if n := f.Int32(8); n > 0 {
				a["supported_speed_count"] = n
			}
		}
		h.state = func(f wire.Fields, s *State) {
			s.Value = f.Bool(2)
			s.Attributes = map[string]any{
				"oscillating": f.Bool(3),
				"speed_level": f.Int32(6),
			}
		}
		h.encode = func(cmd Command) (wire.Fields, error) {
			var c FanCommand
			switch v := cmd.(type) {
			case OnOff:
				c.State = Ptr(bool(v))
			case FanCommand:
				c = v
			default:
				return nil, unsupported(k, cmd)
			}
			var f wire.Fields
			if c.State != nil {
				f = f.AppendBool(2, true).AppendBool(3, *c.State)
			}
			if c.Oscillating != nil {
				f = f.AppendBool(6, true).AppendBool(7, *c.Oscillating)
			}
			if c.SpeedLevel != nil {
				f = f.AppendBool(10, true).AppendInt32(11, *c.SpeedLevel)
			}
			return f, nil
		}

	case KindCover:
		h.attrs = func(f wire.Fields, a map[string]any) {
			putBool(a, "supports_position", f.Bool(6))
			putBool(a, "supports_tilt", f.Bool(7))
			putString(a, "device_class", f.String(8))
		}
		h.state = func(f wire.Fields, s *State) {
			s.Value = f.Float32(3)
			s.Attributes = map[string]any{
				"tilt":      f.Float32(4),
				"operation": coverOperation(f.Uint32(5)),
			}
		}
		h.encode = func(cmd Command) (wire.Fields, error) {
			var c CoverCommand
			switch v := cmd.(type) {
			case OnOff:
				pos := float32(0)
				if v {
					pos = 1
				}
				c.Position = &pos
			case CoverCommand:
				c = v
			default:
				return nil, unsupported(k, cmd)
			}
			var f wire.Fields
			if c.Position != nil {
				f = f.AppendBool(4, true).AppendFloat32(5, *c.Position)
			}
			if c.Tilt != nil {
				f = f.AppendBool(6, true).AppendFloat32(7, *c.Tilt)
			}
			if c.Stop {
				f = f.AppendBool(8, true)
			}
			return f, nil
		}

	case KindClimate:
		h.state = func(f wire.Fields, s *State) {
			s.Value = ClimateMode(f.Uint32(2)).String()
			s.Attributes = map[string]any{
				"current_temperature": f.Float32(3),
				"target_temperature":  f.Float32(4),
			}
		}
		h.encode = func(cmd Command) (wire.Fields, error) {
			c, ok := cmd.(ClimateCommand)
			if !ok {
				return nil, unsupported(k, cmd)
			}
			var f wire.Fields
			if c.Mode != nil {
				f = f.AppendBool(2, true).AppendVarint(3, uint64(*c.Mode))
			}
			if c.TargetTemperature != nil {
				f = f.AppendBool(4, true).AppendFloat32(5, *c.TargetTemperature)
			}
			return f, nil
		}

	case KindNumber:
		h.attrs = func(f wire.Fields, a map[string]any) {
			a["min_value"] = f.Float32(6)
			a["max_value"] = f.Float32(7)
			a["step"] = f.Float32(8)
			putString(a, "unit_of_measurement", f.String(11))
		}
		h.state = func(f wire.Fields, s *State) {
			s.Value = f.Float32(2)
			s.Missing = f.Bool(3)
		}
		h.encode = func(cmd Command) (wire.Fields, error) {
			c, ok := cmd.(SetNumber)
			if !ok {
				return nil, unsupported(k, cmd)
			}
			return wire.Fields{}.AppendFloat32(2, float32(c)), nil
		}

	case KindSelect:
		h.attrs = func(f wire.Fields, a map[string]any) {
			var opts []string
			for _, o := range f.Repeated(6) {
				opts = append(opts, string(o.Bytes))
			}
			if len(opts) > 0 {
				a["options"] = opts
			}
		}
		h.state = stringState
		h.encode = func(cmd Command) (wire.Fields, error) {
			c, ok := cmd.(SetOption)
			if !ok {
				return nil, unsupported(k, cmd)
			}
			return wire.Fields{}.AppendString(2, string(c)), nil
		}

	case KindText:
		h.attrs = func(f wire.Fields, a map[string]any) {
			if f.Has(8) || f.Has(9) {
				a["min_length"] = f.Uint32(8)
				a["max_length"] = f.Uint32(9)
			}
			putString(a, "pattern", f.String(10))
		}
		h.state = stringState
		h.encode = func(cmd Command) (wire.Fields, error) {
			c, ok := cmd.(SetText)
			if !ok {
				return nil, unsupported(k, cmd)
			}
			return wire.Fields{}.AppendString(2, string(c)), nil
		}

	case KindLock:
		h.attrs = func(f wire.Fields, a map[string]any) {
			putBool(a, "supports_open", f.Bool(9))
			putBool(a, "requires_code", f.Bool(10))
		}
		h.state = func(f wire.Fields, s *State) { s.Value = lockState(f.Uint32(2)) }
		h.encode = func(cmd Command) (wire.Fields, error) {
			var a LockAction
			switch v := cmd.(type) {
			case LockAction:
				a = v
			case OnOff:
				a = LockActionUnlock
				if v {
					a = LockActionLock
				}
			default:
				return nil, unsupported(k, cmd)
			}
			return wire.Fields{}.AppendVarint(2, uint64(a)), nil
		}

	case KindButton:
		h.encode = func(cmd Command) (wire.Fields, error) {
			if _, ok := cmd.(Press); !ok {
				return nil, unsupported(k, cmd)
			}
			return nil, nil
		}

	case KindDate:
		h.state = func(f wire.Fields, s *State) {
			s.Missing = f.Bool(2)
			s.Value = fmt.Sprintf("%04d-%02d-%02d", f.Uint32(3), f.Uint32(4), f.Uint32(5))
		}
		h.encode = func(cmd Command) (wire.Fields, error) {
			c, ok := cmd.(SetDate)
			if !ok {
				return nil, unsupported(k, cmd)
			}
			return wire.Fields{}.AppendVarint(2, uint64(c.Year)).AppendVarint(3, uint64(c.Month)).AppendVarint(4, uint64(c.Day)), nil
		}

	case KindTime:
		h.state = func(f wire.Fields, s *State) {
			s.Missing = f.Bool(2)
			s.Value = fmt.Sprintf("%02d:%02d:%02d", f.Uint32(3), f.Uint32(4), f.Uint32(5))
		}
		h.encode = func(cmd Command) (wire.Fields, error) {
			c, ok := cmd.(SetTime)
			if !ok {
				return nil, unsupported(k, cmd)
			}
			return wire.Fields{}.AppendVarint(2, uint64(c.Hour)).AppendVarint(3, uint64(c.Minute)).AppendVarint(4, uint64(c.Second)), nil
		}

	case KindDateTime:
		h.state = func(f wire.Fields, s *State) {
			s.Missing = f.Bool(2)
			s.Value = time.Unix(int64(f.Fixed32(3)), 0).UTC()
		}
		h.encode = func(cmd Command) (wire.Fields, error) {
			c, ok := cmd.(SetDateTime)
			if !ok {
				return nil, unsupported(k, cmd)
			}
			return wire.Fields{}.AppendFixed32(2, uint32(time.Time(c).Unix())), nil
		}
	}
	return h
}

func stringState(f wire.Fields, s *State) {
	s.Value = f.String(2)
	s.Missing = f.Bool(3)
}

func putString(a map[string]any, key, v string) {
	if v != "" {
		a[key] = v
	}
}

func putBool(a map[string]any, key string, v bool) {
	if v {
		a[key] = true
	}
}

func coverOperation(op uint32) string {
	switch op {
	case 1:
		return "opening"
	case 2:
		return "closing"
	default:
		return "idle"
	}
}

var lockStates = []string{"none", "locked", "unlocked", "jammed", "locking", "unlocking"}

func lockState(v uint32) string {
	if int(v) < len(lockStates) {
		return lockStates[v]
	}
	return fmt.Sprintf("unknown(%d)", v)
}
