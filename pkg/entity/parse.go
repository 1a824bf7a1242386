package entity

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseCommand turns a textual value into the command shape for kind.
// "refresh" is accepted for every kind.
//
//	switch, light, fan: on, off, true, false, 1, 0
//	light: a brightness percentage such as 40%
//	fan: a speed level such as speed=3
//	cover: open, close, stop, or a position percentage
//	climate: a mode name or a target temperature
//	number: a float
//	select, text: the text itself
//	lock: lock, unlock, open
//	button: press
//	date: 2006-01-02, time: 15:04:05 or 15:04, datetime: RFC 3339
func ParseCommand(kind Kind, text string) (Command, error) {
	raw := strings.TrimSpace(text)
	s := strings.ToLower(raw)
	if s == "refresh" {
		return Refresh{}, nil
	}
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrNoHandler, kind)
	}
	if kind.ReadOnly() {
		return nil, fmt.Errorf("%w: %s is read-only", ErrUnsupportedCommand, kind)
	}

	switch kind {
	case KindSwitch:
		return parseOnOff(s)

	case KindLight:
		if p, ok := strings.CutSuffix(s, "%"); ok {
			v, err := parsePercent(p)
			if err != nil {
				return nil, err
			}
			return LightCommand{State: Ptr(v > 0), Brightness: Ptr(v)}, nil
		}
		return parseOnOff(s)

	case KindFan:
		if lvl, ok := strings.CutPrefix(s, "speed="); ok {
			n, err := strconv.ParseInt(lvl, 10, 32)
			if err != nil {
				return nil, fmt.Errorf("%w: speed level %q", ErrInvalidCommand, lvl)
			}
			return FanCommand{State: Ptr(n > 0), SpeedLevel: Ptr(int32(n))}, nil
		}
		if osc, ok := strings.CutPrefix(s, "oscillate="); ok {
			b, err := parseOnOff(osc)
			if err != nil {
				return nil, err
			}
			return FanCommand{Oscillating: Ptr(bool(b.(OnOff)))}, nil
		}
		return parseOnOff(s)

	case KindCover:
		switch s {
		case "open":
			return OnOff(true), nil
		case "close", "closed":
			return OnOff(false), nil
		case "stop":
			return CoverCommand{Stop: true}, nil
		}
		v, err := parsePercent(strings.TrimSuffix(s, "%"))
		if err != nil {
			return nil, err
		}
		return CoverCommand{Position: Ptr(v)}, nil

	case KindClimate:
		if m, ok := ParseClimateMode(s); ok {
			return ClimateCommand{Mode: &m}, nil
		}
		v, err := strconv.ParseFloat(s, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: climate mode or temperature %q", ErrInvalidCommand, raw)
		}
		return ClimateCommand{TargetTemperature: Ptr(float32(v))}, nil

	case KindNumber:
		v, err := strconv.ParseFloat(s, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: number %q", ErrInvalidCommand, raw)
		}
		return SetNumber(v), nil

	case KindSelect:
		return SetOption(raw), nil

	case KindText:
		return SetText(raw), nil

	case KindLock:
		switch s {
		case "lock":
			return LockActionLock, nil
		case "unlock":
			return LockActionUnlock, nil
		case "open":
			return LockActionOpen, nil
		}
		return nil, fmt.Errorf("%w: lock action %q", ErrInvalidCommand, raw)

	case KindButton:
		if s == "" || s == "press" {
			return Press{}, nil
		}
		return nil, fmt.Errorf("%w: button accepts only press", ErrInvalidCommand)

	case KindDate:
		t, err := time.Parse(time.DateOnly, s)
		if err != nil {
			return nil, fmt.Errorf("%w: date %q", ErrInvalidCommand, raw)
		}
		return SetDate{Year: uint32(t.Year()), Month: uint32(t.Month()), Day: uint32(t.Day())}, nil

	case KindTime:
		t, err := time.Parse(time.TimeOnly, s)
		if err != nil {
			t, err = time.Parse("15:04", s)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: time %q", ErrInvalidCommand, raw)
		}
		return SetTime{Hour: uint32(t.Hour()), Minute: uint32(t.Minute()), Second: uint32(t.Second())}, nil

	case KindDateTime:
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, fmt.Errorf("%w: datetime %q", ErrInvalidCommand, raw)
		}
		return SetDateTime(t), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedCommand, kind)
}

func parseOnOff(s string) (Command, error) {
	switch s {
	case "on", "true", "1":
		return OnOff(true), nil
	case "off", "false", "0":
		return OnOff(false), nil
	}
	return nil, fmt.Errorf("%w: expected on or off, got %q", ErrInvalidCommand, s)
}

// parsePercent reads 0..100 and returns 0..1.
func parsePercent(s string) (float32, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 32)
	if err != nil || v < 0 || v > 100 {
		return 0, fmt.Errorf("%w: percentage %q", ErrInvalidCommand, s)
	}
	return float32(v / 100), nil
}
