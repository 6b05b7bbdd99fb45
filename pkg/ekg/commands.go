// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package ekg

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Command is a named partial update of the kettle state.
//
// Apply receives a copy of the current state and returns the intended state.
// Single-field commands clamp out-of-range input; SetSchedule validates the
// whole group and rejects it if any member is invalid.
type Command interface {
	Apply(s State) (State, error)
	String() string
}

// SetTargetTemp sets the heating target. Value is read in Unit.
type SetTargetTemp struct {
	Value float64
	Unit  Units
}

func (c SetTargetTemp) Apply(s State) (State, error) {
	if math.IsNaN(c.Value) {
		return s, fmt.Errorf("%w: target temperature is NaN", ErrInvalidCommand)
	}
	switch c.Unit {
	case Celsius:
		s.TargetTemp = TempFromCelsius(clampFloat(c.Value, TempMinC, TempMaxC))
	case Fahrenheit:
		s.TargetTemp = TempFromFahrenheit(clampFloat(c.Value, TempMinF, TempMaxF))
	default:
		return s, fmt.Errorf("%w: unknown unit %v", ErrInvalidCommand, c.Unit)
	}
	// Rounding a clamped Fahrenheit value can land half a degree outside
	s.TargetTemp = Temp(clampInt(int(s.TargetTemp), tempWireMin, tempWireMax))
	return s, nil
}

func (c SetTargetTemp) String() string {
	return fmt.Sprintf("set target_temp %g%s", c.Value, c.Unit)
}

// SetUnits changes the display unit.
type SetUnits struct {
	Units Units
}

func (c SetUnits) Apply(s State) (State, error) {
	if c.Units != Celsius && c.Units != Fahrenheit {
		return s, fmt.Errorf("%w: unknown units %d", ErrInvalidCommand, c.Units)
	}
	s.Units = c.Units
	return s, nil
}

func (c SetUnits) String() string { return "set units " + c.Units.String() }

// SetPreboil toggles boiling before settling at the target temperature.
type SetPreboil struct {
	Enabled bool
}

func (c SetPreboil) Apply(s State) (State, error) {
	s.Preboil = c.Enabled
	return s, nil
}

func (c SetPreboil) String() string { return fmt.Sprintf("set preboil %t", c.Enabled) }

// SetAltitude sets altitude compensation. The kettle menu offers 0-3000 m in
// 30 m steps; other values are clamped and rounded to the nearest step.
type SetAltitude struct {
	Meters int
}

func (c SetAltitude) Apply(s State) (State, error) {
	m := clampInt(c.Meters, 0, AltitudeMenuMax)
	s.AltitudeM = (m + AltitudeMenuStep/2) / AltitudeMenuStep * AltitudeMenuStep
	return s, nil
}

func (c SetAltitude) String() string { return fmt.Sprintf("set altitude %dm", c.Meters) }

// SetHold sets how long the kettle keeps water at temperature. Zero disables hold.
type SetHold struct {
	Minutes int
}

func (c SetHold) Apply(s State) (State, error) {
	s.HoldMinutes = clampInt(c.Minutes, 0, HoldMax)
	return s, nil
}

func (c SetHold) String() string { return fmt.Sprintf("set hold %dmin", c.Minutes) }

// SetChimeVolume sets the chime level. Zero mutes.
type SetChimeVolume struct {
	Level int
}

func (c SetChimeVolume) Apply(s State) (State, error) {
	s.ChimeVolume = clampInt(c.Level, 0, ChimeMax)
	return s, nil
}

func (c SetChimeVolume) String() string { return fmt.Sprintf("set chime %d", c.Level) }

type SetClockMode struct {
	Mode ClockMode
}

func (c SetClockMode) Apply(s State) (State, error) {
	if c.Mode > clockModeMax {
		return s, fmt.Errorf("%w: unknown clock mode %d", ErrInvalidCommand, c.Mode)
	}
	s.ClockMode = c.Mode
	return s, nil
}

func (c SetClockMode) String() string { return "set clock_mode " + c.Mode.String() }

type SetLanguage struct {
	Language Language
}

func (c SetLanguage) Apply(s State) (State, error) {
	s.Language = c.Language
	return s, nil
}

func (c SetLanguage) String() string { return "set language " + c.Language.String() }

// SyncClock changes nothing itself. Every write carries the current time, so
// applying it sets the kettle clock.
type SyncClock struct{}

func (SyncClock) Apply(s State) (State, error) { return s, nil }

func (SyncClock) String() string { return "sync clock" }

// ScheduleMode selects whether a scheduled heat is active.
type ScheduleMode uint8

const (
	ScheduleOff ScheduleMode = iota
	ScheduleOnce
	ScheduleDaily
)

func (m ScheduleMode) String() string {
	switch m {
	case ScheduleOff:
		return "off"
	case ScheduleOnce:
		return "once"
	case ScheduleDaily:
		return "daily"
	}
	return fmt.Sprintf("ScheduleMode(%d)", uint8(m))
}

// ParseScheduleMode parses "off", "once" or "daily".
func ParseScheduleMode(s string) (ScheduleMode, error) {
	switch strings.ToLower(s) {
	case "off":
		return ScheduleOff, nil
	case "once":
		return ScheduleOnce, nil
	case "daily":
		return ScheduleDaily, nil
	}
	return 0, fmt.Errorf("%w: unknown schedule mode %q", ErrInvalidCommand, s)
}

// Schedule defaults offered by the CLI when a member is not given
const (
	DefaultScheduleHour   = 7
	DefaultScheduleMinute = 0
	DefaultScheduleTempC  = 85
)

// SetSchedule updates the schedule group atomically.
//
// With ScheduleOff the schedule is disabled, its temperature is set to the
// disabled sentinel and the time is zeroed; the other members are ignored.
// Otherwise Hour, Minute and TempC must all be valid or nothing changes.
type SetSchedule struct {
	Mode   ScheduleMode
	Hour   int
	Minute int
	TempC  float64
}

func (c SetSchedule) Apply(s State) (State, error) {
	switch c.Mode {
	case ScheduleOff:
		s.ScheduleEnabled = false
		s.ScheduleTemp = OptionalTemp{}
		s.ScheduleHour = 0
		s.ScheduleMinute = 0
		return s, nil
	case ScheduleOnce, ScheduleDaily:
	default:
		return s, fmt.Errorf("%w: unknown schedule mode %d", ErrInvalidCommand, c.Mode)
	}

	var errs []error
	if c.Hour < 0 || c.Hour > HourMax {
		errs = append(errs, fmt.Errorf("%w: schedule hour %d not in 0-%d", ErrInvalidCommand, c.Hour, HourMax))
	}
	if c.Minute < 0 || c.Minute > MinuteMax {
		errs = append(errs, fmt.Errorf("%w: schedule minute %d not in 0-%d", ErrInvalidCommand, c.Minute, MinuteMax))
	}
	t := TempFromCelsius(c.TempC)
	switch {
	case math.IsNaN(c.TempC) || c.TempC < TempMinC || c.TempC > TempMaxC:
		errs = append(errs, fmt.Errorf("%w: schedule temperature %g not in %d-%d°C", ErrInvalidCommand, c.TempC, TempMinC, TempMaxC))
	case t == ScheduleTempDisabled:
		errs = append(errs, fmt.Errorf("%w: schedule temperature %s collides with the disabled marker", ErrInvalidCommand, t))
	}
	if len(errs) > 0 {
		return s, errors.Join(errs...)
	}

	s.ScheduleEnabled = true
	s.ScheduleHour = c.Hour
	s.ScheduleMinute = c.Minute
	s.ScheduleTemp = SomeTemp(t)
	return s, nil
}

func (c SetSchedule) String() string {
	if c.Mode == ScheduleOff {
		return "set schedule off"
	}
	return fmt.Sprintf("set schedule %s %02d:%02d %g°C", c.Mode, c.Hour, c.Minute, c.TempC)
}

func clampInt(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

func clampFloat(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(v, hi))
}
