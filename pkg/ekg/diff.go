// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package ekg

import "fmt"

// Field identifies one decoded field of the record.
type Field int

const (
	FieldScheduleEnabled Field = iota
	FieldUnits
	FieldPreboil
	FieldAltitude
	FieldTargetTemp
	FieldScheduleTemp
	FieldScheduleMinute
	FieldScheduleHour
	FieldClockMinute
	FieldClockHour
	FieldClockMode
	FieldHold
	FieldChime
	FieldLanguage
	FieldCounter

	fieldCount
)

var fieldNames = [fieldCount]string{
	FieldScheduleEnabled: "schedule_enabled",
	FieldUnits:           "units",
	FieldPreboil:         "preboil",
	FieldAltitude:        "altitude_m",
	FieldTargetTemp:      "target_temp",
	FieldScheduleTemp:    "schedule_temp",
	FieldScheduleMinute:  "schedule_minute",
	FieldScheduleHour:    "schedule_hour",
	FieldClockMinute:     "clock_minute",
	FieldClockHour:       "clock_hour",
	FieldClockMode:       "clock_mode",
	FieldHold:            "hold_minutes",
	FieldChime:           "chime_volume",
	FieldLanguage:        "language",
	FieldCounter:         "write_counter",
}

func (f Field) String() string {
	if f >= 0 && f < fieldCount {
		return fieldNames[f]
	}
	return fmt.Sprintf("Field(%d)", int(f))
}

// Fields returns every field in record order.
func Fields() []Field {
	fields := make([]Field, fieldCount)
	for i := range fields {
		fields[i] = Field(i)
	}
	return fields
}

// Value returns the typed value of field f.
func (s State) Value(f Field) any {
	switch f {
	case FieldScheduleEnabled:
		return s.ScheduleEnabled
	case FieldUnits:
		return s.Units
	case FieldPreboil:
		return s.Preboil
	case FieldAltitude:
		return s.AltitudeM
	case FieldTargetTemp:
		return s.TargetTemp
	case FieldScheduleTemp:
		return s.ScheduleTemp
	case FieldScheduleMinute:
		return s.ScheduleMinute
	case FieldScheduleHour:
		return s.ScheduleHour
	case FieldClockMinute:
		return s.ClockMinute
	case FieldClockHour:
		return s.ClockHour
	case FieldClockMode:
		return s.ClockMode
	case FieldHold:
		return s.HoldMinutes
	case FieldChime:
		return s.ChimeVolume
	case FieldLanguage:
		return s.Language
	case FieldCounter:
		return s.Counter
	}
	return nil
}

// Change is one field that differs between two states.
type Change struct {
	Field Field
	Old   any
	New   any
}

// Diff lists the fields that differ between prev and next, in record order.
// Raw bytes are not compared.
func Diff(prev, next State) []Change {
	var changes []Change
	for _, f := range Fields() {
		o, n := prev.Value(f), next.Value(f)
		if o != n {
			changes = append(changes, Change{Field: f, Old: o, New: n})
		}
	}
	return changes
}
