// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package ekg

import "fmt"

// Decode parses a configuration record.
//
// Decode never clamps: every field is either inside its domain or the whole
// record is rejected. The returned state keeps a copy of the input in Raw.
func Decode(b []byte) (State, error) {
	if len(b) != RecordSize {
		return State{}, fmt.Errorf("%w: got %d bytes, want %d", ErrLength, len(b), RecordSize)
	}

	var s State
	copy(s.Raw[:], b)
	r := &s.Raw

	// The altitude high byte always carries the bias bit
	if r[OffsetAltitudeHigh] < AltitudeBias {
		return State{}, fmt.Errorf("%w: altitude high byte 0x%02X lacks bias bit", ErrMalformed, r[OffsetAltitudeHigh])
	}

	s.ScheduleEnabled = r[OffsetFlags]&FlagScheduleEnabled != 0
	if r[OffsetSettings]&FlagCelsius != 0 {
		s.Units = Celsius
	} else {
		s.Units = Fahrenheit
	}
	s.Preboil = r[OffsetSettings]&FlagPreboil != 0

	s.AltitudeM = int(r[OffsetAltitudeHigh]&AltitudeHighMask)<<8 | int(r[OffsetAltitudeLow])
	if s.AltitudeM > AltitudeMax {
		return State{}, &FieldError{Field: FieldAltitude, Value: s.AltitudeM}
	}

	if !validTempWire(r[OffsetTargetTemp]) {
		return State{}, &FieldError{Field: FieldTargetTemp, Value: int(r[OffsetTargetTemp])}
	}
	s.TargetTemp = Temp(r[OffsetTargetTemp])

	if v := r[OffsetScheduleTemp]; v != ScheduleTempDisabled {
		if !validTempWire(v) {
			return State{}, &FieldError{Field: FieldScheduleTemp, Value: int(v)}
		}
		s.ScheduleTemp = SomeTemp(Temp(v))
	}

	checks := []struct {
		field  Field
		offset int
		max    int
		dst    *int
	}{
		{FieldScheduleMinute, OffsetScheduleMinute, MinuteMax, &s.ScheduleMinute},
		{FieldScheduleHour, OffsetScheduleHour, HourMax, &s.ScheduleHour},
		{FieldClockMinute, OffsetClockMinute, MinuteMax, &s.ClockMinute},
		{FieldClockHour, OffsetClockHour, HourMax, &s.ClockHour},
		{FieldHold, OffsetHold, HoldMax, &s.HoldMinutes},
		{FieldChime, OffsetChime, ChimeMax, &s.ChimeVolume},
	}
	for _, c := range checks {
		v := int(r[c.offset])
		if v > c.max {
			return State{}, &FieldError{Field: c.field, Value: v}
		}
		*c.dst = v
	}

	if r[OffsetClockMode] > clockModeMax {
		return State{}, &FieldError{Field: FieldClockMode, Value: int(r[OffsetClockMode])}
	}
	s.ClockMode = ClockMode(r[OffsetClockMode])

	s.Language = Language(r[OffsetLanguage])
	s.Counter = r[OffsetCounter]

	return s, nil
}

func validTempWire(v byte) bool {
	return v >= tempWireMin && v <= tempWireMax
}
