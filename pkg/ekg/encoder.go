// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package ekg

// Encode serializes a state into a configuration record.
//
// Encoding starts from s.Raw, so reserved bytes and unknown flag bits are
// written back as they were read. Every known field, including the flag bits,
// is recomputed from the State fields.
func Encode(s State) Record {
	r := s.Raw

	r[OffsetFlags] = setBit(r[OffsetFlags], FlagScheduleEnabled, s.ScheduleEnabled)
	r[OffsetSettings] = setBit(r[OffsetSettings], FlagCelsius, s.Units == Celsius)
	r[OffsetSettings] = setBit(r[OffsetSettings], FlagPreboil, s.Preboil)

	r[OffsetAltitudeLow] = byte(s.AltitudeM)
	r[OffsetAltitudeHigh] = AltitudeBias | byte(s.AltitudeM>>8)&AltitudeHighMask

	r[OffsetTargetTemp] = byte(s.TargetTemp)
	if s.ScheduleTemp.Valid {
		r[OffsetScheduleTemp] = byte(s.ScheduleTemp.Value)
	} else {
		r[OffsetScheduleTemp] = ScheduleTempDisabled
	}

	r[OffsetScheduleMinute] = byte(s.ScheduleMinute)
	r[OffsetScheduleHour] = byte(s.ScheduleHour)
	r[OffsetClockMinute] = byte(s.ClockMinute)
	r[OffsetClockHour] = byte(s.ClockHour)
	r[OffsetClockMode] = byte(s.ClockMode)
	r[OffsetHold] = byte(s.HoldMinutes)
	r[OffsetChime] = byte(s.ChimeVolume)
	r[OffsetLanguage] = byte(s.Language)
	r[OffsetCounter] = s.Counter

	return r
}

// Bytes returns the record as a freshly allocated slice.
func (r Record) Bytes() []byte {
	b := make([]byte, RecordSize)
	copy(b, r[:])
	return b
}

func setBit(b, mask byte, on bool) byte {
	if on {
		return b | mask
	}
	return b &^ mask
}
