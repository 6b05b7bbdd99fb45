// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package ekg

import "fmt"

// Snapshot is the JSON form of a State. Temperatures are in Celsius
// whatever the display unit.
type Snapshot struct {
	TargetTempC     float64  `json:"target_temp_c"`
	Units           string   `json:"units"`
	Preboil         bool     `json:"preboil"`
	AltitudeM       int      `json:"altitude_m"`
	HoldMinutes     int      `json:"hold_minutes"`
	ChimeVolume     int      `json:"chime_volume"`
	ClockMode       string   `json:"clock_mode"`
	Clock           string   `json:"clock"`
	Language        string   `json:"language"`
	ScheduleEnabled bool     `json:"schedule_enabled"`
	ScheduleTime    string   `json:"schedule_time"`
	ScheduleTempC   *float64 `json:"schedule_temp_c"`
	Counter         uint8    `json:"write_counter"`
	Raw             string   `json:"raw"`
}

// NewSnapshot converts s for JSON output.
func NewSnapshot(s State) Snapshot {
	snap := Snapshot{
		TargetTempC:     s.TargetTemp.Celsius(),
		Units:           s.Units.String(),
		Preboil:         s.Preboil,
		AltitudeM:       s.AltitudeM,
		HoldMinutes:     s.HoldMinutes,
		ChimeVolume:     s.ChimeVolume,
		ClockMode:       s.ClockMode.String(),
		Clock:           fmt.Sprintf("%02d:%02d", s.ClockHour, s.ClockMinute),
		Language:        s.Language.String(),
		ScheduleEnabled: s.ScheduleEnabled,
		ScheduleTime:    fmt.Sprintf("%02d:%02d", s.ScheduleHour, s.ScheduleMinute),
		Counter:         s.Counter,
		Raw:             FormatRecord(s.Raw),
	}
	if s.ScheduleTemp.Valid {
		c := s.ScheduleTemp.Value.Celsius()
		snap.ScheduleTempC = &c
	}
	return snap
}

// FormatValue renders a field value as plain text, the way it is published
// on per-field topics: numbers bare, temperatures in Celsius, booleans as
// on/off and enums by name.
func FormatValue(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case bool:
		if v {
			return "on"
		}
		return "off"
	case Temp:
		return fmt.Sprintf("%g", v.Celsius())
	case OptionalTemp:
		if !v.Valid {
			return "none"
		}
		return fmt.Sprintf("%g", v.Value.Celsius())
	case fmt.Stringer:
		return v.String()
	}
	return fmt.Sprint(v)
}
