// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package ekg

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		field, value string
		want         Command
	}{
		{"target_temp", "85", SetTargetTemp{Value: 85, Unit: Celsius}},
		{"temp", "185F", SetTargetTemp{Value: 185, Unit: Fahrenheit}},
		{"target_temp", "93.5°C", SetTargetTemp{Value: 93.5, Unit: Celsius}},
		{"target_temp", "200°f", SetTargetTemp{Value: 200, Unit: Fahrenheit}},
		{"units", "fahrenheit", SetUnits{Units: Fahrenheit}},
		{"preboil", "on", SetPreboil{Enabled: true}},
		{"PREBOIL", "false", SetPreboil{Enabled: false}},
		{"altitude", "1500m", SetAltitude{Meters: 1500}},
		{"altitude_m", "300", SetAltitude{Meters: 300}},
		{"hold", "off", SetHold{Minutes: 0}},
		{"hold_minutes", "45", SetHold{Minutes: 45}},
		{"chime", "mute", SetChimeVolume{Level: 0}},
		{"chime_volume", "7", SetChimeVolume{Level: 7}},
		{"clock_mode", "Analog", SetClockMode{Mode: ClockAnalog}},
		{"language", "fr", SetLanguage{Language: LanguageFrench}},
		{"altitude", "1e30", SetAltitude{Meters: math.MaxInt32}},
		{"hold", "1e19", SetHold{Minutes: math.MaxInt32}},
		{"chime", "-1e19", SetChimeVolume{Level: math.MinInt32}},
	}

	for _, tt := range tests {
		t.Run(tt.field+"="+tt.value, func(t *testing.T) {
			got, err := ParseCommand(tt.field, tt.value)
			if err != nil {
				t.Fatalf("ParseCommand failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %#v, got %#v", tt.want, got)
			}
		})
	}
}

func TestParseCommand_Rejects(t *testing.T) {
	tests := []struct {
		field, value string
	}{
		{"colour", "red"},
		{"target_temp", "hot"},
		{"preboil", "maybe"},
		{"altitude", "NaN"},
		{"hold", "Inf"},
		{"clock_mode", "sundial"},
		{"units", "kelvin"},
	}

	for _, tt := range tests {
		t.Run(tt.field+"="+tt.value, func(t *testing.T) {
			_, err := ParseCommand(tt.field, tt.value)
			if !errors.Is(err, ErrInvalidCommand) {
				t.Errorf("expected ErrInvalidCommand, got %v", err)
			}
		})
	}
}

func TestParseCommand_HugeValuesClampToNearestBound(t *testing.T) {
	tests := []struct {
		field, value string
		get          func(State) int
		want         int
	}{
		{"altitude", "1e30", func(s State) int { return s.AltitudeM }, AltitudeMenuMax},
		{"altitude", "-1e30", func(s State) int { return s.AltitudeM }, 0},
		{"hold", "1e19", func(s State) int { return s.HoldMinutes }, HoldMax},
		{"chime", "1e19", func(s State) int { return s.ChimeVolume }, ChimeMax},
		{"chime", "-1e19", func(s State) int { return s.ChimeVolume }, 0},
	}

	for _, tt := range tests {
		t.Run(tt.field+"="+tt.value, func(t *testing.T) {
			cmd, err := ParseCommand(tt.field, tt.value)
			if err != nil {
				t.Fatalf("ParseCommand failed: %v", err)
			}
			next, err := cmd.Apply(sampleState(t))
			if err != nil {
				t.Fatalf("Apply failed: %v", err)
			}
			if got := tt.get(next); got != tt.want {
				t.Errorf("expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestSettableFields_AllParse(t *testing.T) {
	for _, f := range SettableFields() {
		if _, ok := settable[f]; !ok {
			t.Errorf("field %s has no parser", f)
		}
	}
}

func TestSnapshot_JSON(t *testing.T) {
	s := sampleState(t)
	data, err := json.Marshal(NewSnapshot(s))
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if got["target_temp_c"] != s.TargetTemp.Celsius() {
		t.Errorf("target_temp_c: expected %v, got %v", s.TargetTemp.Celsius(), got["target_temp_c"])
	}
	if got["raw"] != FormatRecord(s.Raw) {
		t.Errorf("raw: expected %q, got %q", FormatRecord(s.Raw), got["raw"])
	}
	if s.ScheduleTemp.Valid == (got["schedule_temp_c"] == nil) {
		t.Errorf("schedule_temp_c presence does not match %v", s.ScheduleTemp)
	}
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{true, "on"},
		{false, "off"},
		{Temp(170), "85"},
		{Temp(187), "93.5"},
		{OptionalTemp{}, "none"},
		{SomeTemp(Temp(180)), "90"},
		{Fahrenheit, "F"},
		{ClockDigital, "digital"},
		{42, "42"},
		{uint8(7), "7"},
	}
	for _, tt := range tests {
		if got := FormatValue(tt.in); got != tt.want {
			t.Errorf("FormatValue(%#v): expected %q, got %q", tt.in, tt.want, got)
		}
	}
}
