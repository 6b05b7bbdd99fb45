// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package ekg

import (
	"errors"
	"strings"
	"testing"
)

// ============================================================
// Test Records
// ============================================================

// sampleRecord is a kettle set to 85°C, Celsius, schedule enabled at 07:30
// with no schedule temperature, clock 08:00 digital, chime 5, counter 1.
var sampleRecord = []byte{
	0x08, 0x02, 0x00, 0x80, 0xAA, 0x00, 0xC0, 0x00,
	0x1E, 0x07, 0x00, 0x08, 0x01, 0x00, 0x05, 0x00,
	0x01,
}

func withByte(offset int, v byte) []byte {
	b := make([]byte, len(sampleRecord))
	copy(b, sampleRecord)
	b[offset] = v
	return b
}

// ============================================================
// Decode Tests
// ============================================================

func TestDecode_SampleRecord(t *testing.T) {
	s, err := Decode(sampleRecord)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if !s.ScheduleEnabled {
		t.Error("expected schedule enabled")
	}
	if s.Units != Celsius {
		t.Errorf("expected Celsius, got %v", s.Units)
	}
	if s.Preboil {
		t.Error("expected pre-boil disabled")
	}
	if s.AltitudeM != 0 {
		t.Errorf("expected altitude 0, got %d", s.AltitudeM)
	}
	if s.TargetTemp.Celsius() != 85.0 {
		t.Errorf("expected target 85.0, got %v", s.TargetTemp.Celsius())
	}
	if s.ScheduleTemp.Valid {
		t.Errorf("expected schedule temperature disabled, got %v", s.ScheduleTemp)
	}
	if s.ScheduleHour != 7 || s.ScheduleMinute != 30 {
		t.Errorf("expected schedule 07:30, got %02d:%02d", s.ScheduleHour, s.ScheduleMinute)
	}
	if s.ClockHour != 8 || s.ClockMinute != 0 {
		t.Errorf("expected clock 08:00, got %02d:%02d", s.ClockHour, s.ClockMinute)
	}
	if s.ClockMode != ClockDigital {
		t.Errorf("expected digital clock, got %v", s.ClockMode)
	}
	if s.HoldMinutes != 0 {
		t.Errorf("expected hold 0, got %d", s.HoldMinutes)
	}
	if s.ChimeVolume != 5 {
		t.Errorf("expected chime 5, got %d", s.ChimeVolume)
	}
	if s.Language != LanguageEnglish {
		t.Errorf("expected English, got %v", s.Language)
	}
	if s.Counter != 1 {
		t.Errorf("expected counter 1, got %d", s.Counter)
	}
}

func TestDecode_Length(t *testing.T) {
	for _, n := range []int{0, 1, 16, 18, 64} {
		_, err := Decode(make([]byte, n))
		if !errors.Is(err, ErrLength) {
			t.Errorf("length %d: expected ErrLength, got %v", n, err)
		}
	}
}

func TestDecode_FieldOutOfRange(t *testing.T) {
	tests := []struct {
		name   string
		offset int
		value  byte
		field  Field
	}{
		{"target below 40C", OffsetTargetTemp, 79, FieldTargetTemp},
		{"target above 100C", OffsetTargetTemp, 201, FieldTargetTemp},
		{"schedule temp out of range", OffsetScheduleTemp, 0x00, FieldScheduleTemp},
		{"schedule minute", OffsetScheduleMinute, 60, FieldScheduleMinute},
		{"schedule hour", OffsetScheduleHour, 24, FieldScheduleHour},
		{"clock minute", OffsetClockMinute, 60, FieldClockMinute},
		{"clock hour", OffsetClockHour, 24, FieldClockHour},
		{"clock mode", OffsetClockMode, 3, FieldClockMode},
		{"hold", OffsetHold, 64, FieldHold},
		{"chime", OffsetChime, 11, FieldChime},
		{"altitude", OffsetAltitudeHigh, 0xFF, FieldAltitude},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(withByte(tt.offset, tt.value))
			if !errors.Is(err, ErrFieldOutOfRange) {
				t.Fatalf("expected ErrFieldOutOfRange, got %v", err)
			}
			var fe *FieldError
			if !errors.As(err, &fe) {
				t.Fatalf("expected *FieldError, got %T", err)
			}
			if fe.Field != tt.field {
				t.Errorf("expected field %s, got %s", tt.field, fe.Field)
			}
		})
	}
}

func TestDecode_MissingAltitudeBias(t *testing.T) {
	_, err := Decode(withByte(OffsetAltitudeHigh, 0x00))
	if !errors.Is(err, ErrMalformed) {
		t.Errorf("expected ErrMalformed, got %v", err)
	}
}

func TestDecode_ScheduleTempSentinel(t *testing.T) {
	// 0xC0 is 96°C as a number but always means disabled
	s, err := Decode(withByte(OffsetScheduleTemp, ScheduleTempDisabled))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if s.ScheduleTemp.Valid {
		t.Errorf("sentinel decoded as %v", s.ScheduleTemp)
	}

	s, err = Decode(withByte(OffsetScheduleTemp, 184))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if !s.ScheduleTemp.Valid || s.ScheduleTemp.Value.Celsius() != 92 {
		t.Errorf("expected 92°C, got %v", s.ScheduleTemp)
	}
}

func TestDecode_Altitude(t *testing.T) {
	b := withByte(OffsetAltitudeLow, 0x84)
	b[OffsetAltitudeHigh] = 0x83 // 0x384 = 900
	s, err := Decode(b)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if s.AltitudeM != 900 {
		t.Errorf("expected 900 m, got %d", s.AltitudeM)
	}
}

func TestDecode_Flags(t *testing.T) {
	b := withByte(OffsetSettings, FlagPreboil)
	b[OffsetFlags] = 0x00
	s, err := Decode(b)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if s.Units != Fahrenheit {
		t.Errorf("expected Fahrenheit, got %v", s.Units)
	}
	if !s.Preboil {
		t.Error("expected pre-boil enabled")
	}
	if s.ScheduleEnabled {
		t.Error("expected schedule disabled")
	}
}

func TestDecode_HalfDegree(t *testing.T) {
	s, err := Decode(withByte(OffsetTargetTemp, 185))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if s.TargetTemp.Celsius() != 92.5 {
		t.Errorf("expected 92.5, got %v", s.TargetTemp.Celsius())
	}
}

// ============================================================
// Encode Tests
// ============================================================

func TestEncode_RoundTrip(t *testing.T) {
	records := [][]byte{
		sampleRecord,
		withByte(OffsetReserved5, 0x5A),
		withByte(OffsetReserved7, 0xFF),
		withByte(OffsetFlags, 0xF7),    // unknown bits, schedule off
		withByte(OffsetSettings, 0xF5), // unknown bits, Fahrenheit, no pre-boil
		withByte(OffsetLanguage, 0x42),
		withByte(OffsetCounter, 0xFF),
		withByte(OffsetScheduleTemp, 200),
	}

	for i, in := range records {
		s, err := Decode(in)
		if err != nil {
			t.Fatalf("record %d: Decode failed: %v", i, err)
		}
		out := Encode(s)
		for j := range in {
			if out[j] != in[j] {
				t.Errorf("record %d: byte %d: expected 0x%02X, got 0x%02X", i, j, in[j], out[j])
			}
		}
	}
}

func TestEncode_RecomputesFlags(t *testing.T) {
	s, err := Decode(sampleRecord)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	s.ScheduleEnabled = false
	s.Units = Fahrenheit
	s.Preboil = true

	r := Encode(s)
	if r[OffsetFlags]&FlagScheduleEnabled != 0 {
		t.Error("schedule bit should be clear")
	}
	if r[OffsetSettings]&FlagCelsius != 0 {
		t.Error("Celsius bit should be clear")
	}
	if r[OffsetSettings]&FlagPreboil == 0 {
		t.Error("pre-boil bit should be set")
	}
}

func TestEncode_ZeroStateHasAltitudeBias(t *testing.T) {
	r := Encode(State{AltitudeM: 300})
	if r[OffsetAltitudeHigh] != 0x81 || r[OffsetAltitudeLow] != 0x2C {
		t.Errorf("expected 2C 81, got %02X %02X", r[OffsetAltitudeLow], r[OffsetAltitudeHigh])
	}
	if r[OffsetScheduleTemp] != ScheduleTempDisabled {
		t.Errorf("expected disabled sentinel, got 0x%02X", r[OffsetScheduleTemp])
	}
}

// ============================================================
// Counter Tests
// ============================================================

func TestNextCounter(t *testing.T) {
	tests := []struct {
		in, want uint8
	}{
		{0, 1},
		{1, 2},
		{127, 128},
		{254, 255},
		{255, 0},
	}
	for _, tt := range tests {
		if got := NextCounter(tt.in); got != tt.want {
			t.Errorf("NextCounter(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

// ============================================================
// Diff and Formatter Tests
// ============================================================

func TestDiff(t *testing.T) {
	prev, err := Decode(sampleRecord)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	next := prev
	next.TargetTemp = TempFromCelsius(90)
	next.ChimeVolume = 0
	next.Counter = 2

	changes := Diff(prev, next)
	want := []Field{FieldTargetTemp, FieldChime, FieldCounter}
	if len(changes) != len(want) {
		t.Fatalf("expected %d changes, got %d: %v", len(want), len(changes), changes)
	}
	for i, f := range want {
		if changes[i].Field != f {
			t.Errorf("change %d: expected %s, got %s", i, f, changes[i].Field)
		}
	}
	if changes[0].Old != TempFromCelsius(85) || changes[0].New != TempFromCelsius(90) {
		t.Errorf("unexpected target change: %v -> %v", changes[0].Old, changes[0].New)
	}

	if len(Diff(prev, prev)) != 0 {
		t.Error("identical states should not differ")
	}
}

func TestFormatState(t *testing.T) {
	s, err := Decode(sampleRecord)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	out := FormatState(s)
	for _, want := range []string{"85.0°C", "08:00 (digital)", "07:30 at no temperature", "5/10"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}

	if got := FormatRecord(Encode(s)); !strings.HasPrefix(got, "08 02 00 80 AA") {
		t.Errorf("unexpected record dump: %s", got)
	}
}

func TestTempConversions(t *testing.T) {
	if got := TempFromFahrenheit(212).Celsius(); got != 100 {
		t.Errorf("212°F: expected 100°C, got %v", got)
	}
	if got := TempFromFahrenheit(104).Celsius(); got != 40 {
		t.Errorf("104°F: expected 40°C, got %v", got)
	}
	if got := TempFromCelsius(85).Fahrenheit(); got != 185 {
		t.Errorf("85°C: expected 185°F, got %v", got)
	}
	if got := TempFromCelsius(92.3); got != 185 {
		t.Errorf("92.3°C: expected wire 185, got %d", got)
	}
}
