// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package ekg

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Record is the raw 17-byte configuration record.
type Record [RecordSize]byte

// Temp is a temperature in half-degree Celsius steps, exactly as stored on the
// wire (°C * 2).
type Temp uint8

// TempFromCelsius rounds c to the nearest half degree.
// Values outside the byte range saturate.
func TempFromCelsius(c float64) Temp {
	v := math.Round(c * TempScale)
	if v < 0 {
		return 0
	}
	if v > math.MaxUint8 {
		return math.MaxUint8
	}
	return Temp(v)
}

// TempFromFahrenheit converts f to Celsius and rounds to the nearest half degree.
func TempFromFahrenheit(f float64) Temp {
	return TempFromCelsius((f - 32) * 5 / 9)
}

// Celsius returns the temperature in degrees Celsius.
func (t Temp) Celsius() float64 {
	return float64(t) / TempScale
}

// Fahrenheit returns the temperature in degrees Fahrenheit, rounded to a
// whole degree the way the kettle display shows it.
func (t Temp) Fahrenheit() float64 {
	return math.Round(t.Celsius()*9/5 + 32)
}

func (t Temp) String() string {
	return fmt.Sprintf("%.1f°C", t.Celsius())
}

// OptionalTemp is a temperature that may be absent.
type OptionalTemp struct {
	Value Temp
	Valid bool
}

// SomeTemp returns a present OptionalTemp.
func SomeTemp(t Temp) OptionalTemp {
	return OptionalTemp{Value: t, Valid: true}
}

func (o OptionalTemp) String() string {
	if !o.Valid {
		return "disabled"
	}
	return o.Value.String()
}

// Units selects the temperature unit shown on the kettle display.
type Units uint8

const (
	Celsius Units = iota
	Fahrenheit
)

func (u Units) String() string {
	switch u {
	case Celsius:
		return "C"
	case Fahrenheit:
		return "F"
	}
	return fmt.Sprintf("Units(%d)", uint8(u))
}

// ParseUnits accepts "c", "f", "celsius" or "fahrenheit" in any case.
func ParseUnits(s string) (Units, error) {
	switch strings.ToLower(s) {
	case "c", "celsius":
		return Celsius, nil
	case "f", "fahrenheit":
		return Fahrenheit, nil
	}
	return 0, fmt.Errorf("%w: unknown units %q", ErrInvalidCommand, s)
}

// ClockMode selects how the kettle shows the time of day.
type ClockMode uint8

const (
	ClockOff ClockMode = iota
	ClockDigital
	ClockAnalog
)

func (m ClockMode) String() string {
	switch m {
	case ClockOff:
		return "off"
	case ClockDigital:
		return "digital"
	case ClockAnalog:
		return "analog"
	}
	return fmt.Sprintf("ClockMode(%d)", uint8(m))
}

// ParseClockMode parses "off", "digital" or "analog".
func ParseClockMode(s string) (ClockMode, error) {
	for m := ClockOff; m <= clockModeMax; m++ {
		if strings.ToLower(s) == m.String() {
			return m, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown clock mode %q", ErrInvalidCommand, s)
}

// Language is the menu language code. Unknown codes are carried unchanged.
type Language uint8

const (
	LanguageEnglish Language = iota
	LanguageFrench
	LanguageSpanish
	LanguageSimplifiedChinese
	LanguageTraditionalChinese
)

var languageNames = map[Language]string{
	LanguageEnglish:            "en",
	LanguageFrench:             "fr",
	LanguageSpanish:            "es",
	LanguageSimplifiedChinese:  "zh-Hans",
	LanguageTraditionalChinese: "zh-Hant",
}

func (l Language) String() string {
	if name, ok := languageNames[l]; ok {
		return name
	}
	return fmt.Sprintf("lang-%d", uint8(l))
}

// ParseLanguage accepts a known language tag or a raw numeric code.
func ParseLanguage(s string) (Language, error) {
	for l, name := range languageNames {
		if strings.EqualFold(s, name) {
			return l, nil
		}
	}
	if code, err := strconv.ParseUint(s, 10, 8); err == nil {
		return Language(code), nil
	}
	return 0, fmt.Errorf("%w: unknown language %q", ErrInvalidCommand, s)
}

// State is the decoded view of one configuration record.
//
// State is a plain value. Raw is an array, so copies never share storage.
type State struct {
	ScheduleEnabled bool
	Units           Units
	Preboil         bool
	AltitudeM       int
	TargetTemp      Temp
	ScheduleTemp    OptionalTemp
	ScheduleMinute  int
	ScheduleHour    int
	ClockMinute     int
	ClockHour       int
	ClockMode       ClockMode
	HoldMinutes     int
	ChimeVolume     int
	Language        Language
	Counter         uint8

	// Raw is the record this state was decoded from. Encode starts from it
	// so bytes without a known meaning are written back unchanged.
	Raw Record
}
