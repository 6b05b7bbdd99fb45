// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package ekg

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// settable maps the names accepted by ParseCommand to a parser. Short
// aliases are accepted next to the field names used by Diff.
var settable = map[string]func(string) (Command, error){
	"target_temp":  parseTargetTemp,
	"temp":         parseTargetTemp,
	"units":        parseUnitsCommand,
	"preboil":      parsePreboil,
	"altitude_m":   parseAltitude,
	"altitude":     parseAltitude,
	"hold_minutes": parseHold,
	"hold":         parseHold,
	"chime_volume": parseChime,
	"chime":        parseChime,
	"clock_mode":   parseClockModeCommand,
	"language":     parseLanguageCommand,
}

// SettableFields returns the canonical names ParseCommand accepts.
func SettableFields() []string {
	return []string{"target_temp", "units", "preboil", "altitude_m", "hold_minutes", "chime_volume", "clock_mode", "language"}
}

// ParseCommand builds a single-field command from a field name and a textual
// value, e.g. ("target_temp", "185F") or ("preboil", "on").
//
// Temperatures without a unit suffix are read as Celsius.
func ParseCommand(field, value string) (Command, error) {
	parse, ok := settable[strings.ToLower(strings.TrimSpace(field))]
	if !ok {
		return nil, fmt.Errorf("%w: unknown field %q", ErrInvalidCommand, field)
	}
	return parse(strings.TrimSpace(value))
}

// ParseTemp reads "85", "85c", "185F" or "185°F".
func ParseTemp(s string) (float64, Units, error) {
	s = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(s)), "°")
	unit := Celsius
	switch {
	case strings.HasSuffix(s, "f"):
		unit = Fahrenheit
		s = s[:len(s)-1]
	case strings.HasSuffix(s, "c"):
		s = s[:len(s)-1]
	}
	s = strings.TrimSuffix(s, "°")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, unit, fmt.Errorf("%w: bad temperature %q", ErrInvalidCommand, s)
	}
	return v, unit, nil
}

// ParseBool accepts on/off, true/false, yes/no and 1/0.
func ParseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "on", "true", "yes", "1":
		return true, nil
	case "off", "false", "no", "0":
		return false, nil
	}
	return false, fmt.Errorf("%w: expected on or off, got %q", ErrInvalidCommand, s)
}

func parseTargetTemp(s string) (Command, error) {
	v, unit, err := ParseTemp(s)
	if err != nil {
		return nil, err
	}
	return SetTargetTemp{Value: v, Unit: unit}, nil
}

func parseUnitsCommand(s string) (Command, error) {
	u, err := ParseUnits(s)
	if err != nil {
		return nil, err
	}
	return SetUnits{Units: u}, nil
}

func parsePreboil(s string) (Command, error) {
	on, err := ParseBool(s)
	if err != nil {
		return nil, err
	}
	return SetPreboil{Enabled: on}, nil
}

func parseInt(name, s string) (int, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: bad %s %q", ErrInvalidCommand, name, s)
	}
	// Converting an out-of-range float to int is implementation-defined
	return int(max(min(v, math.MaxInt32), math.MinInt32)), nil
}

func parseAltitude(s string) (Command, error) {
	m, err := parseInt("altitude", strings.TrimSuffix(s, "m"))
	if err != nil {
		return nil, err
	}
	return SetAltitude{Meters: m}, nil
}

func parseHold(s string) (Command, error) {
	if b, err := ParseBool(s); err == nil && !b {
		return SetHold{Minutes: 0}, nil
	}
	m, err := parseInt("hold", s)
	if err != nil {
		return nil, err
	}
	return SetHold{Minutes: m}, nil
}

func parseChime(s string) (Command, error) {
	if strings.EqualFold(s, "mute") || strings.EqualFold(s, "off") {
		return SetChimeVolume{Level: 0}, nil
	}
	l, err := parseInt("chime volume", s)
	if err != nil {
		return nil, err
	}
	return SetChimeVolume{Level: l}, nil
}

func parseClockModeCommand(s string) (Command, error) {
	m, err := ParseClockMode(s)
	if err != nil {
		return nil, err
	}
	return SetClockMode{Mode: m}, nil
}

func parseLanguageCommand(s string) (Command, error) {
	l, err := ParseLanguage(s)
	if err != nil {
		return nil, err
	}
	return SetLanguage{Language: l}, nil
}
