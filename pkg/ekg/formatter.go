// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package ekg

import (
	"fmt"
	"strings"
)

// FormatState formats a state into a human-readable, multi-line string.
func FormatState(s State) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Target:      %s", FormatTemp(s.TargetTemp, s.Units))
	if s.Preboil {
		b.WriteString(" (pre-boil)")
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "Units:       %s\n", s.Units)
	fmt.Fprintf(&b, "Hold:        %s\n", formatHold(s.HoldMinutes))
	fmt.Fprintf(&b, "Altitude:    %d m\n", s.AltitudeM)
	fmt.Fprintf(&b, "Chime:       %s\n", formatChime(s.ChimeVolume))
	fmt.Fprintf(&b, "Clock:       %02d:%02d (%s)\n", s.ClockHour, s.ClockMinute, s.ClockMode)
	fmt.Fprintf(&b, "Language:    %s\n", s.Language)
	fmt.Fprintf(&b, "Schedule:    %s\n", FormatSchedule(s))
	fmt.Fprintf(&b, "Counter:     %d\n", s.Counter)

	return b.String()
}

// FormatSchedule returns a one-line schedule summary.
func FormatSchedule(s State) string {
	if !s.ScheduleEnabled {
		return "off"
	}
	temp := "no temperature"
	if s.ScheduleTemp.Valid {
		temp = FormatTemp(s.ScheduleTemp.Value, s.Units)
	}
	return fmt.Sprintf("%02d:%02d at %s", s.ScheduleHour, s.ScheduleMinute, temp)
}

// FormatRecord formats the raw bytes of a record with their offsets.
func FormatRecord(r Record) string {
	var b strings.Builder
	for i, v := range r {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%02X", v)
	}
	return b.String()
}

// FormatChanges formats a diff as "field: old -> new" lines.
func FormatChanges(changes []Change) string {
	var b strings.Builder
	for _, c := range changes {
		fmt.Fprintf(&b, "%s: %v -> %v\n", c.Field, c.Old, c.New)
	}
	return b.String()
}

// FormatTemp formats t in unit u.
func FormatTemp(t Temp, u Units) string {
	if u == Fahrenheit {
		return fmt.Sprintf("%.0f°F", t.Fahrenheit())
	}
	return t.String()
}

func formatHold(minutes int) string {
	if minutes == 0 {
		return "off"
	}
	return fmt.Sprintf("%d min", minutes)
}

func formatChime(level int) string {
	if level == 0 {
		return "muted"
	}
	return fmt.Sprintf("%d/%d", level, ChimeMax)
}
