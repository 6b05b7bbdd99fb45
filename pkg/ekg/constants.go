// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package ekg

// RecordSize is the fixed length of the kettle configuration record.
const RecordSize = 17

// Record byte offsets
const (
	OffsetFlags          = 0
	OffsetSettings       = 1
	OffsetAltitudeLow    = 2
	OffsetAltitudeHigh   = 3
	OffsetTargetTemp     = 4
	OffsetReserved5      = 5
	OffsetScheduleTemp   = 6
	OffsetReserved7      = 7
	OffsetScheduleMinute = 8
	OffsetScheduleHour   = 9
	OffsetClockMinute    = 10
	OffsetClockHour      = 11
	OffsetClockMode      = 12
	OffsetHold           = 13
	OffsetChime          = 14
	OffsetLanguage       = 15
	OffsetCounter        = 16
)

// Flag bits
const (
	FlagScheduleEnabled = 0x08 // offset 0
	FlagCelsius         = 0x02 // offset 1
	FlagPreboil         = 0x08 // offset 1
)

// Altitude encoding. The high byte carries a fixed bias.
const (
	AltitudeBias     = 0x80
	AltitudeHighMask = 0x7F
	AltitudeMax      = 9999
)

// Altitude limits accepted by the kettle menu
const (
	AltitudeMenuMax  = 3000
	AltitudeMenuStep = 30
)

// Temperature encoding
const (
	TempScale            = 2    // wire value = °C * 2
	ScheduleTempDisabled = 0xC0 // sentinel in OffsetScheduleTemp
	TempMinC             = 40
	TempMaxC             = 100
	TempMinF             = 104
	TempMaxF             = 212
)

// Field limits
const (
	HourMax      = 23
	MinuteMax    = 59
	HoldMax      = 63
	ChimeMax     = 10
	clockModeMax = 2
	tempWireMin  = TempMinC * TempScale
	tempWireMax  = TempMaxC * TempScale
)
