// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package kettle

// LinkState is the lifecycle state of the session's link.
type LinkState int

const (
	Disconnected LinkState = iota
	Connecting
	Connected
	Reading
	Writing
)

func (s LinkState) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Reading:
		return "reading"
	case Writing:
		return "writing"
	}
	return "unknown"
}
