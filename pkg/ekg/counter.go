// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package ekg

// NextCounter returns the write counter to send after observing current.
// The counter wraps from 255 to 0.
func NextCounter(current uint8) uint8 {
	return current + 1
}
