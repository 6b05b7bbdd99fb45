// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package relay

import "fmt"

// Encode creates a complete wire frame for m, including framing and byte
// stuffing.
func Encode(m Message) ([]byte, error) {
	payload, err := marshalMessage(m)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPayload, err)
	}
	if len(payload) > MaxPayloadSize {
		return nil, fmt.Errorf("%w: payload too large: %d bytes (max %d)", ErrPayload, len(payload), MaxPayloadSize)
	}

	// LEN + payload is covered by the CRC and stuffed
	data := make([]byte, 0, MaxFrameSize)
	data = append(data, byte(len(payload)))
	data = append(data, payload...)
	crc := CalculateCRC(data)
	data = append(data, byte(crc>>8), byte(crc))

	frame := make([]byte, 0, len(data)*2+2)
	frame = append(frame, StartByte)
	frame = appendStuffed(frame, data)
	frame = append(frame, EndByte)
	return frame, nil
}

// appendStuffed escapes START, END and ESC as ESC + (byte XOR EscXor).
func appendStuffed(dst, data []byte) []byte {
	for _, b := range data {
		if b == StartByte || b == EndByte || b == EscByte {
			dst = append(dst, EscByte, b^EscXor)
		} else {
			dst = append(dst, b)
		}
	}
	return dst
}
