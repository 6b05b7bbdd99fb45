// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package relay

// Framing bytes
const (
	StartByte = 0x7E
	EndByte   = 0x7F
	EscByte   = 0x7D
	EscXor    = 0x20
)

// CRC-16-CCITT parameters
const (
	crcPolynomial = 0x1021
	crcInitial    = 0xFFFF
)

// Size limits
const (
	MaxPayloadSize = 0xFF
	// LEN + payload + CRC before stuffing
	MaxFrameSize = 1 + MaxPayloadSize + 2
)

// Op identifies a relay message.
type Op uint8

// Host to relay
const (
	OpConnect    Op = 0x10
	OpRead       Op = 0x11
	OpWrite      Op = 0x12
	OpDisconnect Op = 0x13
	OpScan       Op = 0x14
)

// Relay to host
const (
	OpAck        Op = 0x20
	OpData       Op = 0x21
	OpScanResult Op = 0x22
	OpScanDone   Op = 0x23
	OpNotify     Op = 0x24
	OpError      Op = 0xE0
)

// Payload map keys
const (
	KeyAddress        = 0 // CONNECT, SCAN_RESULT
	KeyService        = 1 // CONNECT
	KeyCharacteristic = 2 // CONNECT
	KeyData           = 0 // WRITE, DATA, NOTIFY
	KeyDurationMs     = 0 // SCAN
	KeyName           = 1 // SCAN_RESULT
	KeyRSSI           = 2 // SCAN_RESULT
	KeyCode           = 0 // ERROR
	KeyMessage        = 1 // ERROR
)

// Error codes carried by ERROR messages
const (
	CodeUnknown      = 0
	CodeNotConnected = 1
	CodeNotFound     = 2
	CodeGATT         = 3
	CodeBusy         = 4
	CodeTimeout      = 5
)
