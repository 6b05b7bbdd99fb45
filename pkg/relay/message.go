// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package relay

import (
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

var (
	// ErrFrame is returned for framing violations.
	ErrFrame = errors.New("relay: bad frame")
	// ErrCRC is returned when a frame checksum does not match.
	ErrCRC = errors.New("relay: CRC mismatch")
	// ErrPayload is returned when a frame payload is not a valid message.
	ErrPayload = errors.New("relay: bad payload")
	// ErrRemote is matched by every *RemoteError.
	ErrRemote = errors.New("relay: remote error")
)

// RemoteError is an ERROR message reported by the relay.
type RemoteError struct {
	Code    int
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("relay: %s (code %d)", e.Message, e.Code)
}

func (e *RemoteError) Unwrap() error {
	return ErrRemote
}

// Message is one relay message: an op and its integer-keyed fields.
type Message struct {
	Op     Op
	Fields map[int]any
}

// Connect asks the relay to connect to a peripheral characteristic.
func Connect(address, service, characteristic string) Message {
	return Message{Op: OpConnect, Fields: map[int]any{
		KeyAddress:        address,
		KeyService:        service,
		KeyCharacteristic: characteristic,
	}}
}

// Read asks the relay to read the connected characteristic.
func Read() Message { return Message{Op: OpRead} }

// Write asks the relay to write data to the connected characteristic.
func Write(data []byte) Message {
	return Message{Op: OpWrite, Fields: map[int]any{KeyData: data}}
}

// Disconnect asks the relay to drop the peripheral connection.
func Disconnect() Message { return Message{Op: OpDisconnect} }

// Scan asks the relay to scan for durationMs milliseconds.
func Scan(durationMs int) Message {
	return Message{Op: OpScan, Fields: map[int]any{KeyDurationMs: uint64(durationMs)}}
}

// Ack acknowledges a request.
func Ack() Message { return Message{Op: OpAck} }

// Data carries a characteristic value.
func Data(op Op, data []byte) Message {
	return Message{Op: op, Fields: map[int]any{KeyData: data}}
}

// ScanResult reports one advertising peripheral.
func ScanResult(address, name string, rssi int) Message {
	return Message{Op: OpScanResult, Fields: map[int]any{
		KeyAddress: address,
		KeyName:    name,
		KeyRSSI:    int64(rssi),
	}}
}

// Error reports a failed request.
func Error(code int, msg string) Message {
	return Message{Op: OpError, Fields: map[int]any{KeyCode: uint64(code), KeyMessage: msg}}
}

// Err converts an ERROR message into a *RemoteError. It returns nil for any
// other op.
func (m Message) Err() error {
	if m.Op != OpError {
		return nil
	}
	code, _ := m.Int(KeyCode)
	msg, _ := m.Text(KeyMessage)
	return &RemoteError{Code: int(code), Message: msg}
}

// Bytes extracts a byte string field.
func (m Message) Bytes(key int) ([]byte, bool) {
	v, ok := m.Fields[key].([]byte)
	return v, ok
}

// Text extracts a text string field.
func (m Message) Text(key int) (string, bool) {
	v, ok := m.Fields[key].(string)
	return v, ok
}

// Int extracts an integer field of either sign.
func (m Message) Int(key int) (int64, bool) {
	switch v := m.Fields[key].(type) {
	case int64:
		return v, true
	case uint64:
		return int64(v), true
	case int:
		return int64(v), true
	}
	return 0, false
}

func (m Message) String() string {
	return fmt.Sprintf("%s %v", m.Op, m.Fields)
}

func (op Op) String() string {
	switch op {
	case OpConnect:
		return "CONNECT"
	case OpRead:
		return "READ"
	case OpWrite:
		return "WRITE"
	case OpDisconnect:
		return "DISCONNECT"
	case OpScan:
		return "SCAN"
	case OpAck:
		return "ACK"
	case OpData:
		return "DATA"
	case OpScanResult:
		return "SCAN_RESULT"
	case OpScanDone:
		return "SCAN_DONE"
	case OpNotify:
		return "NOTIFY"
	case OpError:
		return "ERROR"
	}
	return fmt.Sprintf("UNKNOWN_0x%02X", uint8(op))
}

// marshalMessage encodes [op, fields] as CBOR. Empty fields encode as nil.
func marshalMessage(m Message) ([]byte, error) {
	var fields any
	if len(m.Fields) > 0 {
		fields = m.Fields
	}
	return cbor.Marshal([]any{uint64(m.Op), fields})
}

// unmarshalMessage parses a CBOR [op, fields] array.
func unmarshalMessage(data []byte) (Message, error) {
	var raw []any
	if err := cbor.Unmarshal(data, &raw); err != nil {
		return Message{}, fmt.Errorf("%w: %w", ErrPayload, err)
	}
	if len(raw) != 2 {
		return Message{}, fmt.Errorf("%w: expected 2-element array, got %d elements", ErrPayload, len(raw))
	}

	op, ok := raw[0].(uint64)
	if !ok || op > 0xFF {
		return Message{}, fmt.Errorf("%w: bad op %v", ErrPayload, raw[0])
	}
	m := Message{Op: Op(op)}

	switch v := raw[1].(type) {
	case nil:
	case map[any]any:
		m.Fields = make(map[int]any, len(v))
		for key, val := range v {
			switch k := key.(type) {
			case uint64:
				m.Fields[int(k)] = val
			case int64:
				m.Fields[int(k)] = val
			default:
				return Message{}, fmt.Errorf("%w: expected integer map key, got %T", ErrPayload, key)
			}
		}
	default:
		return Message{}, fmt.Errorf("%w: expected map or nil, got %T", ErrPayload, raw[1])
	}
	return m, nil
}
