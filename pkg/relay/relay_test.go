// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package relay

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"
)

// decodeFrame feeds a whole frame to a fresh decoder.
func decodeFrame(t *testing.T, frame []byte) (*Message, error) {
	t.Helper()
	d := NewDecoder()
	var (
		m   *Message
		err error
	)
	for _, b := range frame {
		m, err = d.DecodeByte(b)
		if err != nil || m != nil {
			return m, err
		}
	}
	return m, err
}

// ============================================================
// CRC Tests
// ============================================================

func TestCalculateCRC_CheckValue(t *testing.T) {
	if crc := CalculateCRC([]byte("123456789")); crc != 0x29B1 {
		t.Errorf("expected 0x29B1, got 0x%04X", crc)
	}
	if crc := CalculateCRC(nil); crc != crcInitial {
		t.Errorf("CRC of empty data should be initial value, got 0x%04X", crc)
	}
}

// ============================================================
// Round Trip Tests
// ============================================================

func TestEncodeDecode_RoundTrip(t *testing.T) {
	record := []byte{
		0x08, 0x02, 0x00, 0x80, 0xAA, 0x00, 0xC0, 0x00,
		0x1E, 0x07, 0x00, 0x08, 0x01, 0x00, 0x05, 0x00, 0x01,
	}

	tests := []struct {
		name  string
		msg   Message
		check func(t *testing.T, m *Message)
	}{
		{"connect", Connect("AA:BB:CC:DD:EE:FF", "svc", "chr"), func(t *testing.T, m *Message) {
			if addr, _ := m.Text(KeyAddress); addr != "AA:BB:CC:DD:EE:FF" {
				t.Errorf("address: got %q", addr)
			}
			if chr, _ := m.Text(KeyCharacteristic); chr != "chr" {
				t.Errorf("characteristic: got %q", chr)
			}
		}},
		{"read", Read(), func(t *testing.T, m *Message) {
			if m.Fields != nil {
				t.Errorf("expected no fields, got %v", m.Fields)
			}
		}},
		{"write", Write(record), func(t *testing.T, m *Message) {
			if data, _ := m.Bytes(KeyData); !bytes.Equal(data, record) {
				t.Errorf("data: got % X", data)
			}
		}},
		{"scan result", ScanResult("11:22:33:44:55:66", "EKG Pro", -61), func(t *testing.T, m *Message) {
			if rssi, _ := m.Int(KeyRSSI); rssi != -61 {
				t.Errorf("rssi: got %d", rssi)
			}
		}},
		{"error", Error(CodeNotFound, "no such device"), func(t *testing.T, m *Message) {
			var re *RemoteError
			if !errors.As(m.Err(), &re) {
				t.Fatalf("expected *RemoteError, got %v", m.Err())
			}
			if re.Code != CodeNotFound || re.Message != "no such device" {
				t.Errorf("unexpected remote error %+v", re)
			}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame, err := Encode(tt.msg)
			if err != nil {
				t.Fatalf("Encode failed: %v", err)
			}
			if frame[0] != StartByte || frame[len(frame)-1] != EndByte {
				t.Fatalf("frame not delimited: % X", frame)
			}
			m, err := decodeFrame(t, frame)
			if err != nil {
				t.Fatalf("decode failed: %v", err)
			}
			if m == nil {
				t.Fatal("no message decoded")
			}
			if m.Op != tt.msg.Op {
				t.Errorf("op: expected %s, got %s", tt.msg.Op, m.Op)
			}
			tt.check(t, m)
		})
	}
}

func TestEncode_StuffsFramingBytes(t *testing.T) {
	frame, err := Encode(Write([]byte{StartByte, EndByte, EscByte}))
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	for i, b := range frame[1 : len(frame)-1] {
		if b == StartByte || b == EndByte {
			t.Errorf("unescaped framing byte 0x%02X at %d", b, i+1)
		}
	}

	m, err := decodeFrame(t, frame)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if data, _ := m.Bytes(KeyData); !bytes.Equal(data, []byte{StartByte, EndByte, EscByte}) {
		t.Errorf("data: got % X", data)
	}
}

func TestEncode_PayloadTooLarge(t *testing.T) {
	_, err := Encode(Write(make([]byte, 300)))
	if !errors.Is(err, ErrPayload) {
		t.Errorf("expected ErrPayload, got %v", err)
	}
}

// ============================================================
// Decoder Error Tests
// ============================================================

func TestDecoder_CRCMismatch(t *testing.T) {
	frame, _ := Encode(Read())
	frame[len(frame)-2] ^= 0x01
	_, err := decodeFrame(t, frame)
	if !errors.Is(err, ErrCRC) && !errors.Is(err, ErrFrame) {
		t.Errorf("expected CRC or frame error, got %v", err)
	}
}

func TestDecoder_TruncatedFrame(t *testing.T) {
	frame, _ := Encode(Write([]byte{1, 2, 3}))
	truncated := append(frame[:4:4], EndByte)
	_, err := decodeFrame(t, truncated)
	if !errors.Is(err, ErrFrame) {
		t.Errorf("expected ErrFrame, got %v", err)
	}
}

func TestDecoder_IgnoresNoiseBeforeStart(t *testing.T) {
	frame, _ := Encode(Ack())
	stream := append([]byte{0x00, 0x41, EscByte, 0x13, EndByte}, frame...)

	d := NewDecoder()
	var got *Message
	for _, b := range stream {
		m, err := d.DecodeByte(b)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if m != nil {
			got = m
		}
	}
	if got == nil || got.Op != OpAck {
		t.Errorf("expected ACK, got %v", got)
	}
}

func TestDecoder_RestartOnStart(t *testing.T) {
	partial, _ := Encode(Write([]byte{9, 9, 9}))
	full, _ := Encode(Read())
	stream := append(partial[:5:5], full...)

	m, err := decodeFrame(t, stream)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m == nil || m.Op != OpRead {
		t.Errorf("expected READ, got %v", m)
	}
}

// ============================================================
// Reader Tests
// ============================================================

func TestReader_MultipleMessages(t *testing.T) {
	var buf bytes.Buffer
	for _, m := range []Message{Ack(), Data(OpNotify, []byte{1}), Data(OpData, []byte{2})} {
		frame, err := Encode(m)
		if err != nil {
			t.Fatalf("Encode failed: %v", err)
		}
		buf.Write(frame)
	}

	r := NewReader(&buf)
	for _, want := range []Op{OpAck, OpNotify, OpData} {
		m, err := r.ReadMessage()
		if err != nil {
			t.Fatalf("ReadMessage failed: %v", err)
		}
		if m.Op != want {
			t.Errorf("expected %s, got %s", want, m.Op)
		}
	}
	if _, err := r.ReadMessage(); !errors.Is(err, io.EOF) {
		t.Errorf("expected EOF, got %v", err)
	}
}

func TestStatistics_Update(t *testing.T) {
	s := NewStatistics()
	ack := Ack()
	errMsg := Error(CodeNotConnected, "not connected")

	s.Update(&ack, nil)
	s.Update(&errMsg, nil)
	s.Update(nil, fmt.Errorf("%w: expected 0x0000, got 0x0001", ErrCRC))
	s.Update(nil, fmt.Errorf("%w: unexpected END", ErrFrame))
	s.Update(nil, fmt.Errorf("%w: bad op", ErrPayload))

	if s.TotalFrames != 5 || s.ValidFrames != 2 {
		t.Errorf("expected 5 total / 2 valid, got %d / %d", s.TotalFrames, s.ValidFrames)
	}
	if s.CRCErrors != 1 || s.FrameErrors != 1 || s.PayloadErrors != 1 {
		t.Errorf("error counts: crc=%d frame=%d payload=%d", s.CRCErrors, s.FrameErrors, s.PayloadErrors)
	}
	if s.RemoteErrors != 1 || s.ByOp[OpAck] != 1 {
		t.Errorf("expected one remote error and one ACK, got %d / %d", s.RemoteErrors, s.ByOp[OpAck])
	}

	summary := s.String()
	for _, want := range []string{"Total Frames:", "CRC Errors:", "ACK:", "ERROR:"} {
		if !strings.Contains(summary, want) {
			t.Errorf("summary missing %q:\n%s", want, summary)
		}
	}
}

func TestFormatMessage(t *testing.T) {
	at := time.Date(2025, 1, 1, 6, 12, 0, 0, time.UTC)
	got := FormatMessage(Data(OpData, []byte{0x08, 0x7E}), at)
	want := "[06:12:00.000] DATA (0x21)\n  0: 08 7E\n"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}
