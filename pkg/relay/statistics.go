// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package relay

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

// Statistics tracks frame counts and error rates on a relay stream.
type Statistics struct {
	StartTime time.Time

	TotalFrames   uint64
	ValidFrames   uint64
	CRCErrors     uint64
	FrameErrors   uint64
	PayloadErrors uint64
	RemoteErrors  uint64
	ByOp          map[Op]uint64

	// Rates (calculated)
	FrameRate float64 // frames/sec
	ErrorRate float64 // errors/sec
}

// NewStatistics creates a new statistics tracker
func NewStatistics() *Statistics {
	return &Statistics{StartTime: time.Now(), ByOp: make(map[Op]uint64)}
}

// Update counts one decoded message or one decode error.
func (s *Statistics) Update(m *Message, decodeErr error) {
	s.TotalFrames++

	switch {
	case errors.Is(decodeErr, ErrCRC):
		s.CRCErrors++
		return
	case errors.Is(decodeErr, ErrPayload):
		s.PayloadErrors++
		return
	case decodeErr != nil:
		s.FrameErrors++
		return
	}

	s.ValidFrames++
	s.ByOp[m.Op]++
	if m.Op == OpError {
		s.RemoteErrors++
	}
}

// CalculateRates calculates frame and error rates
func (s *Statistics) CalculateRates() {
	elapsed := time.Since(s.StartTime).Seconds()
	if elapsed > 0 {
		s.FrameRate = float64(s.TotalFrames) / elapsed
		s.ErrorRate = float64(s.CRCErrors+s.FrameErrors+s.PayloadErrors) / elapsed
	}
}

// String returns a formatted statistics summary
func (s *Statistics) String() string {
	s.CalculateRates()

	percent := func(n uint64) float64 {
		if s.TotalFrames == 0 {
			return 0
		}
		return float64(n) * 100.0 / float64(s.TotalFrames)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "=== Statistics (%.0f seconds) ===\n", time.Since(s.StartTime).Seconds())
	fmt.Fprintf(&b, "Total Frames:    %8d\n", s.TotalFrames)
	fmt.Fprintf(&b, "Valid Frames:    %8d (%.1f%%)\n", s.ValidFrames, percent(s.ValidFrames))
	if s.CRCErrors > 0 {
		fmt.Fprintf(&b, "CRC Errors:      %8d (%.1f%%)\n", s.CRCErrors, percent(s.CRCErrors))
	}
	if s.FrameErrors > 0 {
		fmt.Fprintf(&b, "Frame Errors:    %8d (%.1f%%)\n", s.FrameErrors, percent(s.FrameErrors))
	}
	if s.PayloadErrors > 0 {
		fmt.Fprintf(&b, "Payload Errors:  %8d (%.1f%%)\n", s.PayloadErrors, percent(s.PayloadErrors))
	}
	if s.RemoteErrors > 0 {
		fmt.Fprintf(&b, "Relay Errors:    %8d\n", s.RemoteErrors)
	}

	ops := make([]Op, 0, len(s.ByOp))
	for op := range s.ByOp {
		ops = append(ops, op)
	}
	slices.Sort(ops)
	for _, op := range ops {
		fmt.Fprintf(&b, "  %-12s %8d\n", op.String()+":", s.ByOp[op])
	}

	fmt.Fprintf(&b, "Rate:            %.1f frames/s, %.2f errors/s\n", s.FrameRate, s.ErrorRate)
	return b.String()
}

// FormatMessage formats a message with a timestamp for logging.
func FormatMessage(m Message, at time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s (0x%02X)\n", at.Format("15:04:05.000"), m.Op, uint8(m.Op))

	keys := make([]int, 0, len(m.Fields))
	for k := range m.Fields {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		switch v := m.Fields[k].(type) {
		case []byte:
			fmt.Fprintf(&b, "  %d: % X\n", k, v)
		default:
			fmt.Fprintf(&b, "  %d: %v\n", k, v)
		}
	}
	return b.String()
}
