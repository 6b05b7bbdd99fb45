// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package relay

import (
	"bufio"
	"errors"
	"fmt"
	"io"
)

type decoderState int

const (
	stateIdle decoderState = iota
	stateLength
	statePayload
	stateCRC1
	stateCRC2
	stateEnd
)

// Decoder implements the relay frame decoder state machine.
type Decoder struct {
	state      decoderState
	escapeNext bool
	length     int
	buf        []byte // LEN + payload, the CRC input
	crc        uint16
}

// NewDecoder creates a new frame decoder
func NewDecoder() *Decoder {
	return &Decoder{buf: make([]byte, 0, MaxFrameSize)}
}

// Reset drops any partial frame.
func (d *Decoder) Reset() {
	d.state = stateIdle
	d.escapeNext = false
	d.length = 0
	d.buf = d.buf[:0]
	d.crc = 0
}

// DecodeByte processes a single byte through the decoder state machine.
// It returns a message once a complete, valid frame has been seen. Errors
// reset the decoder, which then waits for the next START byte.
func (d *Decoder) DecodeByte(b byte) (*Message, error) {
	// Framing bytes are always stuffed inside a frame, so a raw one is a boundary
	switch b {
	case StartByte:
		d.Reset()
		d.state = stateLength
		return nil, nil
	case EndByte:
		return d.finish()
	case EscByte:
		if d.state != stateIdle {
			d.escapeNext = true
		}
		return nil, nil
	}

	if d.escapeNext {
		b ^= EscXor
		d.escapeNext = false
	}

	switch d.state {
	case stateIdle:
		return nil, nil

	case stateLength:
		d.length = int(b)
		d.buf = append(d.buf, b)
		if d.length == 0 {
			d.state = stateCRC1
		} else {
			d.state = statePayload
		}

	case statePayload:
		d.buf = append(d.buf, b)
		if len(d.buf)-1 == d.length {
			d.state = stateCRC1
		}

	case stateCRC1:
		d.crc = uint16(b) << 8
		d.state = stateCRC2

	case stateCRC2:
		d.crc |= uint16(b)
		d.state = stateEnd

	case stateEnd:
		d.Reset()
		return nil, fmt.Errorf("%w: data after CRC", ErrFrame)
	}
	return nil, nil
}

func (d *Decoder) finish() (*Message, error) {
	defer d.Reset()

	switch d.state {
	case stateIdle:
		return nil, nil
	case stateEnd:
	default:
		return nil, fmt.Errorf("%w: unexpected END in state %d", ErrFrame, d.state)
	}

	if calculated := CalculateCRC(d.buf); calculated != d.crc {
		return nil, fmt.Errorf("%w: expected 0x%04X, got 0x%04X", ErrCRC, calculated, d.crc)
	}
	m, err := unmarshalMessage(d.buf[1:])
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Reader reads messages from a byte stream.
type Reader struct {
	r   *bufio.Reader
	dec *Decoder
}

// NewReader wraps r.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r), dec: NewDecoder()}
}

// ReadMessage blocks until a complete message arrives. Frame errors are
// returned so the caller can count or log them; the next call resumes with
// the following frame. I/O errors are returned as is.
func (r *Reader) ReadMessage() (Message, error) {
	for {
		b, err := r.r.ReadByte()
		if err != nil {
			return Message{}, err
		}
		m, err := r.dec.DecodeByte(b)
		if err != nil {
			return Message{}, err
		}
		if m != nil {
			return *m, nil
		}
	}
}

// IsFrameError reports whether err is a recoverable decode error: the
// stream stays usable and the next frame can be read.
func IsFrameError(err error) bool {
	return errors.Is(err, ErrFrame) || errors.Is(err, ErrCRC) || errors.Is(err, ErrPayload)
}
