// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package ekg

import (
	"errors"
	"fmt"
)

var (
	// ErrLength is returned when a record is not exactly RecordSize bytes.
	ErrLength = errors.New("ekg: wrong record length")
	// ErrFieldOutOfRange is returned when a decoded field is outside its domain.
	ErrFieldOutOfRange = errors.New("ekg: field out of range")
	// ErrMalformed is returned when the record structure is inconsistent.
	ErrMalformed = errors.New("ekg: malformed record")
	// ErrInvalidCommand is returned when a command cannot be applied.
	ErrInvalidCommand = errors.New("ekg: invalid command")
)

// FieldError reports the field and raw value that failed range checking.
type FieldError struct {
	Field Field
	Value int
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("ekg: %s out of range: %d", e.Field, e.Value)
}

// Unwrap lets errors.Is match ErrFieldOutOfRange.
func (e *FieldError) Unwrap() error {
	return ErrFieldOutOfRange
}
