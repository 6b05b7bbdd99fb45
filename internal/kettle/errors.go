// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package kettle

import "errors"

var (
	// ErrConnectFailed is returned when no connection could be made, either
	// because the attempt cap was reached or alongside ErrTimeout when the
	// budget ran out while connecting.
	ErrConnectFailed = errors.New("kettle: connect failed")

	// ErrTimeout is returned when an operation does not finish within its
	// time budget.
	ErrTimeout = errors.New("kettle: timed out")

	// ErrInvalidUpdate is returned when a command cannot be applied to the
	// current state. Nothing is written.
	ErrInvalidUpdate = errors.New("kettle: invalid update")

	// ErrWriteFailed is returned when the write itself fails.
	ErrWriteFailed = errors.New("kettle: write failed")

	// ErrVerificationFailed is returned when the state read back after a write
	// does not match what was written, or could not be read.
	ErrVerificationFailed = errors.New("kettle: verification failed")

	// ErrLinkLost is returned when the link drops during a read.
	ErrLinkLost = errors.New("kettle: link lost")

	// ErrScanUnsupported is returned by Scan when the transport cannot scan.
	ErrScanUnsupported = errors.New("kettle: transport cannot scan")
)
