// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package kettle

import (
	"context"
	"strings"
	"time"
)

// Transport opens links to one configured kettle.
type Transport interface {
	Connect(ctx context.Context) (Link, error)
}

// Link is an open connection to the kettle configuration characteristic.
// A Link is used by one goroutine at a time; Close may be called concurrently.
type Link interface {
	ReadRecord(ctx context.Context) ([]byte, error)
	WriteRecord(ctx context.Context, record []byte) error
	Close() error
}

// NotifyingLink is implemented by links that deliver records pushed by the
// kettle when its settings are changed from the kettle menu.
type NotifyingLink interface {
	Link
	OnRecord(fn func(record []byte))
}

// Scanner is implemented by transports that can discover nearby kettles.
type Scanner interface {
	Scan(ctx context.Context) ([]Candidate, error)
}

// Candidate is one advertising peripheral found by a scan.
type Candidate struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	RSSI    int    `json:"rssi"`
}

var kettleNameHints = []string{"stagg", "fellow", "ekg"}

// IsKettleName reports whether an advertised name looks like a Stagg kettle.
func IsKettleName(name string) bool {
	name = strings.ToLower(name)
	for _, hint := range kettleNameHints {
		if strings.Contains(name, hint) {
			return true
		}
	}
	return false
}

// Clock supplies the time injected into every write.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the local wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }
