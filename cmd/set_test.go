// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Thermoquad/staggctl/internal/kettle"
	"github.com/Thermoquad/staggctl/pkg/ekg"
)

func TestChangeRecorder_Filters(t *testing.T) {
	var rec changeRecorder

	rec.record(kettle.Event{Kind: kettle.FieldChanged, Change: ekg.Change{Field: ekg.FieldHold, Old: nil, New: 5}})
	rec.record(kettle.Event{Kind: kettle.FieldChanged, Change: ekg.Change{Field: ekg.FieldCounter, Old: uint8(1), New: uint8(2)}})
	rec.record(kettle.Event{Kind: kettle.Refreshed})
	rec.record(kettle.Event{Kind: kettle.FieldChanged, Change: ekg.Change{Field: ekg.FieldHold, Old: 5, New: 30}})

	got := rec.changes()
	assert.Len(t, got, 1)
	assert.Equal(t, 30, got[0].New)
}

func TestChangeRecorder_ConcurrentDelivery(t *testing.T) {
	var rec changeRecorder
	ev := kettle.Event{Kind: kettle.FieldChanged, Change: ekg.Change{Field: ekg.FieldHold, Old: 0, New: 15}}

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				rec.record(ev)
				_ = rec.changes()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, rec.changes(), 200)
}
