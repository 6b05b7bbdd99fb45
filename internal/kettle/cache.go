// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package kettle

import (
	"slices"
	"sync"

	"github.com/Thermoquad/staggctl/pkg/ekg"
)

// EventKind distinguishes field-level events from the per-update event.
type EventKind int

const (
	// FieldChanged reports one field that differs from the previous state.
	FieldChanged EventKind = iota
	// Refreshed is sent once per update after all FieldChanged events.
	Refreshed
)

func (k EventKind) String() string {
	if k == Refreshed {
		return "refreshed"
	}
	return "field_changed"
}

// Event is delivered to cache listeners.
type Event struct {
	Kind EventKind
	// Change is set for FieldChanged. Old is nil for the first state seen.
	Change ekg.Change
	// State is the state that caused the event.
	State ekg.State
}

// Listener receives cache events. Listeners run synchronously on the
// updating goroutine and must not call Update.
type Listener func(Event)

type subscription struct {
	id int
	fn Listener
}

// Cache holds the last state read from the kettle and notifies listeners
// of changes in the order updates arrive.
type Cache struct {
	deliverMu sync.Mutex // serialises Update so delivery order matches update order

	mu        sync.RWMutex
	current   ekg.State
	known     bool
	listeners []subscription
	nextID    int
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{}
}

// Current returns the last known state. ok is false until the first update.
func (c *Cache) Current() (s ekg.State, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current, c.known
}

// Subscribe registers fn and returns a function that removes it.
func (c *Cache) Subscribe(fn Listener) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners = append(c.listeners, subscription{id: id, fn: fn})
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			c.listeners = slices.DeleteFunc(c.listeners, func(s subscription) bool { return s.id == id })
		})
	}
}

// Update stores s and delivers one FieldChanged event per changed field,
// followed by one Refreshed event. Before the first update every field
// counts as changed.
func (c *Cache) Update(s ekg.State) {
	c.deliverMu.Lock()
	defer c.deliverMu.Unlock()

	c.mu.Lock()
	prev, known := c.current, c.known
	c.current, c.known = s, true
	listeners := slices.Clone(c.listeners)
	c.mu.Unlock()

	var changes []ekg.Change
	if known {
		changes = ekg.Diff(prev, s)
	} else {
		for _, f := range ekg.Fields() {
			changes = append(changes, ekg.Change{Field: f, New: s.Value(f)})
		}
	}

	for _, ch := range changes {
		deliver(listeners, Event{Kind: FieldChanged, Change: ch, State: s})
	}
	deliver(listeners, Event{Kind: Refreshed, State: s})
}

func deliver(listeners []subscription, ev Event) {
	for _, l := range listeners {
		l.fn(ev)
	}
}
