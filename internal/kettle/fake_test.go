// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package kettle

import (
	"context"
	"errors"
	"sync"
	"time"
)

var errRadio = errors.New("radio error")

// fakeKettle is an in-memory kettle reachable through Connect.
type fakeKettle struct {
	mu sync.Mutex

	record     []byte
	writes     [][]byte
	writeTimes []time.Time
	connects   int

	failConnects int   // fail this many connects, then succeed
	connectErr   error // fail every connect
	readErr      error
	writeErr     error
	ignoreWrites bool // accept writes without changing the record
	writeHook    func(record []byte)

	link *fakeLink

	candidates []Candidate
}

func newFakeKettle(record []byte) *fakeKettle {
	return &fakeKettle{record: append([]byte(nil), record...)}
}

func (k *fakeKettle) Connect(ctx context.Context) (Link, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.connects++
	if k.connectErr != nil {
		return nil, k.connectErr
	}
	if k.failConnects > 0 {
		k.failConnects--
		return nil, errRadio
	}
	k.link = &fakeLink{k: k}
	return k.link, nil
}

func (k *fakeKettle) Scan(ctx context.Context) ([]Candidate, error) {
	return k.candidates, nil
}

func (k *fakeKettle) current() []byte {
	k.mu.Lock()
	defer k.mu.Unlock()
	return append([]byte(nil), k.record...)
}

func (k *fakeKettle) written() [][]byte {
	k.mu.Lock()
	defer k.mu.Unlock()
	return append([][]byte(nil), k.writes...)
}

// push simulates a settings change made on the kettle itself.
func (k *fakeKettle) push(record []byte) {
	k.mu.Lock()
	k.record = append([]byte(nil), record...)
	link := k.link
	k.mu.Unlock()
	if link != nil && link.onRecord != nil {
		link.onRecord(record)
	}
}

type fakeLink struct {
	k        *fakeKettle
	closed   bool
	onRecord func([]byte)
}

func (l *fakeLink) ReadRecord(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.k.mu.Lock()
	defer l.k.mu.Unlock()
	if l.closed {
		return nil, errors.New("link closed")
	}
	if l.k.readErr != nil {
		return nil, l.k.readErr
	}
	return append([]byte(nil), l.k.record...), nil
}

func (l *fakeLink) WriteRecord(ctx context.Context, record []byte) error {
	l.k.mu.Lock()
	hook := l.k.writeHook
	l.k.mu.Unlock()
	if hook != nil {
		hook(record)
	}

	l.k.mu.Lock()
	defer l.k.mu.Unlock()
	if l.closed {
		return errors.New("link closed")
	}
	if l.k.writeErr != nil {
		return l.k.writeErr
	}
	l.k.writes = append(l.k.writes, append([]byte(nil), record...))
	l.k.writeTimes = append(l.k.writeTimes, time.Now())
	if !l.k.ignoreWrites {
		l.k.record = append([]byte(nil), record...)
	}
	return nil
}

func (l *fakeLink) Close() error {
	l.k.mu.Lock()
	defer l.k.mu.Unlock()
	l.closed = true
	return nil
}

func (l *fakeLink) OnRecord(fn func([]byte)) {
	l.onRecord = fn
}

// fixedClock always reports the same time.
type fixedClock struct {
	t time.Time
}

func (c fixedClock) Now() time.Time { return c.t }

func clockAt(hour, minute int) fixedClock {
	return fixedClock{t: time.Date(2025, 3, 14, hour, minute, 0, 0, time.Local)}
}
