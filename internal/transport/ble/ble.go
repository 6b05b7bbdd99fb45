// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package ble reaches the kettle directly through the host Bluetooth adapter.
package ble

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"tinygo.org/x/bluetooth"

	"github.com/Thermoquad/staggctl/internal/kettle"
)

// ErrNotFound is returned when the characteristic is missing on the kettle.
var ErrNotFound = errors.New("ble: characteristic not found")

// readBufferSize leaves headroom over the 17-byte record.
const readBufferSize = 64

// Device names the kettle and the characteristic carrying its record.
type Device struct {
	Address            string
	ServiceUUID        string
	CharacteristicUUID string
}

// Transport connects to the kettle with the host adapter.
type Transport struct {
	adapter        *bluetooth.Adapter
	address        string
	service        bluetooth.UUID
	characteristic bluetooth.UUID
	scanDuration   time.Duration
	logger         *zap.Logger

	enableOnce sync.Once
	enableErr  error
}

// New creates a transport on adapter, usually bluetooth.DefaultAdapter.
func New(adapter *bluetooth.Adapter, device Device, scanDuration time.Duration, logger *zap.Logger) (*Transport, error) {
	service, err := bluetooth.ParseUUID(device.ServiceUUID)
	if err != nil {
		return nil, fmt.Errorf("ble: service UUID %q: %w", device.ServiceUUID, err)
	}
	characteristic, err := bluetooth.ParseUUID(device.CharacteristicUUID)
	if err != nil {
		return nil, fmt.Errorf("ble: characteristic UUID %q: %w", device.CharacteristicUUID, err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Transport{
		adapter:        adapter,
		address:        device.Address,
		service:        service,
		characteristic: characteristic,
		scanDuration:   scanDuration,
		logger:         logger.Named("ble"),
	}, nil
}

// NewScanner returns a scanner that needs no kettle configuration.
func NewScanner(adapter *bluetooth.Adapter, scanDuration time.Duration, logger *zap.Logger) kettle.Scanner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Transport{adapter: adapter, scanDuration: scanDuration, logger: logger.Named("ble")}
}

func (t *Transport) enable() error {
	t.enableOnce.Do(func() {
		t.enableErr = t.adapter.Enable()
	})
	return t.enableErr
}

// Connect finds the kettle by address, connects and resolves the
// configuration characteristic.
func (t *Transport) Connect(ctx context.Context) (kettle.Link, error) {
	if err := t.enable(); err != nil {
		return nil, fmt.Errorf("ble: enabling adapter: %w", err)
	}

	addr, err := t.find(ctx)
	if err != nil {
		return nil, err
	}

	type result struct {
		link *link
		err  error
	}
	done := make(chan result, 1)
	go func() {
		l, err := t.open(addr)
		done <- result{l, err}
	}()

	select {
	case r := <-done:
		return r.link, r.err
	case <-ctx.Done():
		// Close whatever the connect produces once it returns
		go func() {
			if r := <-done; r.link != nil {
				_ = r.link.Close()
			}
		}()
		return nil, ctx.Err()
	}
}

func (t *Transport) open(addr bluetooth.Address) (*link, error) {
	device, err := t.adapter.Connect(addr, bluetooth.ConnectionParams{})
	if err != nil {
		return nil, fmt.Errorf("ble: connect %s: %w", t.address, err)
	}

	services, err := device.DiscoverServices([]bluetooth.UUID{t.service})
	if err != nil || len(services) == 0 {
		_ = device.Disconnect()
		return nil, fmt.Errorf("ble: service %s: %w", t.service, errors.Join(ErrNotFound, err))
	}
	chars, err := services[0].DiscoverCharacteristics([]bluetooth.UUID{t.characteristic})
	if err != nil || len(chars) == 0 {
		_ = device.Disconnect()
		return nil, fmt.Errorf("ble: characteristic %s: %w", t.characteristic, errors.Join(ErrNotFound, err))
	}

	t.logger.Debug("connected", zap.String("address", t.address))
	return &link{char: chars[0], disconnect: device.Disconnect, logger: t.logger}, nil
}

// find scans until the configured address advertises.
func (t *Transport) find(ctx context.Context) (bluetooth.Address, error) {
	var (
		found bluetooth.Address
		ok    bool
	)
	err := t.scan(ctx, func(r bluetooth.ScanResult) bool {
		if strings.EqualFold(r.Address.String(), t.address) {
			found, ok = r.Address, true
			return false
		}
		return true
	})
	if ok {
		return found, nil
	}
	if err == nil {
		err = ctx.Err()
	}
	return found, fmt.Errorf("ble: %s not seen: %w", t.address, err)
}

// Scan lists advertising peripherals for the configured scan duration.
func (t *Transport) Scan(ctx context.Context) ([]kettle.Candidate, error) {
	if err := t.enable(); err != nil {
		return nil, fmt.Errorf("ble: enabling adapter: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, t.scanDuration)
	defer cancel()

	var mu sync.Mutex
	seen := make(map[string]int)
	var found []kettle.Candidate
	err := t.scan(ctx, func(r bluetooth.ScanResult) bool {
		mu.Lock()
		defer mu.Unlock()
		addr := r.Address.String()
		c := kettle.Candidate{Address: addr, Name: r.LocalName(), RSSI: int(r.RSSI)}
		if i, dup := seen[addr]; dup {
			if c.Name == "" {
				c.Name = found[i].Name
			}
			found[i] = c
			return true
		}
		seen[addr] = len(found)
		found = append(found, c)
		return true
	})

	mu.Lock()
	defer mu.Unlock()
	return found, err
}

// scan runs an adapter scan until fn returns false or ctx ends.
func (t *Transport) scan(ctx context.Context, fn func(bluetooth.ScanResult) bool) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		<-ctx.Done()
		_ = t.adapter.StopScan()
	}()

	return t.adapter.Scan(func(_ *bluetooth.Adapter, r bluetooth.ScanResult) {
		if ctx.Err() == nil && !fn(r) {
			cancel()
		}
	})
}

type link struct {
	char       bluetooth.DeviceCharacteristic
	disconnect func() error
	logger     *zap.Logger
	closeOnce  sync.Once
}

func (l *link) ReadRecord(ctx context.Context) ([]byte, error) {
	buf := make([]byte, readBufferSize)
	var n int
	err := run(ctx, func() error {
		var err error
		n, err = l.char.Read(buf)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("ble: read: %w", err)
	}
	return buf[:n], nil
}

func (l *link) WriteRecord(ctx context.Context, record []byte) error {
	data := append([]byte(nil), record...)
	err := run(ctx, func() error {
		_, err := l.char.WriteWithoutResponse(data)
		return err
	})
	if err != nil {
		return fmt.Errorf("ble: write: %w", err)
	}
	return nil
}

func (l *link) OnRecord(fn func([]byte)) {
	err := l.char.EnableNotifications(func(buf []byte) {
		fn(append([]byte(nil), buf...))
	})
	if err != nil {
		l.logger.Warn("notifications unavailable", zap.Error(err))
	}
}

func (l *link) Close() error {
	var err error
	l.closeOnce.Do(func() {
		err = l.disconnect()
	})
	return err
}

// run calls fn and waits for it or ctx. The adapter calls are not
// cancellable, so a cancelled fn finishes in the background.
func run(ctx context.Context, fn func() error) error {
	done := make(chan error, 1)
	go func() { done <- fn() }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
