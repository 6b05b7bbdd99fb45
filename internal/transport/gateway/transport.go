// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package gateway

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Thermoquad/staggctl/internal/kettle"
	"github.com/Thermoquad/staggctl/pkg/relay"
)

// Device names the kettle and characteristic the relay should open.
type Device struct {
	Address            string
	ServiceUUID        string
	CharacteristicUUID string
}

// Transport reaches the kettle through a BLE relay gateway.
type Transport struct {
	dial         Dialer
	device       Device
	scanDuration time.Duration
	logger       *zap.Logger
}

// New creates a gateway transport. scanDuration is how long Scan asks the
// relay to listen for advertisements.
func New(dial Dialer, device Device, scanDuration time.Duration, logger *zap.Logger) *Transport {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Transport{
		dial:         dial,
		device:       device,
		scanDuration: scanDuration,
		logger:       logger.Named("gateway"),
	}
}

// Connect opens the stream and asks the relay to connect to the kettle.
func (t *Transport) Connect(ctx context.Context) (kettle.Link, error) {
	c, err := t.open(ctx)
	if err != nil {
		return nil, err
	}

	req := relay.Connect(t.device.Address, t.device.ServiceUUID, t.device.CharacteristicUUID)
	if _, err := c.request(ctx, req, relay.OpAck); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("gateway: connect %s: %w", t.device.Address, err)
	}
	t.logger.Debug("relay connected", zap.String("address", t.device.Address))
	return &link{c: c}, nil
}

// Scan asks the relay for nearby peripherals.
func (t *Transport) Scan(ctx context.Context) ([]kettle.Candidate, error) {
	c, err := t.open(ctx)
	if err != nil {
		return nil, err
	}
	defer c.Close()

	if err := c.send(relay.Scan(int(t.scanDuration / time.Millisecond))); err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var found []kettle.Candidate
	for {
		m, err := c.receive(ctx)
		if err != nil {
			return found, err
		}
		switch m.Op {
		case relay.OpScanResult:
			addr, _ := m.Text(relay.KeyAddress)
			if seen[addr] {
				continue
			}
			seen[addr] = true
			name, _ := m.Text(relay.KeyName)
			rssi, _ := m.Int(relay.KeyRSSI)
			found = append(found, kettle.Candidate{Address: addr, Name: name, RSSI: int(rssi)})
		case relay.OpScanDone:
			return found, nil
		case relay.OpError:
			return found, m.Err()
		}
	}
}

func (t *Transport) open(ctx context.Context) (*client, error) {
	conn, err := t.dial(ctx)
	if err != nil {
		return nil, err
	}
	return newClient(conn, t.logger), nil
}

type link struct {
	c *client
}

func (l *link) ReadRecord(ctx context.Context) ([]byte, error) {
	m, err := l.c.request(ctx, relay.Read(), relay.OpData)
	if err != nil {
		return nil, err
	}
	data, ok := m.Bytes(relay.KeyData)
	if !ok {
		return nil, fmt.Errorf("%w: DATA without bytes", relay.ErrPayload)
	}
	return data, nil
}

func (l *link) WriteRecord(ctx context.Context, record []byte) error {
	_, err := l.c.request(ctx, relay.Write(record), relay.OpAck)
	return err
}

func (l *link) OnRecord(fn func([]byte)) {
	l.c.setNotify(fn)
}

// Close tells the relay to drop the kettle, without waiting for an answer,
// and closes the stream.
func (l *link) Close() error {
	_ = l.c.send(relay.Disconnect())
	return l.c.Close()
}
