// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package gateway

import (
	"context"
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"

	"github.com/Thermoquad/staggctl/pkg/relay"
)

// client speaks the relay protocol over one byte stream. One request is
// outstanding at a time; NOTIFY frames may arrive between responses.
type client struct {
	conn   io.ReadWriteCloser
	logger *zap.Logger

	writeMu   sync.Mutex
	responses chan relay.Message
	done      chan struct{}
	readErr   error
	closeOnce sync.Once

	notifyMu sync.Mutex
	onNotify func([]byte)
}

func newClient(conn io.ReadWriteCloser, logger *zap.Logger) *client {
	c := &client{
		conn:      conn,
		logger:    logger,
		responses: make(chan relay.Message, 4),
		done:      make(chan struct{}),
	}
	go c.readLoop()
	return c
}

func (c *client) readLoop() {
	r := relay.NewReader(c.conn)
	for {
		m, err := r.ReadMessage()
		if err != nil {
			if relay.IsFrameError(err) {
				c.logger.Debug("dropping bad frame", zap.Error(err))
				continue
			}
			c.shutdown(err)
			return
		}

		if m.Op == relay.OpNotify {
			c.notify(m)
			continue
		}

		select {
		case c.responses <- m:
		case <-c.done:
			return
		}
	}
}

func (c *client) notify(m relay.Message) {
	data, ok := m.Bytes(relay.KeyData)
	if !ok {
		c.logger.Debug("NOTIFY without data")
		return
	}
	c.notifyMu.Lock()
	fn := c.onNotify
	c.notifyMu.Unlock()
	if fn != nil {
		fn(data)
	}
}

func (c *client) setNotify(fn func([]byte)) {
	c.notifyMu.Lock()
	c.onNotify = fn
	c.notifyMu.Unlock()
}

func (c *client) send(m relay.Message) error {
	frame, err := relay.Encode(m)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if _, err := c.conn.Write(frame); err != nil {
		return fmt.Errorf("gateway: sending %s: %w", m.Op, err)
	}
	return nil
}

func (c *client) receive(ctx context.Context) (relay.Message, error) {
	select {
	case m := <-c.responses:
		return m, nil
	case <-c.done:
		return relay.Message{}, fmt.Errorf("gateway: connection closed: %w", c.readErr)
	case <-ctx.Done():
		return relay.Message{}, ctx.Err()
	}
}

// request sends m and waits for a response of op want. ERROR responses are
// returned as *relay.RemoteError.
func (c *client) request(ctx context.Context, m relay.Message, want relay.Op) (relay.Message, error) {
	if err := c.send(m); err != nil {
		return relay.Message{}, err
	}
	resp, err := c.receive(ctx)
	if err != nil {
		return relay.Message{}, err
	}
	if err := resp.Err(); err != nil {
		return relay.Message{}, err
	}
	if resp.Op != want {
		return relay.Message{}, fmt.Errorf("%w: %s answered with %s", relay.ErrPayload, m.Op, resp.Op)
	}
	return resp, nil
}

// shutdown records why the stream ended and releases waiters.
func (c *client) shutdown(err error) {
	c.closeOnce.Do(func() {
		if err == nil {
			err = io.EOF
		}
		c.readErr = err
		close(c.done)
	})
}

func (c *client) Close() error {
	c.shutdown(nil)
	return c.conn.Close()
}
