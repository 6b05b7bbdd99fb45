// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"tinygo.org/x/bluetooth"

	"github.com/Thermoquad/staggctl/internal/config"
	"github.com/Thermoquad/staggctl/internal/kettle"
	"github.com/Thermoquad/staggctl/internal/transport/ble"
	"github.com/Thermoquad/staggctl/internal/transport/gateway"
)

// openDialer returns the relay dialer for serial or WebSocket transports.
func openDialer(c *config.Config) (gateway.Dialer, string, error) {
	switch c.Transport {
	case config.TransportSerial:
		return gateway.SerialDialer(c.Serial.Port, c.Serial.Baud),
			fmt.Sprintf("%s @ %d baud", c.Serial.Port, c.Serial.Baud), nil

	case config.TransportWebSocket:
		var password string
		if c.WebSocket.Username != "" {
			var err error
			password, err = gateway.GetPassword()
			if err != nil {
				return nil, "", err
			}
		}
		dial, err := gateway.WebSocketDialer(c.WebSocket.URL, c.WebSocket.Username, password, c.WebSocket.NoSSLVerify)
		if err != nil {
			return nil, "", err
		}
		return dial, c.WebSocket.URL, nil
	}
	return nil, "", fmt.Errorf("transport %s has no relay dialer", c.Transport)
}

// openTransport builds the kettle transport selected by the config.
// Returns the transport and a description of the connection.
func openTransport(c *config.Config) (kettle.Transport, string, error) {
	if err := c.RequireDevice(); err != nil {
		return nil, "", usageError{err}
	}

	if c.Transport == config.TransportBLE {
		t, err := ble.New(bluetooth.DefaultAdapter, ble.Device{
			Address:            c.Device.Address,
			ServiceUUID:        c.Device.ServiceUUID,
			CharacteristicUUID: c.Device.CharacteristicUUID,
		}, c.Device.ScanTimeout, logger)
		if err != nil {
			return nil, "", usageError{err}
		}
		return t, "BLE " + c.Device.Address, nil
	}

	dial, info, err := openDialer(c)
	if err != nil {
		return nil, "", err
	}
	t := gateway.New(dial, gateway.Device{
		Address:            c.Device.Address,
		ServiceUUID:        c.Device.ServiceUUID,
		CharacteristicUUID: c.Device.CharacteristicUUID,
	}, c.Device.ScanTimeout, logger)
	return t, fmt.Sprintf("%s via %s", c.Device.Address, info), nil
}

// openScanner builds a scanner. It needs no kettle address.
func openScanner(c *config.Config) (kettle.Scanner, error) {
	if c.Transport == config.TransportBLE {
		return ble.NewScanner(bluetooth.DefaultAdapter, c.Device.ScanTimeout, logger), nil
	}
	dial, _, err := openDialer(c)
	if err != nil {
		return nil, err
	}
	return gateway.New(dial, gateway.Device{}, c.Device.ScanTimeout, logger), nil
}

// OpenSession connects the configured transport to a new session.
// The caller must call Disconnect on the session.
func OpenSession() (*kettle.Session, string, error) {
	t, info, err := openTransport(cfg)
	if err != nil {
		return nil, "", err
	}
	s := kettle.NewSession(t, cfg.Session.KettleConfig(), kettle.NewCache(), logger)
	return s, info, nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
