// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package bridge

import (
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/Thermoquad/staggctl/internal/config"
)

const (
	PayloadOnline  = "online"
	PayloadOffline = "offline"
	PayloadOn      = "on"
	PayloadOff     = "off"
)

// Broker is the part of an MQTT client the bridge needs.
type Broker interface {
	Publish(topic string, retained bool, payload []byte) error
	Subscribe(topic string, handler func(topic string, payload []byte)) error
}

// MQTTClient wraps a paho client with blocking, time-limited operations.
type MQTTClient struct {
	client  mqtt.Client
	timeout time.Duration
}

// OptsFromConfig builds paho options with a retained "offline" last will on
// the bridge availability topic.
func OptsFromConfig(cfg config.MQTTConfig) *mqtt.ClientOptions {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.Host, cfg.Port))
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" && cfg.Password != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetOrderMatters(false)
	opts.WillEnabled = true
	opts.WillPayload = []byte(PayloadOffline)
	opts.WillRetained = true
	opts.WillTopic = NewTopics(cfg.BaseTopic).BridgeState()
	opts.WillQos = 1
	return opts
}

// NewMQTTClient creates a client. onConnect runs after every successful
// (re)connection and is where subscriptions belong.
func NewMQTTClient(opts *mqtt.ClientOptions, timeout time.Duration, onConnect func(), onLost func(error)) *MQTTClient {
	if onConnect != nil {
		opts.OnConnect = func(mqtt.Client) { onConnect() }
	}
	if onLost != nil {
		opts.OnConnectionLost = func(_ mqtt.Client, err error) { onLost(err) }
	}
	return &MQTTClient{client: mqtt.NewClient(opts), timeout: timeout}
}

func (c *MQTTClient) wait(op string, token mqtt.Token) error {
	if !token.WaitTimeout(c.timeout) {
		return fmt.Errorf("mqtt %s timed out", op)
	}
	return token.Error()
}

func (c *MQTTClient) Connect() error {
	return c.wait("connect", c.client.Connect())
}

func (c *MQTTClient) Publish(topic string, retained bool, payload []byte) error {
	if !c.client.IsConnectionOpen() {
		return errors.New("mqtt not connected")
	}
	return c.wait("publish", c.client.Publish(topic, 1, retained, payload))
}

func (c *MQTTClient) Subscribe(topic string, handler func(topic string, payload []byte)) error {
	return c.wait("subscribe", c.client.Subscribe(topic, 1, func(_ mqtt.Client, msg mqtt.Message) {
		handler(msg.Topic(), msg.Payload())
	}))
}

// Disconnect publishes "offline" and closes the connection.
func (c *MQTTClient) Disconnect(availabilityTopic string) {
	if c.client.IsConnectionOpen() {
		_ = c.Publish(availabilityTopic, true, []byte(PayloadOffline))
	}
	c.client.Disconnect(uint(c.timeout.Milliseconds()))
}
