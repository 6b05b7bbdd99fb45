// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, TransportBLE, cfg.Transport)
	assert.Equal(t, 20*time.Second, cfg.Session.Timeout)
	assert.Equal(t, 200*time.Millisecond, cfg.Session.WriteSpacing)
	assert.Equal(t, 5*time.Second, cfg.PollInterval)
	assert.Equal(t, 115200, cfg.Serial.Baud)
	assert.Equal(t, "stagg", cfg.MQTT.BaseTopic)
	assert.Equal(t, zap.WarnLevel, cfg.LogLevel)
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("STAGG_DEVICE_ADDRESS", "AA:BB:CC:DD:EE:FF")
	t.Setenv("STAGG_SESSION_TIMEOUT", "7s")
	t.Setenv("STAGG_LOG_LEVEL", "debug")
	t.Setenv("STAGG_MQTT_BASE_TOPIC", "Kitchen_Kettle")

	cfg, err := Load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "AA:BB:CC:DD:EE:FF", cfg.Device.Address)
	assert.Equal(t, 7*time.Second, cfg.Session.Timeout)
	assert.Equal(t, zap.DebugLevel, cfg.LogLevel)
	assert.Equal(t, "kitchen_kettle", cfg.MQTT.BaseTopic)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stagg.yaml")
	yaml := `
transport: serial
device:
  address: "11:22:33:44:55:66"
  service_uuid: "0000fff0-0000-1000-8000-00805f9b34fb"
  characteristic_uuid: "0000fff1-0000-1000-8000-00805f9b34fb"
serial:
  port: /dev/ttyACM0
session:
  max_connect_attempts: 3
mqtt:
  ha_discovery_enable: true
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	v := viper.New()
	v.Set("config", path)
	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, TransportSerial, cfg.Transport)
	assert.Equal(t, "/dev/ttyACM0", cfg.Serial.Port)
	assert.Equal(t, 3, cfg.Session.MaxConnectAttempts)
	assert.True(t, cfg.MQTT.HADiscoveryEnable)
	assert.NoError(t, cfg.RequireDevice())

	kc := cfg.Session.KettleConfig()
	assert.Equal(t, 3, kc.MaxConnectAttempts)
	assert.Equal(t, cfg.Session.Timeout, kc.Timeout)
}

func TestLoad_MissingFile(t *testing.T) {
	v := viper.New()
	v.Set("config", filepath.Join(t.TempDir(), "missing.yaml"))
	_, err := Load(v)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"transport", func(c *Config) { c.Transport = "carrier-pigeon" }},
		{"log format", func(c *Config) { c.LogFormat = "xml" }},
		{"timeout", func(c *Config) { c.Session.Timeout = 10 * time.Millisecond }},
		{"backoff", func(c *Config) { c.Session.BackoffMax = c.Session.BackoffInitial / 2 }},
		{"attempts", func(c *Config) { c.Session.MaxConnectAttempts = -1 }},
		{"poll interval", func(c *Config) { c.PollInterval = 0 }},
		{"base topic", func(c *Config) { c.MQTT.BaseTopic = "stagg/kettle" }},
		{"discovery topic", func(c *Config) { c.MQTT.HADiscoveryTopic = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(viper.New())
			require.NoError(t, err)
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestRequireDevice(t *testing.T) {
	cfg, err := Load(viper.New())
	require.NoError(t, err)
	assert.Error(t, cfg.RequireDevice(), "no address")

	cfg.Device.Address = "AA:BB:CC:DD:EE:FF"
	assert.Error(t, cfg.RequireDevice(), "no UUIDs")

	cfg.Device.ServiceUUID = "svc"
	cfg.Device.CharacteristicUUID = "chr"
	assert.NoError(t, cfg.RequireDevice())

	cfg.Transport = TransportWebSocket
	assert.Error(t, cfg.RequireDevice(), "no url")
}

func TestRedacted(t *testing.T) {
	cfg := Config{MQTT: MQTTConfig{Username: "user", Password: "secret"}}
	r := cfg.Redacted()
	assert.Equal(t, "*redacted*", r.MQTT.Password)
	assert.Equal(t, "secret", cfg.MQTT.Password)
}
