// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"

	"github.com/Thermoquad/staggctl/internal/kettle"
	"github.com/Thermoquad/staggctl/internal/logging"
)

// EnvPrefix prefixes every environment variable, e.g. STAGG_DEVICE_ADDRESS.
const EnvPrefix = "stagg"

// Transport names
const (
	TransportBLE       = "ble"
	TransportSerial    = "serial"
	TransportWebSocket = "websocket"
)

type Config struct {
	LogLevel  zapcore.Level `mapstructure:"-"`
	LogFormat string        `mapstructure:"log_format"`

	Transport string          `mapstructure:"transport"`
	Device    DeviceConfig    `mapstructure:"device"`
	Serial    SerialConfig    `mapstructure:"serial"`
	WebSocket WebSocketConfig `mapstructure:"websocket"`
	Session   SessionConfig   `mapstructure:"session"`

	PollInterval time.Duration `mapstructure:"poll_interval"`
	MQTT         MQTTConfig    `mapstructure:"mqtt"`
	HTTP         HTTPConfig    `mapstructure:"http"`
}

type DeviceConfig struct {
	Address            string
	ServiceUUID        string        `mapstructure:"service_uuid"`
	CharacteristicUUID string        `mapstructure:"characteristic_uuid"`
	ScanTimeout        time.Duration `mapstructure:"scan_timeout"`
}

type SerialConfig struct {
	Port string
	Baud int
}

type WebSocketConfig struct {
	URL         string
	Username    string
	NoSSLVerify bool `mapstructure:"no_ssl_verify"`
}

type SessionConfig struct {
	Timeout            time.Duration
	BackoffInitial     time.Duration `mapstructure:"backoff_initial"`
	BackoffMax         time.Duration `mapstructure:"backoff_max"`
	MaxConnectAttempts int           `mapstructure:"max_connect_attempts"`
	WriteSpacing       time.Duration `mapstructure:"write_spacing"`
	VerifyTimeout      time.Duration `mapstructure:"verify_timeout"`
}

type MQTTConfig struct {
	Host              string
	Port              int
	Username          string
	Password          string
	ClientID          string `mapstructure:"client_id"`
	BaseTopic         string `mapstructure:"base_topic"`
	HADiscoveryEnable bool   `mapstructure:"ha_discovery_enable"`
	HADiscoveryTopic  string `mapstructure:"ha_discovery_topic"`
}

type HTTPConfig struct {
	Enable bool
	Port   uint
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "warn")
	v.SetDefault("log_format", "console")
	v.SetDefault("transport", TransportBLE)
	v.SetDefault("device.address", "")
	v.SetDefault("device.service_uuid", "")
	v.SetDefault("device.characteristic_uuid", "")
	v.SetDefault("device.scan_timeout", "10s")
	v.SetDefault("serial.port", "")
	v.SetDefault("serial.baud", 115200)
	v.SetDefault("websocket.url", "")
	v.SetDefault("websocket.username", "")
	v.SetDefault("websocket.no_ssl_verify", false)
	v.SetDefault("session.timeout", kettle.DefaultTimeout.String())
	v.SetDefault("session.backoff_initial", kettle.DefaultBackoffInitial.String())
	v.SetDefault("session.backoff_max", kettle.DefaultBackoffMax.String())
	v.SetDefault("session.max_connect_attempts", 0)
	v.SetDefault("session.write_spacing", kettle.DefaultWriteSpacing.String())
	v.SetDefault("session.verify_timeout", kettle.DefaultVerifyTimeout.String())
	v.SetDefault("poll_interval", "5s")
	v.SetDefault("mqtt.host", "localhost")
	v.SetDefault("mqtt.port", 1883)
	v.SetDefault("mqtt.username", "")
	v.SetDefault("mqtt.password", "")
	v.SetDefault("mqtt.client_id", "staggctl")
	v.SetDefault("mqtt.base_topic", "stagg")
	v.SetDefault("mqtt.ha_discovery_enable", false)
	v.SetDefault("mqtt.ha_discovery_topic", "homeassistant")
	v.SetDefault("http.enable", true)
	v.SetDefault("http.port", 8080)
}

// Load reads configuration from v: defaults, then the file named by the
// "config" key if any, then STAGG_* environment variables and bound flags.
func Load(v *viper.Viper) (*Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file := v.GetString("config"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", file, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	cfg.LogLevel = logging.ParseLevel(v.GetString("log_level"))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings every command relies on.
func (c *Config) Validate() error {
	switch c.Transport {
	case TransportBLE, TransportSerial, TransportWebSocket:
	default:
		return fmt.Errorf("config param transport must be one of %s, %s, %s (got %q)",
			TransportBLE, TransportSerial, TransportWebSocket, c.Transport)
	}
	switch c.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf("config param log_format must be console or json (got %q)", c.LogFormat)
	}

	if c.Session.Timeout < time.Second {
		return errors.New("config param session.timeout should be >= 1s")
	}
	if c.Session.BackoffInitial <= 0 || c.Session.BackoffMax < c.Session.BackoffInitial {
		return errors.New("config param session.backoff_max must be >= session.backoff_initial > 0")
	}
	if c.Session.MaxConnectAttempts < 0 {
		return errors.New("config param session.max_connect_attempts must be >= 0")
	}
	if c.PollInterval < time.Second {
		return errors.New("config param poll_interval should be >= 1s")
	}

	baseTopic, err := CheckMQTTTopic(c.MQTT.BaseTopic)
	if err != nil {
		return fmt.Errorf("invalid mqtt.base_topic: %w", err)
	}
	c.MQTT.BaseTopic = baseTopic
	discoveryTopic, err := CheckMQTTTopic(c.MQTT.HADiscoveryTopic)
	if err != nil {
		return fmt.Errorf("invalid mqtt.ha_discovery_topic: %w", err)
	}
	c.MQTT.HADiscoveryTopic = discoveryTopic

	return nil
}

// RequireDevice checks the settings needed to reach a kettle.
func (c *Config) RequireDevice() error {
	if c.Device.Address == "" {
		return errors.New("no kettle address: set --address or device.address")
	}
	if c.Device.ServiceUUID == "" || c.Device.CharacteristicUUID == "" {
		return errors.New("device.service_uuid and device.characteristic_uuid must be set")
	}
	switch c.Transport {
	case TransportSerial:
		if c.Serial.Port == "" {
			return errors.New("serial transport needs --port or serial.port")
		}
	case TransportWebSocket:
		if c.WebSocket.URL == "" {
			return errors.New("websocket transport needs --url or websocket.url")
		}
	}
	return nil
}

// KettleConfig converts the session settings for kettle.NewSession.
func (s SessionConfig) KettleConfig() kettle.Config {
	return kettle.Config{
		Timeout:            s.Timeout,
		BackoffInitial:     s.BackoffInitial,
		BackoffMax:         s.BackoffMax,
		MaxConnectAttempts: s.MaxConnectAttempts,
		WriteSpacing:       s.WriteSpacing,
		VerifyTimeout:      s.VerifyTimeout,
	}
}

// Redacted returns a copy safe to log.
func (c Config) Redacted() Config {
	if c.MQTT.Username != "" {
		c.MQTT.Username = "*redacted*"
	}
	if c.MQTT.Password != "" {
		c.MQTT.Password = "*redacted*"
	}
	return c
}

var topicRegexp = regexp.MustCompile("^[a-z0-9_]+$")

// CheckMQTTTopic lowercases a topic segment and checks it only contains
// letters, numbers and underscores.
func CheckMQTTTopic(topic string) (string, error) {
	lower := strings.ToLower(topic)
	if !topicRegexp.MatchString(lower) {
		return "", errors.New("invalid topic. can only contain letters, numbers and underscores")
	}
	return lower, nil
}
