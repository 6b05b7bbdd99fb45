// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package bridge

import (
	"fmt"
	"strings"

	"github.com/carlmjohnson/versioninfo"

	"github.com/Thermoquad/staggctl/pkg/ekg"
)

// HADiscoveryConfig is a Home Assistant MQTT discovery payload.
type HADiscoveryConfig struct {
	Device            HADiscoveryDevice `json:"device"`
	StateTopic        string            `json:"state_topic"`
	CommandTopic      string            `json:"command_topic,omitempty"`
	DeviceClass       string            `json:"device_class,omitempty"`
	UnitOfMeasurement string            `json:"unit_of_measurement,omitempty"`
	AvTopic           string            `json:"availability_topic,omitempty"`
	EntityCategory    string            `json:"entity_category,omitempty"`
	Name              string            `json:"name"`
	UniqueId          string            `json:"unique_id"`
	Platform          string            `json:"platform"`
	PayloadOn         string            `json:"payload_on,omitempty"`
	PayloadOff        string            `json:"payload_off,omitempty"`
	Icon              string            `json:"icon,omitempty"`
	Min               float64           `json:"min,omitempty"`
	Max               float64           `json:"max,omitempty"`
	Step              float64           `json:"step,omitempty"`
	Mode              string            `json:"mode,omitempty"`
	Options           []string          `json:"options,omitempty"`
}

type HADiscoveryDevice struct {
	Id           []string `json:"identifiers"`
	Manufacturer string   `json:"manufacturer,omitempty"`
	Version      string   `json:"sw_version,omitempty"`
	Model        string   `json:"model,omitempty"`
	Name         string   `json:"name,omitempty"`
}

// HADiscoveryMessage pairs a discovery payload with its config topic.
type HADiscoveryMessage struct {
	Topic  string
	Config HADiscoveryConfig
}

type entity struct {
	component string
	field     ekg.Field
	name      string
	icon      string
	unit      string
	class     string
	category  string
	min, max  float64
	step      float64
	options   []string
	writable  bool
}

var entities = []entity{
	{component: "number", field: ekg.FieldTargetTemp, name: "Target temperature", icon: "mdi:kettle",
		unit: "°C", class: "temperature", min: ekg.TempMinC, max: ekg.TempMaxC, step: 0.5, writable: true},
	{component: "switch", field: ekg.FieldPreboil, name: "Pre-boil", icon: "mdi:kettle-steam", writable: true},
	{component: "number", field: ekg.FieldHold, name: "Hold time", icon: "mdi:timer-outline",
		unit: "min", class: "duration", min: 0, max: ekg.HoldMax, step: 1, writable: true},
	{component: "number", field: ekg.FieldChime, name: "Chime volume", icon: "mdi:volume-high",
		category: "config", min: 0, max: ekg.ChimeMax, step: 1, writable: true},
	{component: "number", field: ekg.FieldAltitude, name: "Altitude", icon: "mdi:image-filter-hdr",
		unit: "m", class: "distance", category: "config", min: 0, max: ekg.AltitudeMenuMax, step: ekg.AltitudeMenuStep, writable: true},
	{component: "select", field: ekg.FieldUnits, name: "Units", category: "config",
		options: []string{ekg.Celsius.String(), ekg.Fahrenheit.String()}, writable: true},
	{component: "select", field: ekg.FieldClockMode, name: "Clock mode", icon: "mdi:clock-outline", category: "config",
		options: []string{ekg.ClockOff.String(), ekg.ClockDigital.String(), ekg.ClockAnalog.String()}, writable: true},
	{component: "binary_sensor", field: ekg.FieldScheduleEnabled, name: "Schedule", icon: "mdi:calendar-clock"},
	{component: "sensor", field: ekg.FieldScheduleTemp, name: "Schedule temperature", unit: "°C", icon: "mdi:thermometer"},
	{component: "sensor", field: ekg.FieldCounter, name: "Write counter", category: "diagnostic"},
}

// NodeID turns a BLE address into a discovery node id.
func NodeID(address string) string {
	id := strings.NewReplacer(":", "", "-", "").Replace(strings.ToLower(address))
	return "stagg_" + id
}

// HADiscoveryMessages lists the discovery payloads for one kettle.
func HADiscoveryMessages(discoveryPrefix string, topics Topics, address string) []HADiscoveryMessage {
	nodeID := NodeID(address)
	dev := HADiscoveryDevice{
		Id:           []string{nodeID},
		Manufacturer: "Fellow",
		Version:      versioninfo.Short(),
		Model:        "Stagg EKG Pro",
		Name:         "Stagg EKG Pro",
	}

	msgs := make([]HADiscoveryMessage, 0, len(entities)+1)
	for _, e := range entities {
		cfg := HADiscoveryConfig{
			Device:            dev,
			StateTopic:        topics.Field(e.field.String()),
			DeviceClass:       e.class,
			UnitOfMeasurement: e.unit,
			AvTopic:           topics.BridgeState(),
			EntityCategory:    e.category,
			Name:              e.name,
			UniqueId:          nodeID + "_" + e.field.String(),
			Platform:          "mqtt",
			Icon:              e.icon,
			Min:               e.min,
			Max:               e.max,
			Step:              e.step,
			Options:           e.options,
		}
		if e.writable {
			cfg.CommandTopic = topics.Command(e.field.String())
		}
		if e.component == "number" {
			cfg.Mode = "box"
		}
		if e.component == "switch" || e.component == "binary_sensor" {
			cfg.PayloadOn = PayloadOn
			cfg.PayloadOff = PayloadOff
		}
		msgs = append(msgs, HADiscoveryMessage{
			Topic:  fmt.Sprintf("%s/%s/%s/%s/config", discoveryPrefix, e.component, nodeID, e.field),
			Config: cfg,
		})
	}

	msgs = append(msgs, HADiscoveryMessage{
		Topic: fmt.Sprintf("%s/binary_sensor/%s/bridge/config", discoveryPrefix, nodeID),
		Config: HADiscoveryConfig{
			Device:         dev,
			StateTopic:     topics.BridgeState(),
			DeviceClass:    "connectivity",
			EntityCategory: "diagnostic",
			Name:           "Bridge",
			UniqueId:       nodeID + "_bridge",
			Platform:       "mqtt",
			PayloadOn:      PayloadOnline,
			PayloadOff:     PayloadOffline,
		},
	})
	return msgs
}
