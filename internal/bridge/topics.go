// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package bridge

import (
	"fmt"
	"regexp"
)

// Command topic names that are not record fields
const (
	CommandSchedule  = "schedule"
	CommandSyncClock = "sync_clock"
	CommandRefresh   = "refresh"
)

// Topics builds every topic under one base topic.
type Topics struct {
	base      string
	commandRe *regexp.Regexp
}

func NewTopics(base string) Topics {
	return Topics{
		base:      base,
		commandRe: regexp.MustCompile(fmt.Sprintf("^%s/([a-z0-9_]+)/set$", regexp.QuoteMeta(base))),
	}
}

func (t Topics) BridgeState() string { return t.base + "/bridge/state" }

func (t Topics) BridgeError() string { return t.base + "/bridge/error" }

// State carries the retained JSON snapshot.
func (t Topics) State() string { return t.base + "/state" }

func (t Topics) Field(name string) string { return fmt.Sprintf("%s/%s", t.base, name) }

func (t Topics) Command(name string) string { return fmt.Sprintf("%s/%s/set", t.base, name) }

// CommandWildcard matches every command topic.
func (t Topics) CommandWildcard() string { return t.base + "/+/set" }

// ParseCommand returns the command name in a command topic.
func (t Topics) ParseCommand(topic string) (string, bool) {
	m := t.commandRe.FindStringSubmatch(topic)
	if m == nil {
		return "", false
	}
	return m[1], true
}
