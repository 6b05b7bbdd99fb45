// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad
//
// staggctl - Fellow Stagg EKG Pro kettle controller
//
// A CLI tool for reading and changing the settings of a Stagg EKG Pro
// kettle over BLE, directly or through a serial or WebSocket relay.

package main

import (
	"os"

	"github.com/Thermoquad/staggctl/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
