// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Dana Sorel, Irradiant
//
// Lampion - Filament LED Strip Bridge
//
// A bridge and toolbox for the Filament wire protocol: it runs addressable
// LED strips from a serial or WebSocket host, and ships host-side commands
// for sending colors, playing animations, and debugging streams.

package main

import (
	"os"

	"github.com/Irradiant/lampion/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
