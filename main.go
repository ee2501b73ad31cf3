// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad
//
// Vescope - VESC Serial Protocol Analyzer
//
// A CLI tool for monitoring, commanding and decoding VESC-style motor
// controllers over serial or WebSocket links.

package main

import (
	"os"

	"github.com/Thermoquad/vescope/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
