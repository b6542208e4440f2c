// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"log"

	"github.com/relabs-tech/rmc_logger/internal/app"
	"github.com/relabs-tech/rmc_logger/internal/config"
)

func main() {
	log.Println("starting rmc-logger (NMEA RMC → sinks)")

	// Load configuration
	if err := config.InitGlobal("rmc_config.txt"); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := app.RunLogger(); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
