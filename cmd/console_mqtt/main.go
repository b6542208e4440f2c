package main

import (
	"log"

	"github.com/relabs-tech/rmc_logger/internal/app"
	"github.com/relabs-tech/rmc_logger/internal/config"
)

func main() {
	log.Println("starting rmc-logger console (MQTT subscriber)")

	// Load configuration
	if err := config.InitGlobal("rmc_config.txt"); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := app.RunConsoleMQTT(); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
