package main

import (
	"log"

	"github.com/relabs-tech/rmc_logger/internal/app"
	"github.com/relabs-tech/rmc_logger/internal/config"
)

func main() {
	log.Println("starting rmc-logger OLED display (MQTT subscriber)")

	if err := config.InitGlobal("rmc_config.txt"); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := app.RunDisplay(); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
