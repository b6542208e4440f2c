package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/rmc_logger/internal/config"
	"github.com/relabs-tech/rmc_logger/internal/sink"
)

// feedToDisplay applies one feed message to the display state.
func feedToDisplay(d *sink.Display, m feedMessage) error {
	switch m := m.(type) {
	case sink.FixMessage:
		fix, err := m.Fix()
		if err != nil {
			return err
		}
		return d.WriteFix(m.Order, fix)
	case sink.SkipMessage:
		return d.Skip(m.Order, m.Err())
	default:
		return fmt.Errorf("unexpected feed message %T", m)
	}
}

func RunDisplay() error {
	cfg := config.Get()
	if cfg.MQTTBroker == "" {
		return fmt.Errorf("display: MQTT_BROKER is required")
	}

	// Initialize periph
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("failed to initialize periph: %w", err)
	}

	// Open I2C bus
	bus, err := i2creg.Open("")
	if err != nil {
		return fmt.Errorf("failed to open I2C bus: %w", err)
	}
	defer bus.Close()

	dev, err := ssd1306.NewI2C(bus, cfg.DisplayI2CAddr, &ssd1306.DefaultOpts)
	if err != nil {
		return fmt.Errorf("failed to initialize display: %w", err)
	}
	defer dev.Halt()
	log.Printf("display: initialized at 0x%02X", cfg.DisplayI2CAddr)

	if err := sink.ShowSplash(dev); err != nil {
		log.Printf("display: error showing splash: %v", err)
	}

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDDisplay)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)
	log.Printf("display: connected to MQTT broker at %s", cfg.MQTTBroker)

	state := sink.NewDisplay()
	err = subscribeFeed(client, cfg, "display", func(m feedMessage) {
		if err := feedToDisplay(state, m); err != nil {
			log.Printf("display: %v", err)
		}
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	interval := time.Duration(cfg.DisplayUpdateInterval) * time.Millisecond
	err = state.Run(ctx, dev, interval)
	state.Close()
	if errors.Is(err, context.Canceled) {
		log.Println("display: shutting down")
		return nil
	}
	return err
}
