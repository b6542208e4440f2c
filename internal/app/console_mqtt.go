package app

import (
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/relabs-tech/rmc_logger/internal/config"
	"github.com/relabs-tech/rmc_logger/internal/sink"
)

// formatFeed renders one feed message as a console line.
func formatFeed(m feedMessage) string {
	switch m := m.(type) {
	case sink.FixMessage:
		return fmt.Sprintf("[FIX ] #%-6d time=%s lat=%s lon=%s session=%s",
			m.Order, m.Time, m.Lat, m.Lon, m.Session)
	case sink.SkipMessage:
		return fmt.Sprintf("[SKIP] #%-6d reason=%s session=%s", m.Order, m.Reason, m.Session)
	default:
		return fmt.Sprintf("[????] %v", m)
	}
}

func printFeed(w io.Writer) func(feedMessage) {
	return func(m feedMessage) {
		fmt.Fprintln(w, formatFeed(m))
	}
}

func RunConsoleMQTT() error {
	cfg := config.Get()
	if cfg.MQTTBroker == "" {
		return fmt.Errorf("console: MQTT_BROKER is required")
	}

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDConsole)
	if err != nil {
		return err
	}
	log.Printf("console: connected to MQTT broker at %s", cfg.MQTTBroker)

	if err := subscribeFeed(client, cfg, "console", printFeed(os.Stdout)); err != nil {
		return err
	}

	// Wait for Ctrl+C
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Println("console: shutting down")
	client.Disconnect(250)
	return nil
}
