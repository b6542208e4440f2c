// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/rmc_logger/internal/config"
	"github.com/relabs-tech/rmc_logger/internal/sink"
)

// feedMessage is either a sink.FixMessage or a sink.SkipMessage.
type feedMessage interface{}

// decodeFeed parses one payload published by the MQTT sink.
func decodeFeed(payload []byte) (feedMessage, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(payload, &head); err != nil {
		return nil, err
	}
	switch head.Type {
	case sink.TypeFix:
		var m sink.FixMessage
		if err := json.Unmarshal(payload, &m); err != nil {
			return nil, err
		}
		return m, nil
	case sink.TypeSkip:
		var m sink.SkipMessage
		if err := json.Unmarshal(payload, &m); err != nil {
			return nil, err
		}
		return m, nil
	default:
		return nil, fmt.Errorf("unknown message type %q", head.Type)
	}
}

// subscribeFeed delivers fix and skip messages from the configured topics.
func subscribeFeed(client mqtt.Client, cfg *config.Config, component string, handle func(feedMessage)) error {
	topics := []string{cfg.TopicGPS}
	if cfg.TopicGPSSkips != "" {
		topics = append(topics, cfg.TopicGPSSkips)
	}
	for _, topic := range topics {
		token := client.Subscribe(topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
			m, err := decodeFeed(msg.Payload())
			if err != nil {
				log.Printf("%s: %s unmarshal error: %v", component, msg.Topic(), err)
				return
			}
			handle(m)
		})
		token.Wait()
		if token.Error() != nil {
			return token.Error()
		}
		log.Printf("%s: subscribed to %s", component, topic)
	}
	return nil
}

// forwardToHub relays a feed message to WebSocket clients.
func forwardToHub(hub *sink.Hub, m feedMessage) {
	var err error
	switch m := m.(type) {
	case sink.FixMessage:
		err = hub.BroadcastFix(m)
	default:
		err = hub.Broadcast(m)
	}
	if err != nil {
		log.Printf("web: broadcast error: %v", err)
	}
}

// newWebMux serves the live feed, the latest fix and the static page.
func newWebMux(hub *sink.Hub, staticDir string) *http.ServeMux {
	mux := http.NewServeMux()

	mux.Handle("/ws", hub)

	mux.HandleFunc("/api/fix", func(w http.ResponseWriter, r *http.Request) {
		latest, ok := hub.Latest()
		if !ok {
			http.Error(w, "no data yet", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(latest); err != nil {
			log.Printf("web: json encode error: %v", err)
		}
	})

	mux.Handle("/", http.FileServer(http.Dir(staticDir)))
	return mux
}

// RunWeb subscribes to the logger's MQTT feed and serves it to browsers.
func RunWeb() error {
	cfg := config.Get()
	if cfg.MQTTBroker == "" {
		return fmt.Errorf("web: MQTT_BROKER is required")
	}

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDWeb)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)
	log.Printf("web: connected to MQTT broker at %s", cfg.MQTTBroker)

	hub := sink.NewHub("")
	defer hub.Close()

	if err := subscribeFeed(client, cfg, "web", func(m feedMessage) { forwardToHub(hub, m) }); err != nil {
		return err
	}

	addr := fmt.Sprintf(":%d", cfg.WebServerPort)
	log.Printf("web: server listening on %s", addr)
	return http.ListenAndServe(addr, newWebMux(hub, cfg.WebStaticDir))
}
