// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sink

import (
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/rmc_logger/internal/gps"
)

// Publisher is the part of mqtt.Client the MQTT sink needs.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// DefaultPublishTimeout bounds how long one commit waits for the broker.
const DefaultPublishTimeout = 5 * time.Second

// MQTT publishes fixes as FixMessage JSON on a retained topic and, when a
// skip topic is set, skips as SkipMessage JSON.
type MQTT struct {
	pub       Publisher
	session   string
	fixTopic  string
	skipTopic string
	timeout   time.Duration
	closed    bool
}

// NewMQTT returns a sink publishing through pub. An empty skipTopic drops
// skips.
func NewMQTT(pub Publisher, session, fixTopic, skipTopic string) *MQTT {
	return &MQTT{
		pub:       pub,
		session:   session,
		fixTopic:  fixTopic,
		skipTopic: skipTopic,
		timeout:   DefaultPublishTimeout,
	}
}

func (m *MQTT) publish(topic string, retained bool, v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("mqtt: marshal: %w", err)
	}
	token := m.pub.Publish(topic, 0, retained, payload)
	if !token.WaitTimeout(m.timeout) {
		return fmt.Errorf("mqtt: publish to %s timed out after %s", topic, m.timeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt: publish to %s: %w", topic, err)
	}
	return nil
}

func (m *MQTT) WriteFix(order uint64, fix gps.Fix) error {
	if m.closed {
		return ErrClosed
	}
	return m.publish(m.fixTopic, true, NewFixMessage(m.session, order, fix))
}

func (m *MQTT) Skip(order uint64, reason error) error {
	if m.closed {
		return ErrClosed
	}
	if m.skipTopic == "" {
		return nil
	}
	return m.publish(m.skipTopic, false, NewSkipMessage(m.session, order, reason))
}

// Close stops publishing. The client connection belongs to the caller.
func (m *MQTT) Close() error {
	if m.closed {
		return ErrClosed
	}
	m.closed = true
	return nil
}
