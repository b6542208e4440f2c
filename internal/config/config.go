// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration values.
type Config struct {
	// Framing and decoding
	MaxLen        int    `yaml:"max_len"`     // whole-sentence bound, '$' through checksum
	SentenceID    string `yaml:"sentence_id"` // exact first field, e.g. GPRMC
	FixCap        int    `yaml:"fix_cap"`     // successful fixes that end a session; 0 = no cap
	StopOnLineEnd bool   `yaml:"stop_on_line_end"`

	// Resource policy
	Workers    int `yaml:"workers"`     // concurrent decode tasks
	FrameQueue int `yaml:"frame_queue"` // frames buffered between framer and dispatcher

	// GPS source
	GPSSerialPort     string `yaml:"gps_serial_port"`
	GPSBaudRate       int    `yaml:"gps_baud_rate"`
	ReplayFile        string `yaml:"replay_file"`
	ReplayBytesPerSec int    `yaml:"replay_bytes_per_sec"` // 0 = as fast as possible

	// Sinks
	OutputFile string `yaml:"output_file"`
	DBPath     string `yaml:"db_path"`

	// MQTT
	MQTTBroker          string `yaml:"mqtt_broker"`
	MQTTClientIDGPS     string `yaml:"mqtt_client_id_gps"`
	MQTTClientIDConsole string `yaml:"mqtt_client_id_console"`
	MQTTClientIDWeb     string `yaml:"mqtt_client_id_web"`
	MQTTClientIDDisplay string `yaml:"mqtt_client_id_display"`

	// Topics
	TopicGPS      string `yaml:"topic_gps"`
	TopicGPSSkips string `yaml:"topic_gps_skips"`

	// Web Server
	WebServerPort int    `yaml:"web_server_port"`
	WebStaticDir  string `yaml:"web_static_dir"`
	MetricsAddr   string `yaml:"metrics_addr"` // logger /metrics listen address; empty disables

	// Display
	DisplayI2CAddr        uint16 `yaml:"display_i2c_addr"`
	DisplayUpdateInterval int    `yaml:"display_update_interval"` // milliseconds
}

// Defaults returns the configuration used for any key a file leaves unset.
func Defaults() *Config {
	return &Config{
		MaxLen:                82,
		SentenceID:            "GPRMC",
		FixCap:                100,
		Workers:               8,
		FrameQueue:            32,
		GPSBaudRate:           9600,
		MQTTClientIDGPS:       "rmc-logger",
		MQTTClientIDConsole:   "rmc-console-subscriber",
		MQTTClientIDWeb:       "rmc-web-subscriber",
		MQTTClientIDDisplay:   "rmc-display",
		TopicGPS:              "rmc/gps",
		WebServerPort:         8080,
		WebStaticDir:          "web",
		DisplayI2CAddr:        0x3C,
		DisplayUpdateInterval: 500,
	}
}

var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Load reads the configuration file and returns a Config struct. Files named
// *.yaml or *.yml are decoded as YAML; anything else uses KEY=VALUE lines.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	cfg := Defaults()
	switch strings.ToLower(filepath.Ext(configPath)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(file)
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	default:
		if err := cfg.parseKeyValues(file); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) parseKeyValues(file *os.File) error {
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := c.setValue(key, value); err != nil {
			return fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}
	return nil
}

func atoi(key, value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return n, nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	var err error
	switch key {
	case "MAX_LEN":
		c.MaxLen, err = atoi(key, value)
	case "SENTENCE_ID":
		c.SentenceID = value
	case "FIX_CAP":
		c.FixCap, err = atoi(key, value)
	case "STOP_ON_LINE_END":
		c.StopOnLineEnd, err = strconv.ParseBool(value)
		if err != nil {
			err = fmt.Errorf("invalid %s %q: %w", key, value, err)
		}
	case "WORKERS":
		c.Workers, err = atoi(key, value)
	case "FRAME_QUEUE":
		c.FrameQueue, err = atoi(key, value)

	case "GPS_SERIAL_PORT":
		c.GPSSerialPort = value
	case "GPS_BAUD_RATE":
		c.GPSBaudRate, err = atoi(key, value)
	case "REPLAY_FILE":
		c.ReplayFile = value
	case "REPLAY_BYTES_PER_SEC":
		c.ReplayBytesPerSec, err = atoi(key, value)

	case "OUTPUT_FILE":
		c.OutputFile = value
	case "DB_PATH":
		c.DBPath = value

	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_GPS":
		c.MQTTClientIDGPS = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value
	case "MQTT_CLIENT_ID_WEB":
		c.MQTTClientIDWeb = value
	case "MQTT_CLIENT_ID_DISPLAY":
		c.MQTTClientIDDisplay = value
	case "TOPIC_GPS":
		c.TopicGPS = value
	case "TOPIC_GPS_SKIPS":
		c.TopicGPSSkips = value

	case "WEB_SERVER_PORT":
		c.WebServerPort, err = atoi(key, value)
	case "WEB_STATIC_DIR":
		c.WebStaticDir = value
	case "METRICS_ADDR":
		c.MetricsAddr = value

	case "DISPLAY_I2C_ADDR":
		addr, perr := strconv.ParseUint(value, 0, 16)
		if perr != nil {
			return fmt.Errorf("invalid DISPLAY_I2C_ADDR %q: %w", value, perr)
		}
		c.DisplayI2CAddr = uint16(addr)
	case "DISPLAY_UPDATE_INTERVAL":
		c.DisplayUpdateInterval, err = atoi(key, value)

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}
	return err
}

// Validate checks ranges and that a GPS source is configured.
func (c *Config) Validate() error {
	if c.MaxLen < 5 {
		return fmt.Errorf("MAX_LEN must be at least 5, got %d", c.MaxLen)
	}
	if c.SentenceID == "" || strings.ContainsAny(c.SentenceID, "$*,\r\n") {
		return fmt.Errorf("SENTENCE_ID %q must be non-empty and free of '$', '*', ','", c.SentenceID)
	}
	if c.FixCap < 0 {
		return fmt.Errorf("FIX_CAP must be 0 (no cap) or positive, got %d", c.FixCap)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("WORKERS must be positive, got %d", c.Workers)
	}
	if c.FrameQueue <= 0 {
		return fmt.Errorf("FRAME_QUEUE must be positive, got %d", c.FrameQueue)
	}
	if c.GPSSerialPort == "" && c.ReplayFile == "" {
		return fmt.Errorf("GPS_SERIAL_PORT or REPLAY_FILE is required")
	}
	if c.GPSSerialPort != "" && c.GPSBaudRate <= 0 {
		return fmt.Errorf("GPS_BAUD_RATE must be positive, got %d", c.GPSBaudRate)
	}
	if c.ReplayBytesPerSec < 0 {
		return fmt.Errorf("REPLAY_BYTES_PER_SEC must not be negative, got %d", c.ReplayBytesPerSec)
	}
	if c.WebServerPort < 0 || c.WebServerPort > 65535 {
		return fmt.Errorf("WEB_SERVER_PORT out of range: %d", c.WebServerPort)
	}
	if c.DisplayUpdateInterval <= 0 {
		return fmt.Errorf("DISPLAY_UPDATE_INTERVAL must be positive, got %d", c.DisplayUpdateInterval)
	}
	if c.MQTTBroker != "" && c.TopicGPS == "" {
		return fmt.Errorf("TOPIC_GPS is required when MQTT_BROKER is set")
	}
	return nil
}

// InitGlobal initializes the global configuration from file.
// Uses sync.Once to ensure this only runs once, even if called multiple times.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance.
// InitGlobal must be called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
