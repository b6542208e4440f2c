// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/dustin/go-humanize"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/relabs-tech/rmc_logger/internal/config"
	"github.com/relabs-tech/rmc_logger/internal/monitoring"
	"github.com/relabs-tech/rmc_logger/internal/session"
	"github.com/relabs-tech/rmc_logger/internal/sink"
	"github.com/relabs-tech/rmc_logger/internal/source"
)

func sessionConfig(cfg *config.Config) session.Config {
	return session.Config{
		MaxLen:        cfg.MaxLen,
		SentenceID:    cfg.SentenceID,
		FixCap:        cfg.FixCap,
		Workers:       cfg.Workers,
		QueueSize:     cfg.FrameQueue,
		StopOnLineEnd: cfg.StopOnLineEnd,
	}
}

// sinkSet is the fan-out a session writes to plus the parts the caller
// reports on afterwards.
type sinkSet struct {
	*sink.Fanout
	odometer *sink.Odometer
	names    []string
}

// buildSinks creates every sink the configuration asks for. pub may be nil
// when no broker is configured.
func buildSinks(cfg *config.Config, sessionID string, pub sink.Publisher) (*sinkSet, error) {
	var (
		sinks []sink.Sink
		names []string
	)
	closeAll := func() {
		for _, s := range sinks {
			s.Close()
		}
	}

	if cfg.OutputFile != "" {
		f, err := sink.CreateFile(cfg.OutputFile)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, f)
		names = append(names, "file "+cfg.OutputFile)
	}
	if cfg.DBPath != "" {
		db, err := sink.OpenDB(cfg.DBPath, sessionID, cfg.SentenceID)
		if err != nil {
			closeAll()
			return nil, fmt.Errorf("failed to open fix database: %w", err)
		}
		sinks = append(sinks, db)
		names = append(names, "sqlite "+cfg.DBPath)
	}
	if pub != nil {
		sinks = append(sinks, sink.NewMQTT(pub, sessionID, cfg.TopicGPS, cfg.TopicGPSSkips))
		names = append(names, "mqtt "+cfg.TopicGPS)
	}
	if len(sinks) == 0 {
		return nil, errors.New("no sink configured: set OUTPUT_FILE, DB_PATH or MQTT_BROKER")
	}

	odo := sink.NewOdometer()
	sinks = append(sinks, odo)
	return &sinkSet{Fanout: sink.NewFanout(sinks...), odometer: odo, names: names}, nil
}

func connectMQTT(broker, clientID string) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	return client, nil
}

// runSession wires sinks around one session and runs it over src.
func runSession(ctx context.Context, cfg *config.Config, src io.ByteReader, pub sink.Publisher, metrics *monitoring.Metrics) (session.Stats, error) {
	id := uuid.NewString()
	sinks, err := buildSinks(cfg, id, pub)
	if err != nil {
		return session.Stats{}, err
	}
	log.Printf("logger: session %s writing to %v", id, sinks.names)

	sess := session.New(sessionConfig(cfg), sinks, session.WithID(id), session.WithMetrics(metrics))
	stats, err := sess.Run(ctx, src)
	log.Printf("logger: session %s travelled %sm over %d legs",
		id, humanize.Commaf(float64(int64(sinks.odometer.Meters()))), sinks.odometer.Legs())
	return stats, err
}

// RunLogger reads the configured GPS source and commits fixes until the cap,
// end of stream or SIGINT/SIGTERM.
func RunLogger() error {
	cfg := config.Get()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics := monitoring.NewMetrics()
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		srv := &http.Server{Addr: cfg.MetricsAddr, Handler: mux}
		go func() {
			log.Printf("logger: metrics on %s/metrics", cfg.MetricsAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("logger: metrics server error: %v", err)
			}
		}()
		defer srv.Close()
	}

	var pub sink.Publisher
	if cfg.MQTTBroker != "" {
		client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDGPS)
		if err != nil {
			return err
		}
		defer client.Disconnect(250)
		log.Printf("logger: connected to MQTT broker at %s", cfg.MQTTBroker)
		pub = client
	}

	src, err := source.Open(ctx, cfg.GPSSerialPort, cfg.GPSBaudRate, cfg.ReplayFile, cfg.ReplayBytesPerSec)
	if err != nil {
		return err
	}
	defer src.Close()

	stats, err := runSession(ctx, cfg, src, pub, metrics)
	if errors.Is(err, context.Canceled) {
		log.Printf("logger: interrupted after %d fixes", stats.Fixes)
		return nil
	}
	return err
}
