/*
 * This file is part of Loqa (https://github.com/loqalabs/loqa).
 * Copyright (C) 2025 Loqa Labs
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU Affero General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
 * GNU Affero General Public License for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program. If not, see <https://www.gnu.org/licenses/>.
 */

// Package messaging publishes dictation events over NATS so companion
// tools (tray applets, dashboards) can observe the engine.
package messaging

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/nats-io/nats.go"

	"github.com/loqalabs/loqa-dictate/internal/config"
	"github.com/loqalabs/loqa-dictate/internal/events"
)

// NATSService handles NATS messaging for the dictation engine
type NATSService struct {
	conn *nats.Conn
	cfg  config.NATSConfig
}

// ModelProgressEvent reports model download progress
type ModelProgressEvent struct {
	ModelID         string  `json:"model_id"`
	State           string  `json:"state"`
	BytesDownloaded int64   `json:"bytes_downloaded"`
	BytesTotal      int64   `json:"bytes_total"`
	Percent         float64 `json:"percent"`
	Timestamp       int64   `json:"timestamp"`
}

// NotificationEvent mirrors desktop notifications onto the bus
type NotificationEvent struct {
	Level     string `json:"level"` // "info", "warn", "error"
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
}

// NATS subjects for different event types
const (
	SubjectTranscriptions = "dictate.transcriptions"
	SubjectModelProgress  = "dictate.models.progress"
	SubjectNotifications  = "dictate.notifications"
)

// NewNATSService creates a new NATS service instance
func NewNATSService(cfg config.NATSConfig) (*NATSService, error) {
	if cfg.URL == "" {
		cfg.URL = "nats://localhost:4222"
	}

	return &NATSService{
		cfg: cfg,
	}, nil
}

// Connect establishes connection to the NATS server
func (ns *NATSService) Connect() error {
	log.Printf("🔌 Connecting to NATS at %s", ns.cfg.URL)

	// Connection options with retry logic
	opts := []nats.Option{
		nats.Name("loqa-dictate"),
		nats.ReconnectWait(ns.cfg.ReconnectWait),
		nats.MaxReconnects(ns.cfg.MaxReconnect),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Printf("⚠️  NATS disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Printf("🔄 NATS reconnected to %s", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			log.Println("🔌 NATS connection closed")
		}),
	}

	conn, err := nats.Connect(ns.cfg.URL, opts...)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}

	ns.conn = conn
	log.Printf("✅ Connected to NATS server at %s", conn.ConnectedUrl())
	return nil
}

// PublishTranscription publishes a completed transcription event
func (ns *NATSService) PublishTranscription(event *events.TranscriptionEvent) error {
	if ns.conn == nil {
		return fmt.Errorf("NATS connection not established")
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal transcription event: %w", err)
	}

	if err := ns.conn.Publish(SubjectTranscriptions, data); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", SubjectTranscriptions, err)
	}

	log.Printf("📤 Published transcription to NATS - UUID: %s, Backend: %s",
		event.UUID, event.Backend)
	return nil
}

// PublishModelProgress publishes a model download progress event
func (ns *NATSService) PublishModelProgress(event *ModelProgressEvent) error {
	if ns.conn == nil {
		return fmt.Errorf("NATS connection not established")
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal model progress event: %w", err)
	}

	if err := ns.conn.Publish(SubjectModelProgress, data); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", SubjectModelProgress, err)
	}

	return nil
}

// PublishNotification publishes a notification event
func (ns *NATSService) PublishNotification(event *NotificationEvent) error {
	if ns.conn == nil {
		return fmt.Errorf("NATS connection not established")
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal notification event: %w", err)
	}

	if err := ns.conn.Publish(SubjectNotifications, data); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", SubjectNotifications, err)
	}

	return nil
}

// SubscribeToTranscriptions subscribes to completed transcription events
func (ns *NATSService) SubscribeToTranscriptions(handler func(*events.TranscriptionEvent)) (*nats.Subscription, error) {
	if ns.conn == nil {
		return nil, fmt.Errorf("NATS connection not established")
	}

	return ns.conn.Subscribe(SubjectTranscriptions, func(msg *nats.Msg) {
		var event events.TranscriptionEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			log.Printf("❌ Error unmarshaling transcription event: %v", err)
			return
		}

		log.Printf("📥 Received transcription from NATS - UUID: %s", event.UUID)
		handler(&event)
	})
}

// SubscribeToModelProgress subscribes to model download progress events
func (ns *NATSService) SubscribeToModelProgress(handler func(*ModelProgressEvent)) (*nats.Subscription, error) {
	if ns.conn == nil {
		return nil, fmt.Errorf("NATS connection not established")
	}

	return ns.conn.Subscribe(SubjectModelProgress, func(msg *nats.Msg) {
		var event ModelProgressEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			log.Printf("❌ Error unmarshaling model progress event: %v", err)
			return
		}

		handler(&event)
	})
}

// SubscribeToNotifications subscribes to mirrored desktop notifications
func (ns *NATSService) SubscribeToNotifications(handler func(*NotificationEvent)) (*nats.Subscription, error) {
	if ns.conn == nil {
		return nil, fmt.Errorf("NATS connection not established")
	}

	return ns.conn.Subscribe(SubjectNotifications, func(msg *nats.Msg) {
		var event NotificationEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			log.Printf("❌ Error unmarshaling notification event: %v", err)
			return
		}

		handler(&event)
	})
}

// Close closes the NATS connection
func (ns *NATSService) Close() {
	if ns.conn != nil {
		ns.conn.Close()
		log.Println("🔌 NATS connection closed")
	}
}

// IsConnected returns true if connected to NATS
func (ns *NATSService) IsConnected() bool {
	return ns.conn != nil && ns.conn.IsConnected()
}

// GetStats returns connection statistics
func (ns *NATSService) GetStats() nats.Statistics {
	if ns.conn != nil {
		return ns.conn.Stats()
	}
	return nats.Statistics{}
}
