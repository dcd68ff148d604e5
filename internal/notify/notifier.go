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

// Package notify surfaces pipeline status to the desktop user.
package notify

import (
	"github.com/gen2brain/beeep"
	"go.uber.org/zap"

	"github.com/loqalabs/loqa-dictate/internal/logging"
)

const appTitle = "Loqa Dictate"

// Notifier surfaces short status messages to the user
type Notifier interface {
	// Info reports normal progress (recording started, text delivered)
	Info(message string)

	// Warn reports a degraded result the user should know about
	// (enhancement skipped, backend fallback)
	Warn(message string)

	// Error reports a failed dictation
	Error(message string)
}

// DesktopNotifier shows OS toast notifications via beeep
type DesktopNotifier struct{}

// NewDesktopNotifier creates a desktop notifier
func NewDesktopNotifier() *DesktopNotifier {
	return &DesktopNotifier{}
}

// Info implements the Notifier interface
func (n *DesktopNotifier) Info(message string) {
	if err := beeep.Notify(appTitle, message, ""); err != nil {
		logging.LogWarn("Failed to show notification", zap.Error(err))
	}
}

// Warn implements the Notifier interface
func (n *DesktopNotifier) Warn(message string) {
	if err := beeep.Notify(appTitle, "⚠️ "+message, ""); err != nil {
		logging.LogWarn("Failed to show notification", zap.Error(err))
	}
}

// Error implements the Notifier interface
func (n *DesktopNotifier) Error(message string) {
	if err := beeep.Alert(appTitle, message, ""); err != nil {
		logging.LogWarn("Failed to show notification", zap.Error(err))
	}
}

// PublishFunc forwards a notification to an external channel, like the
// NATS notifications subject.
type PublishFunc func(level, message string)

// BroadcastNotifier wraps a Notifier and mirrors every message through
// publish, so bus subscribers see what the desktop user sees.
type BroadcastNotifier struct {
	base    Notifier
	publish PublishFunc
}

// NewBroadcastNotifier creates a notifier that mirrors base onto publish
func NewBroadcastNotifier(base Notifier, publish PublishFunc) *BroadcastNotifier {
	return &BroadcastNotifier{base: base, publish: publish}
}

// Info implements the Notifier interface
func (n *BroadcastNotifier) Info(message string) {
	n.base.Info(message)
	n.publish("info", message)
}

// Warn implements the Notifier interface
func (n *BroadcastNotifier) Warn(message string) {
	n.base.Warn(message)
	n.publish("warn", message)
}

// Error implements the Notifier interface
func (n *BroadcastNotifier) Error(message string) {
	n.base.Error(message)
	n.publish("error", message)
}

// LogNotifier writes notifications to the structured log instead of the
// desktop. Used for headless runs and as a fallback when no display is
// available.
type LogNotifier struct{}

// NewLogNotifier creates a log-only notifier
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

// Info implements the Notifier interface
func (n *LogNotifier) Info(message string) {
	if logging.Sugar != nil {
		logging.Sugar.Infof("🔔 %s", message)
	}
}

// Warn implements the Notifier interface
func (n *LogNotifier) Warn(message string) {
	if logging.Sugar != nil {
		logging.Sugar.Warnf("🔔 %s", message)
	}
}

// Error implements the Notifier interface
func (n *LogNotifier) Error(message string) {
	if logging.Sugar != nil {
		logging.Sugar.Errorf("🔔 %s", message)
	}
}
