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

package models

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/loqalabs/loqa-dictate/internal/logging"
)

// EngineState tracks the model lifecycle
type EngineState int

const (
	StateNotLoaded EngineState = iota
	StateDownloading
	StateLoading
	StateReady
	StateError
)

// String returns the state name
func (s EngineState) String() string {
	switch s {
	case StateNotLoaded:
		return "not_loaded"
	case StateDownloading:
		return "downloading"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// StateChangeFunc receives state transitions with a human-readable message
type StateChangeFunc func(state EngineState, message string)

// Manager ensures the configured model is present locally, downloading it
// on first use, and tracks the lifecycle for status reporting.
type Manager struct {
	modelID    string
	modelsDir  string
	downloader *Downloader

	mu       sync.Mutex
	state    EngineState
	lastErr  string
	onState  StateChangeFunc
	progress ProgressFunc
}

// NewManager creates a model manager. Callbacks may be nil.
func NewManager(modelID, modelsDir string, downloader *Downloader, onState StateChangeFunc, onProgress ProgressFunc) *Manager {
	if downloader == nil {
		downloader = NewDownloader()
	}
	return &Manager{
		modelID:    modelID,
		modelsDir:  modelsDir,
		downloader: downloader,
		state:      StateNotLoaded,
		onState:    onState,
		progress:   onProgress,
	}
}

// State returns the current lifecycle state
func (m *Manager) State() EngineState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// LastError returns the message from the most recent failure, if any
func (m *Manager) LastError() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// ModelID returns the configured model identifier
func (m *Manager) ModelID() string {
	return m.modelID
}

func (m *Manager) setState(state EngineState, message string) {
	m.mu.Lock()
	m.state = state
	if state == StateError {
		m.lastErr = message
	}
	onState := m.onState
	m.mu.Unlock()

	logging.LogModelOperation(m.modelID, "state_change",
		zap.String("state", state.String()),
		zap.String("message", message))

	if onState != nil {
		onState(state, message)
	}
}

// EnsureModel makes sure the model is available locally, downloading it if
// missing. Safe to call repeatedly; a ready model is a no-op.
func (m *Manager) EnsureModel(ctx context.Context) error {
	m.mu.Lock()
	if m.state == StateDownloading || m.state == StateLoading {
		m.mu.Unlock()
		return fmt.Errorf("model %s is busy (%s)", m.modelID, m.state)
	}
	m.mu.Unlock()

	if _, ok := GetByID(m.modelID); !ok {
		m.setState(StateError, fmt.Sprintf("unknown model: %s", m.modelID))
		return fmt.Errorf("unknown model: %s", m.modelID)
	}

	if !IsDownloaded(m.modelsDir, m.modelID) {
		m.setState(StateDownloading, "Downloading model...")

		err := m.downloader.Download(ctx, m.modelID, m.modelsDir, m.progress, nil)
		if err != nil {
			m.setState(StateError, fmt.Sprintf("download failed: %v", err))
			return fmt.Errorf("failed to download model %s: %w", m.modelID, err)
		}
	}

	m.setState(StateLoading, "Validating model files...")

	if !IsDownloaded(m.modelsDir, m.modelID) {
		m.setState(StateError, "model files incomplete after download")
		return fmt.Errorf("model %s incomplete after download", m.modelID)
	}

	m.setState(StateReady, "Ready")
	return nil
}
