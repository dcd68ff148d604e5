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

// Package server exposes the dictation engine's local HTTP API:
// health, transcription history, and ASR model status.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/loqalabs/loqa-dictate/internal/api"
	"github.com/loqalabs/loqa-dictate/internal/config"
	"github.com/loqalabs/loqa-dictate/internal/logging"
	"github.com/loqalabs/loqa-dictate/internal/models"
	"github.com/loqalabs/loqa-dictate/internal/storage"
)

// Server is the local HTTP API for history browsing and engine status
type Server struct {
	cfg    *config.Config
	mux    *http.ServeMux
	server *http.Server

	transcriptions *api.TranscriptionsHandler
	modelsHandler  *api.ModelsHandler

	// Server context for graceful shutdown
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a new server
func New(cfg *config.Config, store *storage.TranscriptionsStore, manager *models.Manager) *Server {
	mux := http.NewServeMux()

	// Create server context
	ctx, cancel := context.WithCancel(context.Background())

	s := &Server{
		cfg:            cfg,
		mux:            mux,
		transcriptions: api.NewTranscriptionsHandler(store),
		modelsHandler:  api.NewModelsHandler(cfg.ASR.ModelsDir, manager),
		ctx:            ctx,
		cancel:         cancel,
	}

	// Set up HTTP server. The API is local-only by default; binding to
	// anything other than loopback is the operator's explicit choice.
	s.server = &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler:      s.mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	s.routes()

	return s
}

// Start starts the HTTP server and blocks until shutdown
func (s *Server) Start() error {
	logging.Sugar.Infow("🚀 Loqa Dictate API starting",
		"host", s.cfg.Server.Host,
		"port", s.cfg.Server.Port)

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("HTTP server failed: %w", err)
	}

	return nil
}

// Stop gracefully shuts down the server
func (s *Server) Stop() error {
	logging.Sugar.Infow("🛑 Shutting down Loqa Dictate API")

	// Cancel context to stop background services
	s.cancel()

	// Shutdown HTTP server with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	logging.Sugar.Infow("✅ Loqa Dictate API shut down successfully")
	return nil
}

// Handler returns the route multiplexer, used by tests
func (s *Server) Handler() http.Handler {
	return s.mux
}

// routes sets up HTTP routing
func (s *Server) routes() {
	s.mux.HandleFunc("/health", s.handleHealth)

	// Transcription history
	s.mux.HandleFunc("/api/transcriptions", s.transcriptions.HandleTranscriptions)
	s.mux.HandleFunc("/api/transcriptions/", s.transcriptions.HandleTranscriptionByID)

	// ASR model registry and engine state
	s.mux.HandleFunc("/api/models", s.modelsHandler.HandleModels)

	logging.Sugar.Infow("🌐 HTTP routes configured",
		"history_endpoint", "/api/transcriptions",
		"models_endpoint", "/api/models")
}

// handleHealth provides engine health information
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now(),
		"backend":   s.cfg.ASR.Backend,
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(health); err != nil {
		logging.Sugar.Errorw("Failed to write health response", "error", err)
	}
}
