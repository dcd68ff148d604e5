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

// loqa-dictate is the push-to-talk dictation daemon. A hotkey helper
// (tray app, window manager binding) drives it with signals: SIGUSR1
// toggles recording on press/release, SIGUSR2 cancels the recording in
// progress.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/loqalabs/loqa-dictate/internal/asr"
	"github.com/loqalabs/loqa-dictate/internal/audio"
	"github.com/loqalabs/loqa-dictate/internal/config"
	"github.com/loqalabs/loqa-dictate/internal/enhance"
	"github.com/loqalabs/loqa-dictate/internal/logging"
	"github.com/loqalabs/loqa-dictate/internal/messaging"
	"github.com/loqalabs/loqa-dictate/internal/models"
	"github.com/loqalabs/loqa-dictate/internal/notify"
	"github.com/loqalabs/loqa-dictate/internal/output"
	"github.com/loqalabs/loqa-dictate/internal/pipeline"
	"github.com/loqalabs/loqa-dictate/internal/server"
	"github.com/loqalabs/loqa-dictate/internal/storage"
	"github.com/loqalabs/loqa-dictate/internal/vocab"
)

func main() {
	// Load .env if present; real environment wins
	_ = godotenv.Load()

	// Initialize structured logging
	if err := logging.Initialize(); err != nil {
		log.Fatalf("Failed to initialize logging: %v", err)
	}
	defer logging.Close()

	cfg, err := config.Load()
	if err != nil {
		logging.LogError(err, "Invalid configuration")
		log.Fatalf("Invalid configuration: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Transcription history
	db, err := storage.NewDatabase(storage.DatabaseConfig{Path: cfg.Storage.DBPath})
	if err != nil {
		logging.LogError(err, "Failed to open history database")
		log.Fatalf("Failed to open history database: %v", err)
	}
	defer func() { _ = db.Close() }()
	store := storage.NewTranscriptionsStore(db)

	// Optional NATS event bus
	var natsService *messaging.NATSService
	if cfg.NATS.Enabled {
		natsService, err = messaging.NewNATSService(cfg.NATS)
		if err == nil {
			err = natsService.Connect()
		}
		if err != nil {
			logging.LogWarn("NATS unavailable, continuing without messaging", zap.Error(err))
			natsService = nil
		} else {
			defer natsService.Close()
		}
	}

	// ASR model cache, with progress mirrored onto the bus
	manager := models.NewManager(cfg.ASR.ModelID, cfg.ASR.ModelsDir, models.NewDownloader(),
		func(state models.EngineState, message string) {
			if natsService == nil {
				return
			}
			_ = natsService.PublishModelProgress(&messaging.ModelProgressEvent{
				ModelID:   cfg.ASR.ModelID,
				State:     state.String(),
				Timestamp: time.Now().Unix(),
			})
		},
		func(downloaded, total int64) {
			if natsService == nil || total <= 0 {
				return
			}
			_ = natsService.PublishModelProgress(&messaging.ModelProgressEvent{
				ModelID:         cfg.ASR.ModelID,
				State:           models.StateDownloading.String(),
				BytesDownloaded: downloaded,
				BytesTotal:      total,
				Percent:         float64(downloaded) / float64(total) * 100,
				Timestamp:       time.Now().Unix(),
			})
		})
	// Only the whisper backend loads local weights; REST needs no files,
	// so nothing is downloaded for it.
	if cfg.ASR.Backend == "whisper" {
		if cfg.ASR.WhisperPath == "" {
			cfg.ASR.WhisperPath = models.ModelPath(cfg.ASR.ModelsDir, cfg.ASR.ModelID)
		}
		if err := manager.EnsureModel(ctx); err != nil {
			logging.LogWarn("Model preparation failed", zap.Error(err))
		}
	}

	// Transcription backend
	transcriber, err := asr.NewTranscriber(cfg.ASR)
	if err != nil {
		logging.LogError(err, "Failed to initialize ASR backend")
		log.Fatalf("Failed to initialize ASR backend: %v", err)
	}
	defer func() { _ = transcriber.Close() }()

	// Vocabulary rules
	rules, err := vocab.Load(cfg.Vocabulary.RulesPath)
	if err != nil {
		logging.LogError(err, "Failed to load vocabulary rules")
		log.Fatalf("Failed to load vocabulary rules: %v", err)
	}
	rules.CaseSensitive = cfg.Vocabulary.CaseSensitive

	// Optional LLM enhancement
	enhancer, err := enhance.NewEnhancer(ctx, cfg.Enhance)
	if err != nil {
		logging.LogError(err, "Failed to initialize enhancement provider")
		log.Fatalf("Failed to initialize enhancement provider: %v", err)
	}

	// Text output
	injector, err := output.NewInjector(cfg.Output.Mode, cfg.Output.CharsPerSecond)
	if err != nil {
		log.Fatalf("Failed to initialize output: %v", err)
	}

	var notifier notify.Notifier = notify.NewDesktopNotifier()
	if natsService != nil {
		bus := natsService
		notifier = notify.NewBroadcastNotifier(notifier, func(level, message string) {
			if err := bus.PublishNotification(&messaging.NotificationEvent{
				Level:     level,
				Message:   message,
				Timestamp: time.Now().Unix(),
			}); err != nil {
				logging.LogWarn("Failed to publish notification", zap.Error(err))
			}
		})
	}

	pipe, err := pipeline.New(pipeline.Options{
		Transcriber:    transcriber,
		BackendName:    cfg.ASR.Backend,
		Rules:          rules,
		Enhancer:       enhancer,
		EnhanceTimeout: cfg.Enhance.Timeout,
		Injector:       injector,
		Notifier:       notifier,
		Store:          store,
		NATS:           natsService,
	})
	if err != nil {
		log.Fatalf("Failed to build pipeline: %v", err)
	}

	recorder := audio.NewRecorder(cfg.Audio.SampleRate, cfg.Audio.MaxSeconds, nil)

	// History retention
	if cfg.Storage.RetentionDays > 0 {
		go pruneHistory(ctx, store, db, cfg.Storage.RetentionDays)
	}

	// Local HTTP API
	srv := server.New(cfg, store, manager)
	go func() {
		if err := srv.Start(); err != nil {
			logging.LogError(err, "HTTP server failed")
		}
	}()

	log.Printf("🎙️  loqa-dictate ready (backend: %s, output: %s)", cfg.ASR.Backend, cfg.Output.Mode)

	runSignalLoop(ctx, recorder, pipe, notifier)

	// Shutdown
	cancel()
	if err := srv.Stop(); err != nil {
		logging.LogError(err, "HTTP server shutdown failed")
	}
	pipe.Wait()
	log.Println("👋 loqa-dictate stopped")
}

// runSignalLoop consumes the external press/release source. SIGUSR1
// toggles recording, SIGUSR2 cancels, SIGINT/SIGTERM exit.
func runSignalLoop(ctx context.Context, recorder *audio.Recorder, pipe *pipeline.Pipeline, notifier notify.Notifier) {
	toggle := make(chan os.Signal, 1)
	cancelRec := make(chan os.Signal, 1)
	quit := make(chan os.Signal, 1)
	signal.Notify(toggle, syscall.SIGUSR1)
	signal.Notify(cancelRec, syscall.SIGUSR2)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-toggle:
			// Any non-idle state means there is audio to collect: an
			// active recording, or one that already hit the time cap and
			// parked its result for Stop to pick up.
			if recorder.State() != audio.StateIdle {
				result, err := recorder.Stop()
				if err != nil {
					logging.LogError(err, "Recording failed")
					notifier.Error("Recording failed")
					continue
				}
				go func() {
					if _, err := pipe.Run(ctx, result.Samples, result.SampleRate); err != nil {
						logging.LogError(err, "Dictation failed")
					}
				}()
			} else {
				if err := recorder.Start(ctx); err != nil {
					logging.LogError(err, "Could not start recording")
					notifier.Error("Could not start recording")
				} else {
					log.Println("🔴 Recording")
				}
			}

		case <-cancelRec:
			if recorder.State() != audio.StateIdle {
				if _, err := recorder.Cancel(); err != nil {
					logging.LogError(err, "Cancel failed")
				} else {
					log.Println("🚫 Recording canceled")
				}
			}

		case <-quit:
			if recorder.State() != audio.StateIdle {
				_, _ = recorder.Cancel()
			}
			return
		}
	}
}

// pruneHistory deletes transcriptions older than the retention window,
// once at startup and then daily. After a pruning pass it checkpoints the
// WAL and vacuums so the reclaimed space is returned to the filesystem.
func pruneHistory(ctx context.Context, store *storage.TranscriptionsStore, db *storage.Database, retentionDays int) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		cutoff := time.Now().AddDate(0, 0, -retentionDays)
		deleted, err := store.DeleteOlderThan(cutoff)
		if err != nil {
			logging.LogError(err, "History pruning failed")
		} else if deleted > 0 {
			log.Printf("🧹 Pruned %d transcriptions older than %d days", deleted, retentionDays)
			if err := db.Checkpoint(); err != nil {
				logging.LogWarn("WAL checkpoint failed", zap.Error(err))
			}
			if err := db.Vacuum(); err != nil {
				logging.LogWarn("Vacuum failed", zap.Error(err))
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
