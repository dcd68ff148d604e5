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

// dictate-cli is the operator tool for the dictation engine: transcribe
// WAV files, manage ASR models, browse the daemon's history, and watch
// live events on the bus.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"

	"github.com/loqalabs/loqa-dictate/internal/asr"
	"github.com/loqalabs/loqa-dictate/internal/audio"
	"github.com/loqalabs/loqa-dictate/internal/config"
	"github.com/loqalabs/loqa-dictate/internal/enhance"
	"github.com/loqalabs/loqa-dictate/internal/events"
	"github.com/loqalabs/loqa-dictate/internal/logging"
	"github.com/loqalabs/loqa-dictate/internal/messaging"
	"github.com/loqalabs/loqa-dictate/internal/models"
	"github.com/loqalabs/loqa-dictate/internal/vocab"
)

const defaultDaemonURL = "http://127.0.0.1:8090"

func main() {
	var (
		action    = flag.String("action", "models", "Action to perform: transcribe, models, download, history, watch")
		wavPath   = flag.String("file", "", "WAV file for the transcribe action")
		modelID   = flag.String("model", "", "Model ID for the download action")
		daemonURL = flag.String("daemon", defaultDaemonURL, "URL of the running loqa-dictate daemon")
		limit     = flag.Int("limit", 20, "Number of history entries to show")
		format    = flag.String("format", "table", "Output format: table, json")
	)
	flag.Parse()

	_ = godotenv.Load()

	// Keep structured logging out of the CLI's stdout tables
	if os.Getenv("LOG_LEVEL") == "" {
		os.Setenv("LOG_LEVEL", "error")
	}
	if err := logging.Initialize(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to initialize logging: %v\n", err)
		os.Exit(1)
	}
	defer logging.Close()

	var err error
	switch *action {
	case "transcribe":
		if *wavPath == "" {
			err = fmt.Errorf("-file is required for the transcribe action")
		} else {
			err = transcribeFile(*wavPath)
		}
	case "models":
		err = listModels(*format)
	case "download":
		if *modelID == "" {
			err = fmt.Errorf("-model is required for the download action")
		} else {
			err = downloadModel(*modelID)
		}
	case "history":
		err = showHistory(*daemonURL, *limit, *format)
	case "watch":
		err = watchEvents()
	default:
		err = fmt.Errorf("unknown action: %q", *action)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// transcribeFile runs a WAV file through transcription, vocabulary
// substitution, and enhancement, and prints the final text.
func transcribeFile(path string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	samples, sampleRate, err := audio.ReadWAVFile(path)
	if err != nil {
		return fmt.Errorf("failed to read WAV file: %w", err)
	}

	transcriber, err := asr.NewTranscriber(cfg.ASR)
	if err != nil {
		return fmt.Errorf("failed to initialize ASR backend: %w", err)
	}
	defer func() { _ = transcriber.Close() }()

	ctx := context.Background()

	var text string
	if audio.NeedsChunking(samples, sampleRate) {
		chunks := audio.SplitOnSilence(samples, sampleRate)
		parts := make([]string, 0, len(chunks))
		for _, chunk := range chunks {
			part, err := transcriber.Transcribe(ctx, chunk, sampleRate)
			if err != nil {
				return fmt.Errorf("transcription failed: %w", err)
			}
			parts = append(parts, part)
		}
		text = audio.CombineTranscripts(parts)
	} else {
		text, err = transcriber.Transcribe(ctx, samples, sampleRate)
		if err != nil {
			return fmt.Errorf("transcription failed: %w", err)
		}
	}

	rules, err := vocab.Load(cfg.Vocabulary.RulesPath)
	if err != nil {
		return fmt.Errorf("failed to load vocabulary rules: %w", err)
	}
	rules.CaseSensitive = cfg.Vocabulary.CaseSensitive
	text = rules.Apply(text)

	enhancer, err := enhance.NewEnhancer(ctx, cfg.Enhance)
	if err != nil {
		return fmt.Errorf("failed to initialize enhancement provider: %w", err)
	}
	if enhancer != nil {
		enhanceCtx := ctx
		if cfg.Enhance.Timeout > 0 {
			var cancel context.CancelFunc
			enhanceCtx, cancel = context.WithTimeout(ctx, cfg.Enhance.Timeout)
			defer cancel()
		}
		if enhanced, err := enhancer.Enhance(enhanceCtx, text); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: enhancement failed, using unenhanced text: %v\n", err)
		} else {
			text = enhanced
		}
	}

	fmt.Println(text)
	return nil
}

// listModels prints the model registry with local download status
func listModels(format string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	list := models.ListWithStatus(cfg.ASR.ModelsDir)

	if format == "json" {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(list)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tSIZE\tSTATUS")
	for _, m := range list {
		fmt.Fprintf(w, "%s\t%s\t%d MB\t%s\n", m.ID, m.Name, m.SizeMB, m.Status)
	}
	return w.Flush()
}

// downloadModel fetches a model archive into the models dir with progress
func downloadModel(modelID string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if _, ok := models.GetByID(modelID); !ok {
		return fmt.Errorf("unknown model: %s (run -action models for the registry)", modelID)
	}

	if models.IsDownloaded(cfg.ASR.ModelsDir, modelID) {
		fmt.Printf("Model %s is already downloaded\n", modelID)
		return nil
	}

	downloader := models.NewDownloader()
	err = downloader.Download(context.Background(), modelID, cfg.ASR.ModelsDir,
		func(downloaded, total int64) {
			if total > 0 {
				fmt.Printf("\rDownloading %s: %.1f%% (%d/%d MB)",
					modelID,
					float64(downloaded)/float64(total)*100,
					downloaded/(1<<20), total/(1<<20))
			}
		},
		func(status string) {
			fmt.Printf("\n%s\n", status)
		})
	if err != nil {
		return fmt.Errorf("download failed: %w", err)
	}

	fmt.Printf("\nModel %s ready in %s\n", modelID, cfg.ASR.ModelsDir)
	return nil
}

// showHistory queries the daemon's HTTP API and prints recent transcriptions
func showHistory(daemonURL string, limit int, format string) error {
	client := &http.Client{Timeout: 10 * time.Second}

	url := fmt.Sprintf("%s/api/transcriptions?page_size=%d", daemonURL, limit)
	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("failed to connect to daemon at %s: %w", daemonURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("daemon returned status %d", resp.StatusCode)
	}

	var response struct {
		Transcriptions []*events.TranscriptionEvent `json:"transcriptions"`
		Total          int64                        `json:"total"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if format == "json" {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(response.Transcriptions)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tBACKEND\tDURATION\tOK\tTEXT")
	for _, event := range response.Transcriptions {
		text := truncate(event.FinalText, 60)
		fmt.Fprintf(w, "%s\t%s\t%.1fs\t%t\t%s\n",
			event.Timestamp.Format("2006-01-02 15:04:05"),
			event.Backend,
			event.AudioDuration,
			event.Success,
			text)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Printf("\n%d of %d transcriptions\n", len(response.Transcriptions), response.Total)
	return nil
}

// truncate shortens text to at most max runes for table display, never
// cutting inside a multi-byte character.
func truncate(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max-3]) + "..."
}

// watchEvents subscribes to the daemon's NATS subjects and prints
// transcriptions, model progress, and notifications as they happen.
func watchEvents() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	service, err := messaging.NewNATSService(cfg.NATS)
	if err != nil {
		return err
	}
	if err := service.Connect(); err != nil {
		return err
	}
	defer service.Close()

	if _, err := service.SubscribeToTranscriptions(func(event *events.TranscriptionEvent) {
		fmt.Printf("%s  [%s]  %s\n",
			event.Timestamp.Format("15:04:05"), event.Backend, truncate(event.FinalText, 120))
	}); err != nil {
		return err
	}

	if _, err := service.SubscribeToModelProgress(func(event *messaging.ModelProgressEvent) {
		if event.BytesTotal > 0 {
			fmt.Printf("model %s: %s %.1f%%\n", event.ModelID, event.State, event.Percent)
		} else {
			fmt.Printf("model %s: %s\n", event.ModelID, event.State)
		}
	}); err != nil {
		return err
	}

	if _, err := service.SubscribeToNotifications(func(event *messaging.NotificationEvent) {
		fmt.Printf("%s: %s\n", event.Level, event.Message)
	}); err != nil {
		return err
	}

	fmt.Println("Watching dictation events, Ctrl+C to stop")
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	return nil
}
