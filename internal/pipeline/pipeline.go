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

// Package pipeline runs a finished recording through transcription,
// vocabulary substitution, optional LLM enhancement, and text output.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/loqalabs/loqa-dictate/internal/asr"
	"github.com/loqalabs/loqa-dictate/internal/audio"
	"github.com/loqalabs/loqa-dictate/internal/enhance"
	"github.com/loqalabs/loqa-dictate/internal/events"
	"github.com/loqalabs/loqa-dictate/internal/logging"
	"github.com/loqalabs/loqa-dictate/internal/messaging"
	"github.com/loqalabs/loqa-dictate/internal/notify"
	"github.com/loqalabs/loqa-dictate/internal/output"
	"github.com/loqalabs/loqa-dictate/internal/storage"
	"github.com/loqalabs/loqa-dictate/internal/vocab"
)

// ErrPipelineBusy is returned when a dictation is already being processed
var ErrPipelineBusy = errors.New("a dictation is already being processed")

// ErrEmptyRecording is returned when the recording contains no audio
var ErrEmptyRecording = errors.New("recording contains no audio")

// Pipeline orchestrates the dictation stages. Enhancement is always
// best-effort: a provider failure falls back to the substituted text.
type Pipeline struct {
	transcriber    asr.Transcriber
	backendName    string
	rules          *vocab.Rules
	enhancer       enhance.Enhancer // nil when enhancement is disabled
	enhanceTimeout time.Duration
	injector       output.Injector
	notifier       notify.Notifier
	store          *storage.TranscriptionsStore // nil when history is disabled
	nats           *messaging.NATSService       // nil when messaging is disabled

	mu       sync.Mutex
	delivery sync.WaitGroup
}

// Options configures a Pipeline. Transcriber, Injector, and Notifier
// are required; the rest may be nil to disable the stage.
type Options struct {
	Transcriber    asr.Transcriber
	BackendName    string
	Rules          *vocab.Rules
	Enhancer       enhance.Enhancer
	EnhanceTimeout time.Duration
	Injector       output.Injector
	Notifier       notify.Notifier
	Store          *storage.TranscriptionsStore
	NATS           *messaging.NATSService
}

// New creates a dictation pipeline
func New(opts Options) (*Pipeline, error) {
	if opts.Transcriber == nil {
		return nil, fmt.Errorf("transcriber is required")
	}
	if opts.Injector == nil {
		return nil, fmt.Errorf("injector is required")
	}
	if opts.Notifier == nil {
		return nil, fmt.Errorf("notifier is required")
	}
	if opts.BackendName == "" {
		opts.BackendName = "unknown"
	}

	return &Pipeline{
		transcriber:    opts.Transcriber,
		backendName:    opts.BackendName,
		rules:          opts.Rules,
		enhancer:       opts.Enhancer,
		enhanceTimeout: opts.EnhanceTimeout,
		injector:       opts.Injector,
		notifier:       opts.Notifier,
		store:          opts.Store,
		nats:           opts.NATS,
	}, nil
}

// Run processes one recording end to end and returns the event that
// records what happened at every stage. Only one dictation runs at a
// time; a second call while one is in flight fails with ErrPipelineBusy.
func (p *Pipeline) Run(ctx context.Context, samples []float32, sampleRate int) (*events.TranscriptionEvent, error) {
	if !p.mu.TryLock() {
		return nil, ErrPipelineBusy
	}
	defer p.mu.Unlock()

	event := events.NewTranscriptionEvent(p.backendName)
	event.SetAudioMetadata(samples, sampleRate)

	// An empty buffer never reaches the backend and leaves no trace in
	// history: there was no dictation to record.
	if len(samples) == 0 {
		event.SetError(ErrEmptyRecording)
		return event, ErrEmptyRecording
	}

	// Stage 1: speech to text
	rawText, err := p.transcribe(ctx, samples, sampleRate)
	if err != nil {
		event.SetError(err)
		p.record(event)
		p.notifier.Error("Transcription failed")
		return event, err
	}
	event.SetRawText(rawText)
	logging.LogPipelineStage(event.UUID, "transcribe",
		zap.Int("chars", len(rawText)),
		zap.Float64("audio_seconds", event.AudioDuration))

	if strings.TrimSpace(rawText) == "" {
		event.Complete()
		p.record(event)
		p.notifier.Warn("No speech detected")
		return event, nil
	}

	// Stage 2: vocabulary substitution
	text := rawText
	if p.rules != nil {
		text = p.rules.Apply(text)
	}
	event.SetSubstitutedText(text)
	logging.LogPipelineStage(event.UUID, "substitute", zap.Int("chars", len(text)))

	// Stage 3: LLM enhancement, best-effort
	if p.enhancer != nil {
		enhanced, err := p.enhance(ctx, text)
		if err != nil {
			logging.LogWarn("Enhancement failed, using unenhanced text",
				zap.String("event_uuid", event.UUID),
				zap.String("provider", p.enhancer.Name()),
				zap.Error(err))
			p.notifier.Warn("Enhancement unavailable, using raw transcription")
		} else {
			event.SetEnhancedText(enhanced, p.enhancer.Name())
			text = enhanced
			logging.LogPipelineStage(event.UUID, "enhance", zap.Int("chars", len(text)))
		}
	}

	event.Complete()
	p.record(event)

	// Stage 4: deliver to the focused application, fire-and-forget so a
	// slow typed injection never blocks the next recording session. A
	// delivery failure is surfaced as a notification; the transcript
	// stays in history for manual copy.
	p.delivery.Add(1)
	go func() {
		defer p.delivery.Done()
		if err := p.injector.Inject(text); err != nil {
			logging.LogError(err, "Text delivery failed",
				zap.String("event_uuid", event.UUID))
			p.notifier.Error("Could not deliver text to the active window")
			return
		}
		logging.LogPipelineStage(event.UUID, "output", zap.Int("chars", len(text)))
	}()

	return event, nil
}

// Wait blocks until in-flight text deliveries finish. Called on shutdown.
func (p *Pipeline) Wait() {
	p.delivery.Wait()
}

// transcribe runs the ASR backend, chunking long recordings on silence
// so each piece stays within what the backend handles well.
func (p *Pipeline) transcribe(ctx context.Context, samples []float32, sampleRate int) (string, error) {
	if !audio.NeedsChunking(samples, sampleRate) {
		return p.transcriber.Transcribe(ctx, samples, sampleRate)
	}

	chunks := audio.SplitOnSilence(samples, sampleRate)
	parts := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		part, err := p.transcriber.Transcribe(ctx, chunk, sampleRate)
		if err != nil {
			return "", fmt.Errorf("chunk %d/%d: %w", i+1, len(chunks), err)
		}
		parts = append(parts, part)
	}

	return audio.CombineTranscripts(parts), nil
}

// enhance runs the LLM provider under its own timeout
func (p *Pipeline) enhance(ctx context.Context, text string) (string, error) {
	if p.enhanceTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.enhanceTimeout)
		defer cancel()
	}
	return p.enhancer.Enhance(ctx, text)
}

// record persists the event and mirrors it onto the bus, both
// best-effort: history and messaging failures never fail a dictation.
func (p *Pipeline) record(event *events.TranscriptionEvent) {
	if p.store != nil {
		if err := p.store.Insert(event); err != nil {
			logging.LogError(err, "Failed to persist transcription event",
				zap.String("event_uuid", event.UUID))
		}
	}

	if p.nats != nil && p.nats.IsConnected() {
		if err := p.nats.PublishTranscription(event); err != nil {
			logging.LogWarn("Failed to publish transcription event",
				zap.String("event_uuid", event.UUID),
				zap.Error(err))
		}
	}
}
