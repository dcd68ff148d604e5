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

package events

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// TranscriptionEvent records one push-to-talk interaction end to end,
// with a text snapshot after every pipeline stage for full traceability.
type TranscriptionEvent struct {
	// Core identification
	UUID      string    `json:"uuid" db:"uuid"`
	Timestamp time.Time `json:"timestamp" db:"timestamp"`

	// Audio metadata
	AudioHash     string  `json:"audio_hash" db:"audio_hash"`
	AudioDuration float64 `json:"audio_duration" db:"audio_duration"`
	SampleRate    int     `json:"sample_rate" db:"sample_rate"`

	// Per-stage text snapshots
	RawText         string `json:"raw_text" db:"raw_text"`
	SubstitutedText string `json:"substituted_text" db:"substituted_text"`
	EnhancedText    string `json:"enhanced_text,omitempty" db:"enhanced_text"`
	FinalText       string `json:"final_text" db:"final_text"`

	// Processing metadata
	Backend         string `json:"backend" db:"backend"`
	EnhancementName string `json:"enhancement_name,omitempty" db:"enhancement_name"`
	ProcessingTime  int64  `json:"processing_time_ms" db:"processing_time_ms"`
	Success         bool   `json:"success" db:"success"`
	ErrorMessage    string `json:"error_message,omitempty" db:"error_message"`
}

// NewTranscriptionEvent creates an event with a generated UUID and current timestamp
func NewTranscriptionEvent(backend string) *TranscriptionEvent {
	return &TranscriptionEvent{
		UUID:      uuid.NewString(),
		Timestamp: time.Now(),
		Backend:   backend,
		Success:   true,
	}
}

// SetAudioMetadata sets audio-related metadata for the event
func (te *TranscriptionEvent) SetAudioMetadata(samples []float32, sampleRate int) {
	te.AudioHash = calculateAudioHash(samples)
	if sampleRate > 0 {
		te.AudioDuration = float64(len(samples)) / float64(sampleRate)
	}
	te.SampleRate = sampleRate
}

// SetRawText records the backend transcription before any post-processing
func (te *TranscriptionEvent) SetRawText(text string) {
	te.RawText = text
	te.FinalText = text
}

// SetSubstitutedText records the text after vocabulary substitution
func (te *TranscriptionEvent) SetSubstitutedText(text string) {
	te.SubstitutedText = text
	te.FinalText = text
}

// SetEnhancedText records a successful LLM enhancement result
func (te *TranscriptionEvent) SetEnhancedText(text, enhancementName string) {
	te.EnhancedText = text
	te.EnhancementName = enhancementName
	te.FinalText = text
}

// Complete marks processing as finished and records the elapsed time
func (te *TranscriptionEvent) Complete() {
	te.ProcessingTime = time.Since(te.Timestamp).Milliseconds()
}

// SetError marks the event as failed with an error message
func (te *TranscriptionEvent) SetError(err error) {
	te.Success = false
	te.ErrorMessage = err.Error()
	te.ProcessingTime = time.Since(te.Timestamp).Milliseconds()
}

// calculateAudioHash generates a SHA-256 hash of the audio samples for duplicate detection
func calculateAudioHash(samples []float32) string {
	hasher := sha256.New()

	buf := make([]byte, 4)
	for _, sample := range samples {
		binary.LittleEndian.PutUint32(buf, math.Float32bits(sample))
		hasher.Write(buf)
	}

	return hex.EncodeToString(hasher.Sum(nil))
}

// IsValid performs basic validation on the transcription event
func (te *TranscriptionEvent) IsValid() error {
	if te.UUID == "" {
		return fmt.Errorf("UUID is required")
	}

	if te.Timestamp.IsZero() {
		return fmt.Errorf("timestamp is required")
	}

	if te.Backend == "" {
		return fmt.Errorf("backend is required")
	}

	if te.SampleRate < 0 {
		return fmt.Errorf("sample rate must not be negative")
	}

	return nil
}

// String returns a human-readable representation of the transcription event
func (te *TranscriptionEvent) String() string {
	return fmt.Sprintf("TranscriptionEvent{UUID: %s, Backend: %s, FinalText: %q, Duration: %.2fs, Success: %t}",
		te.UUID, te.Backend, te.FinalText, te.AudioDuration, te.Success)
}
