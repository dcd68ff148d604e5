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
	"errors"
	"testing"
	"time"
)

func TestNewTranscriptionEvent(t *testing.T) {
	event := NewTranscriptionEvent("rest")

	if event.UUID == "" {
		t.Error("Expected UUID to be generated")
	}
	if event.Backend != "rest" {
		t.Errorf("Backend = %q, want %q", event.Backend, "rest")
	}
	if event.Timestamp.IsZero() {
		t.Error("Expected timestamp to be set")
	}
	if !event.Success {
		t.Error("New events should default to success")
	}

	// UUIDs must be unique across events
	other := NewTranscriptionEvent("rest")
	if event.UUID == other.UUID {
		t.Error("Expected unique UUIDs for separate events")
	}
}

func TestSetAudioMetadata(t *testing.T) {
	event := NewTranscriptionEvent("whisper")

	samples := make([]float32, 32000) // 2 seconds at 16kHz
	for i := range samples {
		samples[i] = float32(i%100) / 100.0
	}

	event.SetAudioMetadata(samples, 16000)

	if event.AudioHash == "" {
		t.Error("Expected audio hash to be calculated")
	}
	if event.AudioDuration != 2.0 {
		t.Errorf("AudioDuration = %f, want 2.0", event.AudioDuration)
	}
	if event.SampleRate != 16000 {
		t.Errorf("SampleRate = %d, want 16000", event.SampleRate)
	}

	// Same audio must hash identically, different audio differently
	other := NewTranscriptionEvent("whisper")
	other.SetAudioMetadata(samples, 16000)
	if event.AudioHash != other.AudioHash {
		t.Error("Identical audio should produce identical hashes")
	}

	samples[0] = 0.999
	other.SetAudioMetadata(samples, 16000)
	if event.AudioHash == other.AudioHash {
		t.Error("Different audio should produce different hashes")
	}
}

func TestStageSnapshots(t *testing.T) {
	event := NewTranscriptionEvent("rest")

	event.SetRawText("set a timer for five minutes")
	if event.FinalText != "set a timer for five minutes" {
		t.Errorf("FinalText = %q after raw text", event.FinalText)
	}

	event.SetSubstitutedText("set a timer for 5 min")
	if event.RawText != "set a timer for five minutes" {
		t.Error("Raw text snapshot should be preserved")
	}
	if event.FinalText != "set a timer for 5 min" {
		t.Errorf("FinalText = %q after substitution", event.FinalText)
	}

	event.SetEnhancedText("Set a timer for 5 minutes.", "grammar")
	if event.SubstitutedText != "set a timer for 5 min" {
		t.Error("Substituted text snapshot should be preserved")
	}
	if event.FinalText != "Set a timer for 5 minutes." {
		t.Errorf("FinalText = %q after enhancement", event.FinalText)
	}
	if event.EnhancementName != "grammar" {
		t.Errorf("EnhancementName = %q, want %q", event.EnhancementName, "grammar")
	}
}

func TestComplete(t *testing.T) {
	event := NewTranscriptionEvent("rest")
	event.Timestamp = time.Now().Add(-50 * time.Millisecond)

	event.Complete()

	if event.ProcessingTime < 50 {
		t.Errorf("ProcessingTime = %dms, want >= 50ms", event.ProcessingTime)
	}
	if !event.Success {
		t.Error("Complete() should not clear success")
	}
}

func TestSetError(t *testing.T) {
	event := NewTranscriptionEvent("rest")

	event.SetError(errors.New("transcription service unreachable"))

	if event.Success {
		t.Error("Expected Success to be false after SetError")
	}
	if event.ErrorMessage != "transcription service unreachable" {
		t.Errorf("ErrorMessage = %q", event.ErrorMessage)
	}
}

func TestIsValid(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*TranscriptionEvent)
		wantErr bool
	}{
		{
			name:    "Valid event",
			modify:  func(te *TranscriptionEvent) {},
			wantErr: false,
		},
		{
			name:    "Missing UUID",
			modify:  func(te *TranscriptionEvent) { te.UUID = "" },
			wantErr: true,
		},
		{
			name:    "Missing timestamp",
			modify:  func(te *TranscriptionEvent) { te.Timestamp = time.Time{} },
			wantErr: true,
		},
		{
			name:    "Missing backend",
			modify:  func(te *TranscriptionEvent) { te.Backend = "" },
			wantErr: true,
		},
		{
			name:    "Negative sample rate",
			modify:  func(te *TranscriptionEvent) { te.SampleRate = -1 },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event := NewTranscriptionEvent("rest")
			tt.modify(event)

			err := event.IsValid()
			if (err != nil) != tt.wantErr {
				t.Errorf("IsValid() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
