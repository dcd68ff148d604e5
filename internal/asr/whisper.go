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

//go:build whisper

package asr

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
)

// WhisperTranscriber handles speech-to-text using a local whisper.cpp model
type WhisperTranscriber struct {
	model     whisper.Model
	modelPath string
	language  string
}

// NewWhisperTranscriber creates a new Whisper transcriber. With useGPU set,
// construction fails with ErrDeviceUnsupported when no GPU is present so the
// factory can decide between CPU fallback and a hard error.
func NewWhisperTranscriber(modelPath, language string, useGPU bool) (*WhisperTranscriber, error) {
	if useGPU && !gpuAvailable() {
		return nil, fmt.Errorf("%w: GPU requested but none detected on this host", ErrDeviceUnsupported)
	}

	// Check if model file exists
	if _, err := os.Stat(modelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: whisper model not found at %s", ErrModelUnavailable, modelPath)
	}

	// Load the model
	model, err := whisper.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to load whisper model: %v", ErrModelUnavailable, err)
	}

	log.Printf("✅ Whisper model loaded: %s", modelPath)
	return &WhisperTranscriber{
		model:     model,
		modelPath: modelPath,
		language:  language,
	}, nil
}

// Transcribe converts audio samples to text. Decoding runs to completion
// once started; ctx is checked before the decode begins.
func (wt *WhisperTranscriber) Transcribe(ctx context.Context, samples []float32, sampleRate int) (string, error) {
	if wt.model == nil {
		return "", fmt.Errorf("%w: whisper model not initialized", ErrModelUnavailable)
	}

	if len(samples) == 0 {
		return "", fmt.Errorf("%w: empty audio data", ErrInference)
	}

	if sampleRate <= 0 {
		return "", fmt.Errorf("%w: invalid sample rate: %d", ErrInference, sampleRate)
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}

	// Create a new context for this transcription
	wctx, err := wt.model.NewContext()
	if err != nil {
		return "", fmt.Errorf("%w: failed to create whisper context: %v", ErrInference, err)
	}

	if wt.language != "" {
		if err := wctx.SetLanguage(wt.language); err != nil {
			log.Printf("⚠️  Failed to set whisper language %q: %v", wt.language, err)
		}
	}

	// Process the audio data
	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return "", fmt.Errorf("%w: failed to process audio: %v", ErrInference, err)
	}

	// Extract the transcription
	var transcript strings.Builder
	for {
		segment, err := wctx.NextSegment()
		if err != nil {
			break
		}
		transcript.WriteString(segment.Text)
	}

	result := strings.TrimSpace(transcript.String())
	log.Printf("🧠 Whisper transcription: \"%s\"", result)
	return result, nil
}

// gpuAvailable reports whether whisper.cpp has a GPU to run on: Metal on
// macOS, or a visible NVIDIA device elsewhere.
func gpuAvailable() bool {
	if runtime.GOOS == "darwin" {
		return true
	}
	if _, err := os.Stat("/dev/nvidia0"); err == nil {
		return true
	}
	if _, err := exec.LookPath("nvidia-smi"); err == nil {
		return true
	}
	return false
}

// Close cleans up the Whisper model
func (wt *WhisperTranscriber) Close() error {
	if wt.model != nil {
		wt.model.Close()
		log.Println("🧠 Whisper model closed")
	}
	return nil
}
