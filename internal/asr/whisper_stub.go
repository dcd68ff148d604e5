//go:build !whisper

package asr

import (
	"context"
	"fmt"
)

// WhisperTranscriber stub implementation when whisper is disabled
type WhisperTranscriber struct {
	modelPath string
	language  string
}

// NewWhisperTranscriber fails with ErrDeviceUnsupported when whisper is
// disabled, so the factory can fall back to the REST backend. The useGPU
// request is moot in this build: there is no local backend to run it on.
func NewWhisperTranscriber(modelPath, language string, useGPU bool) (*WhisperTranscriber, error) {
	return nil, fmt.Errorf("%w: whisper support not compiled in (build with -tags whisper to enable)", ErrDeviceUnsupported)
}

// Transcribe stub implementation returns an error
func (wt *WhisperTranscriber) Transcribe(ctx context.Context, samples []float32, sampleRate int) (string, error) {
	return "", fmt.Errorf("%w: whisper transcription disabled (build with -tags whisper to enable)", ErrModelUnavailable)
}

// Close stub implementation
func (wt *WhisperTranscriber) Close() error {
	// Nothing to clean up in stub
	return nil
}
