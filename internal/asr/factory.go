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

package asr

import (
	"errors"
	"fmt"

	"github.com/loqalabs/loqa-dictate/internal/config"
	"github.com/loqalabs/loqa-dictate/internal/logging"
)

// NewTranscriber creates the transcription backend selected by configuration.
// When the whisper backend cannot initialize (model missing, GPU requested
// but absent, or not compiled in) and CPU fallback is enabled, the REST
// backend is tried instead.
func NewTranscriber(cfg config.ASRConfig) (Transcriber, error) {
	switch cfg.Backend {
	case "whisper":
		transcriber, err := NewWhisperTranscriber(cfg.WhisperPath, cfg.Language, cfg.UseGPU)
		if err == nil {
			return transcriber, nil
		}

		if !cfg.CPUFallback {
			return nil, err
		}

		if !errors.Is(err, ErrModelUnavailable) && !errors.Is(err, ErrDeviceUnsupported) {
			return nil, err
		}

		logging.LogWarn("Whisper backend unavailable, falling back to REST backend")
		return NewRESTClient(cfg.URL, cfg.ModelID, cfg.Language)

	case "rest":
		return NewRESTClient(cfg.URL, cfg.ModelID, cfg.Language)

	default:
		return nil, fmt.Errorf("unknown ASR backend: %q", cfg.Backend)
	}
}
