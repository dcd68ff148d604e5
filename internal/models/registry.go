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
	"fmt"
	"os"
	"path/filepath"
)

// GGMLReleaseBase is where the whisper.cpp project publishes ggml weights
const GGMLReleaseBase = "https://huggingface.co/ggerganov/whisper.cpp/resolve/main"

// Descriptor describes a downloadable ggml ASR model for the whisper backend
type Descriptor struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	SizeMB      int    `json:"size_mb"`
	Description string `json:"description"`
}

// URL returns the download location for this model's weights file
func (d Descriptor) URL() string {
	return fmt.Sprintf("%s/%s.bin", GGMLReleaseBase, d.ID)
}

// Path returns where this model's weights live under modelsDir
func (d Descriptor) Path(modelsDir string) string {
	return ModelPath(modelsDir, d.ID)
}

// ModelPath returns the local weights file path for a model ID. The whisper
// backend loads this file directly.
func ModelPath(modelsDir, modelID string) string {
	return filepath.Join(modelsDir, modelID+".bin")
}

// AvailableModels is the curated list of downloadable models
var AvailableModels = []Descriptor{
	{
		ID:          "ggml-tiny.en",
		Name:        "Whisper Tiny (English)",
		SizeMB:      75,
		Description: "Fastest English model, lowest accuracy",
	},
	{
		ID:          "ggml-base.en",
		Name:        "Whisper Base (English)",
		SizeMB:      142,
		Description: "Default English dictation model, good speed/accuracy balance",
	},
	{
		ID:          "ggml-small.en",
		Name:        "Whisper Small (English)",
		SizeMB:      466,
		Description: "Higher accuracy, slower without a GPU",
	},
}

// DownloadStatus reports whether a model's weights are present locally
type DownloadStatus string

const (
	StatusDownloaded    DownloadStatus = "downloaded"
	StatusNotDownloaded DownloadStatus = "not_downloaded"
)

// GetByID returns the descriptor for a model ID, or false if unknown
func GetByID(modelID string) (Descriptor, bool) {
	for _, model := range AvailableModels {
		if model.ID == modelID {
			return model, true
		}
	}
	return Descriptor{}, false
}

// IsDownloaded checks if a model's weights file is present and non-empty
func IsDownloaded(modelsDir, modelID string) bool {
	info, err := os.Stat(ModelPath(modelsDir, modelID))
	return err == nil && info.Mode().IsRegular() && info.Size() > 0
}

// Status returns the download status for a model
func Status(modelsDir, modelID string) DownloadStatus {
	if IsDownloaded(modelsDir, modelID) {
		return StatusDownloaded
	}
	return StatusNotDownloaded
}

// WithStatus pairs a descriptor with its local download status
type WithStatus struct {
	Descriptor
	Status DownloadStatus `json:"status"`
}

// ListWithStatus returns all available models with their download status
func ListWithStatus(modelsDir string) []WithStatus {
	list := make([]WithStatus, 0, len(AvailableModels))
	for _, model := range AvailableModels {
		list = append(list, WithStatus{
			Descriptor: model,
			Status:     Status(modelsDir, model.ID),
		})
	}
	return list
}
