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

package api

import (
	"encoding/json"
	"net/http"

	"github.com/loqalabs/loqa-dictate/internal/models"
)

// ModelsHandler exposes the ASR model registry and engine state
type ModelsHandler struct {
	modelsDir string
	manager   *models.Manager // nil when the whisper backend is active
}

// NewModelsHandler creates a model status handler
func NewModelsHandler(modelsDir string, manager *models.Manager) *ModelsHandler {
	return &ModelsHandler{modelsDir: modelsDir, manager: manager}
}

// ModelsResponse represents the response for the model status endpoint
type ModelsResponse struct {
	Models      []models.WithStatus `json:"models"`
	ActiveModel string              `json:"active_model,omitempty"`
	EngineState string              `json:"engine_state,omitempty"`
	LastError   string              `json:"last_error,omitempty"`
}

// HandleModels handles GET /api/models
func (h *ModelsHandler) HandleModels(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := ModelsResponse{
		Models: models.ListWithStatus(h.modelsDir),
	}
	if h.manager != nil {
		response.ActiveModel = h.manager.ModelID()
		response.EngineState = h.manager.State().String()
		response.LastError = h.manager.LastError()
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}
