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
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/loqalabs/loqa-dictate/internal/events"
	"github.com/loqalabs/loqa-dictate/internal/logging"
	"github.com/loqalabs/loqa-dictate/internal/storage"
)

// TranscriptionsHandler handles HTTP requests for transcription history
type TranscriptionsHandler struct {
	store *storage.TranscriptionsStore
}

// NewTranscriptionsHandler creates a new transcription history handler
func NewTranscriptionsHandler(store *storage.TranscriptionsStore) *TranscriptionsHandler {
	return &TranscriptionsHandler{store: store}
}

// ListTranscriptionsResponse represents the response for listing transcriptions
type ListTranscriptionsResponse struct {
	Transcriptions []*events.TranscriptionEvent `json:"transcriptions"`
	Total          int64                        `json:"total"`
	Page           int                          `json:"page"`
	PageSize       int                          `json:"page_size"`
	TotalPages     int                          `json:"total_pages"`
}

// HandleTranscriptions handles GET /api/transcriptions
func (h *TranscriptionsHandler) HandleTranscriptions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h.listTranscriptions(w, r)
}

// HandleTranscriptionByID handles GET and DELETE /api/transcriptions/{uuid}
func (h *TranscriptionsHandler) HandleTranscriptionByID(w http.ResponseWriter, r *http.Request) {
	// Extract UUID from URL path
	pathParts := strings.Split(strings.TrimPrefix(r.URL.Path, "/api/transcriptions/"), "/")
	if len(pathParts) == 0 || pathParts[0] == "" {
		http.Error(w, "Transcription ID is required", http.StatusBadRequest)
		return
	}
	uuid := pathParts[0]

	switch r.Method {
	case http.MethodGet:
		h.getTranscriptionByID(w, uuid)
	case http.MethodDelete:
		h.deleteTranscription(w, uuid)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// listTranscriptions handles GET /api/transcriptions
func (h *TranscriptionsHandler) listTranscriptions(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	// Pagination
	page := parseIntParam(query.Get("page"), 1)
	pageSize := parseIntParam(query.Get("page_size"), 20)
	if pageSize > 100 {
		pageSize = 100 // Limit maximum page size
	}
	if pageSize < 1 {
		pageSize = 1
	}
	if page < 1 {
		page = 1
	}

	// Filtering
	options := storage.ListOptions{
		Backend:   query.Get("backend"),
		Limit:     pageSize,
		Offset:    (page - 1) * pageSize,
		SortBy:    query.Get("sort_by"),
		SortOrder: strings.ToUpper(query.Get("sort_order")),
	}

	// Parse success filter
	if successStr := query.Get("success"); successStr != "" {
		if success, err := strconv.ParseBool(successStr); err == nil {
			options.Success = &success
		}
	}

	// Parse time filters
	if startTimeStr := query.Get("start_time"); startTimeStr != "" {
		if startTime, err := time.Parse(time.RFC3339, startTimeStr); err == nil {
			options.StartTime = &startTime
		}
	}
	if endTimeStr := query.Get("end_time"); endTimeStr != "" {
		if endTime, err := time.Parse(time.RFC3339, endTimeStr); err == nil {
			options.EndTime = &endTime
		}
	}

	// Get total count for pagination
	total, err := h.store.Count(options)
	if err != nil {
		logging.LogError(err, "Failed to count transcriptions")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	// Get transcriptions
	transcriptions, err := h.store.List(options)
	if err != nil {
		logging.LogError(err, "Failed to list transcriptions")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	response := ListTranscriptionsResponse{
		Transcriptions: transcriptions,
		Total:          total,
		Page:           page,
		PageSize:       pageSize,
		TotalPages:     totalPages,
	}

	logging.Sugar.Infow("Transcriptions API request",
		"endpoint", "list",
		"page", page,
		"page_size", pageSize,
		"total_results", total,
		"filters", map[string]interface{}{
			"backend": options.Backend,
			"success": options.Success,
		},
	)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// getTranscriptionByID handles GET /api/transcriptions/{uuid}
func (h *TranscriptionsHandler) getTranscriptionByID(w http.ResponseWriter, uuid string) {
	event, err := h.store.GetByUUID(uuid)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			http.Error(w, "Transcription not found", http.StatusNotFound)
			return
		}
		logging.LogError(err, "Failed to get transcription",
			zap.String("uuid", uuid),
		)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(event)
}

// deleteTranscription handles DELETE /api/transcriptions/{uuid}
func (h *TranscriptionsHandler) deleteTranscription(w http.ResponseWriter, uuid string) {
	if err := h.store.Delete(uuid); err != nil {
		if strings.Contains(err.Error(), "not found") {
			http.Error(w, "Transcription not found", http.StatusNotFound)
			return
		}
		logging.LogError(err, "Failed to delete transcription",
			zap.String("uuid", uuid),
		)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	logging.Sugar.Infow("Transcription deleted via API",
		"event_uuid", uuid,
	)

	w.WriteHeader(http.StatusNoContent)
}

// parseIntParam parses integer parameter with default value
func parseIntParam(param string, defaultValue int) int {
	if param == "" {
		return defaultValue
	}

	if value, err := strconv.Atoi(param); err == nil {
		return value
	}

	return defaultValue
}
