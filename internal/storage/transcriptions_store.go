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

package storage

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/loqalabs/loqa-dictate/internal/events"
)

// TranscriptionsStore handles database operations for transcription events
type TranscriptionsStore struct {
	db *Database
}

// NewTranscriptionsStore creates a new transcriptions store
func NewTranscriptionsStore(db *Database) *TranscriptionsStore {
	return &TranscriptionsStore{db: db}
}

// Insert stores a new transcription event in the database
func (s *TranscriptionsStore) Insert(event *events.TranscriptionEvent) error {
	if err := event.IsValid(); err != nil {
		return fmt.Errorf("invalid transcription event: %w", err)
	}

	query := `
		INSERT INTO transcriptions (
			uuid, timestamp,
			audio_hash, audio_duration, sample_rate,
			raw_text, substituted_text, enhanced_text, final_text,
			backend, enhancement_name, processing_time_ms, success, error_message
		) VALUES (
			?, ?,
			?, ?, ?,
			?, ?, ?, ?,
			?, ?, ?, ?, ?
		)`

	_, err := s.db.DB().Exec(query,
		event.UUID, event.Timestamp,
		event.AudioHash, event.AudioDuration, event.SampleRate,
		event.RawText, event.SubstitutedText, event.EnhancedText, event.FinalText,
		event.Backend, event.EnhancementName, event.ProcessingTime, event.Success, event.ErrorMessage,
	)

	if err != nil {
		return fmt.Errorf("failed to insert transcription event: %w", err)
	}

	log.Printf("📝 Stored transcription: %s (backend: %s, duration: %.2fs)",
		event.UUID, event.Backend, event.AudioDuration)
	return nil
}

// GetByUUID retrieves a transcription event by its UUID
func (s *TranscriptionsStore) GetByUUID(uuid string) (*events.TranscriptionEvent, error) {
	query := `
		SELECT uuid, timestamp,
			   audio_hash, audio_duration, sample_rate,
			   raw_text, substituted_text, enhanced_text, final_text,
			   backend, enhancement_name, processing_time_ms, success, error_message
		FROM transcriptions
		WHERE uuid = ?`

	row := s.db.DB().QueryRow(query, uuid)
	return s.scanTranscriptionEvent(row)
}

// List retrieves transcription events with pagination and filtering
func (s *TranscriptionsStore) List(options ListOptions) ([]*events.TranscriptionEvent, error) {
	query, args := s.buildListQuery(options)

	rows, err := s.db.DB().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transcriptions: %w", err)
	}
	defer rows.Close()

	var eventsList []*events.TranscriptionEvent
	for rows.Next() {
		event, err := s.scanTranscriptionEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transcription event: %w", err)
		}
		eventsList = append(eventsList, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transcriptions: %w", err)
	}

	return eventsList, nil
}

// Count returns the total number of transcriptions matching the filter
func (s *TranscriptionsStore) Count(options ListOptions) (int64, error) {
	// Build count query using same filters
	options.Limit = 0
	options.Offset = 0
	query, args := s.buildListQuery(options)

	countQuery := "SELECT COUNT(*) FROM (" + query + ") as filtered"

	var count int64
	err := s.db.DB().QueryRow(countQuery, args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count transcriptions: %w", err)
	}

	return count, nil
}

// GetByAudioHash finds transcriptions with the same audio hash (potential duplicates)
func (s *TranscriptionsStore) GetByAudioHash(audioHash string) ([]*events.TranscriptionEvent, error) {
	query := `
		SELECT uuid, timestamp,
			   audio_hash, audio_duration, sample_rate,
			   raw_text, substituted_text, enhanced_text, final_text,
			   backend, enhancement_name, processing_time_ms, success, error_message
		FROM transcriptions
		WHERE audio_hash = ?
		ORDER BY timestamp DESC`

	rows, err := s.db.DB().Query(query, audioHash)
	if err != nil {
		return nil, fmt.Errorf("failed to query by audio hash: %w", err)
	}
	defer rows.Close()

	var eventsList []*events.TranscriptionEvent
	for rows.Next() {
		event, err := s.scanTranscriptionEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transcription event: %w", err)
		}
		eventsList = append(eventsList, event)
	}

	return eventsList, nil
}

// Delete removes a transcription event by UUID
func (s *TranscriptionsStore) Delete(uuid string) error {
	result, err := s.db.DB().Exec("DELETE FROM transcriptions WHERE uuid = ?", uuid)
	if err != nil {
		return fmt.Errorf("failed to delete transcription: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("transcription not found: %s", uuid)
	}

	log.Printf("🗑️  Deleted transcription: %s", uuid)
	return nil
}

// DeleteOlderThan removes transcriptions older than the cutoff, for retention enforcement
func (s *TranscriptionsStore) DeleteOlderThan(cutoff time.Time) (int64, error) {
	result, err := s.db.DB().Exec("DELETE FROM transcriptions WHERE timestamp < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune transcriptions: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected > 0 {
		log.Printf("🗑️  Pruned %d transcriptions older than %s", rowsAffected, cutoff.Format(time.RFC3339))
	}
	return rowsAffected, nil
}

// ListOptions defines filtering and pagination options
type ListOptions struct {
	// Filtering
	Backend   string
	Success   *bool // nil = all, true = success only, false = errors only
	StartTime *time.Time
	EndTime   *time.Time

	// Pagination
	Limit  int
	Offset int

	// Sorting
	SortBy    string // "timestamp", "audio_duration", "processing_time_ms"
	SortOrder string // "ASC", "DESC"
}

// buildListQuery constructs the SQL query based on ListOptions
func (s *TranscriptionsStore) buildListQuery(options ListOptions) (string, []interface{}) {
	query := `
		SELECT uuid, timestamp,
			   audio_hash, audio_duration, sample_rate,
			   raw_text, substituted_text, enhanced_text, final_text,
			   backend, enhancement_name, processing_time_ms, success, error_message
		FROM transcriptions WHERE 1=1`

	var args []interface{}

	// Apply filters
	if options.Backend != "" {
		query += " AND backend = ?"
		args = append(args, options.Backend)
	}

	if options.Success != nil {
		query += " AND success = ?"
		args = append(args, *options.Success)
	}

	if options.StartTime != nil {
		query += " AND timestamp >= ?"
		args = append(args, options.StartTime)
	}

	if options.EndTime != nil {
		query += " AND timestamp <= ?"
		args = append(args, options.EndTime)
	}

	// Apply sorting; only known columns are accepted
	sortBy := options.SortBy
	switch sortBy {
	case "timestamp", "audio_duration", "processing_time_ms":
	default:
		sortBy = "timestamp"
	}

	sortOrder := options.SortOrder
	if sortOrder != "ASC" {
		sortOrder = "DESC"
	}

	query += fmt.Sprintf(" ORDER BY %s %s", sortBy, sortOrder)

	// Apply pagination
	if options.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, options.Limit)

		if options.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, options.Offset)
		}
	}

	return query, args
}

// scanTranscriptionEvent scans a database row into a TranscriptionEvent struct
func (s *TranscriptionsStore) scanTranscriptionEvent(scanner interface{}) (*events.TranscriptionEvent, error) {
	var event events.TranscriptionEvent

	var row interface {
		Scan(dest ...interface{}) error
	}

	switch v := scanner.(type) {
	case *sql.Row:
		row = v
	case *sql.Rows:
		row = v
	default:
		return nil, fmt.Errorf("unsupported scanner type")
	}

	err := row.Scan(
		&event.UUID, &event.Timestamp,
		&event.AudioHash, &event.AudioDuration, &event.SampleRate,
		&event.RawText, &event.SubstitutedText, &event.EnhancedText, &event.FinalText,
		&event.Backend, &event.EnhancementName, &event.ProcessingTime, &event.Success, &event.ErrorMessage,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("transcription not found")
		}
		return nil, err
	}

	return &event, nil
}
