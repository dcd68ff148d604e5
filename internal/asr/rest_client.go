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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/loqalabs/loqa-dictate/internal/audio"
	"github.com/loqalabs/loqa-dictate/internal/logging"
)

// RESTClient implements the Transcriber interface using REST API calls
// to any OpenAI-compatible Speech-to-Text service
type RESTClient struct {
	baseURL    string
	model      string
	language   string
	httpClient *http.Client
}

// OpenAI-compatible response struct
type transcriptionResponse struct {
	Text string `json:"text"`
}

// NewRESTClient creates a new OpenAI-compatible STT client
func NewRESTClient(baseURL, model, language string) (*RESTClient, error) {
	if baseURL == "" {
		baseURL = "http://localhost:8000" // Default STT service address
	}

	client := &http.Client{
		Timeout: 60 * time.Second,
	}

	c := &RESTClient{
		baseURL:    baseURL,
		model:      model,
		language:   language,
		httpClient: client,
	}

	// Test connection with health check
	if err := c.healthCheck(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}

	logging.Sugar.Infow("Connected to STT REST service", "base_url", baseURL)

	return c, nil
}

// healthCheck verifies the service is running
func (c *RESTClient) healthCheck() error {
	resp, err := c.httpClient.Get(c.baseURL + "/health")
	if err != nil {
		return fmt.Errorf("failed to connect to STT service at %s: %w", c.baseURL, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Printf("Warning: failed to close response body: %v", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("STT service health check failed with status: %d", resp.StatusCode)
	}

	return nil
}

// Transcribe implements the Transcriber interface
func (c *RESTClient) Transcribe(ctx context.Context, samples []float32, sampleRate int) (string, error) {
	if len(samples) == 0 {
		return "", fmt.Errorf("%w: empty audio data", ErrInference)
	}

	if sampleRate <= 0 {
		return "", fmt.Errorf("%w: invalid sample rate: %d", ErrInference, sampleRate)
	}

	startTime := time.Now()
	requestID := fmt.Sprintf("req_%d", startTime.UnixNano())

	logging.Sugar.Infow("Sending transcription request",
		"request_id", requestID,
		"samples", len(samples),
		"sample_rate", sampleRate,
	)

	// Convert float32 audio data to WAV bytes
	wavData, err := audio.EncodeWAV(samples, sampleRate)
	if err != nil {
		return "", fmt.Errorf("failed to convert audio to WAV: %w", err)
	}

	// Create multipart form data
	var requestBody bytes.Buffer
	writer := multipart.NewWriter(&requestBody)

	// Add the audio file
	audioWriter, err := writer.CreateFormFile("file", "audio.wav")
	if err != nil {
		return "", fmt.Errorf("failed to create form file: %w", err)
	}

	if _, err := audioWriter.Write(wavData); err != nil {
		return "", fmt.Errorf("failed to write audio data: %w", err)
	}

	// Add optional parameters
	_ = writer.WriteField("model", c.model)
	_ = writer.WriteField("language", c.language)
	_ = writer.WriteField("temperature", "0.0")
	_ = writer.WriteField("response_format", "json")

	contentType := writer.FormDataContentType()
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to close multipart writer: %w", err)
	}

	// Make the request
	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/v1/audio/transcriptions", &requestBody)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInference, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Printf("Warning: failed to close response body: %v", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("%w: status %d: %s", ErrInference, resp.StatusCode, string(body))
	}

	// Parse response
	var transcriptionResp transcriptionResponse
	if err := json.NewDecoder(resp.Body).Decode(&transcriptionResp); err != nil {
		return "", fmt.Errorf("failed to parse transcription response: %w", err)
	}

	processingTime := time.Since(startTime)
	logging.Sugar.Infow("Transcription completed",
		"request_id", requestID,
		"processing_time_ms", processingTime.Milliseconds(),
		"text_length", len(transcriptionResp.Text),
	)

	return transcriptionResp.Text, nil
}

// Close cleans up resources
func (c *RESTClient) Close() error {
	logging.Sugar.Infow("Closing STT client", "base_url", c.baseURL)
	// HTTP client doesn't need explicit cleanup
	return nil
}
