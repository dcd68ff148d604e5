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

package enhance

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/loqalabs/loqa-dictate/internal/logging"
)

const (
	anthropicDefaultBaseURL = "https://api.anthropic.com"
	anthropicVersion        = "2023-06-01"
	anthropicDefaultModel   = "claude-3-5-haiku-latest"
	anthropicMaxTokens      = 1024
)

// AnthropicEnhancer rewrites text through the Anthropic messages API
type AnthropicEnhancer struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	mode       Mode
	prompt     string
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicMessageRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system,omitempty"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type anthropicMessageResponse struct {
	Content []anthropicContentBlock `json:"content"`
}

type anthropicErrorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// NewAnthropicEnhancer creates an Anthropic-backed enhancer
func NewAnthropicEnhancer(apiKey, model, baseURL string, mode Mode) (*AnthropicEnhancer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: missing Anthropic API key", ErrAuthentication)
	}

	prompt, ok := Prompt(mode)
	if !ok {
		return nil, fmt.Errorf("no prompt for enhancement mode: %q", mode)
	}

	if model == "" {
		model = anthropicDefaultModel
	}
	if baseURL == "" {
		baseURL = anthropicDefaultBaseURL
	}
	baseURL = strings.TrimSuffix(baseURL, "/")

	return &AnthropicEnhancer{
		httpClient: &http.Client{Timeout: 90 * time.Second},
		baseURL:    baseURL,
		apiKey:     apiKey,
		model:      model,
		mode:       mode,
		prompt:     prompt,
	}, nil
}

// Enhance implements the Enhancer interface
func (e *AnthropicEnhancer) Enhance(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return text, nil
	}

	request := anthropicMessageRequest{
		Model:     e.model,
		MaxTokens: anthropicMaxTokens,
		System:    e.prompt,
		Messages: []anthropicMessage{
			{Role: "user", Content: text},
		},
	}

	requestBits, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpRequest, err := http.NewRequestWithContext(ctx, http.MethodPost,
		e.baseURL+"/v1/messages", bytes.NewReader(requestBits))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	httpRequest.Header.Set("content-type", "application/json")
	httpRequest.Header.Set("x-api-key", e.apiKey)
	httpRequest.Header.Set("anthropic-version", anthropicVersion)

	httpResponse, err := e.httpClient.Do(httpRequest)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return "", fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer httpResponse.Body.Close()

	responseBits, err := io.ReadAll(httpResponse.Body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	if httpResponse.StatusCode == http.StatusUnauthorized || httpResponse.StatusCode == http.StatusForbidden {
		return "", fmt.Errorf("%w: status %d", ErrAuthentication, httpResponse.StatusCode)
	}

	if httpResponse.StatusCode < 200 || httpResponse.StatusCode >= 300 {
		apiErr := anthropicErrorResponse{}
		message := strings.TrimSpace(string(responseBits))
		if unmarshalErr := json.Unmarshal(responseBits, &apiErr); unmarshalErr == nil {
			if candidate := strings.TrimSpace(apiErr.Error.Message); candidate != "" {
				message = candidate
			}
		}
		return "", fmt.Errorf("%w: status %d: %s", ErrProviderUnavailable, httpResponse.StatusCode, message)
	}

	response := anthropicMessageResponse{}
	if err := json.Unmarshal(responseBits, &response); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	var builder strings.Builder
	for _, block := range response.Content {
		if block.Type == "text" {
			builder.WriteString(block.Text)
		}
	}

	result := strings.TrimSpace(builder.String())
	if result == "" {
		return "", fmt.Errorf("%w: empty message response", ErrProviderUnavailable)
	}

	logging.LogEnhancement("anthropic", string(e.mode),
		zap.Int("input_chars", len(text)),
		zap.Int("output_chars", len(result)))

	return result, nil
}

// Name implements the Enhancer interface
func (e *AnthropicEnhancer) Name() string {
	return "anthropic"
}
