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
	"context"
	"fmt"
	"strings"

	ollamasdk "github.com/rozoomcool/go-ollama-sdk"
	"go.uber.org/zap"

	"github.com/loqalabs/loqa-dictate/internal/logging"
)

const (
	ollamaDefaultBaseURL = "http://localhost:11434"
	ollamaDefaultModel   = "llama3.2"
)

// OllamaEnhancer rewrites text through a local Ollama instance
type OllamaEnhancer struct {
	client *ollamasdk.OllamaClient
	model  string
	mode   Mode
	prompt string
}

// NewOllamaEnhancer creates an Ollama-backed enhancer. No API key is
// required; the instance runs locally.
func NewOllamaEnhancer(baseURL, model string, mode Mode) (*OllamaEnhancer, error) {
	prompt, ok := Prompt(mode)
	if !ok {
		return nil, fmt.Errorf("no prompt for enhancement mode: %q", mode)
	}

	if baseURL == "" {
		baseURL = ollamaDefaultBaseURL
	}
	if model == "" {
		model = ollamaDefaultModel
	}

	return &OllamaEnhancer{
		client: ollamasdk.NewClient(baseURL),
		model:  model,
		mode:   mode,
		prompt: prompt,
	}, nil
}

// Enhance implements the Enhancer interface. The SDK chat call does not
// take a context; ctx is checked before the request is issued.
func (e *OllamaEnhancer) Enhance(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return text, nil
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}

	messages := []ollamasdk.ChatMessage{
		{Role: "system", Content: e.prompt},
		{Role: "user", Content: text},
	}

	response, err := e.client.Chat(e.model, messages)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	result := strings.TrimSpace(response)
	if result == "" {
		return "", fmt.Errorf("%w: empty chat response", ErrProviderUnavailable)
	}

	logging.LogEnhancement("ollama", string(e.mode),
		zap.Int("input_chars", len(text)),
		zap.Int("output_chars", len(result)))

	return result, nil
}

// Name implements the Enhancer interface
func (e *OllamaEnhancer) Name() string {
	return "ollama"
}
