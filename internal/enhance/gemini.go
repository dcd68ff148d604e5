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
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/loqalabs/loqa-dictate/internal/logging"
)

const geminiDefaultModel = "gemini-2.0-flash"

// GeminiEnhancer rewrites text through the Google Gemini API
type GeminiEnhancer struct {
	client *genai.Client
	model  string
	mode   Mode
	prompt string
}

// NewGeminiEnhancer creates a Gemini-backed enhancer
func NewGeminiEnhancer(ctx context.Context, apiKey, model string, mode Mode) (*GeminiEnhancer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: missing Gemini API key", ErrAuthentication)
	}

	prompt, ok := Prompt(mode)
	if !ok {
		return nil, fmt.Errorf("no prompt for enhancement mode: %q", mode)
	}

	if model == "" {
		model = geminiDefaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	return &GeminiEnhancer{
		client: client,
		model:  model,
		mode:   mode,
		prompt: prompt,
	}, nil
}

// Enhance implements the Enhancer interface
func (e *GeminiEnhancer) Enhance(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return text, nil
	}

	contents := []*genai.Content{
		genai.NewContentFromText(text, genai.RoleUser),
	}
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(e.prompt, genai.RoleUser),
	}

	response, err := e.client.Models.GenerateContent(ctx, e.model, contents, config)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return "", fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	result := strings.TrimSpace(response.Text())
	if result == "" {
		return "", fmt.Errorf("%w: empty generation response", ErrProviderUnavailable)
	}

	logging.LogEnhancement("gemini", string(e.mode),
		zap.Int("input_chars", len(text)),
		zap.Int("output_chars", len(result)))

	return result, nil
}

// Name implements the Enhancer interface
func (e *GeminiEnhancer) Name() string {
	return "gemini"
}
