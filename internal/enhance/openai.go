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

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/loqalabs/loqa-dictate/internal/logging"
)

const defaultOpenAIModel = "gpt-4o-mini"

// OpenAIEnhancer rewrites text through the OpenAI chat completions API
type OpenAIEnhancer struct {
	client *openai.Client
	model  string
	mode   Mode
	prompt string
}

// NewOpenAIEnhancer creates an OpenAI-backed enhancer. baseURL overrides
// the API endpoint for compatible services; empty means the default.
func NewOpenAIEnhancer(apiKey, model, baseURL string, mode Mode) (*OpenAIEnhancer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: missing OpenAI API key", ErrAuthentication)
	}

	prompt, ok := Prompt(mode)
	if !ok {
		return nil, fmt.Errorf("no prompt for enhancement mode: %q", mode)
	}

	if model == "" {
		model = defaultOpenAIModel
	}

	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}

	return &OpenAIEnhancer{
		client: openai.NewClientWithConfig(config),
		model:  model,
		mode:   mode,
		prompt: prompt,
	}, nil
}

// Enhance implements the Enhancer interface
func (e *OpenAIEnhancer) Enhance(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return text, nil
	}

	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: e.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: e.prompt},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == 401 {
			return "", fmt.Errorf("%w: %v", ErrAuthentication, err)
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return "", fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: empty completion response", ErrProviderUnavailable)
	}

	result := strings.TrimSpace(resp.Choices[0].Message.Content)
	logging.LogEnhancement("openai", string(e.mode),
		zap.Int("input_chars", len(text)),
		zap.Int("output_chars", len(result)))

	return result, nil
}

// Name implements the Enhancer interface
func (e *OpenAIEnhancer) Name() string {
	return "openai"
}
