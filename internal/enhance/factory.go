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

	"github.com/loqalabs/loqa-dictate/internal/config"
)

// NewEnhancer creates the enhancer selected by configuration. Returns
// (nil, nil) when enhancement is disabled: no provider or mode "none".
func NewEnhancer(ctx context.Context, cfg config.EnhanceConfig) (Enhancer, error) {
	if cfg.Provider == "" || Mode(cfg.Mode) == ModeNone {
		return nil, nil
	}

	mode := Mode(cfg.Mode)

	switch cfg.Provider {
	case "openai":
		return NewOpenAIEnhancer(cfg.APIKey, cfg.Model, cfg.BaseURL, mode)
	case "anthropic":
		return NewAnthropicEnhancer(cfg.APIKey, cfg.Model, cfg.BaseURL, mode)
	case "gemini":
		return NewGeminiEnhancer(ctx, cfg.APIKey, cfg.Model, mode)
	case "ollama":
		return NewOllamaEnhancer(cfg.BaseURL, cfg.Model, mode)
	default:
		return nil, fmt.Errorf("unknown enhancement provider: %q", cfg.Provider)
	}
}
