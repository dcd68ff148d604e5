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

// Package enhance rewrites transcribed text through an LLM provider.
// Enhancement is always best-effort: callers fall back to the
// pre-enhancement text when a provider fails.
package enhance

import (
	"context"
	"errors"
)

var (
	// ErrProviderUnavailable indicates the provider endpoint cannot be reached
	ErrProviderUnavailable = errors.New("enhance: provider unavailable")

	// ErrAuthentication indicates the API key was rejected
	ErrAuthentication = errors.New("enhance: authentication failed")

	// ErrTimeout indicates the provider did not respond in time
	ErrTimeout = errors.New("enhance: request timed out")
)

// Mode selects the enhancement prompt applied to transcriptions
type Mode string

const (
	ModeNone      Mode = "none"
	ModeGrammar   Mode = "grammar"
	ModeFormal    Mode = "formal"
	ModeCasual    Mode = "casual"
	ModeSummarize Mode = "summarize"
)

// prompts maps each mode to its system prompt
var prompts = map[Mode]string{
	ModeGrammar: "Fix any grammar or spelling errors in the following text. " +
		"Preserve the original meaning and tone. " +
		"Only output the corrected text, nothing else.",
	ModeFormal: "Rewrite the following text in a professional, formal tone " +
		"suitable for business communication. " +
		"Preserve the original meaning. " +
		"Only output the rewritten text, nothing else.",
	ModeCasual: "Rewrite the following text in a relaxed, conversational tone. " +
		"Preserve the original meaning. " +
		"Only output the rewritten text, nothing else.",
	ModeSummarize: "Rewrite the following text to be more concise and clear. " +
		"Remove filler words and unnecessary phrases. " +
		"Only output the rewritten text, nothing else.",
}

// Prompt returns the system prompt for a mode, or false for ModeNone
// and unknown modes.
func Prompt(mode Mode) (string, bool) {
	prompt, ok := prompts[mode]
	return prompt, ok
}

// Enhancer rewrites text according to a fixed mode
type Enhancer interface {
	// Enhance returns the rewritten text. Empty input is returned unchanged.
	Enhance(ctx context.Context, text string) (string, error)

	// Name identifies the provider for logging and history
	Name() string
}
