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
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/loqalabs/loqa-dictate/internal/config"
	"github.com/loqalabs/loqa-dictate/internal/logging"
)

func TestMain(m *testing.M) {
	if err := logging.Initialize(); err != nil {
		os.Exit(1)
	}
	code := m.Run()
	logging.Close()
	os.Exit(code)
}

func TestPrompt(t *testing.T) {
	tests := []struct {
		mode Mode
		want bool
	}{
		{ModeGrammar, true},
		{ModeFormal, true},
		{ModeCasual, true},
		{ModeSummarize, true},
		{ModeNone, false},
		{Mode("bogus"), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			prompt, ok := Prompt(tt.mode)
			if ok != tt.want {
				t.Errorf("Prompt(%q) ok = %v, want %v", tt.mode, ok, tt.want)
			}
			if ok && prompt == "" {
				t.Errorf("Prompt(%q) returned empty prompt", tt.mode)
			}
		})
	}
}

func TestNewEnhancer_Disabled(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.EnhanceConfig
	}{
		{"No provider", config.EnhanceConfig{Provider: "", Mode: "grammar"}},
		{"Mode none", config.EnhanceConfig{Provider: "ollama", Mode: "none"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enhancer, err := NewEnhancer(context.Background(), tt.cfg)
			if err != nil {
				t.Fatalf("NewEnhancer() error = %v", err)
			}
			if enhancer != nil {
				t.Error("Expected nil enhancer when enhancement is disabled")
			}
		})
	}
}

func TestNewEnhancer_MissingKey(t *testing.T) {
	for _, provider := range []string{"openai", "anthropic"} {
		t.Run(provider, func(t *testing.T) {
			_, err := NewEnhancer(context.Background(), config.EnhanceConfig{
				Provider: provider,
				Mode:     "grammar",
			})
			if !errors.Is(err, ErrAuthentication) {
				t.Errorf("Expected ErrAuthentication, got: %v", err)
			}
		})
	}
}

func TestOpenAIEnhancer(t *testing.T) {
	var capturedSystem, capturedUser string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("Failed to decode request: %v", err)
		}
		for _, msg := range req.Messages {
			switch msg.Role {
			case "system":
				capturedSystem = msg.Content
			case "user":
				capturedUser = msg.Content
			}
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"choices": [{"message": {"role": "assistant", "content": "Hello, world."}}]
		}`))
	}))
	defer server.Close()

	enhancer, err := NewOpenAIEnhancer("test-key", "gpt-4o-mini", server.URL+"/v1", ModeGrammar)
	if err != nil {
		t.Fatalf("NewOpenAIEnhancer() error = %v", err)
	}

	result, err := enhancer.Enhance(context.Background(), "hello world")
	if err != nil {
		t.Fatalf("Enhance() error = %v", err)
	}

	if result != "Hello, world." {
		t.Errorf("Enhance() = %q, want %q", result, "Hello, world.")
	}
	wantPrompt, _ := Prompt(ModeGrammar)
	if capturedSystem != wantPrompt {
		t.Errorf("System prompt = %q, want grammar prompt", capturedSystem)
	}
	if capturedUser != "hello world" {
		t.Errorf("User message = %q, want %q", capturedUser, "hello world")
	}
}

func TestOpenAIEnhancer_EmptyInput(t *testing.T) {
	enhancer, err := NewOpenAIEnhancer("test-key", "", "", ModeGrammar)
	if err != nil {
		t.Fatalf("NewOpenAIEnhancer() error = %v", err)
	}

	// Empty text short-circuits without hitting the API
	result, err := enhancer.Enhance(context.Background(), "   ")
	if err != nil {
		t.Fatalf("Enhance() error = %v", err)
	}
	if result != "   " {
		t.Errorf("Enhance() = %q, want input unchanged", result)
	}
}

func TestAnthropicEnhancer(t *testing.T) {
	var capturedVersion, capturedKey string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		capturedVersion = r.Header.Get("anthropic-version")
		capturedKey = r.Header.Get("x-api-key")

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"content": [{"type": "text", "text": "Refined text."}]
		}`))
	}))
	defer server.Close()

	enhancer, err := NewAnthropicEnhancer("test-key", "", server.URL, ModeFormal)
	if err != nil {
		t.Fatalf("NewAnthropicEnhancer() error = %v", err)
	}

	result, err := enhancer.Enhance(context.Background(), "some rough text")
	if err != nil {
		t.Fatalf("Enhance() error = %v", err)
	}

	if result != "Refined text." {
		t.Errorf("Enhance() = %q, want %q", result, "Refined text.")
	}
	if capturedVersion == "" {
		t.Error("Expected anthropic-version header")
	}
	if capturedKey != "test-key" {
		t.Errorf("x-api-key = %q, want %q", capturedKey, "test-key")
	}
}

func TestAnthropicEnhancer_Errors(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		body       string
		wantErr    error
	}{
		{
			name:       "Authentication failure",
			statusCode: http.StatusUnauthorized,
			body:       `{"error": {"type": "authentication_error", "message": "invalid x-api-key"}}`,
			wantErr:    ErrAuthentication,
		},
		{
			name:       "Server overloaded",
			statusCode: http.StatusServiceUnavailable,
			body:       `{"error": {"type": "overloaded_error", "message": "overloaded"}}`,
			wantErr:    ErrProviderUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			enhancer, err := NewAnthropicEnhancer("test-key", "", server.URL, ModeGrammar)
			if err != nil {
				t.Fatalf("NewAnthropicEnhancer() error = %v", err)
			}

			_, err = enhancer.Enhance(context.Background(), "text")
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Enhance() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestOllamaEnhancer_CancelledContext(t *testing.T) {
	enhancer, err := NewOllamaEnhancer("http://localhost:1", "", ModeCasual)
	if err != nil {
		t.Fatalf("NewOllamaEnhancer() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := enhancer.Enhance(ctx, "text"); err == nil {
		t.Error("Expected error for cancelled context")
	}
}

func TestEnhancerNames(t *testing.T) {
	openaiEnhancer, _ := NewOpenAIEnhancer("k", "", "", ModeGrammar)
	anthropicEnhancer, _ := NewAnthropicEnhancer("k", "", "", ModeGrammar)
	ollamaEnhancer, _ := NewOllamaEnhancer("", "", ModeGrammar)

	if openaiEnhancer.Name() != "openai" {
		t.Errorf("Name() = %q, want openai", openaiEnhancer.Name())
	}
	if anthropicEnhancer.Name() != "anthropic" {
		t.Errorf("Name() = %q, want anthropic", anthropicEnhancer.Name())
	}
	if ollamaEnhancer.Name() != "ollama" {
		t.Errorf("Name() = %q, want ollama", ollamaEnhancer.Name())
	}
}
