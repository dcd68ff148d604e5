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
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

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

func newHealthyServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusOK)
			return
		}
		handler(w, r)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestNewRESTClient_HealthCheckFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := NewRESTClient(server.URL, "parakeet", "en")
	if err == nil {
		t.Fatal("Expected error when health check fails")
	}
	if !errors.Is(err, ErrModelUnavailable) {
		t.Errorf("Expected ErrModelUnavailable, got: %v", err)
	}
}

func TestTranscribe_SendsModelAndLanguage(t *testing.T) {
	var capturedModel, capturedLanguage string
	var capturedFile bool

	server := newHealthyServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/audio/transcriptions" {
			w.WriteHeader(http.StatusNotFound)
			return
		}

		if err := r.ParseMultipartForm(32 << 20); err != nil {
			t.Errorf("Failed to parse multipart form: %v", err)
			return
		}

		capturedModel = r.FormValue("model")
		capturedLanguage = r.FormValue("language")
		_, _, err := r.FormFile("file")
		capturedFile = err == nil

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"text": "hello world"}`))
	})

	client, err := NewRESTClient(server.URL, "parakeet-tdt-0.6b", "es")
	if err != nil {
		t.Fatalf("NewRESTClient() error = %v", err)
	}

	text, err := client.Transcribe(context.Background(), []float32{0.1, 0.2, 0.3}, 16000)
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}

	if text != "hello world" {
		t.Errorf("Transcribe() = %q, want %q", text, "hello world")
	}
	if capturedModel != "parakeet-tdt-0.6b" {
		t.Errorf("model parameter = %q, want %q", capturedModel, "parakeet-tdt-0.6b")
	}
	if capturedLanguage != "es" {
		t.Errorf("language parameter = %q, want %q", capturedLanguage, "es")
	}
	if !capturedFile {
		t.Error("Expected an audio file in the multipart form")
	}
}

func TestTranscribe_ErrorHandling(t *testing.T) {
	tests := []struct {
		name           string
		serverResponse func(w http.ResponseWriter, r *http.Request)
		samples        []float32
		sampleRate     int
		expectError    bool
		errorContains  string
		wantInference  bool
	}{
		{
			name: "Server error (500)",
			serverResponse: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
			samples:       []float32{0.1, 0.2, 0.3},
			sampleRate:    16000,
			expectError:   true,
			errorContains: "500",
			wantInference: true,
		},
		{
			name: "Validation error (422)",
			serverResponse: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnprocessableEntity)
				_, _ = w.Write([]byte(`{"detail":"invalid language"}`))
			},
			samples:       []float32{0.1, 0.2, 0.3},
			sampleRate:    16000,
			expectError:   true,
			errorContains: "422",
			wantInference: true,
		},
		{
			name: "Empty audio",
			serverResponse: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			},
			samples:       nil,
			sampleRate:    16000,
			expectError:   true,
			errorContains: "empty audio",
			wantInference: true,
		},
		{
			name: "Invalid sample rate",
			serverResponse: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			},
			samples:       []float32{0.1},
			sampleRate:    0,
			expectError:   true,
			errorContains: "sample rate",
			wantInference: true,
		},
		{
			name: "Valid request",
			serverResponse: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusOK)
				_, _ = w.Write([]byte(`{"text": "ok"}`))
			},
			samples:     []float32{0.1, 0.2, 0.3},
			sampleRate:  16000,
			expectError: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newHealthyServer(t, tt.serverResponse)

			client, err := NewRESTClient(server.URL, "parakeet", "en")
			if err != nil {
				t.Fatalf("NewRESTClient() error = %v", err)
			}

			_, err = client.Transcribe(context.Background(), tt.samples, tt.sampleRate)

			if tt.expectError {
				if err == nil {
					t.Fatal("Expected error but got none")
				}
				if !strings.Contains(err.Error(), tt.errorContains) {
					t.Errorf("Expected error to contain %q, got: %v", tt.errorContains, err)
				}
				if tt.wantInference && !errors.Is(err, ErrInference) {
					t.Errorf("Expected ErrInference, got: %v", err)
				}
			} else if err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
		})
	}
}

func TestTranscribe_ContextCancellation(t *testing.T) {
	server := newHealthyServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"text": "too late"}`))
	})

	client, err := NewRESTClient(server.URL, "parakeet", "en")
	if err != nil {
		t.Fatalf("NewRESTClient() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := client.Transcribe(ctx, []float32{0.1, 0.2}, 16000); err == nil {
		t.Error("Expected error for cancelled context")
	}
}
