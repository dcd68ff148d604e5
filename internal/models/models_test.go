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

package models

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/loqalabs/loqa-dictate/internal/logging"
)

const testModelID = "ggml-base.en"

// fake ggml payload served by the test weights server
var testWeights = bytes.Repeat([]byte("ggml"), 16*1024)

func TestMain(m *testing.M) {
	if err := logging.Initialize(); err != nil {
		os.Exit(1)
	}
	code := m.Run()
	logging.Close()
	os.Exit(code)
}

func TestDescriptorURL(t *testing.T) {
	model, ok := GetByID(testModelID)
	if !ok {
		t.Fatalf("GetByID(%q) not found", testModelID)
	}

	url := model.URL()
	if !strings.HasPrefix(url, GGMLReleaseBase) {
		t.Errorf("URL = %q, want prefix %q", url, GGMLReleaseBase)
	}
	if !strings.HasSuffix(url, testModelID+".bin") {
		t.Errorf("URL = %q, want suffix %q", url, testModelID+".bin")
	}
}

func TestGetByID_Unknown(t *testing.T) {
	if _, ok := GetByID("no-such-model"); ok {
		t.Error("Expected unknown model to be not found")
	}
}

func TestIsDownloaded(t *testing.T) {
	modelsDir := t.TempDir()

	if IsDownloaded(modelsDir, testModelID) {
		t.Error("Empty directory should not count as downloaded")
	}

	// An empty weights file is an interrupted download, not a model
	writeFile(t, ModelPath(modelsDir, testModelID), "")
	if IsDownloaded(modelsDir, testModelID) {
		t.Error("Empty weights file should not count as downloaded")
	}

	writeFile(t, ModelPath(modelsDir, testModelID), "weights")
	if !IsDownloaded(modelsDir, testModelID) {
		t.Error("Non-empty weights file should count as downloaded")
	}
}

func TestListWithStatus(t *testing.T) {
	modelsDir := t.TempDir()

	list := ListWithStatus(modelsDir)
	if len(list) != len(AvailableModels) {
		t.Fatalf("ListWithStatus() returned %d models, want %d", len(list), len(AvailableModels))
	}
	for _, entry := range list {
		if entry.Status != StatusNotDownloaded {
			t.Errorf("Model %s status = %q, want %q", entry.ID, entry.Status, StatusNotDownloaded)
		}
	}

	writeFile(t, ModelPath(modelsDir, testModelID), "weights")
	for _, entry := range ListWithStatus(modelsDir) {
		want := StatusNotDownloaded
		if entry.ID == testModelID {
			want = StatusDownloaded
		}
		if entry.Status != want {
			t.Errorf("Model %s status = %q, want %q", entry.ID, entry.Status, want)
		}
	}
}

func newWeightsServer(t *testing.T) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, ".bin") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write(testWeights)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestDownload(t *testing.T) {
	server := newWeightsServer(t)
	modelsDir := t.TempDir()

	var lastDownloaded int64
	var statuses []string

	downloader := NewDownloaderWithBaseURL(server.URL)
	err := downloader.Download(context.Background(), testModelID, modelsDir,
		func(downloaded, total int64) { lastDownloaded = downloaded },
		func(status string) { statuses = append(statuses, status) },
	)
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}

	if !IsDownloaded(modelsDir, testModelID) {
		t.Error("Model should be downloaded and valid")
	}
	if lastDownloaded != int64(len(testWeights)) {
		t.Errorf("Final progress = %d, want %d", lastDownloaded, len(testWeights))
	}
	if len(statuses) < 2 {
		t.Errorf("Expected download and save status updates, got %v", statuses)
	}

	got, err := os.ReadFile(ModelPath(modelsDir, testModelID))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, testWeights) {
		t.Error("Weights file content does not match the served payload")
	}
}

func TestDownload_UnknownModel(t *testing.T) {
	downloader := NewDownloader()
	err := downloader.Download(context.Background(), "no-such-model", t.TempDir(), nil, nil)
	if err == nil || !strings.Contains(err.Error(), "unknown model") {
		t.Errorf("Expected unknown model error, got: %v", err)
	}
}

func TestDownload_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	modelsDir := t.TempDir()
	downloader := NewDownloaderWithBaseURL(server.URL)
	err := downloader.Download(context.Background(), testModelID, modelsDir, nil, nil)
	if err == nil || !strings.Contains(err.Error(), "404") {
		t.Errorf("Expected status error, got: %v", err)
	}
	if IsDownloaded(modelsDir, testModelID) {
		t.Error("Failed download must not leave a weights file behind")
	}
}

func TestDownload_Cancelled(t *testing.T) {
	server := newWeightsServer(t)
	modelsDir := t.TempDir()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	downloader := NewDownloaderWithBaseURL(server.URL)
	if err := downloader.Download(ctx, testModelID, modelsDir, nil, nil); err == nil {
		t.Error("Expected error for cancelled context")
	}
	if IsDownloaded(modelsDir, testModelID) {
		t.Error("Cancelled download must not leave a weights file behind")
	}
}

func TestManager_EnsureModel(t *testing.T) {
	server := newWeightsServer(t)
	modelsDir := t.TempDir()

	var transitions []EngineState
	manager := NewManager(testModelID, modelsDir,
		NewDownloaderWithBaseURL(server.URL),
		func(state EngineState, message string) { transitions = append(transitions, state) },
		nil,
	)

	if manager.State() != StateNotLoaded {
		t.Errorf("Initial state = %v, want %v", manager.State(), StateNotLoaded)
	}

	if err := manager.EnsureModel(context.Background()); err != nil {
		t.Fatalf("EnsureModel() error = %v", err)
	}

	if manager.State() != StateReady {
		t.Errorf("State = %v, want %v", manager.State(), StateReady)
	}

	// Downloading -> Loading -> Ready
	want := []EngineState{StateDownloading, StateLoading, StateReady}
	if len(transitions) != len(want) {
		t.Fatalf("Got transitions %v, want %v", transitions, want)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Errorf("Transition %d = %v, want %v", i, transitions[i], want[i])
		}
	}

	// Second call skips the download entirely
	transitions = nil
	if err := manager.EnsureModel(context.Background()); err != nil {
		t.Fatalf("EnsureModel() second call error = %v", err)
	}
	for _, state := range transitions {
		if state == StateDownloading {
			t.Error("Second EnsureModel() should not download again")
		}
	}
}

func TestManager_UnknownModel(t *testing.T) {
	manager := NewManager("no-such-model", t.TempDir(), nil, nil, nil)

	if err := manager.EnsureModel(context.Background()); err == nil {
		t.Fatal("Expected error for unknown model")
	}
	if manager.State() != StateError {
		t.Errorf("State = %v, want %v", manager.State(), StateError)
	}
	if manager.LastError() == "" {
		t.Error("Expected LastError to be set")
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
}
