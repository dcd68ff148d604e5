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
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/loqalabs/loqa-dictate/internal/logging"
)

// ProgressFunc receives download progress (bytes downloaded, total bytes).
// Total is zero when the server does not report a content length.
type ProgressFunc func(downloaded, total int64)

// StatusFunc receives human-readable status updates
type StatusFunc func(status string)

// Downloader fetches ggml weights files into the models directory
type Downloader struct {
	httpClient *http.Client
	baseURL    string
}

// NewDownloader creates a downloader using the default release location
func NewDownloader() *Downloader {
	return NewDownloaderWithBaseURL(GGMLReleaseBase)
}

// NewDownloaderWithBaseURL creates a downloader fetching weights from baseURL
func NewDownloaderWithBaseURL(baseURL string) *Downloader {
	return &Downloader{
		httpClient: &http.Client{Timeout: 30 * time.Minute},
		baseURL:    baseURL,
	}
}

// Download fetches a model's weights into modelsDir. The transfer goes to a
// temp file in the same directory and is renamed into place only when
// complete, so an interrupted download never looks like a usable model.
// Cancellation via ctx aborts the transfer between chunks.
func (d *Downloader) Download(ctx context.Context, modelID, modelsDir string, onProgress ProgressFunc, onStatus StatusFunc) error {
	model, ok := GetByID(modelID)
	if !ok {
		return fmt.Errorf("unknown model: %s", modelID)
	}

	if err := os.MkdirAll(modelsDir, 0750); err != nil {
		return fmt.Errorf("failed to create models directory: %w", err)
	}

	url := fmt.Sprintf("%s/%s.bin", d.baseURL, model.ID)
	logging.LogModelOperation(modelID, "download", zap.String("url", url))

	if onStatus != nil {
		onStatus("Downloading...")
	}

	tmpFile, err := os.CreateTemp(modelsDir, "."+model.ID+"-*.partial")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	if err := d.fetch(ctx, url, tmpFile, onProgress); err != nil {
		return err
	}

	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to flush weights file: %w", err)
	}

	if onStatus != nil {
		onStatus("Saving model file...")
	}

	if err := os.Rename(tmpPath, model.Path(modelsDir)); err != nil {
		return fmt.Errorf("failed to move weights into place: %w", err)
	}

	logging.LogModelOperation(modelID, "downloaded", zap.String("path", model.Path(modelsDir)))
	return nil
}

// fetch streams the weights to dst, reporting progress per chunk
func (d *Downloader) fetch(ctx context.Context, url string, dst io.Writer, onProgress ProgressFunc) error {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("download request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download failed with status: %d", resp.StatusCode)
	}

	total := resp.ContentLength
	var downloaded int64
	buf := make([]byte, 32*1024)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, err := dst.Write(buf[:n]); err != nil {
				return fmt.Errorf("failed to write weights: %w", err)
			}
			downloaded += int64(n)
			if onProgress != nil {
				onProgress(downloaded, total)
			}
		}
		if readErr == io.EOF {
			return nil
		}
		if readErr != nil {
			return fmt.Errorf("download interrupted: %w", readErr)
		}
	}
}
