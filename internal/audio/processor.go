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

package audio

import "strings"

const (
	// MaxChunkSeconds is the longest segment sent to a backend in one request
	MaxChunkSeconds = 30

	// silenceThreshold is the RMS level below which a window counts as silence
	silenceThreshold = 0.01

	// silenceWindowMs is the analysis window used when searching for split points
	silenceWindowMs = 50
)

// NeedsChunking reports whether the audio exceeds the single-request limit
func NeedsChunking(samples []float32, sampleRate int) bool {
	if sampleRate <= 0 {
		return false
	}
	return len(samples) > MaxChunkSeconds*sampleRate
}

// SplitOnSilence splits long audio into chunks no longer than MaxChunkSeconds,
// preferring to cut at the quietest window near each chunk boundary so words
// are not cut in half. Audio within the limit is returned as a single chunk.
func SplitOnSilence(samples []float32, sampleRate int) [][]float32 {
	if !NeedsChunking(samples, sampleRate) {
		return [][]float32{samples}
	}

	maxChunk := MaxChunkSeconds * sampleRate
	window := sampleRate * silenceWindowMs / 1000
	if window < 1 {
		window = 1
	}

	var chunks [][]float32
	start := 0
	for len(samples)-start > maxChunk {
		// Search the last quarter of the chunk for the quietest window
		searchStart := start + maxChunk*3/4
		searchEnd := start + maxChunk

		cut := searchEnd
		best := float32(-1)
		for pos := searchStart; pos+window <= searchEnd; pos += window {
			level := rmsLevel(samples[pos : pos+window])
			if best < 0 || level < best {
				best = level
				cut = pos
			}
			if level < silenceThreshold {
				cut = pos
				break
			}
		}

		chunks = append(chunks, samples[start:cut])
		start = cut
	}

	if start < len(samples) {
		chunks = append(chunks, samples[start:])
	}

	return chunks
}

// CombineTranscripts joins per-chunk transcripts into a single text
func CombineTranscripts(parts []string) string {
	var nonEmpty []string
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			nonEmpty = append(nonEmpty, trimmed)
		}
	}
	return strings.Join(nonEmpty, " ")
}
