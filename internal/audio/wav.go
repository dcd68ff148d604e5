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

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"os"

	gaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// EncodeWAV converts mono float32 samples to WAV format bytes (IEEE float PCM)
func EncodeWAV(samples []float32, sampleRate int) ([]byte, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate: %d", sampleRate)
	}

	numSamples := len(samples)
	dataSize := numSamples * 4 // 4 bytes per float32 sample
	fileSize := 36 + dataSize

	var buf bytes.Buffer

	// WAV header
	buf.WriteString("RIFF")                                                                                    // ChunkID
	buf.Write([]byte{byte(fileSize), byte(fileSize >> 8), byte(fileSize >> 16), byte(fileSize >> 24)})         // ChunkSize
	buf.WriteString("WAVE")                                                                                    // Format
	buf.WriteString("fmt ")                                                                                    // Subchunk1ID
	buf.Write([]byte{16, 0, 0, 0})                                                                             // Subchunk1Size (16 for PCM)
	buf.Write([]byte{3, 0})                                                                                    // AudioFormat (3 = IEEE float)
	buf.Write([]byte{1, 0})                                                                                    // NumChannels (1 = mono)
	buf.Write([]byte{byte(sampleRate), byte(sampleRate >> 8), byte(sampleRate >> 16), byte(sampleRate >> 24)}) // SampleRate
	byteRate := sampleRate * 4                                                                                 // SampleRate * NumChannels * BitsPerSample/8
	buf.Write([]byte{byte(byteRate), byte(byteRate >> 8), byte(byteRate >> 16), byte(byteRate >> 24)})         // ByteRate
	buf.Write([]byte{4, 0})                                                                                    // BlockAlign (NumChannels * BitsPerSample/8)
	buf.Write([]byte{32, 0})                                                                                   // BitsPerSample (32 for float32)
	buf.WriteString("data")                                                                                    // Subchunk2ID
	buf.Write([]byte{byte(dataSize), byte(dataSize >> 8), byte(dataSize >> 16), byte(dataSize >> 24)})         // Subchunk2Size

	// Audio data (float32 samples as little-endian bytes)
	binaryData := make([]byte, 4)
	for _, sample := range samples {
		binary.LittleEndian.PutUint32(binaryData, math.Float32bits(sample))
		buf.Write(binaryData)
	}

	return buf.Bytes(), nil
}

// WriteWAVFile writes mono float32 samples to a 16-bit PCM WAV file
func WriteWAVFile(path string, samples []float32, sampleRate int) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create wav file: %w", err)
	}
	defer file.Close()

	enc := wav.NewEncoder(file, sampleRate, 16, 1, 1)

	intData := make([]int, len(samples))
	for i, sample := range samples {
		scaled := sample * 32767
		if scaled > 32767 {
			scaled = 32767
		} else if scaled < -32768 {
			scaled = -32768
		}
		intData[i] = int(scaled)
	}

	buf := &gaudio.IntBuffer{
		Format:         &gaudio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           intData,
		SourceBitDepth: 16,
	}

	if err := enc.Write(buf); err != nil {
		_ = enc.Close()
		return fmt.Errorf("failed to write wav data: %w", err)
	}

	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to finalize wav file: %w", err)
	}

	return nil
}

// ReadWAVFile decodes a WAV file into mono float32 samples and its sample rate.
// Multi-channel audio is downmixed by averaging channels.
func ReadWAVFile(path string) ([]float32, int, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open wav file: %w", err)
	}
	defer file.Close()

	decoder := wav.NewDecoder(file)
	if !decoder.IsValidFile() {
		return nil, 0, fmt.Errorf("not a valid wav file: %s", path)
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to decode wav data: %w", err)
	}

	sampleRate := int(decoder.SampleRate)
	channels := buf.Format.NumChannels
	if channels <= 0 {
		channels = 1
	}

	scale := float32(1.0)
	switch decoder.BitDepth {
	case 16:
		scale = 32768
	case 24:
		scale = 8388608
	case 32:
		scale = 2147483648
	case 8:
		scale = 128
	}

	frames := len(buf.Data) / channels
	samples := make([]float32, frames)
	for i := 0; i < frames; i++ {
		var sum float32
		for ch := 0; ch < channels; ch++ {
			sum += float32(buf.Data[i*channels+ch]) / scale
		}
		samples[i] = sum / float32(channels)
	}

	return samples, sampleRate, nil
}
