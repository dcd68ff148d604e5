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

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the dictation engine
type Config struct {
	Server     ServerConfig
	Audio      AudioConfig
	ASR        ASRConfig
	Enhance    EnhanceConfig
	Output     OutputConfig
	Vocabulary VocabularyConfig
	Storage    StorageConfig
	Logging    LoggingConfig
	NATS       NATSConfig
}

// ServerConfig holds the HTTP history/status API configuration
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// AudioConfig holds microphone capture configuration
type AudioConfig struct {
	SampleRate  int
	InputDevice string // empty = system default
	MaxSeconds  int    // hard cap on a single push-to-talk recording
}

// ASRConfig holds speech-to-text backend configuration
type ASRConfig struct {
	Backend     string // "rest" or "whisper"
	ModelID     string // registry id for downloadable models
	ModelsDir   string // local model cache directory
	WhisperPath string // ggml model file for the whisper backend; empty = resolved from ModelsDir + ModelID
	URL         string // OpenAI-compatible REST transcription service
	Language    string
	UseGPU      bool
	CPUFallback bool // fall back to the REST (CPU) backend when GPU is unavailable
}

// EnhanceConfig holds LLM enhancement configuration
type EnhanceConfig struct {
	Provider string // "", "openai", "anthropic", "gemini", "ollama"
	Mode     string // "none", "grammar", "formal", "casual", "summarize"
	Model    string
	APIKey   string
	BaseURL  string
	Timeout  time.Duration
}

// OutputConfig holds text injection configuration
type OutputConfig struct {
	Mode           string // "type" or "paste"
	CharsPerSecond int    // 0 = paste instantly even in type mode
}

// VocabularyConfig holds substitution rule configuration
type VocabularyConfig struct {
	RulesPath     string
	CaseSensitive bool
}

// StorageConfig holds transcription history configuration
type StorageConfig struct {
	DBPath        string
	RetentionDays int // 0 = keep forever
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// NATSConfig holds NATS messaging configuration
type NATSConfig struct {
	Enabled       bool
	URL           string
	MaxReconnect  int
	ReconnectWait time.Duration
}

// Load loads configuration from environment variables with defaults
func Load() (*Config, error) {
	config := &Config{
		Server: ServerConfig{
			Host:         getEnvString("DICTATE_HOST", "127.0.0.1"),
			Port:         getEnvInt("DICTATE_PORT", 8090),
			ReadTimeout:  getEnvDuration("DICTATE_READ_TIMEOUT", 30*time.Second),
			WriteTimeout: getEnvDuration("DICTATE_WRITE_TIMEOUT", 30*time.Second),
		},
		Audio: AudioConfig{
			SampleRate:  getEnvInt("AUDIO_SAMPLE_RATE", 16000),
			InputDevice: getEnvString("AUDIO_INPUT_DEVICE", ""),
			MaxSeconds:  getEnvInt("AUDIO_MAX_SECONDS", 300),
		},
		ASR: ASRConfig{
			Backend:     getEnvString("ASR_BACKEND", "rest"),
			ModelID:     getEnvString("ASR_MODEL_ID", "ggml-base.en"),
			ModelsDir:   getEnvString("ASR_MODELS_DIR", defaultModelsDir()),
			WhisperPath: getEnvString("WHISPER_MODEL_PATH", ""),
			URL:         getEnvString("ASR_URL", "http://localhost:8000"),
			Language:    getEnvString("ASR_LANGUAGE", "en"),
			UseGPU:      getEnvBool("ASR_USE_GPU", false),
			CPUFallback: getEnvBool("ASR_CPU_FALLBACK", true),
		},
		Enhance: EnhanceConfig{
			Provider: getEnvString("ENHANCE_PROVIDER", ""),
			Mode:     getEnvString("ENHANCE_MODE", "none"),
			Model:    getEnvString("ENHANCE_MODEL", ""),
			APIKey:   getEnvString("ENHANCE_API_KEY", ""),
			BaseURL:  getEnvString("ENHANCE_BASE_URL", ""),
			Timeout:  getEnvDuration("ENHANCE_TIMEOUT", 30*time.Second),
		},
		Output: OutputConfig{
			Mode:           getEnvString("OUTPUT_MODE", "paste"),
			CharsPerSecond: getEnvInt("OUTPUT_CHARS_PER_SECOND", 150),
		},
		Vocabulary: VocabularyConfig{
			RulesPath:     getEnvString("VOCAB_RULES_PATH", "./data/vocabulary.json"),
			CaseSensitive: getEnvBool("VOCAB_CASE_SENSITIVE", true),
		},
		Storage: StorageConfig{
			DBPath:        getEnvString("DB_PATH", "./data/loqa-dictate.db"),
			RetentionDays: getEnvInt("HISTORY_RETENTION_DAYS", 0),
		},
		Logging: LoggingConfig{
			Level:  getEnvString("LOG_LEVEL", "info"),
			Format: getEnvString("LOG_FORMAT", "json"),
		},
		NATS: NATSConfig{
			Enabled:       getEnvBool("NATS_ENABLED", false),
			URL:           getEnvString("NATS_URL", "nats://localhost:4222"),
			MaxReconnect:  getEnvInt("NATS_MAX_RECONNECT", 10),
			ReconnectWait: getEnvDuration("NATS_RECONNECT_WAIT", 2*time.Second),
		},
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// validate checks if the configuration is valid
func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Audio.SampleRate < 8000 || c.Audio.SampleRate > 192000 {
		return fmt.Errorf("sample rate out of range: %d", c.Audio.SampleRate)
	}

	switch c.ASR.Backend {
	case "rest", "whisper":
	default:
		return fmt.Errorf("unknown ASR backend: %q", c.ASR.Backend)
	}

	if c.ASR.Backend == "rest" && c.ASR.URL == "" {
		return fmt.Errorf("ASR URL must be provided for the rest backend")
	}

	switch c.Enhance.Provider {
	case "", "openai", "anthropic", "gemini", "ollama":
	default:
		return fmt.Errorf("unknown enhancement provider: %q", c.Enhance.Provider)
	}

	switch c.Enhance.Mode {
	case "none", "grammar", "formal", "casual", "summarize":
	default:
		return fmt.Errorf("unknown enhancement mode: %q", c.Enhance.Mode)
	}

	switch c.Output.Mode {
	case "type", "paste":
	default:
		return fmt.Errorf("unknown output mode: %q", c.Output.Mode)
	}

	if c.Output.CharsPerSecond < 0 {
		return fmt.Errorf("chars per second must not be negative: %d", c.Output.CharsPerSecond)
	}

	if c.Storage.DBPath == "" {
		return fmt.Errorf("database path must be provided")
	}

	return nil
}

// defaultModelsDir returns the per-user model cache directory
func defaultModelsDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./data/models"
	}
	return home + "/.local/share/loqa-dictate/models"
}

// Helper functions for environment variable parsing
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
