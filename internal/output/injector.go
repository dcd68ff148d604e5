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

// Package output places finished transcriptions into the focused
// application, either by simulated typing or via the clipboard.
package output

import (
	"fmt"
	"time"

	"github.com/atotto/clipboard"
	"github.com/micmonay/keybd_event"
	"go.uber.org/zap"

	"github.com/loqalabs/loqa-dictate/internal/logging"
)

// Injector delivers text to the focused application
type Injector interface {
	// Inject places text at the cursor position
	Inject(text string) error
}

// Keyboard abstracts simulated key delivery so injectors can be tested
// without a display server.
type Keyboard interface {
	// Paste sends the paste chord (Ctrl+V / Cmd+V)
	Paste() error

	// Type sends the characters of text as key events
	Type(text string) error
}

// systemKeyboard drives the OS keyboard via keybd_event
type systemKeyboard struct{}

func (systemKeyboard) Paste() error {
	kb, err := keybd_event.NewKeyBonding()
	if err != nil {
		return fmt.Errorf("failed to bind keyboard: %w", err)
	}
	kb.HasCTRL(true)
	kb.SetKeys(keybd_event.VK_V)
	if err := kb.Launching(); err != nil {
		return fmt.Errorf("failed to send paste chord: %w", err)
	}
	return nil
}

func (systemKeyboard) Type(text string) error {
	// keybd_event has no direct unicode typing; route each burst through
	// the clipboard so arbitrary characters survive.
	return pasteVia(systemKeyboard{}, text)
}

// Clipboard abstracts the system clipboard for testing
type Clipboard interface {
	Read() (string, error)
	Write(text string) error
}

// systemClipboard uses atotto/clipboard
type systemClipboard struct{}

func (systemClipboard) Read() (string, error)   { return clipboard.ReadAll() }
func (systemClipboard) Write(text string) error { return clipboard.WriteAll(text) }

// PasteInjector writes text to the clipboard, sends the paste chord,
// and restores the previous clipboard contents.
type PasteInjector struct {
	keyboard  Keyboard
	clipboard Clipboard
}

// NewPasteInjector creates a clipboard-based injector
func NewPasteInjector() *PasteInjector {
	return &PasteInjector{keyboard: systemKeyboard{}, clipboard: systemClipboard{}}
}

// Inject implements the Injector interface
func (p *PasteInjector) Inject(text string) error {
	if text == "" {
		return nil
	}

	original, _ := p.clipboard.Read()
	if err := p.clipboard.Write(text); err != nil {
		return fmt.Errorf("failed to write clipboard: %w", err)
	}
	time.Sleep(80 * time.Millisecond)

	if err := p.keyboard.Paste(); err != nil {
		return err
	}

	time.Sleep(120 * time.Millisecond)
	if err := p.clipboard.Write(original); err != nil {
		logging.LogWarn("Failed to restore clipboard", zap.Error(err))
	}

	logging.LogOutput("paste", zap.Int("text_length", len(text)))
	return nil
}

// typeBurstInterval is the cadence of paced typing. Text is delivered
// in bursts sized to hit the configured chars-per-second rate.
const typeBurstInterval = 200 * time.Millisecond

// TypedInjector simulates typing at a configured rate. A rate of zero
// chars per second degrades to a single instant burst.
type TypedInjector struct {
	keyboard       Keyboard
	charsPerSecond int
}

// NewTypedInjector creates a typing injector
func NewTypedInjector(charsPerSecond int) *TypedInjector {
	return &TypedInjector{keyboard: systemKeyboard{}, charsPerSecond: charsPerSecond}
}

// Inject implements the Injector interface
func (t *TypedInjector) Inject(text string) error {
	if text == "" {
		return nil
	}

	if t.charsPerSecond <= 0 {
		if err := t.keyboard.Type(text); err != nil {
			return err
		}
		logging.LogOutput("type", zap.Int("text_length", len(text)))
		return nil
	}

	burst := t.charsPerSecond * int(typeBurstInterval) / int(time.Second)
	if burst < 1 {
		burst = 1
	}

	runes := []rune(text)
	for start := 0; start < len(runes); start += burst {
		end := start + burst
		if end > len(runes) {
			end = len(runes)
		}
		if err := t.keyboard.Type(string(runes[start:end])); err != nil {
			return err
		}
		if end < len(runes) {
			time.Sleep(typeBurstInterval)
		}
	}

	logging.LogOutput("type",
		zap.Int("text_length", len(text)),
		zap.Int("chars_per_second", t.charsPerSecond))
	return nil
}

// pasteVia routes text through the clipboard and sends a paste chord
func pasteVia(kb Keyboard, text string) error {
	clip := systemClipboard{}
	original, _ := clip.Read()
	if err := clip.Write(text); err != nil {
		return fmt.Errorf("failed to write clipboard: %w", err)
	}
	time.Sleep(80 * time.Millisecond)
	if err := kb.Paste(); err != nil {
		return err
	}
	time.Sleep(120 * time.Millisecond)
	_ = clip.Write(original)
	return nil
}

// NewInjector creates the injector selected by configuration
func NewInjector(mode string, charsPerSecond int) (Injector, error) {
	switch mode {
	case "paste":
		return NewPasteInjector(), nil
	case "type":
		return NewTypedInjector(charsPerSecond), nil
	default:
		return nil, fmt.Errorf("unknown output mode: %q", mode)
	}
}
