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

// Package vocab applies user-defined text substitutions to transcriptions,
// typically to fix domain terms the ASR model gets wrong.
package vocab

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Rule replaces every occurrence of Original with Replacement
type Rule struct {
	Original    string `json:"original"`
	Replacement string `json:"replacement"`
}

// Rules is an ordered list of substitution rules. Rules are applied in
// definition order; earlier rules see the original text, later rules see
// the output of earlier ones.
type Rules struct {
	Rules         []Rule `json:"rules"`
	CaseSensitive bool   `json:"case_sensitive"`
}

// Apply runs every rule against text in order. The result is deterministic
// for a given rule list: the same input always yields the same output.
func (r *Rules) Apply(text string) string {
	if len(r.Rules) == 0 {
		return text
	}

	result := text
	for _, rule := range r.Rules {
		if rule.Original == "" {
			continue
		}

		if r.CaseSensitive {
			result = strings.ReplaceAll(result, rule.Original, rule.Replacement)
		} else {
			re, err := regexp.Compile("(?i)" + regexp.QuoteMeta(rule.Original))
			if err != nil {
				continue
			}
			result = re.ReplaceAllLiteralString(result, rule.Replacement)
		}
	}

	return result
}

// Add appends a rule to the end of the list
func (r *Rules) Add(original, replacement string) {
	r.Rules = append(r.Rules, Rule{Original: original, Replacement: replacement})
}

// Remove deletes the rule at index, preserving order of the rest
func (r *Rules) Remove(index int) error {
	if index < 0 || index >= len(r.Rules) {
		return fmt.Errorf("rule index out of range: %d", index)
	}
	r.Rules = append(r.Rules[:index], r.Rules[index+1:]...)
	return nil
}

// Load reads rules from a JSON file. A missing file yields empty rules
// with case-sensitive matching, not an error.
func Load(path string) (*Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Rules{CaseSensitive: true}, nil
		}
		return nil, fmt.Errorf("failed to read vocabulary rules: %w", err)
	}

	var rules Rules
	if err := json.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("failed to parse vocabulary rules: %w", err)
	}

	return &rules, nil
}

// Save writes rules to a JSON file, creating parent directories as needed
func (r *Rules) Save(path string) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create rules directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize vocabulary rules: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write vocabulary rules: %w", err)
	}

	return nil
}
