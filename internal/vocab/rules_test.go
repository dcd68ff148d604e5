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

package vocab

import (
	"path/filepath"
	"testing"
)

func TestApply(t *testing.T) {
	tests := []struct {
		name          string
		rules         []Rule
		caseSensitive bool
		input         string
		want          string
	}{
		{
			name:          "No rules is identity",
			rules:         nil,
			caseSensitive: true,
			input:         "hello world",
			want:          "hello world",
		},
		{
			name: "Simple replacement",
			rules: []Rule{
				{Original: "five minutes", Replacement: "5 min"},
			},
			caseSensitive: true,
			input:         "set a timer for five minutes",
			want:          "set a timer for 5 min",
		},
		{
			name: "All occurrences replaced",
			rules: []Rule{
				{Original: "uh", Replacement: ""},
			},
			caseSensitive: true,
			input:         "uh let me uh think",
			want:          " let me  think",
		},
		{
			name: "Rules applied in definition order",
			rules: []Rule{
				{Original: "grey", Replacement: "gray"},
				{Original: "gray cat", Replacement: "tabby"},
			},
			caseSensitive: true,
			input:         "the grey cat sat",
			want:          "the tabby sat",
		},
		{
			name: "Overlapping rules: first match wins",
			rules: []Rule{
				{Original: "new york", Replacement: "NYC"},
				{Original: "york", Replacement: "York"},
			},
			caseSensitive: true,
			input:         "flying to new york tomorrow",
			want:          "flying to NYC tomorrow",
		},
		{
			name: "Case sensitive does not match other case",
			rules: []Rule{
				{Original: "API", Replacement: "interface"},
			},
			caseSensitive: true,
			input:         "the api and the API",
			want:          "the api and the interface",
		},
		{
			name: "Case insensitive matches any case",
			rules: []Rule{
				{Original: "kubernetes", Replacement: "Kubernetes"},
			},
			caseSensitive: false,
			input:         "deploy to KUBERNETES and kubernetes",
			want:          "deploy to Kubernetes and Kubernetes",
		},
		{
			name: "Case insensitive with regex metacharacters",
			rules: []Rule{
				{Original: "c++ (lang)", Replacement: "C++"},
			},
			caseSensitive: false,
			input:         "wrote it in C++ (LANG)",
			want:          "wrote it in C++",
		},
		{
			name: "Empty original is skipped",
			rules: []Rule{
				{Original: "", Replacement: "x"},
				{Original: "foo", Replacement: "bar"},
			},
			caseSensitive: true,
			input:         "foo",
			want:          "bar",
		},
		{
			name: "No match leaves text unchanged",
			rules: []Rule{
				{Original: "absent", Replacement: "present"},
			},
			caseSensitive: true,
			input:         "nothing to see",
			want:          "nothing to see",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rules := &Rules{Rules: tt.rules, CaseSensitive: tt.caseSensitive}
			if got := rules.Apply(tt.input); got != tt.want {
				t.Errorf("Apply(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestApply_Deterministic(t *testing.T) {
	rules := &Rules{
		Rules: []Rule{
			{Original: "a", Replacement: "b"},
			{Original: "b", Replacement: "c"},
		},
		CaseSensitive: true,
	}

	first := rules.Apply("a b a")
	for i := 0; i < 10; i++ {
		if got := rules.Apply("a b a"); got != first {
			t.Fatalf("Apply() not deterministic: %q vs %q", got, first)
		}
	}
}

func TestAddAndRemove(t *testing.T) {
	rules := &Rules{CaseSensitive: true}

	rules.Add("one", "1")
	rules.Add("two", "2")
	if len(rules.Rules) != 2 {
		t.Fatalf("Expected 2 rules, got %d", len(rules.Rules))
	}

	if err := rules.Remove(0); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if len(rules.Rules) != 1 || rules.Rules[0].Original != "two" {
		t.Errorf("Expected only rule 'two' to remain")
	}

	if err := rules.Remove(5); err == nil {
		t.Error("Expected error for out of range index")
	}
}

func TestLoadAndSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "vocabulary.json")

	original := &Rules{
		Rules: []Rule{
			{Original: "five minutes", Replacement: "5 min"},
			{Original: "gonna", Replacement: "going to"},
		},
		CaseSensitive: false,
	}

	if err := original.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if len(loaded.Rules) != 2 {
		t.Fatalf("Loaded %d rules, want 2", len(loaded.Rules))
	}
	if loaded.Rules[0].Original != "five minutes" || loaded.Rules[0].Replacement != "5 min" {
		t.Errorf("First rule = %+v", loaded.Rules[0])
	}
	if loaded.CaseSensitive {
		t.Error("CaseSensitive should roundtrip as false")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	rules, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(rules.Rules) != 0 {
		t.Errorf("Expected empty rules for missing file")
	}
	if !rules.CaseSensitive {
		t.Error("Missing file should default to case-sensitive matching")
	}
}
