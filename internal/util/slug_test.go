// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package util

import "testing"

func TestSlugify(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"simple title", "Hello World", "hello-world"},
		{"with special characters", "Hello, World!", "hello-world"},
		{"with numbers", "Page 123", "page-123"},
		{"with accents", "Café résumé", "cafe-resume"},
		{"with multiple spaces", "Hello   World", "hello-world"},
		{"with hyphens", "Hello - World", "hello-world"},
		{"with leading/trailing spaces", "  Hello World  ", "hello-world"},
		{"all special characters", "!@#$%^&*()", ""},
		{"german umlauts", "Über München", "uber-munchen"},
		{"cyrillic", "Привет мир", "privet-mir"},
		{"empty string", "", ""},
		{"mixed case", "HeLLo WoRLd", "hello-world"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Slugify(tt.input); got != tt.expected {
				t.Errorf("Slugify(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestSlugifyMax(t *testing.T) {
	if got := SlugifyMax("Hello World", 6); got != "hello" {
		t.Errorf("SlugifyMax() = %q, want hello", got)
	}
	if got := SlugifyMax("Hello", 20); got != "hello" {
		t.Errorf("SlugifyMax() = %q, want hello", got)
	}
}
