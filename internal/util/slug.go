// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package util holds small helpers shared by the core and the modules:
// slugs, nullable SQL values, prices and outbound URL checks.
package util

import (
	"regexp"
	"strings"

	"github.com/mozillazg/go-unidecode"
)

var (
	slugRegex       = regexp.MustCompile(`[^a-z0-9-]+`)
	multipleHyphens = regexp.MustCompile(`-{2,}`)
)

// Slugify transliterates s to ASCII and reduces it to lowercase letters,
// digits and single hyphens.
func Slugify(s string) string {
	result := strings.ToLower(unidecode.Unidecode(s))
	result = strings.Join(strings.Fields(result), "-")
	result = slugRegex.ReplaceAllString(result, "")
	result = multipleHyphens.ReplaceAllString(result, "-")
	return strings.Trim(result, "-")
}

// SlugifyMax is Slugify truncated to at most n bytes without a trailing hyphen.
func SlugifyMax(s string, n int) string {
	slug := Slugify(s)
	if len(slug) <= n {
		return slug
	}
	return strings.TrimRight(slug[:n], "-")
}
