// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import "testing"

func TestEventCategoriesUnique(t *testing.T) {
	seen := make(map[string]bool)
	for _, c := range EventCategories {
		if seen[c] {
			t.Errorf("duplicate category %q", c)
		}
		seen[c] = true
	}
	if !seen[EventCategoryTranslation] || !seen[EventCategorySystem] {
		t.Error("translation and system categories must be listed")
	}
}
