// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package model holds constants shared by the event log writers and readers.
package model

// Event levels
const (
	EventLevelInfo    = "info"
	EventLevelWarning = "warning"
	EventLevelError   = "error"
)

// Event categories
const (
	EventCategoryAuth        = "auth"
	EventCategoryUser        = "user"
	EventCategoryConfig      = "config"
	EventCategorySystem      = "system"
	EventCategoryCache       = "cache"
	EventCategoryScheduler   = "scheduler"
	EventCategoryWebhook     = "webhook"
	EventCategoryTranslation = "translation"
)

// EventCategories lists every category in display order.
var EventCategories = []string{
	EventCategoryTranslation,
	EventCategoryWebhook,
	EventCategoryScheduler,
	EventCategoryAuth,
	EventCategoryUser,
	EventCategoryConfig,
	EventCategoryCache,
	EventCategorySystem,
}
