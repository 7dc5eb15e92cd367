// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package webhook delivers signed JSON notifications about translation
// request lifecycle events to configured endpoints.
package webhook

import (
	"time"

	"github.com/google/uuid"
)

// Event types.
const (
	EventTranslationCreated      = "translation.created"
	EventTranslationQuoted       = "translation.quoted"
	EventTranslationOrdered      = "translation.ordered"
	EventTranslationImported     = "translation.imported"
	EventTranslationImportFailed = "translation.import_failed"
	EventTranslationRetried      = "translation.retried"
	EventTranslationStalled      = "translation.stalled"
)

// Event is the JSON body of a notification.
type Event struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

// NewEvent creates an event with a fresh delivery id.
func NewEvent(eventType string, data any) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// TranslationEventData describes a translation request at the time of the event.
type TranslationEventData struct {
	RequestID       int64    `json:"request_id"`
	OrderName       string   `json:"order_name"`
	State           string   `json:"state"`
	PreviousState   string   `json:"previous_state,omitempty"`
	SourceLanguage  string   `json:"source_language"`
	TargetLanguages []string `json:"target_languages"`
	Backend         string   `json:"backend"`
	ProviderOrderID string   `json:"provider_order_id,omitempty"`
	Price           int64    `json:"price,omitempty"`
	Currency        string   `json:"currency,omitempty"`
	Error           string   `json:"error,omitempty"`
}

// StalledOrdersData lists requests stuck in translation.
type StalledOrdersData struct {
	Since    time.Time `json:"since"`
	Requests []int64   `json:"requests"`
}
