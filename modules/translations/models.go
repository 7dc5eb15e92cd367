// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package translations

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

// State is the lifecycle state of a translation request.
type State string

// Request states in lifecycle order.
const (
	StatePendingQuote    State = "pending_quote"
	StatePendingApproval State = "pending_approval"
	StateInTranslation   State = "in_translation"
	StateImportStarted   State = "import_started"
	StateImported        State = "imported"
	StateImportFailed    State = "import_failed"
)

// States lists every state in lifecycle order.
var States = []State{
	StatePendingQuote,
	StatePendingApproval,
	StateInTranslation,
	StateImportStarted,
	StateImported,
	StateImportFailed,
}

// Valid reports whether s is a known state.
func (s State) Valid() bool {
	for _, st := range States {
		if s == st {
			return true
		}
	}
	return false
}

// Terminal reports whether no forward transition leaves s.
func (s State) Terminal() bool {
	return s == StateImported || s == StateImportFailed
}

// OrderState is the state of a provider order.
type OrderState string

// Order states.
const (
	OrderOpen       OrderState = "open"
	OrderPending    OrderState = "pending"
	OrderDone       OrderState = "done"
	OrderFailed     OrderState = "failed"
	OrderSuperseded OrderState = "superseded"
)

// Sentinel errors.
var (
	ErrNotFound          = errors.New("translation request not found")
	ErrInvalidState      = errors.New("invalid state for this action")
	ErrQuoteMismatch     = errors.New("quote does not belong to request")
	ErrSerialization     = errors.New("content cannot be serialized")
	ErrMalformedCallback = errors.New("malformed provider callback")
	ErrOrderNotFound     = errors.New("translation order not found")
	ErrUnknownBackend    = errors.New("unknown translation backend")
	ErrInvalidRequest    = errors.New("invalid translation request")
	ErrSourceNotFound    = errors.New("source object not found")
)

// Request is a translation request.
type Request struct {
	ID                int64
	ProviderOrderName string
	SourceLanguage    string
	TargetLanguages   []string
	UserID            sql.NullInt64
	State             State
	ProviderBackend   string
	ProviderOptions   map[string]any
	ExportContent     json.RawMessage
	SelectedQuoteID   sql.NullInt64
	DirectiveID       sql.NullInt64
	DateCreated       time.Time
	DateSubmitted     sql.NullTime
	DateReceived      sql.NullTime
	DateImported      sql.NullTime
	UpdatedAt         time.Time
}

// Quote is a provider offer for a request.
type Quote struct {
	ID              int64
	RequestID       int64
	ProviderQuoteID string
	Name            string
	Description     string
	DeliveryDate    sql.NullTime
	Price           int64
	Currency        string
	Raw             json.RawMessage
	DateCreated     time.Time
}

// Order is an order placed with the provider.
type Order struct {
	ID              int64
	RequestID       int64
	QuoteID         sql.NullInt64
	ProviderOrderID string
	ProviderOptions map[string]any
	RequestContent  json.RawMessage
	ResponseContent json.RawMessage
	Price           int64
	Currency        string
	State           OrderState
	DateCreated     time.Time
	DateTranslated  sql.NullTime
}

// Item is one object included in a request.
type Item struct {
	ID             int64
	RequestID      int64
	AppLabel       string
	ModelName      string
	ObjectID       string
	SourceLanguage string
	DateCreated    time.Time
}

// Callback is the receipt of a processed provider callback.
type Callback struct {
	ID            int64
	RequestID     int64
	OrderID       sql.NullInt64
	PayloadSHA256 string
	Status        string
	ReceivedAt    time.Time
}

// Directive names a source language and a set of target languages.
type Directive struct {
	ID             int64
	Title          string
	MasterLanguage string
	Languages      []string
	CreatedAt      time.Time
}
