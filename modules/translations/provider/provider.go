// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package provider defines the boundary to translation vendors and ships
// two implementations: a JSON-over-HTTP vendor client and an LLM machine
// translation backend.
package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"
)

// Backend names.
const (
	BackendVendor = "vendor"
	BackendOpenAI = "openai"
)

// ErrProvider is wrapped by every error that originates at the provider.
var ErrProvider = errors.New("translation provider error")

// Error describes a failed provider call.
type Error struct {
	StatusCode int    // 0 when the request never got a response
	Body       string // response body, truncated
	Retryable  bool
	Err        error
}

func (e *Error) Error() string {
	switch {
	case e.StatusCode > 0 && e.Body != "":
		return fmt.Sprintf("provider responded %d: %s", e.StatusCode, e.Body)
	case e.StatusCode > 0:
		return fmt.Sprintf("provider responded %d", e.StatusCode)
	case e.Err != nil:
		return "provider call failed: " + e.Err.Error()
	default:
		return "provider call failed"
	}
}

// Unwrap lets errors.Is match ErrProvider and the transport cause.
func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrProvider, e.Err}
	}
	return []error{ErrProvider}
}

// IsRetryable reports whether err is a provider error worth retrying.
func IsRetryable(err error) bool {
	var pe *Error
	return errors.As(err, &pe) && pe.Retryable
}

// QuoteRequest asks a provider to price a translation.
type QuoteRequest struct {
	RequestID       int64
	OrderName       string
	SourceLanguage  string
	TargetLanguages []string
	Content         json.RawMessage
	Options         map[string]any
	CallbackURL     string
}

// Quote is one offer returned by a provider.
type Quote struct {
	ProviderQuoteID string
	Name            string
	Description     string
	DeliveryDate    time.Time
	Price           int64 // minor units
	Currency        string
	Raw             json.RawMessage
}

// OrderRequest places an order for a chosen quote.
type OrderRequest struct {
	RequestID       int64
	OrderName       string
	ProviderQuoteID string
	SourceLanguage  string
	TargetLanguages []string
	Content         json.RawMessage
	Options         map[string]any
	CallbackURL     string
}

// OrderResponse is the provider's acknowledgement of an order.
type OrderResponse struct {
	ProviderOrderID string
	// RequestContent and ResponseContent are the payloads as sent and received.
	RequestContent  json.RawMessage
	ResponseContent json.RawMessage
	// Completion is set by providers that translate synchronously. It holds a
	// callback payload that is applied as if the provider had called back.
	Completion json.RawMessage
}

// Provider is a translation vendor.
type Provider interface {
	Name() string
	Quote(ctx context.Context, req QuoteRequest) ([]Quote, error)
	Submit(ctx context.Context, req OrderRequest) (*OrderResponse, error)
}

// Registry resolves providers by backend name.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

// NewRegistry creates a registry holding providers.
func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{providers: make(map[string]Provider)}
	for _, p := range providers {
		r.Register(p)
	}
	return r
}

// Register adds or replaces a provider under its name.
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Name()] = p
}

// Get returns the provider registered as name.
func (r *Registry) Get(name string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	return p, ok
}

// Names returns the registered backend names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
