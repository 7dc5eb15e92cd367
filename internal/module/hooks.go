// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package module

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
)

// Hooks exchanged between the translations module and content modules.
const (
	// HookTranslationExport asks the owning module for the source content of
	// one object. Data is *TranslationExport.
	HookTranslationExport = "translation.export"
	// HookTranslationImport hands translated fields back to the owning
	// module. Data is *TranslationImport.
	HookTranslationImport = "translation.import"
	// HookTranslationStateChanged is a notification after every transition.
	// Data is TranslationStateChange.
	HookTranslationStateChanged = "translation.state_changed"
)

// TranslationExport identifies an object whose content should be exported.
// The module owning AppLabel fills Content and sets Found.
type TranslationExport struct {
	AppLabel  string
	ModelName string
	ObjectID  string
	Language  string

	Content map[string]any
	Found   bool
}

// TranslationImport carries translated fields for one object and language.
// Handlers that store the fields increment Imported.
type TranslationImport struct {
	RequestID int64
	AppLabel  string
	ModelName string
	ObjectID  string
	Language  string
	Fields    map[string]any

	Imported int
}

// TranslationStateChange describes a request transition.
type TranslationStateChange struct {
	RequestID int64
	From      string
	To        string
	UserID    int64
}

// HookFunc handles a hook call. It may return modified data; an error stops
// the chain.
type HookFunc func(ctx context.Context, data any) (any, error)

// HookHandler wraps a HookFunc with metadata.
type HookHandler struct {
	Name     string
	Module   string
	Priority int // lower runs first
	Fn       HookFunc
}

// IsModuleActiveFunc is a function that checks if a module is active.
type IsModuleActiveFunc func(moduleName string) bool

// HookRegistry manages hook registration and execution.
type HookRegistry struct {
	mu             sync.RWMutex
	hooks          map[string][]HookHandler
	logger         *slog.Logger
	isModuleActive IsModuleActiveFunc
}

// NewHookRegistry creates a new hook registry in which every module counts as active.
func NewHookRegistry(logger *slog.Logger) *HookRegistry {
	return &HookRegistry{
		hooks:          make(map[string][]HookHandler),
		logger:         logger,
		isModuleActive: func(string) bool { return true },
	}
}

// SetIsModuleActive sets the callback function to check if a module is active.
func (h *HookRegistry) SetIsModuleActive(fn IsModuleActiveFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.isModuleActive = fn
}

// Register adds a hook handler. Handlers with equal priority keep
// registration order. Calls already running keep the list they started with.
func (h *HookRegistry) Register(hookName string, handler HookHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()

	handlers := append(slices.Clone(h.hooks[hookName]), handler)
	slices.SortStableFunc(handlers, func(a, b HookHandler) int {
		return cmp.Compare(a.Priority, b.Priority)
	})
	h.hooks[hookName] = handlers

	h.logger.Debug("hook registered",
		"hook", hookName,
		"handler", handler.Name,
		"module", handler.Module,
		"priority", handler.Priority,
	)
}

// RegisterFunc registers fn with default priority.
func (h *HookRegistry) RegisterFunc(hookName, handlerName, moduleName string, fn HookFunc) {
	h.Register(hookName, HookHandler{Name: handlerName, Module: moduleName, Fn: fn})
}

// Call runs the handlers of hookName in priority order, threading data
// through them. Handlers of inactive modules are skipped.
func (h *HookRegistry) Call(ctx context.Context, hookName string, data any) (any, error) {
	h.mu.RLock()
	handlers := h.hooks[hookName]
	isModuleActive := h.isModuleActive
	h.mu.RUnlock()

	current := data
	for _, handler := range handlers {
		if !isModuleActive(handler.Module) {
			continue
		}

		result, err := handler.Fn(ctx, current)
		if err != nil {
			h.logger.Error("hook handler error",
				"hook", hookName,
				"handler", handler.Name,
				"module", handler.Module,
				"error", err,
			)
			return nil, fmt.Errorf("hook %s handler %s: %w", hookName, handler.Name, err)
		}
		current = result
	}
	return current, nil
}

// CallNoResult runs the hook for notification only.
func (h *HookRegistry) CallNoResult(ctx context.Context, hookName string, data any) error {
	_, err := h.Call(ctx, hookName, data)
	return err
}

// HasHandlers returns true if there are handlers registered for the hook.
func (h *HookRegistry) HasHandlers(hookName string) bool {
	return h.HandlerCount(hookName) > 0
}

// HandlerCount returns the number of handlers registered for a hook.
func (h *HookRegistry) HandlerCount(hookName string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.hooks[hookName])
}

// UnregisterAll removes every handler registered by moduleName.
func (h *HookRegistry) UnregisterAll(moduleName string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for hookName, handlers := range h.hooks {
		h.hooks[hookName] = slices.DeleteFunc(slices.Clone(handlers), func(hh HookHandler) bool {
			return hh.Module == moduleName
		})
	}
	h.logger.Debug("hooks unregistered", "module", moduleName)
}
