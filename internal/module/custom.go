// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package module

import (
	"slices"
	"sync"
)

var (
	customMu      sync.Mutex
	customModules []Module
)

// RegisterCustomModule queues a module for registration at startup.
// Content modules call it from init:
//
//	func init() { module.RegisterCustomModule(New()) }
func RegisterCustomModule(m Module) {
	customMu.Lock()
	defer customMu.Unlock()
	customModules = append(customModules, m)
}

// CustomModules returns the queued modules in registration order.
func CustomModules() []Module {
	customMu.Lock()
	defer customMu.Unlock()
	return slices.Clone(customModules)
}
