// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package module is the extension point of the admin application.
// A module brings its own migrations, routes, templates, hooks, locales and
// scheduled jobs, and receives the shared services through Context.
package module

import (
	"database/sql"
	"html/template"
	"io/fs"
	"log/slog"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"

	"github.com/olegiv/ocms-translations/internal/cache"
	"github.com/olegiv/ocms-translations/internal/config"
	"github.com/olegiv/ocms-translations/internal/render"
	"github.com/olegiv/ocms-translations/internal/scheduler"
	"github.com/olegiv/ocms-translations/internal/store"
	"github.com/olegiv/ocms-translations/internal/webhook"
)

// Context provides access to application services for modules.
// Optional services (Render, Cache, Scheduler, Sessions, Notifier) may be nil
// in tests.
type Context struct {
	DB        *sql.DB
	Store     *store.Queries
	Logger    *slog.Logger
	Config    *config.Config
	Render    *render.Renderer
	Hooks     *HookRegistry
	Cache     cache.Cache
	Scheduler *scheduler.Scheduler
	Sessions  *scs.SessionManager
	Notifier  *webhook.Notifier
}

// Module defines the interface that all modules must implement.
type Module interface {
	Name() string
	Version() string
	Description() string
	// Dependencies lists modules that must be registered before this one.
	Dependencies() []string

	Init(ctx *Context) error
	Shutdown() error

	// RegisterRoutes mounts routes outside the admin area (callbacks, public pages).
	RegisterRoutes(r chi.Router)
	// RegisterAdminRoutes mounts routes under /admin behind authentication.
	RegisterAdminRoutes(r chi.Router)

	// TemplateFuncs are made available to every module's templates.
	TemplateFuncs() template.FuncMap
	Migrations() []Migration

	// AdminURL is the module's admin landing page, empty if it has none.
	AdminURL() string
	// SidebarLabel is the navigation label; empty means the module name.
	SidebarLabel() string

	// LocalesFS holds locales/{lang}/messages.json, or nil.
	LocalesFS() fs.FS
}

// Migration represents a database migration for a module.
type Migration struct {
	Version     int64
	Description string
	Up          func(db *sql.DB) error
	Down        func(db *sql.DB) error
}

// BaseModule provides no-op defaults; modules embed it and override what they need.
type BaseModule struct {
	name        string
	version     string
	description string
	ctx         *Context
}

// NewBaseModule creates a new BaseModule with the given metadata.
func NewBaseModule(name, version, description string) BaseModule {
	return BaseModule{
		name:        name,
		version:     version,
		description: description,
	}
}

func (m *BaseModule) Name() string        { return m.name }
func (m *BaseModule) Version() string     { return m.version }
func (m *BaseModule) Description() string { return m.description }

func (m *BaseModule) Dependencies() []string { return nil }

// Init stores the context for later use through Context.
func (m *BaseModule) Init(ctx *Context) error {
	m.ctx = ctx
	return nil
}

func (m *BaseModule) Shutdown() error { return nil }

func (m *BaseModule) RegisterRoutes(_ chi.Router)      {}
func (m *BaseModule) RegisterAdminRoutes(_ chi.Router) {}

func (m *BaseModule) TemplateFuncs() template.FuncMap { return nil }
func (m *BaseModule) Migrations() []Migration         { return nil }
func (m *BaseModule) AdminURL() string                { return "" }
func (m *BaseModule) SidebarLabel() string            { return "" }
func (m *BaseModule) LocalesFS() fs.FS                { return nil }

// Context returns the module context (for use by embedded modules).
func (m *BaseModule) Context() *Context { return m.ctx }
