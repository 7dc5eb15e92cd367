// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package bookmarks is a custom content module whose bookmarks can be sent
// for translation. It answers the translation export and import hooks and
// serves each bookmark in every language it has been translated into.
package bookmarks

import (
	"database/sql"
	"embed"
	"fmt"
	"html/template"
	"io/fs"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/ocms-translations/internal/middleware"
	"github.com/olegiv/ocms-translations/internal/module"
	"github.com/olegiv/ocms-translations/modules/translations"
)

//go:embed locales
var localesFS embed.FS

//go:embed templates/*.html
var templatesFS embed.FS

const (
	// AppLabel identifies bookmarks in translation requests.
	AppLabel = "bookmarks"
	// ModelName is the translatable model.
	ModelName = "bookmark"
)

// Module implements module.Module for bookmarks.
type Module struct {
	module.BaseModule
	ctx *module.Context
}

// New creates a new instance of the bookmarks module.
func New() *Module {
	return &Module{
		BaseModule: module.NewBaseModule(
			"bookmarks",
			"1.1.0",
			"Saved links with translatable titles and descriptions",
		),
	}
}

// Dependencies lists the translations module, whose links the admin list uses.
func (m *Module) Dependencies() []string {
	return []string{translations.ModuleName}
}

// Init initializes the module with the given context.
func (m *Module) Init(ctx *module.Context) error {
	m.ctx = ctx
	m.registerHooks()

	if ctx.Render != nil {
		if err := ctx.Render.AddTemplates(m.Name(), templatesFS, "templates", template.FuncMap{
			"translateURL": translations.TranslateURL,
		}); err != nil {
			return fmt.Errorf("loading bookmarks templates: %w", err)
		}
	}

	m.ctx.Logger.Info("bookmarks module initialized")
	return nil
}

// Shutdown removes the module's hook handlers.
func (m *Module) Shutdown() error {
	if m.ctx != nil {
		m.ctx.Hooks.UnregisterAll(m.Name())
	}
	return nil
}

// RegisterRoutes registers public routes for the module.
func (m *Module) RegisterRoutes(r chi.Router) {
	r.Get("/bookmarks", m.handlePublicList)
}

// RegisterAdminRoutes registers admin routes for the module.
func (m *Module) RegisterAdminRoutes(r chi.Router) {
	r.Route("/bookmarks", func(r chi.Router) {
		r.Use(middleware.RequireEditor())

		r.Get("/", m.handleAdminList)
		r.Post("/", m.handleCreate)
		r.Post("/{id}/toggle", m.handleToggleFavorite)
		r.Post("/{id}/delete", m.handleDelete)
	})
}

// TemplateFuncs returns template functions provided by the module.
func (m *Module) TemplateFuncs() template.FuncMap {
	return template.FuncMap{
		"bookmarkCount": func() int {
			count, err := m.countBookmarks()
			if err != nil {
				return 0
			}
			return count
		},
		"bookmarkFavorites": func() []Bookmark {
			items, err := m.listFavorites()
			if err != nil {
				return nil
			}
			return items
		},
	}
}

// AdminURL returns the admin dashboard URL for the module.
func (m *Module) AdminURL() string {
	return "/admin/bookmarks"
}

// SidebarLabel returns the display label for the admin sidebar.
func (m *Module) SidebarLabel() string {
	return "Bookmarks"
}

// LocalesFS returns the module's message catalogs.
func (m *Module) LocalesFS() fs.FS {
	return localesFS
}

// Migrations returns database migrations for the module.
func (m *Module) Migrations() []module.Migration {
	return []module.Migration{
		{
			Version:     1,
			Description: "Create bookmarks table",
			Up: func(db *sql.DB) error {
				_, err := db.Exec(`
					CREATE TABLE IF NOT EXISTS bookmarks (
						id INTEGER PRIMARY KEY AUTOINCREMENT,
						title TEXT NOT NULL,
						url TEXT NOT NULL,
						description TEXT DEFAULT '',
						is_favorite BOOLEAN NOT NULL DEFAULT 0,
						created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
					)
				`)
				return err
			},
			Down: func(db *sql.DB) error {
				_, err := db.Exec(`DROP TABLE IF EXISTS bookmarks`)
				return err
			},
		},
		{
			Version:     2,
			Description: "Add bookmark languages and translations",
			Up: func(db *sql.DB) error {
				if _, err := db.Exec(`ALTER TABLE bookmarks ADD COLUMN language VARCHAR(10) NOT NULL DEFAULT 'en'`); err != nil {
					return err
				}
				_, err := db.Exec(`
					CREATE TABLE IF NOT EXISTS bookmark_translations (
						id INTEGER PRIMARY KEY AUTOINCREMENT,
						bookmark_id INTEGER NOT NULL REFERENCES bookmarks(id) ON DELETE CASCADE,
						language VARCHAR(10) NOT NULL,
						title TEXT NOT NULL,
						description TEXT NOT NULL DEFAULT '',
						request_id INTEGER,
						updated_at DATETIME NOT NULL,
						UNIQUE (bookmark_id, language)
					)
				`)
				return err
			},
			Down: func(db *sql.DB) error {
				if _, err := db.Exec(`DROP TABLE IF EXISTS bookmark_translations`); err != nil {
					return err
				}
				_, err := db.Exec(`ALTER TABLE bookmarks DROP COLUMN language`)
				return err
			},
		},
	}
}
