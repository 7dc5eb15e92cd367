// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package module

import (
	"database/sql"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"maps"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/ocms-translations/internal/i18n"
	"github.com/olegiv/ocms-translations/internal/render"
)

// Registry manages module registration and lifecycle.
type Registry struct {
	mu           sync.RWMutex
	modules      map[string]Module
	order        []string
	activeStatus map[string]bool
	ctx          *Context
	logger       *slog.Logger
}

// NewRegistry creates a new module registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		modules:      make(map[string]Module),
		order:        make([]string, 0),
		activeStatus: make(map[string]bool),
		logger:       logger,
	}
}

// Register adds a module. Modules initialize in registration order.
func (r *Registry) Register(m Module) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := m.Name()
	if _, exists := r.modules[name]; exists {
		return fmt.Errorf("module %q already registered", name)
	}

	r.modules[name] = m
	r.order = append(r.order, name)
	r.logger.Info("module registered", "name", name, "version", m.Version())
	return nil
}

// Get returns a module by name.
func (r *Registry) Get(name string) (Module, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.modules[name]
	return m, ok
}

// List returns all registered modules in registration order.
func (r *Registry) List() []Module {
	r.mu.RLock()
	defer r.mu.RUnlock()

	modules := make([]Module, 0, len(r.order))
	for _, name := range r.order {
		modules = append(modules, r.modules[name])
	}
	return modules
}

// Count returns the number of registered modules.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.modules)
}

// InitAll checks dependencies, applies pending migrations, loads active
// status and locales, then initializes every module.
func (r *Registry) InitAll(ctx *Context) error {
	r.mu.Lock()
	r.ctx = ctx
	err := r.prepare(ctx.DB)
	modules := make([]Module, 0, len(r.order))
	for _, name := range r.order {
		modules = append(modules, r.modules[name])
	}
	r.mu.Unlock()
	if err != nil {
		return err
	}

	if ctx.Hooks != nil {
		ctx.Hooks.SetIsModuleActive(r.IsActive)
	}

	for _, m := range modules {
		if fsys := m.LocalesFS(); fsys != nil {
			if err := i18n.LoadFS(fsys); err != nil {
				r.logger.Warn("failed to load module locales", "module", m.Name(), "error", err)
			}
		}
		if err := m.Init(ctx); err != nil {
			return fmt.Errorf("initializing module %q: %w", m.Name(), err)
		}
		r.logger.Info("module initialized", "name", m.Name(), "active", r.IsActive(m.Name()))
	}
	return nil
}

func (r *Registry) prepare(db *sql.DB) error {
	if err := r.checkDependencies(); err != nil {
		return err
	}
	if err := r.runAllMigrations(db); err != nil {
		return err
	}
	if err := r.loadActiveStatus(db); err != nil {
		return fmt.Errorf("loading module active status: %w", err)
	}
	return nil
}

func (r *Registry) checkDependencies() error {
	for _, name := range r.order {
		for _, dep := range r.modules[name].Dependencies() {
			if _, ok := r.modules[dep]; !ok {
				return fmt.Errorf("module %q depends on %q which is not registered", name, dep)
			}
		}
	}
	return nil
}

func (r *Registry) runAllMigrations(db *sql.DB) error {
	if err := ensureRegistryTables(db); err != nil {
		return fmt.Errorf("ensuring migrations table: %w", err)
	}

	for _, name := range r.order {
		for _, mig := range r.modules[name].Migrations() {
			applied, err := isMigrationApplied(db, name, mig.Version)
			if err != nil {
				return fmt.Errorf("checking migration status for %s v%d: %w", name, mig.Version, err)
			}
			if applied {
				continue
			}

			r.logger.Info("applying migration", "module", name, "version", mig.Version, "description", mig.Description)
			if err := mig.Up(db); err != nil {
				return fmt.Errorf("running migration %s v%d: %w", name, mig.Version, err)
			}
			if _, err := db.Exec(
				`INSERT INTO module_migrations (module, version, applied_at) VALUES (?, ?, ?)`,
				name, mig.Version, time.Now(),
			); err != nil {
				return fmt.Errorf("recording migration %s v%d: %w", name, mig.Version, err)
			}
		}
	}
	return nil
}

func ensureRegistryTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS module_migrations (
			module TEXT NOT NULL,
			version INTEGER NOT NULL,
			applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (module, version)
		);
		CREATE TABLE IF NOT EXISTS modules (
			name TEXT PRIMARY KEY,
			is_active BOOLEAN NOT NULL DEFAULT 1,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	return err
}

func isMigrationApplied(db *sql.DB, module string, version int64) (bool, error) {
	var count int
	err := db.QueryRow(
		`SELECT COUNT(*) FROM module_migrations WHERE module = ? AND version = ?`,
		module, version,
	).Scan(&count)
	return count > 0, err
}

// loadActiveStatus reads the persisted status. Unknown modules are inserted as active.
func (r *Registry) loadActiveStatus(db *sql.DB) error {
	for _, name := range r.order {
		var active bool
		err := db.QueryRow(`SELECT is_active FROM modules WHERE name = ?`, name).Scan(&active)
		if errors.Is(err, sql.ErrNoRows) {
			if _, err := db.Exec(`INSERT INTO modules (name, is_active) VALUES (?, 1)`, name); err != nil {
				return fmt.Errorf("inserting module %s: %w", name, err)
			}
			active = true
		} else if err != nil {
			return fmt.Errorf("loading active status for module %s: %w", name, err)
		}
		r.activeStatus[name] = active
	}
	return nil
}

// IsActive reports whether a module is active. Untracked modules count as active.
func (r *Registry) IsActive(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.isActiveLocked(name)
}

func (r *Registry) isActiveLocked(name string) bool {
	active, ok := r.activeStatus[name]
	return !ok || active
}

// SetActive persists a module's active status.
func (r *Registry) SetActive(name string, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.modules[name]; !exists {
		return fmt.Errorf("module %q not registered", name)
	}
	if r.ctx == nil || r.ctx.DB == nil {
		return errors.New("registry not initialized")
	}

	if _, err := r.ctx.DB.Exec(
		`UPDATE modules SET is_active = ?, updated_at = CURRENT_TIMESTAMP WHERE name = ?`,
		active, name,
	); err != nil {
		return fmt.Errorf("updating module status: %w", err)
	}
	r.activeStatus[name] = active
	r.logger.Info("module status changed", "module", name, "active", active)
	return nil
}

// ListSidebarModules returns the active modules that have an admin page.
func (r *Registry) ListSidebarModules() []render.SidebarModule {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var items []render.SidebarModule
	for _, name := range r.order {
		m := r.modules[name]
		if !r.isActiveLocked(name) || m.AdminURL() == "" {
			continue
		}
		label := m.SidebarLabel()
		if label == "" {
			label = m.Name()
		}
		items = append(items, render.SidebarModule{Name: name, Label: label, AdminURL: m.AdminURL()})
	}
	return items
}

// ShutdownAll shuts modules down in reverse order and joins their errors.
func (r *Registry) ShutdownAll() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var errs []error
	for i := len(r.order) - 1; i >= 0; i-- {
		name := r.order[i]
		if err := r.modules[name].Shutdown(); err != nil {
			r.logger.Error("module shutdown error", "name", name, "error", err)
			errs = append(errs, fmt.Errorf("shutting down module %q: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// RouteAll mounts every module's public routes behind the active check.
func (r *Registry) RouteAll(router chi.Router) {
	r.routeAll(router, false, Module.RegisterRoutes)
}

// AdminRouteAll mounts every module's admin routes behind the active check.
func (r *Registry) AdminRouteAll(router chi.Router) {
	r.routeAll(router, true, Module.RegisterAdminRoutes)
}

func (r *Registry) routeAll(router chi.Router, isAdmin bool, register func(Module, chi.Router)) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, name := range r.order {
		m := r.modules[name]
		router.Group(func(sub chi.Router) {
			sub.Use(r.requireActive(name, isAdmin))
			register(m, sub)
		})
	}
}

// requireActive answers 404 for inactive modules, or redirects to the
// dashboard for admin routes.
func (r *Registry) requireActive(moduleName string, isAdmin bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if r.IsActive(moduleName) {
				next.ServeHTTP(w, req)
				return
			}
			if isAdmin {
				http.Redirect(w, req, "/admin", http.StatusSeeOther)
				return
			}
			http.NotFound(w, req)
		})
	}
}

// AllTemplateFuncs merges the template functions of all active modules.
func (r *Registry) AllTemplateFuncs() template.FuncMap {
	r.mu.RLock()
	defer r.mu.RUnlock()

	funcs := make(template.FuncMap)
	for _, name := range r.order {
		if r.isActiveLocked(name) {
			maps.Copy(funcs, r.modules[name].TemplateFuncs())
		}
	}
	return funcs
}

// Info describes a registered module for the dashboard.
type Info struct {
	Name              string
	Version           string
	Description       string
	Active            bool
	AdminURL          string
	MigrationCount    int
	MigrationsApplied int
}

// ListInfo returns information about all registered modules.
func (r *Registry) ListInfo() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]Info, 0, len(r.order))
	for _, name := range r.order {
		m := r.modules[name]
		migrations := m.Migrations()

		applied := 0
		if r.ctx != nil && r.ctx.DB != nil {
			for _, mig := range migrations {
				if ok, err := isMigrationApplied(r.ctx.DB, name, mig.Version); err == nil && ok {
					applied++
				}
			}
		}

		infos = append(infos, Info{
			Name:              name,
			Version:           m.Version(),
			Description:       m.Description(),
			Active:            r.isActiveLocked(name),
			AdminURL:          m.AdminURL(),
			MigrationCount:    len(migrations),
			MigrationsApplied: applied,
		})
	}
	return infos
}
