// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package moduleutil provides module-specific test helpers.
package moduleutil

import (
	"database/sql"
	"testing"

	"github.com/olegiv/ocms-translations/internal/config"
	"github.com/olegiv/ocms-translations/internal/module"
	"github.com/olegiv/ocms-translations/internal/store"
	"github.com/olegiv/ocms-translations/internal/testutil"
)

// RunMigrations runs all migrations up for the given module.
func RunMigrations(t *testing.T, db *sql.DB, migrations []module.Migration) {
	t.Helper()
	for _, mig := range migrations {
		if err := mig.Up(db); err != nil {
			t.Fatalf("migration %d up: %v", mig.Version, err)
		}
	}
}

// RunMigrationsDown rolls back all migrations for the given module, newest first.
func RunMigrationsDown(t *testing.T, db *sql.DB, migrations []module.Migration) {
	t.Helper()
	for i := len(migrations) - 1; i >= 0; i-- {
		mig := migrations[i]
		if err := mig.Down(db); err != nil {
			t.Fatalf("migration %d down: %v", mig.Version, err)
		}
	}
}

// AssertTableExists fails the test when table is missing.
func AssertTableExists(t *testing.T, db *sql.DB, table string) {
	t.Helper()
	var name string
	err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
	if err != nil {
		t.Fatalf("table %s should exist: %v", table, err)
	}
}

// AssertTableNotExists fails the test when table is present.
func AssertTableNotExists(t *testing.T, db *sql.DB, table string) {
	t.Helper()
	var name string
	err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
	if err != sql.ErrNoRows {
		t.Fatalf("table %s should not exist (err=%v)", table, err)
	}
}

// TestModuleContext creates a module.Context for testing.
// Returns the context and the hooks registry for verifying hook behavior.
func TestModuleContext(t *testing.T, db *sql.DB) (*module.Context, *module.HookRegistry) {
	t.Helper()
	logger := testutil.TestLogger()
	hooks := module.NewHookRegistry(logger)
	return &module.Context{
		DB:     db,
		Store:  store.New(db),
		Logger: logger,
		Config: &config.Config{PublicURL: "http://localhost:8080"},
		Hooks:  hooks,
	}, hooks
}
