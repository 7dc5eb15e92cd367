// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package translations

import (
	"database/sql"

	"github.com/olegiv/ocms-translations/internal/module"
)

func execAll(db *sql.DB, stmts ...string) error {
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Migrations returns database migrations for the module.
func (m *Module) Migrations() []module.Migration {
	return []module.Migration{
		{
			Version:     1,
			Description: "Create translation directive tables",
			Up: func(db *sql.DB) error {
				return execAll(db,
					`CREATE TABLE IF NOT EXISTS translation_directives (
						id INTEGER PRIMARY KEY AUTOINCREMENT,
						title TEXT NOT NULL,
						master_language VARCHAR(10) NOT NULL CHECK (length(master_language) <= 10),
						created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
					)`,
					`CREATE TABLE IF NOT EXISTS translation_directive_inlines (
						id INTEGER PRIMARY KEY AUTOINCREMENT,
						directive_id INTEGER NOT NULL REFERENCES translation_directives(id) ON DELETE CASCADE,
						language VARCHAR(10) NOT NULL CHECK (length(language) <= 10),
						UNIQUE (directive_id, language)
					)`,
				)
			},
			Down: func(db *sql.DB) error {
				return execAll(db,
					`DROP TABLE IF EXISTS translation_directive_inlines`,
					`DROP TABLE IF EXISTS translation_directives`,
				)
			},
		},
		{
			Version:     2,
			Description: "Create translation request tables",
			Up: func(db *sql.DB) error {
				return execAll(db,
					`CREATE TABLE IF NOT EXISTS translation_requests (
						id INTEGER PRIMARY KEY AUTOINCREMENT,
						provider_order_name TEXT NOT NULL,
						source_language VARCHAR(10) NOT NULL,
						target_languages TEXT NOT NULL DEFAULT '[]',
						user_id INTEGER REFERENCES users(id) ON DELETE SET NULL,
						state TEXT NOT NULL DEFAULT 'pending_quote',
						provider_backend TEXT NOT NULL,
						provider_options TEXT NOT NULL DEFAULT '{}',
						export_content TEXT NOT NULL DEFAULT '',
						selected_quote_id INTEGER REFERENCES translation_quotes(id) ON DELETE SET NULL,
						directive_id INTEGER REFERENCES translation_directives(id) ON DELETE SET NULL,
						date_created DATETIME NOT NULL,
						date_submitted DATETIME,
						date_received DATETIME,
						date_imported DATETIME,
						updated_at DATETIME NOT NULL
					)`,
					`CREATE INDEX IF NOT EXISTS idx_translation_requests_state ON translation_requests(state)`,
					`CREATE TABLE IF NOT EXISTS translation_quotes (
						id INTEGER PRIMARY KEY AUTOINCREMENT,
						request_id INTEGER NOT NULL REFERENCES translation_requests(id) ON DELETE CASCADE,
						provider_quote_id TEXT NOT NULL,
						name TEXT NOT NULL DEFAULT '',
						description TEXT NOT NULL DEFAULT '',
						delivery_date DATETIME,
						price INTEGER NOT NULL,
						currency TEXT NOT NULL,
						raw TEXT NOT NULL DEFAULT '{}',
						date_created DATETIME NOT NULL
					)`,
					`CREATE INDEX IF NOT EXISTS idx_translation_quotes_request ON translation_quotes(request_id)`,
					`CREATE TABLE IF NOT EXISTS translation_orders (
						id INTEGER PRIMARY KEY AUTOINCREMENT,
						request_id INTEGER NOT NULL REFERENCES translation_requests(id) ON DELETE CASCADE,
						quote_id INTEGER REFERENCES translation_quotes(id) ON DELETE SET NULL,
						provider_order_id TEXT NOT NULL DEFAULT '',
						provider_options TEXT NOT NULL DEFAULT '{}',
						request_content TEXT NOT NULL DEFAULT '',
						response_content TEXT NOT NULL DEFAULT '',
						price INTEGER NOT NULL DEFAULT 0,
						currency TEXT NOT NULL DEFAULT '',
						state TEXT NOT NULL DEFAULT 'open',
						date_created DATETIME NOT NULL,
						date_translated DATETIME
					)`,
					// One live order per request; failed and superseded orders are history.
					`CREATE UNIQUE INDEX IF NOT EXISTS idx_translation_orders_active
						ON translation_orders(request_id) WHERE state NOT IN ('failed', 'superseded')`,
					`CREATE INDEX IF NOT EXISTS idx_translation_orders_provider ON translation_orders(provider_order_id)`,
					`CREATE TABLE IF NOT EXISTS translation_request_items (
						id INTEGER PRIMARY KEY AUTOINCREMENT,
						request_id INTEGER NOT NULL REFERENCES translation_requests(id) ON DELETE CASCADE,
						app_label TEXT NOT NULL,
						model_name TEXT NOT NULL,
						object_id TEXT NOT NULL,
						source_language VARCHAR(10) NOT NULL,
						date_created DATETIME NOT NULL
					)`,
					`CREATE INDEX IF NOT EXISTS idx_translation_items_request ON translation_request_items(request_id)`,
					`CREATE INDEX IF NOT EXISTS idx_translation_items_object ON translation_request_items(app_label, model_name, object_id)`,
				)
			},
			Down: func(db *sql.DB) error {
				return execAll(db,
					`DROP TABLE IF EXISTS translation_request_items`,
					`DROP TABLE IF EXISTS translation_orders`,
					`DROP TABLE IF EXISTS translation_quotes`,
					`DROP TABLE IF EXISTS translation_requests`,
				)
			},
		},
		{
			Version:     3,
			Description: "Create translation callback receipts",
			Up: func(db *sql.DB) error {
				return execAll(db,
					`CREATE TABLE IF NOT EXISTS translation_callbacks (
						id INTEGER PRIMARY KEY AUTOINCREMENT,
						request_id INTEGER NOT NULL REFERENCES translation_requests(id) ON DELETE CASCADE,
						order_id INTEGER REFERENCES translation_orders(id) ON DELETE CASCADE,
						payload_sha256 TEXT NOT NULL,
						status TEXT NOT NULL,
						received_at DATETIME NOT NULL,
						UNIQUE (request_id, payload_sha256)
					)`,
				)
			},
			Down: func(db *sql.DB) error {
				return execAll(db, `DROP TABLE IF EXISTS translation_callbacks`)
			},
		},
	}
}
