// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package session configures admin sessions stored in the sessions table.
package session

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
)

// Config tunes the session manager.
type Config struct {
	IsDev           bool
	Lifetime        time.Duration
	IdleTimeout     time.Duration
	CleanupInterval time.Duration
}

// DefaultConfig returns a 24h session that expires after 2h of inactivity.
func DefaultConfig(isDev bool) Config {
	return Config{
		IsDev:           isDev,
		Lifetime:        24 * time.Hour,
		IdleTimeout:     2 * time.Hour,
		CleanupInterval: 5 * time.Minute,
	}
}

// Manager wraps scs.SessionManager with the store it owns.
type Manager struct {
	*scs.SessionManager
	store *sqlite3store.SQLite3Store
}

// New creates a session manager backed by db.
func New(db *sql.DB, cfg Config) *Manager {
	st := sqlite3store.NewWithCleanupInterval(db, cfg.CleanupInterval)

	sm := scs.New()
	sm.Store = st
	sm.Lifetime = cfg.Lifetime
	sm.IdleTimeout = cfg.IdleTimeout
	sm.Cookie.HttpOnly = true
	sm.Cookie.SameSite = http.SameSiteLaxMode
	sm.Cookie.Path = "/"
	sm.Cookie.Secure = !cfg.IsDev
	if !cfg.IsDev {
		sm.Cookie.Name = "__Host-session"
	}

	return &Manager{SessionManager: sm, store: st}
}

// Close stops the background cleanup of expired sessions.
func (m *Manager) Close() {
	if m.store != nil {
		m.store.StopCleanup()
	}
}
