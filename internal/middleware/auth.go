// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package middleware provides HTTP middleware for authentication,
// authorization, CSRF, rate limiting and request context handling.
package middleware

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/alexedwards/scs/v2"

	"github.com/olegiv/ocms-translations/internal/i18n"
	"github.com/olegiv/ocms-translations/internal/store"
)

// ContextKey is a type for context keys to avoid collisions.
type ContextKey string

// Context keys for request data.
const (
	ContextKeyUser        ContextKey = "user"
	ContextKeyAdminLang   ContextKey = "admin_lang"
	ContextKeyRequestPath ContextKey = "request_path"
)

// Session keys.
const (
	SessionKeyUserID    = "user_id"
	SessionKeyAdminLang = "admin_lang"
)

// User roles, lowest first.
const (
	RoleEditor = "editor"
	RoleAdmin  = "admin"
)

// Auth redirects to /login when the session carries no user.
func Auth(sm *scs.SessionManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if sm.GetInt64(r.Context(), SessionKeyUserID) == 0 {
				http.Redirect(w, r, "/login", http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// LoadUser puts the session user into the request context.
// A session pointing at a deleted user is destroyed.
func LoadUser(sm *scs.SessionManager, db *sql.DB) func(http.Handler) http.Handler {
	queries := store.New(db)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := sm.GetInt64(r.Context(), SessionKeyUserID)
			if userID == 0 {
				next.ServeHTTP(w, r)
				return
			}

			user, err := queries.GetUserByID(r.Context(), userID)
			if err != nil {
				_ = sm.Destroy(r.Context())
				http.Redirect(w, r, "/login", http.StatusSeeOther)
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyUser, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUser returns the current user or nil.
func GetUser(r *http.Request) *store.User {
	user, ok := r.Context().Value(ContextKeyUser).(store.User)
	if !ok {
		return nil
	}
	return &user
}

// GetUserID returns the current user's ID, or 0.
func GetUserID(r *http.Request) int64 {
	if user := GetUser(r); user != nil {
		return user.ID
	}
	return 0
}

func roleLevel(role string) int {
	switch role {
	case RoleAdmin:
		return 2
	case RoleEditor:
		return 1
	default:
		return 0
	}
}

// RequireRole requires at least minRole; admin includes editor.
func RequireRole(minRole string) func(http.Handler) http.Handler {
	minLevel := roleLevel(minRole)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := GetUser(r)
			if user == nil {
				http.Redirect(w, r, "/login", http.StatusSeeOther)
				return
			}

			if roleLevel(user.Role) < minLevel {
				slog.Warn("access denied",
					"status", http.StatusForbidden,
					"method", r.Method,
					"path", r.URL.Path,
					"user_id", user.ID,
					"user_role", user.Role,
					"required_role", minRole,
				)
				http.Error(w, "Forbidden: insufficient permissions", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireEditor allows editors and admins.
func RequireEditor() func(http.Handler) http.Handler {
	return RequireRole(RoleEditor)
}

// AdminLanguage resolves the admin UI language from the session, then
// Accept-Language, and stores it in the request context.
func AdminLanguage(sm *scs.SessionManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			lang := ""
			if sm != nil {
				if saved := sm.GetString(r.Context(), SessionKeyAdminLang); i18n.IsSupported(saved) {
					lang = saved
				}
			}
			if lang == "" {
				lang = i18n.MatchLanguage(r.Header.Get("Accept-Language"))
			}
			ctx := context.WithValue(r.Context(), ContextKeyAdminLang, lang)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetAdminLang returns the admin UI language for the request.
func GetAdminLang(r *http.Request) string {
	if lang, ok := r.Context().Value(ContextKeyAdminLang).(string); ok && lang != "" {
		return lang
	}
	return i18n.DefaultLanguage
}

// RequestPath stores the request path in the context for the event log handler.
func RequestPath(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), ContextKeyRequestPath, r.URL.Path)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestPath retrieves the request path from ctx.
func GetRequestPath(ctx context.Context) string {
	path, _ := ctx.Value(ContextKeyRequestPath).(string)
	return path
}
