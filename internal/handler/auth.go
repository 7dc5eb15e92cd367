// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/alexedwards/scs/v2"

	"github.com/olegiv/ocms-translations/internal/auth"
	"github.com/olegiv/ocms-translations/internal/i18n"
	"github.com/olegiv/ocms-translations/internal/middleware"
	"github.com/olegiv/ocms-translations/internal/model"
	"github.com/olegiv/ocms-translations/internal/render"
)

// loginData is the view model of auth/login.
type loginData struct {
	Error string
	Email string
}

// AuthHandler handles authentication routes.
type AuthHandler struct {
	db              *sql.DB
	renderer        *render.Renderer
	sessionManager  *scs.SessionManager
	loginProtection *middleware.LoginProtection
}

// NewAuthHandler creates a new AuthHandler. lp may be nil.
func NewAuthHandler(db *sql.DB, renderer *render.Renderer, sm *scs.SessionManager, lp *middleware.LoginProtection) *AuthHandler {
	return &AuthHandler{
		db:              db,
		renderer:        renderer,
		sessionManager:  sm,
		loginProtection: lp,
	}
}

// LoginForm renders the login page, or redirects users that are already signed in.
func (h *AuthHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	if h.sessionManager.GetInt64(r.Context(), middleware.SessionKeyUserID) > 0 {
		http.Redirect(w, r, redirectAdmin, http.StatusSeeOther)
		return
	}
	h.renderLogin(w, r, http.StatusOK, loginData{})
}

func (h *AuthHandler) renderLogin(w http.ResponseWriter, r *http.Request, status int, data loginData) {
	lang := middleware.GetAdminLang(r)
	if err := h.renderer.RenderStatus(w, r, status, "auth/login", render.TemplateData{
		Title: i18n.T(lang, "btn.login"),
		Lang:  lang,
		Data:  data,
	}); err != nil {
		slog.Error("render error", "error", err, "template", "auth/login")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// Login handles the login form submission.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	lang := middleware.GetAdminLang(r)

	if err := r.ParseForm(); err != nil {
		h.renderLogin(w, r, http.StatusBadRequest, loginData{Error: i18n.T(lang, "auth.invalid_form_data")})
		return
	}

	email := strings.TrimSpace(r.FormValue("email"))
	password := r.FormValue("password")
	form := loginData{Email: email}

	if email == "" || password == "" {
		form.Error = i18n.T(lang, "auth.email_password_required")
		h.renderLogin(w, r, http.StatusBadRequest, form)
		return
	}

	if h.loginProtection != nil {
		if locked, remaining := h.loginProtection.IsAccountLocked(email); locked {
			slog.Warn("login attempt on locked account", "category", model.EventCategoryAuth, "email", email, "ip", middleware.ClientIP(r))
			form.Error = i18n.T(lang, "auth.account_locked", formatDuration(remaining))
			h.renderLogin(w, r, http.StatusTooManyRequests, form)
			return
		}
	}

	user, err := auth.Authenticate(r.Context(), h.db, email, password)
	if err != nil {
		if !errors.Is(err, auth.ErrInvalidCredentials) {
			slog.Error("login error", "error", err)
			form.Error = i18n.T(lang, "msg.error")
			h.renderLogin(w, r, http.StatusInternalServerError, form)
			return
		}

		slog.Warn("login failed", "category", model.EventCategoryAuth, "email", email, "ip", middleware.ClientIP(r))
		form.Error = i18n.T(lang, "auth.invalid_credentials")
		if h.loginProtection != nil {
			if locked, d := h.loginProtection.RecordFailedAttempt(email); locked {
				form.Error = i18n.T(lang, "auth.too_many_attempts", formatDuration(d))
			} else if left := h.loginProtection.RemainingAttempts(email); left <= 2 {
				form.Error = i18n.T(lang, "auth.attempts_remaining", left)
			}
		}
		h.renderLogin(w, r, http.StatusUnauthorized, form)
		return
	}

	if h.loginProtection != nil {
		h.loginProtection.RecordSuccessfulLogin(email)
	}

	// Fixation: issue a fresh token before elevating the session.
	if err := h.sessionManager.RenewToken(r.Context()); err != nil {
		slog.Error("failed to renew session token", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	h.sessionManager.Put(r.Context(), middleware.SessionKeyUserID, user.ID)

	slog.Info("user logged in", "user_id", user.ID, "email", user.Email)
	http.Redirect(w, r, redirectAdmin, http.StatusSeeOther)
}

// Logout ends the session.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	userID := h.sessionManager.GetInt64(r.Context(), middleware.SessionKeyUserID)

	if err := h.sessionManager.RenewToken(r.Context()); err != nil {
		slog.Error("failed to renew session token", "error", err)
	}
	h.sessionManager.Remove(r.Context(), middleware.SessionKeyUserID)

	if userID > 0 {
		slog.Info("user logged out", "user_id", userID)
	}
	h.renderer.SetFlash(r, i18n.T(middleware.GetAdminLang(r), "auth.logged_out"), "success")
	http.Redirect(w, r, redirectLogin, http.StatusSeeOther)
}

// formatDuration renders a lockout duration for humans.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Minute)
	if d < time.Minute {
		return "1m"
	}
	return strings.TrimSuffix(d.String(), "0s")
}
