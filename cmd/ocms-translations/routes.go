// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/olegiv/ocms-translations/internal/config"
	"github.com/olegiv/ocms-translations/internal/handler"
	"github.com/olegiv/ocms-translations/internal/middleware"
	"github.com/olegiv/ocms-translations/internal/module"
	"github.com/olegiv/ocms-translations/internal/render"
	"github.com/olegiv/ocms-translations/internal/scheduler"
	"github.com/olegiv/ocms-translations/web"
)

const requestTimeout = 30 * time.Second

type routerDeps struct {
	cfg             *config.Config
	db              *sql.DB
	sessions        *scs.SessionManager
	renderer        *render.Renderer
	registry        *module.Registry
	scheduler       *scheduler.Scheduler
	loginProtection *middleware.LoginProtection
}

// newRouter builds the HTTP handler tree.
// Provider callbacks live under the module's public routes and skip CSRF;
// they authenticate with a payload signature instead.
func newRouter(d routerDeps) http.Handler {
	isDev := d.cfg.IsDevelopment()

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Compress(5))
	r.Use(chimw.GetHead)
	r.Use(chimw.Timeout(requestTimeout))
	r.Use(chimw.StripSlashes)
	r.Use(middleware.SecurityHeaders(middleware.DefaultSecurityHeadersConfig(isDev)))
	r.Use(middleware.RequestPath)
	r.Use(d.sessions.LoadAndSave)
	r.Use(middleware.SkipCSRFSuffix("/callback"))
	r.Use(middleware.CSRF(middleware.DefaultCSRFConfig([]byte(d.cfg.SessionSecret), isDev)))
	r.Use(middleware.AdminLanguage(d.sessions))

	healthHandler := handler.NewHealthHandler(d.db, appVersion)
	r.Get(handler.RouteHealth, healthHandler.Health)
	r.Get(handler.RouteHealthLive, healthHandler.Liveness)
	r.Get(handler.RouteHealthReady, healthHandler.Readiness)

	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(web.StaticFS()))))

	authHandler := handler.NewAuthHandler(d.db, d.renderer, d.sessions, d.loginProtection)
	r.Get(handler.RouteRoot, func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, handler.RouteAdmin, http.StatusSeeOther)
	})
	r.Get(handler.RouteLogin, authHandler.LoginForm)
	r.With(d.loginProtection.Middleware()).Post(handler.RouteLogin, authHandler.Login)
	r.Post(handler.RouteLogout, authHandler.Logout)

	// Public module routes, including provider callbacks.
	d.registry.RouteAll(r)

	adminHandler := handler.NewAdminHandler(d.db, d.renderer, d.registry, d.scheduler)
	r.Route(handler.RouteAdmin, func(r chi.Router) {
		r.Use(middleware.Auth(d.sessions))
		r.Use(middleware.LoadUser(d.sessions, d.db))

		r.Get("/", adminHandler.Dashboard)
		r.Get(handler.RouteEvents, adminHandler.Events)
		r.With(middleware.RequireRole(middleware.RoleAdmin)).Post(handler.RouteJobRun, adminHandler.RunJob)

		d.registry.AdminRouteAll(r)
	})

	return r
}
