// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/ocms-translations/internal/config"
	"github.com/olegiv/ocms-translations/internal/middleware"
	"github.com/olegiv/ocms-translations/internal/module"
	"github.com/olegiv/ocms-translations/internal/render"
	"github.com/olegiv/ocms-translations/internal/scheduler"
	"github.com/olegiv/ocms-translations/internal/session"
	"github.com/olegiv/ocms-translations/internal/store"
	"github.com/olegiv/ocms-translations/internal/testutil"
	"github.com/olegiv/ocms-translations/modules/translations"
	"github.com/olegiv/ocms-translations/web"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	db, cleanup := testutil.TestDB(t)
	t.Cleanup(cleanup)

	cfg := &config.Config{
		SessionSecret: strings.Repeat("k", 32),
		Env:           "development",
		PublicURL:     "http://localhost:8080",
	}
	sessions := session.New(db, session.DefaultConfig(true))
	t.Cleanup(sessions.Close)

	renderer, err := render.New(render.Config{TemplatesFS: web.TemplatesFS(), SessionManager: sessions.SessionManager})
	require.NoError(t, err)

	logger := testutil.TestLoggerSilent()
	sched := scheduler.New(logger, time.Second)
	lp := middleware.NewLoginProtection(middleware.DefaultLoginProtectionConfig())
	require.NoError(t, registerCoreJobs(sched, db, cfg, lp, logger))

	registry := module.NewRegistry(logger)
	require.NoError(t, registry.Register(translations.New()))
	require.NoError(t, registry.InitAll(&module.Context{
		DB:        db,
		Store:     store.New(db),
		Logger:    logger,
		Config:    cfg,
		Render:    renderer,
		Hooks:     module.NewHookRegistry(logger),
		Scheduler: sched,
		Sessions:  sessions.SessionManager,
	}))
	t.Cleanup(func() { _ = registry.ShutdownAll() })

	return newRouter(routerDeps{
		cfg:             cfg,
		db:              db,
		sessions:        sessions.SessionManager,
		renderer:        renderer,
		registry:        registry,
		scheduler:       sched,
		loginProtection: lp,
	})
}

func TestRouter(t *testing.T) {
	router := newTestRouter(t)

	tests := []struct {
		name     string
		method   string
		target   string
		body     string
		site     string
		want     int
		location string
	}{
		{name: "liveness", method: http.MethodGet, target: "/health/live", want: http.StatusOK},
		{name: "readiness", method: http.MethodGet, target: "/health/ready", want: http.StatusOK},
		{name: "root redirects to admin", method: http.MethodGet, target: "/", want: http.StatusSeeOther, location: "/admin"},
		{name: "admin requires login", method: http.MethodGet, target: "/admin/translations", want: http.StatusSeeOther, location: "/login"},
		{name: "login form", method: http.MethodGet, target: "/login", want: http.StatusOK},
		{name: "stylesheet", method: http.MethodGet, target: "/static/admin.css", want: http.StatusOK},
		{name: "cross-site login rejected", method: http.MethodPost, target: "/login", body: "email=a&password=b", site: "cross-site", want: http.StatusForbidden},
		{
			name:   "cross-site callback reaches the module",
			method: http.MethodPost,
			target: "/translations/999/callback",
			body:   `{"order_id":"x","status":"failed","error":"boom"}`,
			site:   "cross-site",
			want:   http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.target, strings.NewReader(tt.body))
			if tt.site != "" {
				req.Header.Set("Sec-Fetch-Site", tt.site)
			}
			if strings.HasPrefix(tt.body, "{") {
				req.Header.Set("Content-Type", "application/json")
			} else if tt.body != "" {
				req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code)
			if tt.location != "" {
				assert.Equal(t, tt.location, rec.Header().Get("Location"))
			}
		})
	}
}

func TestRegisterCoreJobs(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()

	logger := testutil.TestLoggerSilent()
	sched := scheduler.New(logger, time.Second)
	lp := middleware.NewLoginProtection(middleware.DefaultLoginProtectionConfig())
	require.NoError(t, registerCoreJobs(sched, db, &config.Config{EventRetentionDays: 30}, lp, logger))

	jobs := sched.List()
	require.Len(t, jobs, 2)
	for _, j := range jobs {
		assert.Equal(t, scheduler.SourceCore, j.Source)
		require.NoError(t, sched.Trigger(context.Background(), j.Source, j.Name))
	}

	assert.Error(t, registerCoreJobs(sched, db, &config.Config{}, lp, logger), "jobs register once")
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, "DEBUG", parseLogLevel("debug").String())
	assert.Equal(t, "WARN", parseLogLevel("warn").String())
	assert.Equal(t, "ERROR", parseLogLevel("error").String())
	assert.Equal(t, "INFO", parseLogLevel("verbose").String())
}
