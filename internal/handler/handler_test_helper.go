// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/alexedwards/scs/v2"

	"github.com/olegiv/ocms-translations/internal/middleware"
	"github.com/olegiv/ocms-translations/internal/render"
	"github.com/olegiv/ocms-translations/internal/store"
	"github.com/olegiv/ocms-translations/web"
)

// testRenderer creates a renderer over the embedded templates. sm may be nil.
func testRenderer(t *testing.T, sm *scs.SessionManager) *render.Renderer {
	t.Helper()

	r, err := render.New(render.Config{TemplatesFS: web.TemplatesFS(), SessionManager: sm})
	if err != nil {
		t.Fatalf("render.New: %v", err)
	}
	return r
}

// addUserContext adds a user to the request context.
func addUserContext(r *http.Request, user store.User) *http.Request {
	ctx := context.WithValue(r.Context(), middleware.ContextKeyUser, user)
	return r.WithContext(ctx)
}

// assertStatus checks the response status code.
func assertStatus(t *testing.T, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("status = %d; want %d", got, want)
	}
}
