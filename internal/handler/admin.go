// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/ocms-translations/internal/i18n"
	"github.com/olegiv/ocms-translations/internal/middleware"
	"github.com/olegiv/ocms-translations/internal/model"
	"github.com/olegiv/ocms-translations/internal/module"
	"github.com/olegiv/ocms-translations/internal/render"
	"github.com/olegiv/ocms-translations/internal/scheduler"
	"github.com/olegiv/ocms-translations/internal/store"
)

// ModuleLister lists the registered modules.
type ModuleLister interface {
	ListInfo() []module.Info
}

// JobRunner lists and triggers scheduled jobs.
type JobRunner interface {
	List() []scheduler.JobInfo
	Trigger(ctx context.Context, source, name string) error
}

// AdminHandler serves the dashboard and the event log.
type AdminHandler struct {
	queries  *store.Queries
	renderer *render.Renderer
	modules  ModuleLister
	jobs     JobRunner
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(db *sql.DB, renderer *render.Renderer, modules ModuleLister, jobs JobRunner) *AdminHandler {
	return &AdminHandler{
		queries:  store.New(db),
		renderer: renderer,
		modules:  modules,
		jobs:     jobs,
	}
}

// DashboardData is the view model of admin/dashboard.
type DashboardData struct {
	Modules []module.Info
	Jobs    []scheduler.JobInfo
}

// Dashboard handles GET /admin.
func (h *AdminHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	lang := middleware.GetAdminLang(r)
	data := DashboardData{Modules: h.modules.ListInfo()}
	if h.jobs != nil {
		data.Jobs = h.jobs.List()
	}
	h.render(w, r, "admin/dashboard", render.TemplateData{
		Title: i18n.T(lang, "nav.dashboard"),
		Data:  data,
	})
}

// EventsData is the view model of admin/events.
type EventsData struct {
	Category   string
	Categories []string
	Events     []store.Event
}

// Events handles GET /admin/events.
func (h *AdminHandler) Events(w http.ResponseWriter, r *http.Request) {
	lang := middleware.GetAdminLang(r)

	category := r.URL.Query().Get("category")
	if category != "" && !slices.Contains(model.EventCategories, category) {
		category = ""
	}

	events, err := h.queries.ListEvents(r.Context(), store.ListEventsParams{
		Category: category,
		Limit:    eventsPageSize,
	})
	if err != nil {
		slog.Error("failed to list events", "error", err)
		http.Error(w, i18n.T(lang, "msg.error"), http.StatusInternalServerError)
		return
	}

	h.render(w, r, "admin/events", render.TemplateData{
		Title: i18n.T(lang, "nav.events"),
		Data: EventsData{
			Category:   category,
			Categories: model.EventCategories,
			Events:     events,
		},
	})
}

// RunJob handles POST /admin/jobs/{source}/{name}/run.
func (h *AdminHandler) RunJob(w http.ResponseWriter, r *http.Request) {
	lang := middleware.GetAdminLang(r)
	source := chi.URLParam(r, "source")
	name := chi.URLParam(r, "name")

	if h.jobs == nil {
		writeJSONError(w, http.StatusNotFound, scheduler.ErrJobNotFound.Error())
		return
	}

	err := h.jobs.Trigger(r.Context(), source, name)
	switch {
	case errors.Is(err, scheduler.ErrJobNotFound):
		if wantsJSON(r) {
			writeJSONError(w, http.StatusNotFound, err.Error())
			return
		}
		http.NotFound(w, r)
		return
	case err != nil:
		slog.Warn("manual job run failed", "category", model.EventCategoryScheduler, "source", source, "job", name, "error", err)
		if wantsJSON(r) {
			writeJSONError(w, http.StatusInternalServerError, err.Error())
			return
		}
		h.renderer.SetFlash(r, err.Error(), "error")
	default:
		slog.Info("job triggered manually", "source", source, "job", name, "user_id", middleware.GetUserID(r))
		if wantsJSON(r) {
			writeJSONSuccess(w, map[string]any{"job": source + ":" + name})
			return
		}
		h.renderer.SetFlash(r, i18n.T(lang, "msg.job_triggered", name), "success")
	}
	http.Redirect(w, r, redirectAdmin, http.StatusSeeOther)
}

func (h *AdminHandler) render(w http.ResponseWriter, r *http.Request, name string, data render.TemplateData) {
	if err := h.renderer.Render(w, r, name, data); err != nil {
		slog.Error("render error", "error", err, "template", name)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}
