// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package translations

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/ocms-translations/internal/i18n"
	"github.com/olegiv/ocms-translations/internal/middleware"
	"github.com/olegiv/ocms-translations/internal/model"
	"github.com/olegiv/ocms-translations/internal/render"
	"github.com/olegiv/ocms-translations/internal/store"
	"github.com/olegiv/ocms-translations/internal/webhook"
	"github.com/olegiv/ocms-translations/modules/translations/provider"
)

const (
	maxCallbackBodySize = 1 << 20
	listPageSize        = 50
)

// requestRow is a request with its display status.
type requestRow struct {
	*Request
	Status StatusView
}

// ListData is the data of the request list page.
type ListData struct {
	Requests []requestRow
	States   []State
	Counts   map[State]int64
	State    State
	Page     int
	Pages    int
	Total    int64
}

// FormData is the data of the add form.
type FormData struct {
	AppLabel        string
	ModelName       string
	ObjectID        string
	SourceLanguage  string
	TargetLanguages string
	DirectiveID     int64
	Backend         string
	Options         string
	Content         string
	Directives      []Directive
	Backends        []string
	Error           string
}

// DetailData is the data of the request detail page.
type DetailData struct {
	Request   *Request
	Status    StatusView
	Items     []Item
	Quotes    []Quote
	Orders    []Order
	Callbacks []Callback
	Directive *Directive
}

// ChooseQuoteData is the data of the quote selection page.
type ChooseQuoteData struct {
	Request *Request
	Quotes  []Quote
}

// DirectivesData is the data of the directives page.
type DirectivesData struct {
	Directives     []Directive
	Title          string
	MasterLanguage string
	Languages      string
	Error          string
}

// errorStatus maps lifecycle errors to HTTP statuses.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrOrderNotFound), errors.Is(err, ErrSourceNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidState):
		return http.StatusConflict
	case errors.Is(err, ErrQuoteMismatch), errors.Is(err, ErrMalformedCallback),
		errors.Is(err, ErrSerialization), errors.Is(err, ErrInvalidRequest),
		errors.Is(err, ErrUnknownBackend):
		return http.StatusBadRequest
	case errors.Is(err, provider.ErrProvider):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// errorMessage is the text shown to the caller for err.
func errorMessage(lang string, err error) string {
	switch errorStatus(err) {
	case http.StatusBadGateway:
		return i18n.T(lang, "translations.error.provider")
	case http.StatusInternalServerError:
		return i18n.T(lang, "translations.error.internal")
	default:
		return err.Error()
	}
}

func parseID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

func requestURL(id int64) string {
	return fmt.Sprintf("%s/%d", AdminBasePath, id)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

// splitLanguages accepts languages separated by commas or whitespace.
func splitLanguages(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ';' || r == ' ' || r == '\n' || r == '\r' || r == '\t'
	})
}

func (m *Module) render(w http.ResponseWriter, r *http.Request, status int, name, title string, data any) {
	if err := m.ctx.Render.RenderStatus(w, r, status, ModuleName+"/"+name, render.TemplateData{
		Title: title,
		Data:  data,
	}); err != nil {
		m.ctx.Logger.Error("render error", "template", name, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// actionFailed reports a failed admin action as JSON or as a flash message
// followed by a redirect.
func (m *Module) actionFailed(w http.ResponseWriter, r *http.Request, err error, redirect string) {
	status := errorStatus(err)
	lang := middleware.GetAdminLang(r)
	if status >= http.StatusInternalServerError && status != http.StatusBadGateway {
		m.ctx.Logger.Error("translation action failed", "path", r.URL.Path, "error", err)
	} else {
		m.ctx.Logger.Info("translation action rejected", "path", r.URL.Path, "status", status, "error", err)
	}

	if wantsJSON(r) {
		writeJSON(w, status, map[string]any{"success": false, "error": errorMessage(lang, err)})
		return
	}
	if status == http.StatusNotFound && errors.Is(err, ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	m.ctx.Render.SetFlash(r, errorMessage(lang, err), "error")
	http.Redirect(w, r, redirect, http.StatusSeeOther)
}

func (m *Module) actionDone(w http.ResponseWriter, r *http.Request, req *Request, message, redirect string) {
	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, map[string]any{
			"success":    true,
			"request_id": req.ID,
			"state":      req.State,
		})
		return
	}
	m.ctx.Render.SetFlash(r, message, "success")
	http.Redirect(w, r, redirect, http.StatusSeeOther)
}

// handleList handles GET /admin/translations.
func (m *Module) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	lang := middleware.GetAdminLang(r)
	s := m.controller.Store()

	state := State(r.URL.Query().Get("state"))
	if !state.Valid() {
		state = ""
	}
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}

	total, err := s.CountRequests(ctx, state)
	if err != nil {
		m.ctx.Logger.Error("counting translation requests", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	requests, err := s.ListRequests(ctx, ListRequestsParams{
		State:  state,
		Limit:  listPageSize,
		Offset: int64(page-1) * listPageSize,
	})
	if err != nil {
		m.ctx.Logger.Error("listing translation requests", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	counts, err := s.CountByState(ctx)
	if err != nil {
		m.ctx.Logger.Error("counting translation requests by state", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	rows := make([]requestRow, 0, len(requests))
	for _, req := range requests {
		rows = append(rows, requestRow{Request: req, Status: PrettyStatus(req, lang)})
	}
	pages := int((total + listPageSize - 1) / listPageSize)
	if pages < 1 {
		pages = 1
	}

	m.render(w, r, http.StatusOK, "list", i18n.T(lang, "translations.title"), ListData{
		Requests: rows,
		States:   States,
		Counts:   counts,
		State:    state,
		Page:     page,
		Pages:    pages,
		Total:    total,
	})
}

func (m *Module) formData(r *http.Request) FormData {
	directives, err := m.controller.Store().ListDirectives(r.Context())
	if err != nil {
		m.ctx.Logger.Error("listing translation directives", "error", err)
	}
	return FormData{
		Backend:    m.controller.DefaultBackend(),
		Directives: directives,
		Backends:   m.controller.Backends(),
	}
}

// handleAddForm handles GET /admin/translations/add.
func (m *Module) handleAddForm(w http.ResponseWriter, r *http.Request) {
	lang := middleware.GetAdminLang(r)
	q := r.URL.Query()

	data := m.formData(r)
	data.AppLabel = q.Get("app_label")
	data.ModelName = q.Get("model_name")
	data.ObjectID = q.Get("object_id")
	data.SourceLanguage = q.Get("source_language")
	if data.SourceLanguage == "" {
		data.SourceLanguage = i18n.DefaultLanguage
	}
	m.render(w, r, http.StatusOK, "add", i18n.T(lang, "translations.add"), data)
}

// handleCreate handles POST /admin/translations/add.
func (m *Module) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	lang := middleware.GetAdminLang(r)

	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	data := m.formData(r)
	data.AppLabel = strings.TrimSpace(r.PostFormValue("app_label"))
	data.ModelName = strings.TrimSpace(r.PostFormValue("model_name"))
	data.ObjectID = strings.TrimSpace(r.PostFormValue("object_id"))
	data.SourceLanguage = strings.TrimSpace(r.PostFormValue("source_language"))
	data.TargetLanguages = r.PostFormValue("target_languages")
	data.DirectiveID, _ = strconv.ParseInt(r.PostFormValue("directive_id"), 10, 64)
	data.Backend = r.PostFormValue("backend")
	data.Options = strings.TrimSpace(r.PostFormValue("options"))
	data.Content = strings.TrimSpace(r.PostFormValue("content"))

	fail := func(status int, msg string) {
		data.Error = msg
		m.render(w, r, status, "add", i18n.T(lang, "translations.add"), data)
	}

	var options map[string]any
	if data.Options != "" {
		if err := json.Unmarshal([]byte(data.Options), &options); err != nil {
			fail(http.StatusBadRequest, i18n.T(lang, "translations.error.options"))
			return
		}
	}

	var content any
	if data.Content != "" {
		if !json.Valid([]byte(data.Content)) {
			fail(http.StatusBadRequest, i18n.T(lang, "translations.error.content"))
			return
		}
		content = json.RawMessage(data.Content)
	} else {
		exportLang := data.SourceLanguage
		if data.DirectiveID > 0 {
			if d, err := m.controller.Store().GetDirective(ctx, data.DirectiveID); err == nil {
				exportLang = d.MasterLanguage
			}
		}
		exported, err := m.controller.ExportSource(ctx, data.AppLabel, data.ModelName, data.ObjectID, exportLang)
		if err != nil {
			fail(errorStatus(err), errorMessage(lang, err))
			return
		}
		content = exported
	}

	req, err := m.controller.CreateRequest(ctx, CreateParams{
		Content:         content,
		AppLabel:        data.AppLabel,
		ModelName:       data.ModelName,
		ObjectID:        data.ObjectID,
		SourceLanguage:  data.SourceLanguage,
		TargetLanguages: splitLanguages(data.TargetLanguages),
		Backend:         data.Backend,
		Options:         options,
		UserID:          middleware.GetUserID(r),
		DirectiveID:     data.DirectiveID,
	})
	if err != nil {
		status := errorStatus(err)
		if status == http.StatusInternalServerError {
			m.ctx.Logger.Error("creating translation request", "error", err)
		}
		fail(status, errorMessage(lang, err))
		return
	}

	m.ctx.Render.SetFlash(r, i18n.T(lang, "translations.msg.created"), "success")
	http.Redirect(w, r, requestURL(req.ID), http.StatusSeeOther)
}

// handleDetail handles GET /admin/translations/{id}.
func (m *Module) handleDetail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	lang := middleware.GetAdminLang(r)
	id, ok := parseID(r)
	if !ok {
		http.NotFound(w, r)
		return
	}
	s := m.controller.Store()

	req, err := s.GetRequest(ctx, id)
	if errors.Is(err, ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		m.ctx.Logger.Error("loading translation request", "request_id", id, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	data := DetailData{Request: req, Status: PrettyStatus(req, lang)}
	if data.Items, err = s.ListItems(ctx, id); err == nil {
		if data.Quotes, err = s.ListQuotes(ctx, id); err == nil {
			if data.Orders, err = s.ListOrders(ctx, id); err == nil {
				data.Callbacks, err = s.ListCallbacks(ctx, id)
			}
		}
	}
	if err != nil {
		m.ctx.Logger.Error("loading translation request details", "request_id", id, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if req.DirectiveID.Valid {
		if d, err := s.GetDirective(ctx, req.DirectiveID.Int64); err == nil {
			data.Directive = d
		}
	}

	m.render(w, r, http.StatusOK, "detail", fmt.Sprintf("%s #%d", i18n.T(lang, "translations.request"), id), data)
}

// handleFetchQuote handles POST /admin/translations/{id}/get-quote-from-provider.
func (m *Module) handleFetchQuote(w http.ResponseWriter, r *http.Request) {
	lang := middleware.GetAdminLang(r)
	id, ok := parseID(r)
	if !ok {
		http.NotFound(w, r)
		return
	}

	quotes, err := m.controller.FetchQuote(r.Context(), id)
	if err != nil {
		m.actionFailed(w, r, err, requestURL(id))
		return
	}
	m.actionDone(w, r, &Request{ID: id, State: StatePendingApproval},
		i18n.T(lang, "translations.msg.quoted", len(quotes)),
		requestURL(id)+"/choose-quote")
}

// handleChooseQuoteForm handles GET /admin/translations/{id}/choose-quote.
func (m *Module) handleChooseQuoteForm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	lang := middleware.GetAdminLang(r)
	id, ok := parseID(r)
	if !ok {
		http.NotFound(w, r)
		return
	}
	s := m.controller.Store()

	req, err := s.GetRequest(ctx, id)
	if errors.Is(err, ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		m.ctx.Logger.Error("loading translation request", "request_id", id, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if req.State != StatePendingApproval {
		m.ctx.Render.SetFlash(r, i18n.T(lang, "translations.msg.no_quotes_to_choose"), "info")
		http.Redirect(w, r, requestURL(id), http.StatusSeeOther)
		return
	}
	quotes, err := s.ListQuotes(ctx, id)
	if err != nil {
		m.ctx.Logger.Error("listing quotes", "request_id", id, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	m.render(w, r, http.StatusOK, "choose_quote", i18n.T(lang, "translations.choose_quote"), ChooseQuoteData{
		Request: req,
		Quotes:  quotes,
	})
}

// handleChooseQuote handles POST /admin/translations/{id}/choose-quote.
func (m *Module) handleChooseQuote(w http.ResponseWriter, r *http.Request) {
	lang := middleware.GetAdminLang(r)
	id, ok := parseID(r)
	if !ok {
		http.NotFound(w, r)
		return
	}
	quoteID, err := strconv.ParseInt(r.FormValue("quote_id"), 10, 64)
	if err != nil || quoteID <= 0 {
		m.actionFailed(w, r, fmt.Errorf("%w: no quote selected", ErrQuoteMismatch), requestURL(id)+"/choose-quote")
		return
	}

	order, err := m.controller.ChooseQuote(r.Context(), id, quoteID)
	if err != nil {
		m.actionFailed(w, r, err, requestURL(id))
		return
	}
	req, err := m.controller.Store().GetRequest(r.Context(), id)
	if err != nil {
		m.actionFailed(w, r, err, requestURL(id))
		return
	}
	m.actionDone(w, r, req,
		i18n.T(lang, "translations.msg.ordered", DisplayPrice(order.Price, order.Currency)),
		requestURL(id))
}

// handleRetry handles POST /admin/translations/{id}/retry.
func (m *Module) handleRetry(w http.ResponseWriter, r *http.Request) {
	lang := middleware.GetAdminLang(r)
	id, ok := parseID(r)
	if !ok {
		http.NotFound(w, r)
		return
	}

	req, err := m.controller.Retry(r.Context(), id)
	if err != nil {
		m.actionFailed(w, r, err, requestURL(id))
		return
	}
	m.actionDone(w, r, req, i18n.T(lang, "translations.msg.retried"), requestURL(id))
}

// handleDirectives handles GET /admin/translations/directives.
func (m *Module) handleDirectives(w http.ResponseWriter, r *http.Request) {
	m.renderDirectives(w, r, http.StatusOK, DirectivesData{})
}

func (m *Module) renderDirectives(w http.ResponseWriter, r *http.Request, status int, data DirectivesData) {
	lang := middleware.GetAdminLang(r)
	directives, err := m.controller.Store().ListDirectives(r.Context())
	if err != nil {
		m.ctx.Logger.Error("listing translation directives", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	data.Directives = directives
	m.render(w, r, status, "directives", i18n.T(lang, "translations.directives"), data)
}

// handleCreateDirective handles POST /admin/translations/directives.
func (m *Module) handleCreateDirective(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	lang := middleware.GetAdminLang(r)

	data := DirectivesData{
		Title:          strings.TrimSpace(r.FormValue("title")),
		MasterLanguage: strings.TrimSpace(r.FormValue("master_language")),
		Languages:      r.FormValue("languages"),
	}
	if data.Title == "" {
		data.Error = i18n.T(lang, "translations.error.title_required")
		m.renderDirectives(w, r, http.StatusBadRequest, data)
		return
	}
	master, err := i18n.NormalizeLanguage(data.MasterLanguage)
	if err != nil {
		data.Error = err.Error()
		m.renderDirectives(w, r, http.StatusBadRequest, data)
		return
	}
	languages, err := i18n.NormalizeLanguages(splitLanguages(data.Languages), master)
	if err != nil {
		data.Error = err.Error()
		m.renderDirectives(w, r, http.StatusBadRequest, data)
		return
	}
	if len(languages) == 0 {
		data.Error = i18n.T(lang, "translations.error.languages_required")
		m.renderDirectives(w, r, http.StatusBadRequest, data)
		return
	}

	err = store.WithTx(ctx, m.ctx.DB, func(tx *sql.Tx) error {
		_, err := m.controller.Store().WithTx(tx).CreateDirective(ctx, Directive{
			Title:          data.Title,
			MasterLanguage: master,
			Languages:      languages,
		})
		return err
	})
	if err != nil {
		m.ctx.Logger.Error("creating translation directive", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	m.ctx.Render.SetFlash(r, i18n.T(lang, "translations.msg.directive_created"), "success")
	http.Redirect(w, r, AdminBasePath+"/directives", http.StatusSeeOther)
}

// handleDeleteDirective handles POST /admin/translations/directives/{id}/delete.
func (m *Module) handleDeleteDirective(w http.ResponseWriter, r *http.Request) {
	lang := middleware.GetAdminLang(r)
	id, ok := parseID(r)
	if !ok {
		http.NotFound(w, r)
		return
	}
	if err := m.controller.Store().DeleteDirective(r.Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		m.ctx.Logger.Error("deleting translation directive", "directive_id", id, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	m.ctx.Render.SetFlash(r, i18n.T(lang, "translations.msg.directive_deleted"), "success")
	http.Redirect(w, r, AdminBasePath+"/directives", http.StatusSeeOther)
}

// handleCallback handles POST /translations/{id}/callback from providers.
func (m *Module) handleCallback(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"success": false, "error": "not found"})
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxCallbackBodySize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]any{"success": false, "error": "payload too large"})
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "cannot read body"})
		return
	}

	if secret := m.callbackSecret(); secret != "" {
		if !webhook.VerifySignature(body, r.Header.Get(webhook.SignatureHeader), secret) {
			m.ctx.Logger.Warn("translation callback signature mismatch",
				"category", model.EventCategoryTranslation,
				"request_id", id,
				"ip", middleware.ClientIP(r),
			)
			writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "error": "invalid signature"})
			return
		}
	}

	req, err := m.controller.HandleCallback(r.Context(), id, body)
	if err != nil {
		status := errorStatus(err)
		msg := err.Error()
		if status == http.StatusInternalServerError {
			m.ctx.Logger.Error("handling translation callback", "request_id", id, "error", err)
			msg = "internal error"
		}
		writeJSON(w, status, map[string]any{"success": false, "error": msg})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"request_id": req.ID,
		"state":      req.State,
	})
}

func (m *Module) callbackSecret() string {
	if m.ctx.Config == nil {
		return ""
	}
	return m.ctx.Config.CallbackSecret
}
