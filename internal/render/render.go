// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package render parses and executes the admin HTML templates.
package render

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"maps"
	"net/http"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"

	"github.com/olegiv/ocms-translations/internal/i18n"
	"github.com/olegiv/ocms-translations/internal/middleware"
	"github.com/olegiv/ocms-translations/internal/store"
)

const (
	baseLayout  = "layouts/base.html"
	partialsDir = "partials"
)

// SidebarModule is a module link shown in the admin navigation.
type SidebarModule struct {
	Name     string
	Label    string
	AdminURL string
}

// SidebarModuleProvider lists the modules that appear in the navigation.
type SidebarModuleProvider interface {
	ListSidebarModules() []SidebarModule
}

// Renderer handles template rendering with caching.
type Renderer struct {
	mu        sync.RWMutex
	templates map[string]*template.Template
	layoutFS  fs.FS
	funcs     template.FuncMap
	sessions  *scs.SessionManager
	sidebar   SidebarModuleProvider
	sanitizer *bluemonday.Policy
	markdown  goldmark.Markdown
}

// Config holds renderer configuration.
type Config struct {
	// TemplatesFS holds layouts/, partials/, auth/ and admin/.
	TemplatesFS    fs.FS
	SessionManager *scs.SessionManager
}

// New parses the core templates.
func New(cfg Config) (*Renderer, error) {
	r := &Renderer{
		templates: make(map[string]*template.Template),
		layoutFS:  cfg.TemplatesFS,
		sessions:  cfg.SessionManager,
		sanitizer: bluemonday.UGCPolicy(),
		markdown:  goldmark.New(),
	}
	r.funcs = r.baseFuncs()

	for _, dir := range []string{"auth", "admin"} {
		if err := r.AddTemplates(dir, cfg.TemplatesFS, dir, nil); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// SetSidebarProvider sets the source of module navigation links.
func (r *Renderer) SetSidebarProvider(p SidebarModuleProvider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sidebar = p
}

// AddTemplates parses every .html file in dir of fsys together with the core
// layout and partials. Templates are registered as "<prefix>/<file name>".
// funcs extends the core template functions for these templates only.
func (r *Renderer) AddTemplates(prefix string, fsys fs.FS, dir string, funcs template.FuncMap) error {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return fmt.Errorf("reading %s templates: %w", prefix, err)
	}

	partials, err := fs.Glob(r.layoutFS, partialsDir+"/*.html")
	if err != nil {
		return fmt.Errorf("listing partials: %w", err)
	}

	allFuncs := maps.Clone(r.funcs)
	maps.Copy(allFuncs, funcs)

	parsed := make(map[string]*template.Template)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".html") {
			continue
		}
		name := prefix + "/" + strings.TrimSuffix(entry.Name(), ".html")

		tmpl, err := template.New("").Funcs(allFuncs).ParseFS(r.layoutFS, append([]string{baseLayout}, partials...)...)
		if err != nil {
			return fmt.Errorf("parsing layout for %s: %w", name, err)
		}
		if _, err := tmpl.ParseFS(fsys, path.Join(dir, entry.Name())); err != nil {
			return fmt.Errorf("parsing template %s: %w", name, err)
		}
		parsed[name] = tmpl
	}

	r.mu.Lock()
	maps.Copy(r.templates, parsed)
	r.mu.Unlock()
	return nil
}

// Has reports whether a template is registered under name.
func (r *Renderer) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.templates[name]
	return ok
}

func (r *Renderer) baseFuncs() template.FuncMap {
	return template.FuncMap{
		"T": i18n.T,
		"formatDate": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("Jan 2, 2006")
		},
		"formatDateTime": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("Jan 2, 2006 15:04")
		},
		"languageName": i18n.LanguageName,
		"markdown":     r.Markdown,
		"join":         strings.Join,
		"truncate": func(s string, length int) string {
			runes := []rune(s)
			if len(runes) <= length {
				return s
			}
			return string(runes[:length]) + "..."
		},
	}
}

// Markdown converts src to sanitized HTML.
func (r *Renderer) Markdown(src string) template.HTML {
	var buf bytes.Buffer
	if err := r.markdown.Convert([]byte(src), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(src))
	}
	return template.HTML(r.sanitizer.SanitizeBytes(buf.Bytes()))
}

// TemplateData holds data passed to templates.
type TemplateData struct {
	Title       string
	Lang        string
	User        *store.User
	Nav         []SidebarModule
	Data        any
	Flash       string
	FlashType   string
	CurrentYear int
}

// Render executes the "base" template of name into w.
func (r *Renderer) Render(w http.ResponseWriter, req *http.Request, name string, data TemplateData) error {
	return r.RenderStatus(w, req, http.StatusOK, name, data)
}

// RenderStatus is Render with an explicit status code.
func (r *Renderer) RenderStatus(w http.ResponseWriter, req *http.Request, status int, name string, data TemplateData) error {
	r.mu.RLock()
	tmpl, ok := r.templates[name]
	sidebar := r.sidebar
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("template %s not found", name)
	}

	data.CurrentYear = time.Now().Year()
	if data.Lang == "" {
		data.Lang = middleware.GetAdminLang(req)
	}
	if data.User == nil {
		data.User = middleware.GetUser(req)
	}
	if sidebar != nil && data.User != nil {
		data.Nav = sidebar.ListSidebarModules()
	}

	if r.sessions != nil && data.Flash == "" {
		if flash := r.sessions.PopString(req.Context(), "flash"); flash != "" {
			data.Flash = flash
			data.FlashType = r.sessions.PopString(req.Context(), "flash_type")
		}
	}
	if data.Flash != "" && data.FlashType == "" {
		data.FlashType = "info"
	}

	buf := new(bytes.Buffer)
	if err := tmpl.ExecuteTemplate(buf, "base", data); err != nil {
		return fmt.Errorf("executing template %s: %w", name, err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
	return nil
}

// SetFlash stores a one-shot message in the session.
func (r *Renderer) SetFlash(req *http.Request, message, flashType string) {
	if r.sessions != nil {
		r.sessions.Put(req.Context(), "flash", message)
		r.sessions.Put(req.Context(), "flash_type", flashType)
	}
}
