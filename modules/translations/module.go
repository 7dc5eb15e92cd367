// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package translations sends content to translation providers and imports
// the results. A request moves through quoting, ordering and import; other
// modules take part through the translation.export and translation.import
// hooks.
package translations

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/ocms-translations/internal/config"
	"github.com/olegiv/ocms-translations/internal/middleware"
	"github.com/olegiv/ocms-translations/internal/module"
	"github.com/olegiv/ocms-translations/modules/translations/provider"
)

//go:embed templates/*.html
var templatesFS embed.FS

//go:embed locales
var localesFS embed.FS

const (
	// ModuleName is the registry name of the module.
	ModuleName = "translations"
	// AdminBasePath is where the admin pages are mounted.
	AdminBasePath = "/admin/translations"

	stalledJobName     = "stalled_orders"
	stalledJobSchedule = "@hourly"

	defaultCallbackRate  = 5
	defaultCallbackBurst = 20
)

// Module implements module.Module.
type Module struct {
	module.BaseModule
	ctx             *module.Context
	providers       *provider.Registry
	controller      *Controller
	callbackLimiter *middleware.IPRateLimiter
}

// New creates the translations module. Providers are built from the
// configuration at Init.
func New() *Module {
	return &Module{
		BaseModule: module.NewBaseModule(
			ModuleName,
			"1.0.0",
			"Sends content to translation providers and imports the results",
		),
	}
}

// NewWithProviders creates the module with a fixed set of providers.
func NewWithProviders(providers ...provider.Provider) *Module {
	m := New()
	m.providers = provider.NewRegistry(providers...)
	return m
}

// Init wires the controller, templates and jobs.
func (m *Module) Init(ctx *module.Context) error {
	m.ctx = ctx
	cfg := ctx.Config
	if cfg == nil {
		cfg = &config.Config{}
	}

	if m.providers == nil {
		m.providers = providersFromConfig(cfg)
	}
	defaultBackend := cfg.TranslationBackend
	if _, ok := m.providers.Get(defaultBackend); !ok {
		if names := m.providers.Names(); len(names) > 0 {
			defaultBackend = names[0]
		}
	}
	if len(m.providers.Names()) == 0 {
		ctx.Logger.Warn("no translation provider configured; quotes cannot be fetched")
	}

	m.controller = NewController(ControllerConfig{
		DB:             ctx.DB,
		Providers:      m.providers,
		Hooks:          ctx.Hooks,
		Cache:          ctx.Cache,
		Notifier:       ctx.Notifier,
		Logger:         ctx.Logger,
		CallbackURL:    cfg.CallbackURL,
		DefaultBackend: defaultBackend,
	})

	rps, burst := cfg.CallbackRateLimit, cfg.CallbackBurstLimit
	if rps <= 0 {
		rps = defaultCallbackRate
	}
	if burst <= 0 {
		burst = defaultCallbackBurst
	}
	m.callbackLimiter = middleware.NewIPRateLimiter(rps, burst)

	if ctx.Render != nil {
		if err := ctx.Render.AddTemplates(ModuleName, templatesFS, "templates", m.viewFuncs()); err != nil {
			return fmt.Errorf("loading translations templates: %w", err)
		}
	}

	if ctx.Scheduler != nil && cfg.StalledOrderAfter > 0 {
		if err := ctx.Scheduler.Register(ModuleName, stalledJobName,
			"Reports translation orders without a provider callback",
			stalledJobSchedule, m.controller.StalledOrdersJob(cfg.StalledOrderAfter)); err != nil {
			return fmt.Errorf("registering stalled order job: %w", err)
		}
	}

	ctx.Logger.Info("translations module initialized",
		"backends", m.providers.Names(),
		"default_backend", defaultBackend,
	)
	return nil
}

// Shutdown removes the module's jobs.
func (m *Module) Shutdown() error {
	if m.ctx != nil && m.ctx.Scheduler != nil {
		m.ctx.Scheduler.Unregister(ModuleName, stalledJobName)
	}
	return nil
}

// Controller returns the lifecycle controller; nil before Init.
func (m *Module) Controller() *Controller { return m.controller }

// RegisterRoutes mounts the provider callback.
func (m *Module) RegisterRoutes(r chi.Router) {
	r.With(m.callbackLimiter.Middleware()).Post("/translations/{id}/callback", m.handleCallback)
}

// RegisterAdminRoutes mounts the admin pages under /admin/translations.
func (m *Module) RegisterAdminRoutes(r chi.Router) {
	r.Route("/translations", func(r chi.Router) {
		r.Use(middleware.RequireEditor())

		r.Get("/", m.handleList)
		r.Get("/add", m.handleAddForm)
		r.Post("/add", m.handleCreate)
		r.Get("/directives", m.handleDirectives)
		r.Post("/directives", m.handleCreateDirective)
		r.Post("/directives/{id}/delete", m.handleDeleteDirective)
		r.Get("/{id}", m.handleDetail)
		r.Post("/{id}/get-quote-from-provider", m.handleFetchQuote)
		r.Get("/{id}/choose-quote", m.handleChooseQuoteForm)
		r.Post("/{id}/choose-quote", m.handleChooseQuote)
		r.Post("/{id}/retry", m.handleRetry)
	})
}

// TemplateFuncs exposes translateURL to other modules' templates.
func (m *Module) TemplateFuncs() template.FuncMap {
	return template.FuncMap{
		"translateURL": TranslateURL,
	}
}

// viewFuncs are the functions used by the module's own templates.
func (m *Module) viewFuncs() template.FuncMap {
	return template.FuncMap{
		"translateURL":    TranslateURL,
		"prettyStatus":    PrettyStatus,
		"prettyJSON":      func(raw []byte) string { return PrettyJSON(raw) },
		"prettyOptions":   PrettyOptions,
		"price":           DisplayPrice,
		"providerOrderID": ProviderOrderID,
		"add1":            func(i int) int { return i + 1 },
		"sub1":            func(i int) int { return i - 1 },
	}
}

// AdminURL is the module's admin landing page.
func (m *Module) AdminURL() string { return AdminBasePath }

// SidebarLabel is the admin navigation label.
func (m *Module) SidebarLabel() string { return "Translations" }

// LocalesFS returns the module's message catalogs.
func (m *Module) LocalesFS() fs.FS { return localesFS }

// TranslateURL links to the add form prefilled with a source object.
func TranslateURL(appLabel, modelName string, objectID any) string {
	q := url.Values{}
	q.Set("app_label", appLabel)
	q.Set("model_name", modelName)
	q.Set("object_id", fmt.Sprint(objectID))
	return AdminBasePath + "/add?" + q.Encode()
}

func providersFromConfig(cfg *config.Config) *provider.Registry {
	reg := provider.NewRegistry()
	if cfg.VendorEnabled() {
		reg.Register(provider.NewVendor(provider.VendorConfig{
			BaseURL:      cfg.VendorURL,
			APIKey:       cfg.VendorAPIKey,
			Timeout:      cfg.VendorTimeout,
			AllowPrivate: cfg.VendorAllowPrivate,
		}))
	}
	if cfg.OpenAIEnabled() {
		reg.Register(provider.NewOpenAI(provider.OpenAIConfig{
			APIKey:     cfg.OpenAIAPIKey,
			Model:      cfg.OpenAIModel,
			BaseURL:    cfg.OpenAIBaseURL,
			Timeout:    cfg.VendorTimeout,
			MaxRetries: -1,
		}))
	}
	return reg
}
