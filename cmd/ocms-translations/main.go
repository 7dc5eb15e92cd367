// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/olegiv/ocms-translations/internal/auth"
	"github.com/olegiv/ocms-translations/internal/cache"
	"github.com/olegiv/ocms-translations/internal/config"
	"github.com/olegiv/ocms-translations/internal/i18n"
	"github.com/olegiv/ocms-translations/internal/logging"
	"github.com/olegiv/ocms-translations/internal/middleware"
	"github.com/olegiv/ocms-translations/internal/module"
	"github.com/olegiv/ocms-translations/internal/render"
	"github.com/olegiv/ocms-translations/internal/scheduler"
	"github.com/olegiv/ocms-translations/internal/session"
	"github.com/olegiv/ocms-translations/internal/store"
	"github.com/olegiv/ocms-translations/internal/webhook"
	"github.com/olegiv/ocms-translations/modules/translations"
	"github.com/olegiv/ocms-translations/web"

	// Custom modules register themselves in init().
	_ "github.com/olegiv/ocms-translations/custom/modules"
)

// Version information - injected at build time via ldflags
var (
	appVersion   = "dev"
	appGitCommit = "unknown"
	appBuildTime = "unknown"
)

const (
	jobTimeout      = 5 * time.Minute
	shutdownTimeout = 30 * time.Second
)

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	showHelp := flag.Bool("help", false, "Show help information")
	flag.BoolVar(showHelp, "h", false, "Show help information (shorthand)")

	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "oCMS Translations - translation request service\n\n")
		_, _ = fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		_, _ = fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		_, _ = fmt.Fprintf(os.Stderr, "  OCMS_SESSION_SECRET        Session encryption key (required, min 32 bytes)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  OCMS_DB_PATH               SQLite database path (default: ./data/ocms-translations.db)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  OCMS_SERVER_PORT           Server port (default: 8080)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  OCMS_ENV                   Environment: development|production (default: development)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  OCMS_PUBLIC_URL            Base URL used in provider callback links\n")
		_, _ = fmt.Fprintf(os.Stderr, "  OCMS_TRANSLATION_BACKEND   Default provider: vendor|openai (default: vendor)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  OCMS_VENDOR_URL            Translation vendor API base URL\n")
		_, _ = fmt.Fprintf(os.Stderr, "  OCMS_VENDOR_ALLOW_PRIVATE  Allow a vendor on private addresses (default: false)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  OCMS_OPENAI_API_KEY        Enables the machine translation backend\n")
		_, _ = fmt.Fprintf(os.Stderr, "  OCMS_CALLBACK_SECRET       Shared secret for signed provider callbacks\n")
		_, _ = fmt.Fprintf(os.Stderr, "  OCMS_REDIS_URL             Redis URL for distributed caching (optional)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  OCMS_WEBHOOK_URLS          Comma-separated state change webhook targets\n")
	}

	flag.Parse()

	if *showHelp {
		flag.Usage()
		os.Exit(0)
	}

	if *showVersion {
		_, _ = fmt.Printf("ocms-translations %s (commit: %s, built: %s)\n", appVersion, appGitCommit, appBuildTime)
		os.Exit(0)
	}

	if err := run(); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Load .env files if present (development)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logLevel := parseLogLevel(cfg.LogLevel)
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	if err := i18n.Init(logger); err != nil {
		return fmt.Errorf("initializing i18n: %w", err)
	}
	slog.Info("i18n system initialized", "languages", i18n.SupportedLanguages)

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	slog.Info("initializing database", "path", cfg.DBPath)
	db, err := store.NewDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer func(db *sql.DB) {
		if err := db.Close(); err != nil {
			slog.Error("error closing database connection", "error", err)
		}
	}(db)

	slog.Info("running database migrations")
	if err := store.Migrate(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	// Upgrade logger to also write WARN and ERROR logs to the event log
	logger = slog.New(logging.NewEventLogHandler(
		slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}), db))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := store.SeedAdmin(ctx, db, cfg.AdminEmail, cfg.AdminPassword, auth.HashPassword); err != nil {
		return fmt.Errorf("seeding admin: %w", err)
	}

	sessions := session.New(db, session.DefaultConfig(cfg.IsDevelopment()))
	defer sessions.Close()

	appCache, cacheBackend := cache.New(cache.Config{
		RedisURL:   cfg.RedisURL,
		Prefix:     cfg.CachePrefix,
		DefaultTTL: time.Duration(cfg.CacheTTL) * time.Second,
		MaxSize:    cfg.CacheMaxSize,
	}, logger)
	defer func() {
		if err := appCache.Close(); err != nil {
			slog.Error("error closing cache", "error", err)
		}
	}()
	slog.Info("cache initialized", "backend", cacheBackend)

	renderer, err := render.New(render.Config{
		TemplatesFS:    web.TemplatesFS(),
		SessionManager: sessions.SessionManager,
	})
	if err != nil {
		return fmt.Errorf("initializing renderer: %w", err)
	}

	loginProtection := middleware.NewLoginProtection(middleware.DefaultLoginProtectionConfig())

	sched := scheduler.New(logger, jobTimeout)
	if err := registerCoreJobs(sched, db, cfg, loginProtection, logger); err != nil {
		return err
	}

	notifier := webhook.NewNotifier(ctx, webhook.Config{
		URLs:   cfg.WebhookURLs,
		Secret: cfg.WebhookSecret,
	}, logger)
	notifier.Start(ctx)
	defer notifier.Stop()

	registry := module.NewRegistry(logger)
	mods := append([]module.Module{translations.New()}, module.CustomModules()...)
	for _, m := range mods {
		if err := registry.Register(m); err != nil {
			return fmt.Errorf("registering module %s: %w", m.Name(), err)
		}
	}

	modCtx := &module.Context{
		DB:        db,
		Store:     store.New(db),
		Logger:    logger,
		Config:    cfg,
		Render:    renderer,
		Hooks:     module.NewHookRegistry(logger),
		Cache:     appCache,
		Scheduler: sched,
		Sessions:  sessions.SessionManager,
		Notifier:  notifier,
	}
	if err := registry.InitAll(modCtx); err != nil {
		return fmt.Errorf("initializing modules: %w", err)
	}
	defer func() {
		if err := registry.ShutdownAll(); err != nil {
			slog.Error("error shutting down modules", "error", err)
		}
	}()
	renderer.SetSidebarProvider(registry)

	sched.Start()
	defer sched.Stop()

	router := newRouter(routerDeps{
		cfg:             cfg,
		db:              db,
		sessions:        sessions.SessionManager,
		renderer:        renderer,
		registry:        registry,
		scheduler:       sched,
		loginProtection: loginProtection,
	})

	srv := &http.Server{
		Addr:              cfg.ServerAddr(),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("starting server", "addr", srv.Addr, "env", cfg.Env, "version", appVersion)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		slog.Info("shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped")
	return nil
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// registerCoreJobs adds the housekeeping jobs that do not belong to a module.
func registerCoreJobs(sched *scheduler.Scheduler, db *sql.DB, cfg *config.Config, lp *middleware.LoginProtection, logger *slog.Logger) error {
	if err := sched.Register(scheduler.SourceCore, "event_retention",
		"Deletes event log entries past the retention window",
		"@daily", scheduler.EventRetentionJob(db, cfg.EventRetentionDays, logger)); err != nil {
		return fmt.Errorf("registering event retention job: %w", err)
	}

	if err := sched.Register(scheduler.SourceCore, "login_protection_prune",
		"Drops expired login lockouts",
		"@every 10m", func(context.Context) error {
			if n := lp.Prune(); n > 0 {
				logger.Debug("pruned login protection entries", "count", n)
			}
			return nil
		}); err != nil {
		return fmt.Errorf("registering login protection job: %w", err)
	}
	return nil
}
